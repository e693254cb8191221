package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	Server server
	DB     db
	Ingest ingest
}

type server struct {
	RunAddress string
}

type db struct {
	DatabaseURI string
	Migrations  string
}

type ingest struct {
	// Envelopes whose created_at lies outside now +/- FreshnessWindow are
	// rejected.
	FreshnessWindow time.Duration
	PairingTTL      time.Duration
}

func MustLoad() *Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("RUN_ADDRESS", "localhost:8080")
	viper.SetDefault("FRESHNESS_WINDOW_SECONDS", 300)
	viper.SetDefault("PAIRING_TTL_SECONDS", 600)

	return &Config{
		Env: viper.GetString("APP_ENV"),
		Server: server{
			RunAddress: viper.GetString("RUN_ADDRESS"),
		},
		DB: db{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Ingest: ingest{
			FreshnessWindow: time.Duration(viper.GetInt("FRESHNESS_WINDOW_SECONDS")) * time.Second,
			PairingTTL:      time.Duration(viper.GetInt("PAIRING_TTL_SECONDS")) * time.Second,
		},
	}
}
