package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultEnv           = "local"
	defaultDataDir       = ".tillsync"
)

type Config struct {
	Env                 string        `mapstructure:"app_env"`
	ServerAddress       string        `mapstructure:"server_address"`
	EnableTLS           bool          `mapstructure:"enable_tls"`
	DataDir             string        `mapstructure:"data_dir"`
	StorePath           string        `mapstructure:"store_path"`
	BackupDir           string        `mapstructure:"backup_dir"`
	SeedPath            string        `mapstructure:"seed_path"`
	SyncInterval        time.Duration `mapstructure:"sync_interval_seconds"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout_seconds"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout_seconds"`
	PairingPollInterval time.Duration `mapstructure:"pairing_poll_interval_seconds"`
}

// MustLoad reads the terminal configuration from the environment, with an
// optional .env file, and panics on invalid values. The data directory is
// created on first run.
func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("DATA_DIR", defaultDataDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("PROBE_TIMEOUT_SECONDS", 3)
	viper.SetDefault("PAIRING_POLL_INTERVAL_SECONDS", 5)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := viper.GetString("DATA_DIR")
	if dataDir == defaultDataDir {
		dataDir = filepath.Join(homeDir, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fmt.Printf("failed to create data directory: %v\n", err)
	}

	backupDir := filepath.Join(dataDir, "backups")
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		fmt.Printf("failed to create backup directory: %v\n", err)
	}

	config := &Config{
		Env:                 viper.GetString("APP_ENV"),
		ServerAddress:       viper.GetString("SERVER_ADDRESS"),
		EnableTLS:           viper.GetBool("ENABLE_TLS"),
		DataDir:             dataDir,
		StorePath:           filepath.Join(dataDir, "terminal.db"),
		BackupDir:           backupDir,
		SeedPath:            viper.GetString("SEED_PATH"),
		SyncInterval:        time.Duration(viper.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		RequestTimeout:      time.Duration(viper.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		ProbeTimeout:        time.Duration(viper.GetInt("PROBE_TIMEOUT_SECONDS")) * time.Second,
		PairingPollInterval: time.Duration(viper.GetInt("PAIRING_POLL_INTERVAL_SECONDS")) * time.Second,
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	return nil
}

// IsProd reports whether the terminal runs in the prod environment.
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal reports whether the terminal runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
