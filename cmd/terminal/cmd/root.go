package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
	"tillsync/internal/app/terminal/config"
	"tillsync/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *terminal.App
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "till",
	Short: "Tillsync - offline-first point-of-sale terminal",
	Long: `Tillsync keeps a point-of-sale terminal selling when the network is down.

Orders taken offline are queued in a local durable store and pushed to the
backend when connectivity returns. Cashier logins are verified against a
locally cached credential set, so the till never blocks on the network.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if app != nil {
		_ = app.Close()
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = terminal.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.TerminalAppKey, app))
	return nil
}

func appFrom(cmd *cobra.Command) (*terminal.App, error) {
	app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("terminal is not initialized")
	}
	return app, nil
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "backend address override")
}
