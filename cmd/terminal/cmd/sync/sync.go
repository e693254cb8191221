package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
	domain "tillsync/internal/domain/sync"
)

var showStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the offline queue now",
	Long: `Runs one sync cycle immediately: connectivity check, crash recovery,
then one idempotent submission per pending order in creation order.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
		if !ok || app == nil {
			return fmt.Errorf("terminal is not initialized")
		}

		if showStatus {
			return printStatus(cmd, app)
		}

		result, err := app.Orchestrator.SyncNow(cmd.Context())
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrOffline):
				color.Yellow("Offline; orders stay queued until connectivity returns")
				return nil
			case errors.Is(err, domain.ErrSyncInProgress):
				color.Yellow("A sync cycle is already running")
				return nil
			}
			return err
		}

		color.Green("Sync finished in %s", result.Duration.Round(time.Millisecond))
		fmt.Printf("  submitted: %d\n", result.Submitted)
		fmt.Printf("  synced:    %d\n", result.Synced)
		if result.Failed > 0 {
			color.Red("  failed:    %d (see 'till order list -s FAILED')", result.Failed)
		}
		if result.Conflicts > 0 {
			color.Red("  conflicts: %d (see 'till order list -s CONFLICT')", result.Conflicts)
		}
		if result.Stopped {
			color.Yellow("  stopped early on a transport failure; remaining orders stay queued")
		}
		return nil
	},
}

func printStatus(cmd *cobra.Command, app *terminal.App) error {
	stats, err := app.Store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load queue stats: %w", err)
	}

	fmt.Println("Queue:")
	fmt.Printf("  pending:  %d\n", stats.Pending)
	fmt.Printf("  syncing:  %d\n", stats.Syncing)
	fmt.Printf("  synced:   %d\n", stats.Synced)
	fmt.Printf("  failed:   %d\n", stats.Failed)
	fmt.Printf("  conflict: %d\n", stats.Conflict)

	identity, err := app.Store.Identity(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	fmt.Printf("Device: %s (%s)\n", identity.Fingerprint, identity.Status)

	fmt.Print("Backend: ")
	if app.Monitor.IsOnline(cmd.Context()) {
		color.Green("reachable")
	} else {
		color.Red("unreachable")
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&showStatus, "status", false, "show queue and connectivity status")
}
