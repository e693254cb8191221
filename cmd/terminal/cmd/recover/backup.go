package recover

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tillsync/internal/app/terminal"
)

var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the local store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		path, err := app.Recovery.BackupStore(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		color.Green("Backup written to %s", path)
		return nil
	},
}

var RestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the local store with a backup snapshot",
	Long: `Closes the store and swaps in the given snapshot. Orders taken after
the snapshot are lost; the displaced database is kept next to the store with
a .pre-restore suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		if err := app.Store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		if err := terminal.RestoreFromBackup(args[0], app.Config.StorePath, app.Log); err != nil {
			return err
		}

		color.Green("Store restored from %s; restart the terminal", args[0])
		return nil
	},
}
