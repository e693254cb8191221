package recover

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var ResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe local orders, credentials and dataset versions",
	Long: `Destructive reset. Takes a backup first, then deletes every queued
order, the credential cache and the dataset versions. Device pairing is kept.
Unsynced orders are unrecoverable except from the backup.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		stats, err := app.Store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load queue stats: %w", err)
		}

		unsynced := stats.Pending + stats.Syncing + stats.Failed + stats.Conflict
		if unsynced > 0 {
			color.Red("WARNING: %d unsynced order(s) will be deleted", unsynced)
		}

		if !resetYes {
			fmt.Print("Type 'reset' to confirm: ")
			var answer string
			_, _ = fmt.Scanln(&answer)
			if strings.TrimSpace(answer) != "reset" {
				fmt.Println("Aborted")
				return nil
			}
		}

		backup, err := app.Recovery.DestructiveReset(cmd.Context())
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.Green("Local state wiped; backup kept at %s", backup)
		return nil
	},
}

func init() {
	ResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
}
