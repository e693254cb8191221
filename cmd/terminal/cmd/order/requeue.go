package order

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var RequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Return failed orders to the queue",
	Long: `Moves every FAILED order back to PENDING so the next sync cycle retries
it. Typically run after a full resync has refreshed reference data.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		n, err := app.Store.RequeueFailed(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to requeue orders: %w", err)
		}

		color.Green("Requeued %d order(s)", n)
		return nil
	},
}
