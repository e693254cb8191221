package order

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveRequeue bool

var ResolveCmd = &cobra.Command{
	Use:   "resolve <local-order-id>",
	Short: "Resolve a conflicted order",
	Long: `Settles an order the backend flagged as CONFLICT. By default the order
is discarded (marked FAILED, kept for audit). With --requeue its content is
cloned into a fresh pending order under a new operation id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		newID, err := app.Recovery.ResolveConflict(cmd.Context(), args[0], resolveRequeue)
		if err != nil {
			return fmt.Errorf("failed to resolve conflict: %w", err)
		}

		if resolveRequeue {
			color.Green("Conflict resolved, order requeued as %s", newID)
		} else {
			color.Yellow("Conflict resolved, order discarded")
		}
		return nil
	},
}

func init() {
	ResolveCmd.Flags().BoolVar(&resolveRequeue, "requeue", false,
		"clone the order content into a new pending order")
}
