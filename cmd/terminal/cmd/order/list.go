package order

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tillsync/internal/domain/order"
)

var listState string

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued orders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		orders, err := app.Store.ListByState(cmd.Context(), order.SyncState(listState))
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}

		if len(orders) == 0 {
			fmt.Printf("No orders in state %s\n", listState)
			return nil
		}

		for _, o := range orders {
			line := fmt.Sprintf("%s  %-8s  total=%.2f  attempts=%d  %s",
				o.LocalOrderID, o.SyncState, o.Order.Total, o.Attempts,
				o.CreatedOfflineAt.Format("2006-01-02 15:04:05"))
			switch o.SyncState {
			case order.StateSynced:
				color.Green("%s  -> %s", line, o.OrderNumber)
			case order.StateFailed, order.StateConflict:
				color.Red("%s  %s", line, o.LastError)
			default:
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	ListCmd.Flags().StringVarP(&listState, "state", "s", string(order.StatePending),
		"sync state to list (PENDING, SYNCING, SYNCED, FAILED, CONFLICT)")
}
