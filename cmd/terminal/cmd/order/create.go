package order

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tillsync/internal/domain/order"
)

var orderFile string

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Queue an order taken at the till",
	Long: `Reads the order payload (order, payments, inventory deltas, approvals)
from a JSON file and enqueues it as PENDING. No network is involved; the sale
is durable the moment this command returns.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(orderFile)
		if err != nil {
			return fmt.Errorf("failed to read order file: %w", err)
		}

		var local order.LocalOrder
		if err := json.Unmarshal(raw, &local); err != nil {
			return fmt.Errorf("failed to parse order file: %w", err)
		}

		id, err := app.Store.Enqueue(cmd.Context(), &local)
		if err != nil {
			return fmt.Errorf("failed to enqueue order: %w", err)
		}

		color.Green("Order queued: %s", id)
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&orderFile, "file", "f", "", "JSON file with the order payload")
	_ = CreateCmd.MarkFlagRequired("file")
}
