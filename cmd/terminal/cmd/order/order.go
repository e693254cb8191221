package order

import (
	"fmt"

	"github.com/spf13/cobra"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
)

var OrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage the offline order queue",
	Long: `Orders taken while offline sit in a local queue until sync pushes them
to the backend. These commands create, inspect and repair queued orders.`,
}

func appFrom(cmd *cobra.Command) (*terminal.App, error) {
	app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("terminal is not initialized")
	}
	return app, nil
}
