package recover

import (
	"fmt"

	"github.com/spf13/cobra"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
)

var RecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Backup, restore and repair the local store",
	Long: `Operator recovery actions: snapshot the local database, restore from a
snapshot, refresh reference data, and as a last resort wipe local state.`,
}

func appFrom(cmd *cobra.Command) (*terminal.App, error) {
	app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("terminal is not initialized")
	}
	return app, nil
}
