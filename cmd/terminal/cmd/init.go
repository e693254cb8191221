package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tillsync/cmd/terminal/cmd/auth"
	"tillsync/cmd/terminal/cmd/order"
	"tillsync/cmd/terminal/cmd/pair"
	"tillsync/cmd/terminal/cmd/recover"
	syncCmd "tillsync/cmd/terminal/cmd/sync"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the terminal with background sync",
	Long: `Starts the terminal in service mode: the sync loop drains the offline
queue on a timer until the process receives SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Terminal running, syncing every %s. Ctrl+C to stop.\n", app.Config.SyncInterval)
		return app.Run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)

	rootCmd.AddCommand(order.OrderCmd)
	order.OrderCmd.AddCommand(order.CreateCmd)
	order.OrderCmd.AddCommand(order.ListCmd)
	order.OrderCmd.AddCommand(order.RequeueCmd)
	order.OrderCmd.AddCommand(order.ResolveCmd)

	rootCmd.AddCommand(pair.PairCmd)
	rootCmd.AddCommand(syncCmd.SyncCmd)

	rootCmd.AddCommand(recover.RecoverCmd)
	recover.RecoverCmd.AddCommand(recover.BackupCmd)
	recover.RecoverCmd.AddCommand(recover.RestoreCmd)
	recover.RecoverCmd.AddCommand(recover.ResyncCmd)
	recover.RecoverCmd.AddCommand(recover.SeedCmd)
	recover.RecoverCmd.AddCommand(recover.ResetCmd)
}
