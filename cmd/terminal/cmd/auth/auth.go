package auth

import (
	"github.com/spf13/cobra"
)

var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Cashier authentication",
	Long:  `Offline-capable cashier login against the locally cached credential set.`,
}
