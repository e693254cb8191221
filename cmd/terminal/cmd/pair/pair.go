package pair

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
	"tillsync/internal/domain/device"
)

var PairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair this terminal with the backend",
	Long: `Runs the one-time pairing handshake. The backend issues a short user
code; an operator approves it on the backend side, and the terminal receives
its device id. Until then the terminal can sell offline but cannot sync.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
		if !ok || app == nil {
			return fmt.Errorf("terminal is not initialized")
		}

		pairer := app.NewPairer()
		pairer.OnProgress(func(p device.Progress) {
			switch p.State {
			case device.PairingInitializing:
				fmt.Println("Requesting activation code...")
			case device.PairingWaitingApproval:
				fmt.Printf("\rWaiting for approval, code %s (%ds left)  ",
					color.New(color.Bold).Sprint(p.UserCode), p.RemainingSeconds)
			case device.PairingApproved:
				fmt.Println()
			}
		})

		identity, err := pairer.Run(cmd.Context())
		if err != nil {
			fmt.Println()
			switch {
			case errors.Is(err, device.ErrAlreadyPaired):
				color.Yellow("Terminal is already paired")
				return nil
			case errors.Is(err, device.ErrPairingExpired):
				color.Red("Activation code expired; run pair again for a fresh code")
			}
			return err
		}

		color.Green("Paired: device id %s", identity.DeviceID)
		return nil
	},
}
