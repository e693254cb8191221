package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tillsync/cmd/terminal/cmd/types"
	"tillsync/internal/app/terminal"
	"tillsync/internal/domain/credential"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log a cashier in with their PIN",
	Long: `Verifies the cashier PIN against the locally cached credential set.
Works fully offline; the cache is refreshed by sync and full resync.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.TerminalAppKey).(*terminal.App)
		if !ok || app == nil {
			return fmt.Errorf("terminal is not initialized")
		}

		fmt.Print("Username: ")
		var username string
		_, _ = fmt.Scanln(&username)

		fmt.Print("PIN: ")
		pin, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read PIN: %w", err)
		}
		fmt.Println()

		user, err := app.Verifier.Verify(cmd.Context(), username, string(pin))
		if err != nil {
			switch {
			case errors.Is(err, credential.ErrBadPIN):
				color.Red("Wrong PIN")
			case errors.Is(err, credential.ErrNotCached):
				color.Red("User %s is not cached on this terminal; run a full resync while online", username)
			default:
				color.Red("Login failed: %v", err)
			}
			return err
		}

		color.Green("Logged in as %s (%s)", user.Username, user.Role)
		return nil
	},
}
