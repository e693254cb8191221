package recover

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Refresh reference data from the backend",
	Long: `Pulls the current dataset versions and credential dump, then returns
failed orders to the queue so the next cycle retries them against fresh
reference data.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		if err := app.Recovery.FullResync(cmd.Context()); err != nil {
			return fmt.Errorf("full resync failed: %w", err)
		}

		color.Green("Reference data refreshed")
		return nil
	},
}

var SeedCmd = &cobra.Command{
	Use:   "seed <seed-file>",
	Short: "Load reference data from a local seed file",
	Long: `Installs dataset versions and credentials from a JSON file, for
provisioning a terminal that has never reached the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		if err := app.Recovery.LoadSeedData(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("seed load failed: %w", err)
		}

		color.Green("Seed data loaded from %s", args[0])
		return nil
	},
}
