package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdarko/wastedispatch/config"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the configured fleet",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, v := range cfg.Fleet {
		pct := 0.0
		if v.TankCapacityL > 0 {
			pct = v.CurrentFuelL / v.TankCapacityL * 100
		}
		fmt.Printf("%s\t%s\t%.1f km/L\t%.0f%% fuel\n", v.ID, v.Type, v.FuelEfficiencyKmPerL, pct)
	}
	return nil
}
