package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdarko/wastedispatch/app"
	"github.com/kdarko/wastedispatch/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one threshold check across all configured zones",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.Manager.CheckZones(ctx)

	for _, zone := range cfg.Schedule.Zones {
		for _, run := range svc.Store.Runs(zone) {
			fmt.Printf("%s\t%s\t%s\t%d reports\n", run.ID, run.Zone, run.Status, run.ReportsCount)
		}
	}
	return nil
}
