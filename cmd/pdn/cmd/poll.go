package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/comm/modbuscomm"
)

var pollCount int

var pollCmd = &cobra.Command{
	Use:   "poll <project.json>",
	Short: "Recompute a project from Modbus metering",
	Long: `Read the configured Modbus registers, overlay the readings on the load
currents of the project and print the totals after every poll. Runs until
interrupted, or for --count polls.

Example:
  pdn poll -c pdn.json --count 5 rack.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Modbus == nil {
			return errors.New("configuration has no Modbus section")
		}
		p, err := loadProject(args[0])
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		out := cmd.OutOrStdout()
		polls := 0
		poller := modbuscomm.NewPoller(cfg.Modbus.Poller)
		modbuscomm.Monitor(ctx, poller, cfg.Modbus.Registers, poller.Interval(), func(readings map[string]float64, err error) {
			overlaid, issues := modbuscomm.ApplyMeasurements(p, readings)
			res := svc.Compute(overlaid).Result
			fmt.Fprintf(out, "%s  %d readings  source %.3f W  load %.3f W  eta %.2f %%  %d warnings\n",
				time.Now().Format(time.RFC3339), len(readings), res.TotalSourcePower, res.TotalLoadPower, res.OverallEfficiency*100, res.WarningCount())
			for _, issue := range issues {
				fmt.Fprintln(out, "  ", issue)
			}
			if err != nil {
				fmt.Fprintln(out, "  ", err)
			}
			polls++
			if pollCount > 0 && polls >= pollCount {
				cancel()
			}
		})
		return nil
	},
}

func init() {
	pollCmd.Flags().IntVarP(&pollCount, "count", "n", 0, "stop after this many polls (0 polls forever)")
	rootCmd.AddCommand(pollCmd)
}
