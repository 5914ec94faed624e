package cmd

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/comm/modbuscomm"
	"github.com/ohowland/pdn_core/internal/pkg/hmi"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
)

var viewLive bool

var viewCmd = &cobra.Command{
	Use:   "view <project.json>",
	Short: "Browse a computed project in the terminal",
	Long: `Open a terminal viewer with the node table, the stage summary, the
distribution tree and the warnings of a project. With --live the project
is recomputed from Modbus metering and the viewer follows the results.

Example:
  pdn view rack.json
  pdn view -c pdn.json --live rack.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(args[0])
		if err != nil {
			return err
		}
		if viewLive && cfg.Modbus == nil {
			return errors.New("--live needs a configuration with a Modbus section")
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		viewer := hmi.NewViewer(p, svc.Compute(p))
		if viewLive {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			inbox, err := svc.Subscribe(uuid.New(), msg.Result)
			if err != nil {
				return err
			}
			go viewer.Follow(inbox)

			poller := modbuscomm.NewPoller(cfg.Modbus.Poller)
			go modbuscomm.Monitor(ctx, poller, cfg.Modbus.Registers, poller.Interval(), func(readings map[string]float64, _ error) {
				overlaid, _ := modbuscomm.ApplyMeasurements(p, readings)
				svc.Compute(overlaid)
			})
		}
		return viewer.Run()
	},
}

func init() {
	viewCmd.Flags().BoolVar(&viewLive, "live", false, "recompute from Modbus metering")
	rootCmd.AddCommand(viewCmd)
}
