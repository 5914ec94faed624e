package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ohowland/pdn_core/internal/pkg/comm/modbuscomm"
	"github.com/ohowland/pdn_core/internal/pkg/database/mongodb"
	"github.com/ohowland/pdn_core/internal/pkg/database/sqldb"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/kafka"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/mqtt"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/pdn_core/internal/pkg/service"
	"github.com/ohowland/pdn_core/internal/pkg/webservice"
)

var serveCmd = &cobra.Command{
	Use:   "serve [project.json]",
	Short: "Serve the engine over HTTP and publish results to the configured sinks",
	Long: `Start the HTTP API and every sink present in the configuration file
(MongoDB, SQL, NATS, Kafka, MQTT). When a project is given and the configuration
has a Modbus section, the project is recomputed on every metering poll.

Example:
  pdn serve -c pdn.json
  pdn serve -c pdn.json rack.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("[Main] Starting pdn")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return svc.Process(ctx) })

		app := &webservice.App{Service: svc, Config: cfg.Webservice}
		if err := startSinks(ctx, g, svc, app); err != nil {
			return err
		}

		if len(args) == 1 && cfg.Modbus != nil {
			p, err := loadProject(args[0])
			if err != nil {
				return err
			}
			poller := modbuscomm.NewPoller(cfg.Modbus.Poller)
			log.Println("[Main] Metering", p.ID, "every", poller.Interval())
			g.Go(func() error {
				modbuscomm.Monitor(ctx, poller, cfg.Modbus.Registers, poller.Interval(), func(readings map[string]float64, _ error) {
					overlaid, issues := modbuscomm.ApplyMeasurements(p, readings)
					for _, issue := range issues {
						log.Println("[Main]", issue)
					}
					svc.Submit(overlaid)
				})
				return nil
			})
		} else if len(args) == 1 {
			p, err := loadProject(args[0])
			if err != nil {
				return err
			}
			svc.Submit(p)
		}

		g.Go(func() error { return app.Serve(ctx) })

		err = g.Wait()
		log.Println("[Main] Stopping pdn")
		return err
	},
}

// startSinks launches a handler for every configured sink. The SQL store is
// also handed to the app so snapshots survive the in-memory history.
func startSinks(ctx context.Context, g *errgroup.Group, svc *service.Engine, app *webservice.App) error {
	if cfg.SQL != nil {
		store, err := sqldb.Open(ctx, *cfg.SQL)
		if err != nil {
			return err
		}
		h, err := sqldb.New(store, svc)
		if err != nil {
			store.Close()
			return err
		}
		app.Store = store
		g.Go(func() error {
			defer store.Close()
			return h.Process(ctx)
		})
	}
	if cfg.MongoDB != nil {
		h, err := mongodb.New(*cfg.MongoDB, svc)
		if err != nil {
			return err
		}
		g.Go(func() error { return h.Process(ctx) })
	}
	if cfg.NATS != nil {
		h, err := natshandler.New(*cfg.NATS, svc)
		if err != nil {
			return err
		}
		g.Go(func() error { return h.Process(ctx) })
	}
	if cfg.Kafka != nil {
		h, err := kafka.New(*cfg.Kafka, svc)
		if err != nil {
			return err
		}
		g.Go(func() error { return h.Process(ctx) })
	}
	if cfg.MQTT != nil {
		h, err := mqtt.New(*cfg.MQTT, svc)
		if err != nil {
			return err
		}
		g.Go(func() error { return h.Process(ctx) })
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
