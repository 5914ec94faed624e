package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/config"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/service"
)

var (
	cfgPath  string
	scenario string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdn",
	Short: "Power-flow engine for DC power-distribution trees",
	Long: `pdn computes the steady-state power flow of a DC power-distribution
project: sources, converters, buses, loads and nested subsystems.

It evaluates projects from the command line, serves them over HTTP,
plots converter efficiency curves and overlays live Modbus metering.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if cfgPath == "" {
			cfg = config.Default()
			return nil
		}
		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a JSON configuration file")
	rootCmd.PersistentFlags().StringVarP(&scenario, "scenario", "s", "", "scenario to compute (Typical, Max, Idle)")
}

// loadProject reads a project file and applies the --scenario flag.
func loadProject(path string) (*project.Project, error) {
	p, err := project.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if scenario != "" {
		p.CurrentScenario = project.Scenario(scenario)
	}
	return p, nil
}

func newService() (*service.Engine, error) {
	return service.New(cfg.Engine)
}
