package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/hmi"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
)

var totalsOnly bool

var computeCmd = &cobra.Command{
	Use:   "compute <project.json>",
	Short: "Compute the power flow of a project",
	Long: `Compute the power flow of a project and print the result as JSON.

Example:
  pdn compute rack.json --scenario Max
  pdn compute rack.json --totals`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(args[0])
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		res := svc.Compute(p).Result
		if totalsOnly {
			printTotals(cmd.OutOrStdout(), res)
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func printTotals(w io.Writer, res *powerflow.Result) {
	fmt.Fprintf(w, "Scenario:        %s\n", res.Scenario)
	fmt.Fprintf(w, "Source power:    %.3f W\n", res.TotalSourcePower)
	fmt.Fprintf(w, "Load power:      %.3f W (critical %.3f W, non-critical %.3f W)\n",
		res.TotalLoadPower, res.CriticalLoadPower, res.NonCriticalLoadPower)
	fmt.Fprintf(w, "Interconnect:    %.3f W\n", res.TotalEdgeLoss())
	fmt.Fprintf(w, "Efficiency:      %.2f %%\n", res.OverallEfficiency*100)
	for _, warning := range hmi.Warnings(res) {
		fmt.Fprintln(w, "warning:", warning)
	}
}

func init() {
	computeCmd.Flags().BoolVar(&totalsOnly, "totals", false, "print totals and warnings instead of the full result")
	rootCmd.AddCommand(computeCmd)
}
