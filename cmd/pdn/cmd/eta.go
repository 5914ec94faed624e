package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
)

var (
	etaModel   string
	etaRatings efficiency.Ratings
	etaIOut    float64
)

var etaCmd = &cobra.Command{
	Use:   "eta",
	Short: "Evaluate an efficiency model at an operating point",
	Long: `Evaluate a converter efficiency model at an output current.

Example:
  pdn eta --model 0.93 --vout 12 --iout 20
  pdn eta --model '{"type":"curve","base":"Iout_max","points":[{"loadPct":10,"eta":0.8},{"loadPct":100,"eta":0.95}]}' \
    --vout 1 --iout 40 --iout-max 80`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model := &project.EfficiencyModel{}
		if err := json.Unmarshal([]byte(etaModel), model); err != nil {
			return fmt.Errorf("model: %w", err)
		}
		eta, err := efficiency.Evaluate(model, etaIOut*etaRatings.Vout, etaIOut, etaRatings)
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", eta)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
		return nil
	},
}

func init() {
	etaCmd.Flags().StringVarP(&etaModel, "model", "m", "", "efficiency model as JSON")
	etaCmd.Flags().Float64Var(&etaRatings.Vout, "vout", 0, "output voltage (V)")
	etaCmd.Flags().Float64Var(&etaIOut, "iout", 0, "output current (A)")
	etaCmd.Flags().Float64Var(&etaRatings.IoutMax, "iout-max", 0, "rated output current (A)")
	etaCmd.Flags().Float64Var(&etaRatings.PoutMax, "pout-max", 0, "rated output power (W)")
	etaCmd.Flags().IntVar(&etaRatings.PhaseCount, "phases", 0, "phase count for per-phase curves")
	etaCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(etaCmd)
}
