package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <project.json>",
	Short: "Compute every scenario of a project",
	Long: `Compute the project once per scenario and print the totals side by side.

Example:
  pdn sweep rack.json`,
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

		snaps := svc.Sweep(p)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCENARIO\tSOURCE (W)\tLOAD (W)\tEDGE LOSS (W)\tETA\tWARNINGS")
		for _, s := range p.ScenarioList() {
			res := snaps[s].Result
			if res == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.2f%%\t%d\n",
				s, res.TotalSourcePower, res.TotalLoadPower, res.TotalEdgeLoss(), res.OverallEfficiency*100, res.WarningCount())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
