package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <project.json>",
	Short: "List the conversion and distribution stages of a project",
	Long: `List every converter and bus of a project, nested subsystems included,
with input and output power, losses and the interconnect loss downstream
of each stage.

Example:
  pdn summary rack.json`,
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

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LOCATION\tNAME\tKIND\tx\tP_IN\tP_OUT\tLOSS\tETA\tEDGE LOSS")
		for _, e := range svc.Compute(p).Summary {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\t%.3f\t%.3f\t%.1f%%\t%.3f\n",
				e.Location, e.Name, e.Kind, e.Multiplier, e.PIn, e.POut, e.Loss, e.Efficiency*100, e.DownstreamEdgeLoss)
			for _, o := range e.Outputs {
				fmt.Fprintf(w, "\t  %s\t\t\t%.3f\t%.3f\t%.3f\t%.1f%%\t%.3f\n",
					o.Label, o.PIn, o.POut, o.Loss, o.Efficiency*100, o.DownstreamEdgeLoss)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
