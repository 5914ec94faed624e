package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/etaplot"
)

var (
	plotOutput  string
	plotSamples int
)

var plotCmd = &cobra.Command{
	Use:   "plot <project.json>",
	Short: "Plot the efficiency curves of every converter in a project",
	Long: `Plot efficiency against load for every converter and converter output of
a project, nested subsystems included. The image format follows the
output file extension (png, svg, pdf).

Example:
  pdn plot rack.json -o rack-eta.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(args[0])
		if err != nil {
			return err
		}
		title := p.Name
		if title == "" {
			title = args[0]
		}
		if err := etaplot.Save(plotOutput, title, etaplot.ProjectCurves(p, plotSamples)...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", plotOutput)
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "eta.png", "output image path")
	plotCmd.Flags().IntVar(&plotSamples, "samples", etaplot.DefaultSamples, "points per curve")
	rootCmd.AddCommand(plotCmd)
}
