package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ohowland/pdn_core/internal/pkg/project"
)

var validateCmd = &cobra.Command{
	Use:   "validate <project.json>",
	Short: "Check a project for structural problems",
	Long: `Check a project for dangling edges, duplicate ids, malformed efficiency
models and broken subsystems without computing it. Exits non-zero
when any issue is found.

Example:
  pdn validate rack.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(args[0])
		if err != nil {
			return err
		}
		issues := append(append([]string{}, p.Issues...), project.Validate(p)...)
		for _, issue := range issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue)
		}
		if len(issues) > 0 {
			return fmt.Errorf("%s: %d issue(s)", args[0], len(issues))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No issues.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
