// Command surveyctl is the template author's companion: it lints, evaluates
// and imports questionnaire templates written as YAML or JSON.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "surveyctl",
		Short:         "Questionnaire template tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		lintCmd(),
		evaluateCmd(),
		importCmd(),
	)
	return root
}
