package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/coderef/unifiedllm"
)

var modelsProvider string

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}
	cmd.Flags().StringVar(&modelsProvider, "provider", "", "Only list models for this provider")
	return cmd
}

func runModels(cmd *cobra.Command, args []string) error {
	models := unifiedllm.ListModels(modelsProvider)
	if len(models) == 0 {
		return fmt.Errorf("no models known for provider %q", modelsProvider)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tDOC TOOLS\tALIASES")
	for _, m := range models {
		tools := "no"
		if m.SupportsServerTools {
			tools = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", m.ID, m.Provider, m.ContextWindow, tools, strings.Join(m.Aliases, ", "))
	}
	return tw.Flush()
}
