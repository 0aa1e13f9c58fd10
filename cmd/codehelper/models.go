package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/codehelper/llm"
)

func newModelsCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models for the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := a.settings.LLM.Provider
			if all {
				provider = ""
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tCONTEXT\tTOOLS\tALIASES")
			for _, m := range llm.ListModels(provider) {
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", m.ID, m.Provider, m.ContextWindow, m.SupportsTools, strings.Join(m.Aliases, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list models of every provider")
	return cmd
}
