package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTreeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the project tree the assistant sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(a.settings)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s/\n%s", ws.Name(), ws.Tree())
			return err
		},
	}
}
