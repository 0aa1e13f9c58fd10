package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/martinemde/codehelper/agent"
)

func newAskCommand(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "ask <request...>",
		Short: "Run a single turn and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, client, err := newSession(a.settings)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			defer session.Close()

			result, err := session.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plain || !isTerminal(out) {
				_, err = fmt.Fprintln(out, result.Reply)
			} else {
				_, err = fmt.Fprint(out, renderMarkdown(result.Reply))
			}
			if err != nil {
				return err
			}
			printBuildSummary(cmd.ErrOrStderr(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the reply without markdown rendering")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// renderMarkdown returns the raw text if rendering fails.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func printBuildSummary(w io.Writer, result *agent.TurnResult) {
	if result.Build == nil {
		return
	}
	b := result.Build
	fmt.Fprintf(w, "\nbuild %s after %d rounds\n", b.Outcome, b.Attempts)
	for _, p := range b.Changes.Paths() {
		fmt.Fprintf(w, "  %s\n", p)
	}
}
