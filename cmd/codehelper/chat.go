package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/martinemde/codehelper/chatui"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "chat",
		Short:       "Chat with the assistant about the project in a full-screen terminal UI",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{quietLogsAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, ws, client, err := newSession(a.settings)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			defer session.Close()

			ctx := cmd.Context()
			if a.settings.Project.Watch {
				if err := ws.Watch(ctx); err != nil {
					log.Warn().Err(err).Msg("Project tree will not be cached")
				}
			}

			title := "codehelper · " + ws.Name() + " · " + a.settings.AgentOptions().Model
			p := tea.NewProgram(
				chatui.New(session, chatui.WithTitle(title), chatui.WithContext(ctx)),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)
			if _, err := p.Run(); err != nil {
				return errors.Wrap(err, "running chat UI")
			}
			return nil
		},
	}
}
