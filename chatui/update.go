package chatui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/agent"
)

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnDoneMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = turnStatus(msg.result)
		}
		m.refresh()
		return m, nil

	case agentEventMsg:
		if s := describeEvent(msg.event); s != "" && m.busy {
			m.status = s
		}
		return m, waitForEvent(m.session.Events())

	case eventsClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Clear):
		m.clear()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	switch text {
	case "":
		return m, nil
	case "/clear":
		m.input.Reset()
		m.clear()
		return m, nil
	case "/quit", "/exit":
		return m, tea.Quit
	}

	if m.busy {
		m.status = "Still working on the previous request"
		return m, nil
	}

	m.input.Reset()
	m.busy = true
	m.pending = text
	m.status = "Thinking..."
	m.refresh()
	log.Debug().Int("chars", len(text)).Msg("submitting prompt")
	return m, tea.Batch(submitCmd(m.ctx, m.session, text), m.spinner.Tick)
}

func (m *Model) clear() {
	if m.busy {
		m.status = "Cannot clear while a request is running"
		return
	}
	if err := m.session.Clear(); err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.status = "History cleared"
	m.refresh()
}

func turnStatus(result *agent.TurnResult) string {
	if result == nil || result.Build == nil {
		return "Ready"
	}
	b := result.Build
	switch b.Outcome {
	case agent.OutcomeDone:
		return fmt.Sprintf("Build done after %d rounds, %d files", b.Attempts, b.Changes.Len())
	case agent.OutcomeExhausted:
		return fmt.Sprintf("Build stopped at the %d round limit, %d files", b.Attempts, b.Changes.Len())
	default:
		return fmt.Sprintf("Build stopped without progress after %d rounds", b.Attempts)
	}
}
