package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/codehelper/llm"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00A6ED"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7CB518"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	inputStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5A56E0"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A56E0"))
)

// View renders the chat.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Width(m.width).Render(m.title)
	input := inputStyle.Width(m.width - 2).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), input, m.statusLine())
}

func (m Model) statusLine() string {
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	hints := make([]string, 0, len(m.keys.help()))
	for _, b := range m.keys.help() {
		hints = append(hints, b.Help().Key+" "+b.Help().Desc)
	}
	line := status + "  " + strings.Join(hints, " · ")
	return statusStyle.MaxWidth(m.width).Render(line)
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	entries := m.session.Transcript()
	if len(entries) == 0 && m.pending == "" {
		return pendingStyle.Render("No messages yet. Ask for a change to the project.")
	}

	var sb strings.Builder
	for _, e := range entries {
		if e.Role == llm.RoleUser {
			sb.WriteString(userLabelStyle.Render("You") + "\n")
			sb.WriteString(e.Text + "\n\n")
			continue
		}
		sb.WriteString(botLabelStyle.Render("Assistant") + "\n")
		sb.WriteString(m.renderMarkdown(e.Text) + "\n")
	}
	if m.pending != "" {
		sb.WriteString(userLabelStyle.Render("You") + "\n")
		sb.WriteString(m.pending + "\n\n")
		sb.WriteString(pendingStyle.Render("working on it..."))
	}
	return sb.String()
}

// renderMarkdown falls back to the raw text when rendering fails.
func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
