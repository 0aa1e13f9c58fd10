// Package chatui is the terminal chat surface: one prompt per turn, the
// conversation so far above it, and a status line fed by session events.
package chatui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/codehelper/agent"
)

// Session is what the chat view needs from an agent session.
type Session interface {
	Submit(ctx context.Context, input string) (*agent.TurnResult, error)
	Clear() error
	Events() <-chan agent.Event
	Transcript() []agent.TranscriptEntry
}

// Model is the bubbletea model of the chat view.
type Model struct {
	ctx     context.Context
	session Session
	title   string

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     keyMap

	style    string
	renderer *glamour.TermRenderer

	busy    bool
	pending string
	status  string
}

// Option configures a Model.
type Option func(*Model)

// WithTitle sets the header text.
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// WithStyle selects a glamour style by name. The default is "auto".
func WithStyle(style string) Option {
	return func(m *Model) { m.style = style }
}

// WithContext sets the context turns run under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// New creates the chat view for session.
func New(session Session, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "Describe what to build, or /clear to start over"
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	keys := defaultKeyMap()
	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{PageUp: keys.PageUp, PageDown: keys.PageDown}

	m := Model{
		ctx:      context.Background(),
		session:  session,
		title:    "codehelper",
		viewport: vp,
		input:    input,
		spinner:  sp,
		keys:     keys,
		style:    "auto",
		status:   "Ready",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the cursor blink and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.session.Events()))
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = width - lipgloss.Width(m.input.Prompt) - 2

	// header, input box (3 lines with border) and status line
	vpHeight := height - 1 - 3 - 1
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	styleOpt := glamour.WithStandardStyle(m.style)
	if m.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	if r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap)); err == nil {
		m.renderer = r
	}
	m.ready = true
}
