package chatui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/codehelper/agent"
	"github.com/martinemde/codehelper/llm"
)

type fakeSession struct {
	inputs     []string
	transcript []agent.TranscriptEntry
	clears     int
	events     chan agent.Event
	result     *agent.TurnResult
	err        error
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan agent.Event, 8)}
}

func (s *fakeSession) Submit(_ context.Context, input string) (*agent.TurnResult, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return nil, s.err
	}
	reply := "Added the page."
	if s.result != nil {
		reply = s.result.Reply
	}
	s.transcript = append(s.transcript,
		agent.TranscriptEntry{Role: llm.RoleUser, Text: input},
		agent.TranscriptEntry{Role: llm.RoleAssistant, Text: reply},
	)
	if s.result != nil {
		return s.result, nil
	}
	return &agent.TurnResult{Reply: reply}, nil
}

func (s *fakeSession) Clear() error {
	s.clears++
	s.transcript = nil
	return nil
}

func (s *fakeSession) Events() <-chan agent.Event { return s.events }

func (s *fakeSession) Transcript() []agent.TranscriptEntry { return s.transcript }

func sized(t *testing.T, s Session) Model {
	t.Helper()
	m := New(s, WithStyle("notty"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: k})
	return updated.(Model), cmd
}

// runSubmit executes the submit command out of the batch and feeds its
// result back.
func runSubmit(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if done, ok := c().(turnDoneMsg); ok {
			updated, _ := m.Update(done)
			return updated.(Model)
		}
	}
	t.Fatal("no turn was submitted")
	return m
}

func TestSubmitRunsTurnAndShowsReply(t *testing.T) {
	s := newFakeSession()
	m := sized(t, s)

	m = typeText(m, "add a contact page")
	m, cmd := press(m, tea.KeyEnter)
	assert.True(t, m.busy)
	assert.Equal(t, "", m.input.Value())
	assert.Contains(t, m.View(), "add a contact page")

	m = runSubmit(t, m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"add a contact page"}, s.inputs)
	assert.Equal(t, "Ready", m.status)
	assert.Contains(t, m.View(), "Added the page.")
}

func TestEmptyInputIsIgnored(t *testing.T) {
	s := newFakeSession()
	m := sized(t, s)

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
}

func TestSubmitWhileBusyIsRefused(t *testing.T) {
	s := newFakeSession()
	m := sized(t, s)
	m = typeText(m, "first")
	m, _ = press(m, tea.KeyEnter)

	m = typeText(m, "second")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.input.Value())
	assert.Contains(t, m.status, "Still working")
}

func TestClearCommandAndKey(t *testing.T) {
	s := newFakeSession()
	m := sized(t, s)
	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	m = runSubmit(t, m, cmd)

	m = typeText(m, "/clear")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, 1, s.clears)
	assert.Equal(t, "History cleared", m.status)
	assert.NotContains(t, m.View(), "Added the page.")

	m, _ = press(m, tea.KeyCtrlL)
	assert.Equal(t, 2, s.clears)
}

func TestTurnErrorShowsInStatus(t *testing.T) {
	s := newFakeSession()
	s.err = assert.AnError
	m := sized(t, s)
	m = typeText(m, "break")
	m, cmd := press(m, tea.KeyEnter)
	m = runSubmit(t, m, cmd)

	assert.False(t, m.busy)
	assert.Contains(t, m.status, "Error:")
}

func TestBuildOutcomeInStatus(t *testing.T) {
	s := newFakeSession()
	changes := agent.NewFileChangeSet()
	changes.Record("app/page.tsx", "x")
	s.result = &agent.TurnResult{
		Reply: "Done.",
		Build: &agent.BuildResult{Outcome: agent.OutcomeExhausted, Attempts: 10, Changes: changes},
	}
	m := sized(t, s)
	m = typeText(m, "build")
	m, cmd := press(m, tea.KeyEnter)
	m = runSubmit(t, m, cmd)

	assert.Equal(t, "Build stopped at the 10 round limit, 1 files", m.status)
}

func TestEventsUpdateStatusWhileBusy(t *testing.T) {
	s := newFakeSession()
	m := sized(t, s)
	m = typeText(m, "go")
	m, _ = press(m, tea.KeyEnter)

	updated, cmd := m.Update(agentEventMsg{event: agent.Event{
		Kind: agent.EventBuildAttempt,
		Data: map[string]interface{}{"attempt": 2, "max_attempts": 10},
	}})
	m = updated.(Model)
	assert.Equal(t, "Builder round 2 of 10", m.status)
	assert.NotNil(t, cmd, "keeps listening")
}

func TestQuit(t *testing.T) {
	m := sized(t, newFakeSession())
	_, cmd := press(m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDescribeEvent(t *testing.T) {
	assert.Equal(t, "Running edit_file", describeEvent(agent.Event{
		Kind: agent.EventToolCall, Data: map[string]interface{}{"tool": "edit_file"},
	}))
	assert.Equal(t, "Build done after 3 rounds", describeEvent(agent.Event{
		Kind: agent.EventBuildEnd, Data: map[string]interface{}{"outcome": "done", "attempts": 3},
	}))
	assert.Equal(t, "", describeEvent(agent.Event{Kind: agent.EventHistoryClear}))
}
