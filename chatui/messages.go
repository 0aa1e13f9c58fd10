package chatui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/martinemde/codehelper/agent"
)

// turnDoneMsg carries the outcome of a submitted turn.
type turnDoneMsg struct {
	result *agent.TurnResult
	err    error
}

// agentEventMsg forwards one session event.
type agentEventMsg struct {
	event agent.Event
}

// eventsClosedMsg is sent once the session's event channel is closed.
type eventsClosedMsg struct{}

func submitCmd(ctx context.Context, session Session, input string) tea.Cmd {
	return func() tea.Msg {
		result, err := session.Submit(ctx, input)
		return turnDoneMsg{result: result, err: err}
	}
}

func waitForEvent(events <-chan agent.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return agentEventMsg{event: ev}
	}
}

// describeEvent turns an event into a status line. An empty string leaves
// the status unchanged.
func describeEvent(ev agent.Event) string {
	switch ev.Kind {
	case agent.EventTurnStart:
		return "Thinking..."
	case agent.EventModelCall:
		return fmt.Sprintf("Model replied to the %v", ev.Data["agent"])
	case agent.EventToolCall:
		return fmt.Sprintf("Running %v", ev.Data["tool"])
	case agent.EventFetch:
		return "Reading project files"
	case agent.EventBounce:
		return "Looking at the fetched files"
	case agent.EventBuildStart:
		return "Builder started"
	case agent.EventBuildAttempt:
		return fmt.Sprintf("Builder round %v of %v", ev.Data["attempt"], ev.Data["max_attempts"])
	case agent.EventLoopDetection:
		return "Builder is repeating itself, steering it"
	case agent.EventBuildEnd:
		return fmt.Sprintf("Build %v after %v rounds", ev.Data["outcome"], ev.Data["attempts"])
	case agent.EventError:
		return fmt.Sprintf("Error: %v", ev.Data["error"])
	default:
		return ""
	}
}
