package agent

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/llm"
)

// ErrTurnInProgress is returned when a session is asked to start a turn or
// clear its history while another turn is running.
var ErrTurnInProgress = errors.New("a turn is already in progress")

// Session owns a conversation and runs one turn at a time through the
// coordinator.
type Session struct {
	id      string
	coord   *Coordinator
	conv    *Conversation
	emitter *EventEmitter

	// turn is held for the whole of a turn.
	turn sync.Mutex
}

// NewSession creates a session over the given model and project files.
func NewSession(model Model, files FileAccessor, opts Options) *Session {
	id := uuid.New().String()
	emitter := NewEventEmitter(id, 256)
	return &Session{
		id:      id,
		coord:   NewCoordinator(model, files, opts, emitter),
		conv:    NewConversation(SystemPrompt(opts.techStack())),
		emitter: emitter,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the progress event channel.
func (s *Session) Events() <-chan Event { return s.emitter.Events() }

// Messages returns the model-facing conversation.
func (s *Session) Messages() []llm.Message { return s.conv.Messages() }

// Transcript returns the conversation as shown to the user.
func (s *Session) Transcript() []TranscriptEntry { return s.conv.Transcript() }

// Submit runs one turn for input. A failed turn leaves the conversation as
// it was before the turn.
func (s *Session) Submit(ctx context.Context, input string) (*TurnResult, error) {
	if !s.turn.TryLock() {
		return nil, ErrTurnInProgress
	}
	defer s.turn.Unlock()

	s.emitter.Emit(EventTurnStart, map[string]interface{}{"input": input})
	mark := s.conv.Len()
	s.conv.Append(llm.UserMessage(input))

	result, err := s.coord.Run(ctx, s.conv.Messages())
	if err != nil {
		s.conv.Truncate(mark)
		s.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
		log.Error().Err(err).Str("session", s.id).Msg("turn failed")
		return nil, errors.Wrap(err, "turn failed")
	}

	s.conv.Append(result.Messages...)
	s.conv.Record(llm.RoleUser, input)
	s.conv.Record(llm.RoleAssistant, result.Reply)

	data := map[string]interface{}{"reply": result.Reply, "bounces": result.Bounces}
	if result.Build != nil {
		data["outcome"] = string(result.Build.Outcome)
		data["attempts"] = result.Build.Attempts
	}
	s.emitter.Emit(EventTurnEnd, data)
	log.Info().Str("session", s.id).Stringer("result", result).Msg("turn finished")
	return result, nil
}

// Clear resets the conversation to the system preamble.
func (s *Session) Clear() error {
	if !s.turn.TryLock() {
		return ErrTurnInProgress
	}
	defer s.turn.Unlock()

	s.conv.Reset()
	s.emitter.Emit(EventHistoryClear, nil)
	log.Info().Str("session", s.id).Msg("history cleared")
	return nil
}

// Close closes the event channel.
func (s *Session) Close() {
	s.emitter.Close()
}
