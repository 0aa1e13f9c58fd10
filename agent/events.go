package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of agent event.
type EventKind string

const (
	EventTurnStart     EventKind = "turn_start"
	EventTurnEnd       EventKind = "turn_end"
	EventModelCall     EventKind = "model_call"
	EventToolCall      EventKind = "tool_call"
	EventFetch         EventKind = "fetch"
	EventBounce        EventKind = "bounce"
	EventBuildStart    EventKind = "build_start"
	EventBuildAttempt  EventKind = "build_attempt"
	EventBuildEnd      EventKind = "build_end"
	EventLoopDetection EventKind = "loop_detection"
	EventHistoryClear  EventKind = "history_clear"
	EventError         EventKind = "error"
)

// Event is a progress notification from a session.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events over a buffered channel. Events are dropped
// when the buffer is full so the agents never block on a slow reader.
type EventEmitter struct {
	sessionID string
	ch        chan Event
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan Event, bufferSize),
	}
}

// Emit sends an event. It is a no-op on a nil or closed emitter.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- Event{Kind: kind, Timestamp: time.Now(), SessionID: e.sessionID, Data: data}:
	default:
	}
}

// Events returns the read side of the channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the channel. Safe to call more than once.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
