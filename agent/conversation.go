package agent

import (
	"sync"
	"time"

	"github.com/martinemde/codehelper/llm"
)

// TranscriptEntry is one line of the conversation as shown to the user.
type TranscriptEntry struct {
	Role      llm.Role
	Text      string
	Timestamp time.Time
}

// Conversation holds the messages sent to the model across turns, starting
// with the system preamble, and a display transcript kept apart from them.
type Conversation struct {
	mu         sync.RWMutex
	messages   []llm.Message
	transcript []TranscriptEntry
}

// NewConversation starts a conversation with the given system preamble.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{messages: []llm.Message{llm.SystemMessage(systemPrompt)}}
}

// Append adds messages to the end.
func (c *Conversation) Append(msgs ...llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the model-facing messages.
func (c *Conversation) Messages() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages, preamble included.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Truncate drops messages past n. The preamble is always kept.
func (c *Conversation) Truncate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

// Reset returns the conversation to just the preamble and empties the
// transcript.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:1]
	c.transcript = nil
}

// Record adds a line to the display transcript.
func (c *Conversation) Record(role llm.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, TranscriptEntry{Role: role, Text: text, Timestamp: time.Now()})
}

// Transcript returns a copy of the display transcript.
func (c *Conversation) Transcript() []TranscriptEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TranscriptEntry, len(c.transcript))
	copy(out, c.transcript)
	return out
}
