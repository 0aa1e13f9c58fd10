package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/martinemde/codehelper/llm"
)

// callSignature identifies a tool call by name and a hash of its arguments.
func callSignature(name string, arguments json.RawMessage) string {
	h := sha256.Sum256(arguments)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// callHistory records the signatures of tool calls made by one build.
type callHistory struct {
	sigs []string
}

func (h *callHistory) add(calls []llm.ToolCall) {
	for _, c := range calls {
		h.sigs = append(h.sigs, callSignature(c.Name, c.Arguments))
	}
}

// repeating reports whether the last window calls form a repeating pattern
// of length 1, 2 or 3.
func (h *callHistory) repeating(window int) bool {
	if window <= 0 || len(h.sigs) < window {
		return false
	}
	sigs := h.sigs[len(h.sigs)-window:]

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if window%patternLen != 0 {
			continue
		}
		match := true
		for i := patternLen; i < window && match; i++ {
			if sigs[i] != sigs[i%patternLen] {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}
