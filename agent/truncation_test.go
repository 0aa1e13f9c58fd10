package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/martinemde/codehelper/llm"
)

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 100))
	assert.Equal(t, "anything", truncateMiddle("anything", 0))

	s := strings.Repeat("h", 60) + strings.Repeat("t", 60)
	got := truncateMiddle(s, 40)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("h", 20)+"\n"))
	assert.True(t, strings.HasSuffix(got, "\n"+strings.Repeat("t", 20)))
	assert.Contains(t, got, "[... 80 characters omitted.")
}

func TestTruncateMiddleKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("日本語", 50)
	got := truncateMiddle(s, 31)
	assert.True(t, utf8.ValidString(got))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo wörld", 5))
	assert.Equal(t, "ab", truncateRunes("ab", 5))
}

func TestCallHistoryRepeating(t *testing.T) {
	a := llm.ToolCall{Name: "edit_file", Arguments: []byte(`{"filePath":"a"}`)}
	b := llm.ToolCall{Name: "read_file", Arguments: []byte(`{"filePath":"a"}`)}

	var h callHistory
	h.add([]llm.ToolCall{a, a, a})
	assert.True(t, h.repeating(3))
	assert.False(t, h.repeating(4), "not enough calls")
	assert.False(t, h.repeating(0))

	h = callHistory{}
	h.add([]llm.ToolCall{a, b, a, b})
	assert.True(t, h.repeating(4))

	h = callHistory{}
	h.add([]llm.ToolCall{a, b, b, a})
	assert.False(t, h.repeating(4))
}
