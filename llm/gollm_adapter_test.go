package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{provider: "anthropic"}

	tests := []struct {
		msg   string
		check func(error) bool
	}{
		{"401 Unauthorized", func(e error) bool { _, ok := e.(*AuthenticationError); return ok }},
		{"invalid api key", func(e error) bool { _, ok := e.(*AuthenticationError); return ok }},
		{"403 Forbidden", func(e error) bool { _, ok := e.(*AccessDeniedError); return ok }},
		{"404 not found", func(e error) bool { _, ok := e.(*NotFoundError); return ok }},
		{"429 rate limit exceeded", func(e error) bool { _, ok := e.(*RateLimitError); return ok }},
		{"context length exceeded", func(e error) bool { _, ok := e.(*ContextLengthError); return ok }},
		{"500 internal server error", func(e error) bool { _, ok := e.(*ServerError); return ok }},
		{"timeout waiting for response", func(e error) bool { _, ok := e.(*RequestTimeoutError); return ok }},
		{"content filter triggered", func(e error) bool { _, ok := e.(*ContentFilterError); return ok }},
		{"something unknown", func(e error) bool { _, ok := e.(*ProviderError); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := adapter.translateError(fmt.Errorf("%s", tt.msg))
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected type %T", err)
		})
	}
	assert.Nil(t, adapter.translateError(nil))
}

func TestParseEmbeddedToolCallsArray(t *testing.T) {
	text := `I'll read the file first.
[{"name": "read_file", "arguments": {"filePath": "app/page.tsx"}}, {"name": "edit_file", "arguments": {"filePath": "a.txt", "fileContent": "hi"}}]`

	calls, rest := parseEmbeddedToolCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.JSONEq(t, `{"filePath": "app/page.tsx"}`, string(calls[0].Arguments))
	assert.Equal(t, "edit_file", calls[1].Name)
	assert.NotEqual(t, calls[0].ID, calls[1].ID)
	assert.Equal(t, "I'll read the file first.", rest)
}

func TestParseEmbeddedToolCallsWrapped(t *testing.T) {
	text := `{"tool_calls": [{"name": "builder_tool", "arguments": {"detailedQuery": "add a page"}}]} trailing`

	calls, rest := parseEmbeddedToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "builder_tool", calls[0].Name)
	assert.Equal(t, "", rest)
}

func TestParseEmbeddedToolCallsNone(t *testing.T) {
	calls, rest := parseEmbeddedToolCalls("Yes, everything is done.")
	assert.Empty(t, calls)
	assert.Equal(t, "Yes, everything is done.", rest)

	calls, rest = parseEmbeddedToolCalls(`[{"name": broken`)
	assert.Empty(t, calls)
	assert.Equal(t, `[{"name": broken`, rest)
}

func TestParseEmbeddedToolCallsDefaultsArguments(t *testing.T) {
	calls, _ := parseEmbeddedToolCalls(`[{"name": "get_codebase_content"}]`)
	require.Len(t, calls, 1)
	assert.Equal(t, "{}", string(calls[0].Arguments))
}

func TestGollmBuildResponse(t *testing.T) {
	adapter := &GollmAdapter{provider: "anthropic", model: "claude-sonnet-4-5"}
	req := Request{Messages: []Message{UserMessage("Hello world, this is a test message.")}}

	resp := adapter.buildResponse(req, `Reading. [{"name": "read_file", "arguments": {"filePath": "x"}}]`)
	assert.Equal(t, "claude-sonnet-4-5", resp.Model)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "Reading.", resp.Text())
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	require.Len(t, resp.ToolCalls(), 1)
	assert.Positive(t, resp.Usage.InputTokens)

	plain := adapter.buildResponse(Request{Model: "haiku"}, "Just text")
	assert.Equal(t, "haiku", plain.Model)
	assert.Equal(t, "stop", plain.FinishReason.Reason)
	assert.Empty(t, plain.ToolCalls())
}

func TestEstimateTokens(t *testing.T) {
	assert.Positive(t, estimateTokens(Request{Messages: []Message{UserMessage("Hello world, this is a test message.")}}))
	assert.Equal(t, 10, estimateTokens(Request{}))
}
