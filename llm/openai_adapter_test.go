package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": "Let me look.",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "get_codebase_content", "arguments": "{\"filesPaths\":[\"app/page.tsx\"]}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func newOpenAITestServer(t *testing.T, status int, body string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if captured != nil {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIAdapterComplete(t *testing.T) {
	var captured map[string]interface{}
	server := newOpenAITestServer(t, http.StatusOK, toolCallCompletion, &captured)

	adapter, err := NewOpenAIAdapter("test-key", WithOpenAIBaseURL(server.URL+"/v1"), WithOpenAIModel("4o"))
	require.NoError(t, err)
	assert.Equal(t, "openai", adapter.Name())

	resp, err := adapter.Complete(context.Background(), Request{
		Messages: []Message{
			SystemMessage("You are a coding assistant."),
			UserMessage("Show me the page"),
			AssistantToolCallMessage("", []ToolCall{{ID: "call_0", Name: "get_codebase_content", Arguments: json.RawMessage(`{"filesPaths":[]}`)}}),
			ToolResultMessage("call_0", "{}", false),
		},
		Tools: []ToolDefinition{{
			Name:        "get_codebase_content",
			Description: "Fetch files",
			Parameters:  map[string]interface{}{"type": "object"},
		}},
		ToolChoice: &ToolChoice{Mode: "auto"},
	})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "Let me look.", resp.Text())
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 7, TotalTokens: 19}, resp.Usage)
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.JSONEq(t, `{"filesPaths":["app/page.tsx"]}`, string(calls[0].Arguments))

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, "auto", captured["tool_choice"])
	msgs := captured["messages"].([]interface{})
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assistant := msgs[2].(map[string]interface{})
	assert.Len(t, assistant["tool_calls"], 1)
	tool := msgs[3].(map[string]interface{})
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_0", tool["tool_call_id"])
	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
}

func TestOpenAIAdapterRateLimit(t *testing.T) {
	server := newOpenAITestServer(t, http.StatusTooManyRequests,
		`{"error": {"message": "slow down", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`, nil)

	adapter, err := NewOpenAIAdapter("test-key", WithOpenAIBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 429, rl.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", rl.ErrorCode)
	assert.True(t, IsRetryable(err))
}

func TestOpenAIAdapterAuthError(t *testing.T) {
	server := newOpenAITestServer(t, http.StatusUnauthorized,
		`{"error": {"message": "bad key", "type": "invalid_request_error"}}`, nil)

	adapter, err := NewOpenAIAdapter("bad", WithOpenAIBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var auth *AuthenticationError
	require.ErrorAs(t, err, &auth)
	assert.False(t, IsRetryable(err))
}

func TestNewOpenAIAdapterRequiresKey(t *testing.T) {
	_, err := NewOpenAIAdapter("")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	adapter, err := NewOpenAIAdapter("", WithOpenAIBaseURL("http://localhost:11434/v1"), WithOpenAIName("ollama"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", adapter.Name())
}

func TestOpenAIAdapterNamedToolChoice(t *testing.T) {
	adapter := &OpenAIAdapter{name: "openai", model: "gpt-4o"}
	req := adapter.translateRequest(Request{
		Tools:      []ToolDefinition{{Name: "builder_tool"}},
		ToolChoice: &ToolChoice{Mode: "named", ToolName: "builder_tool"},
	})
	assert.Equal(t, "gpt-4o", req.Model)
	raw, err := json.Marshal(req.ToolChoice)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "function", "function": {"name": "builder_tool"}}`, string(raw))

	noTools := adapter.translateRequest(Request{ToolChoice: &ToolChoice{Mode: "auto"}})
	assert.Nil(t, noTools.ToolChoice)
}
