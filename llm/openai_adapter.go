package llm

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to the OpenAI chat completions API, or any endpoint
// compatible with it, using native tool calling.
type OpenAIAdapter struct {
	name   string
	client *go_openai.Client
	model  string
}

// OpenAIAdapterOption configures an OpenAIAdapter.
type OpenAIAdapterOption func(*openAIAdapterConfig)

type openAIAdapterConfig struct {
	name    string
	baseURL string
	model   string
}

// WithOpenAIBaseURL points the adapter at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.baseURL = url
	}
}

// WithOpenAIModel sets the model used when a request leaves Model empty.
func WithOpenAIModel(model string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.model = model
	}
}

// WithOpenAIName overrides the provider name reported by the adapter.
func WithOpenAIName(name string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.name = name
	}
}

// NewOpenAIAdapter creates an adapter authenticated with apiKey.
func NewOpenAIAdapter(apiKey string, opts ...OpenAIAdapterOption) (*OpenAIAdapter, error) {
	cfg := &openAIAdapterConfig{name: "openai"}
	for _, opt := range opts {
		opt(cfg)
	}
	if apiKey == "" && cfg.baseURL == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "openai adapter requires an API key"}}
	}

	config := go_openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		config.BaseURL = cfg.baseURL
	}

	model := ResolveModel(cfg.model)
	if model == "" {
		model = DefaultModel("openai")
	}

	return &OpenAIAdapter{
		name:   cfg.name,
		client: go_openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// Complete sends a chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	chatReq := a.translateRequest(req)
	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{
			SDKError: SDKError{Message: "response contained no choices"},
			Provider: a.name,
		}
	}
	return a.translateResponse(resp), nil
}

func (a *OpenAIAdapter) translateRequest(req Request) go_openai.ChatCompletionRequest {
	model := ResolveModel(req.Model)
	if model == "" {
		model = a.model
	}

	chatReq := go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	for _, t := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if req.ToolChoice != nil && len(chatReq.Tools) > 0 {
		switch req.ToolChoice.Mode {
		case "named":
			chatReq.ToolChoice = go_openai.ToolChoice{
				Type:     go_openai.ToolTypeFunction,
				Function: go_openai.ToolFunction{Name: req.ToolChoice.ToolName},
			}
		case "auto", "none", "required":
			chatReq.ToolChoice = req.ToolChoice.Mode
		}
	}

	return chatReq
}

func toOpenAIMessages(msgs []Message) []go_openai.ChatCompletionMessage {
	out := make([]go_openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleSystem,
				Content: msg.TextContent(),
			})
		case RoleUser:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: msg.TextContent(),
			})
		case RoleAssistant:
			m := go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: msg.TextContent(),
			}
			for _, call := range msg.ToolCalls() {
				m.ToolCalls = append(m.ToolCalls, go_openai.ToolCall{
					ID:   call.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, m)
		case RoleTool:
			result := msg.ToolResult()
			if result == nil {
				continue
			}
			out = append(out, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    result.Content,
				ToolCallID: result.ToolCallID,
			})
		}
	}
	return out
}

func (a *OpenAIAdapter) translateResponse(resp go_openai.ChatCompletionResponse) *Response {
	choice := resp.Choices[0]

	var content []ContentPart
	if choice.Message.Content != "" {
		content = append(content, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		content = append(content, ToolCallPart(tc.ID, tc.Function.Name, args))
	}

	reason := string(choice.FinishReason)
	normalized := reason
	switch choice.FinishReason {
	case go_openai.FinishReasonStop, go_openai.FinishReasonLength, go_openai.FinishReasonToolCalls, go_openai.FinishReasonContentFilter:
	case go_openai.FinishReasonFunctionCall:
		normalized = "tool_calls"
	default:
		normalized = "other"
	}

	return &Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Provider:     a.name,
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: FinishReason{Reason: normalized, Raw: reason},
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
}

func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return ErrorFromStatusCode(apiErr.HTTPStatusCode, apiErr.Message, a.name, code, err, nil)
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return ErrorFromStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), a.name, "", err, nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Err: err}}
	}
	return &NetworkError{SDKError: SDKError{Message: "openai request failed", Err: err}}
}
