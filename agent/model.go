package agent

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/llm"
)

// Model is the capability the agents drive. *llm.Client satisfies it.
type Model interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// FileAccessor is the project file access the agents need.
// *workspace.Workspace satisfies it.
type FileAccessor interface {
	Read(path string) string
	Write(path, content string) string
	Exists(path string) bool
	Tree() string
	Name() string
}

// DefaultTechStack describes the project when none is configured.
const DefaultTechStack = "Next.js 15 with app router, backend in API routes, DaisyUI for UI framework"

// Options tune the coordinator and builder.
type Options struct {
	// Model is the model ID sent with every request. Empty uses the client default.
	Model     string
	TechStack string

	// MaxAttempts caps the builder's follow-up rounds.
	MaxAttempts int
	// MaxBounces caps how often a fetch or analysis re-enters the coordinator
	// within one turn.
	MaxBounces int
	// MaxFileChars truncates each file shown in prompts. Zero disables it.
	MaxFileChars int
	// LoopWindow is the number of recent builder tool calls checked for a
	// repeating pattern. Zero disables loop detection.
	LoopWindow int

	Temperature *float64
	MaxTokens   *int
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		TechStack:    DefaultTechStack,
		MaxAttempts:  10,
		MaxBounces:   1,
		MaxFileChars: 8000,
		LoopWindow:   6,
	}
}

func (o Options) techStack() string {
	if o.TechStack == "" {
		return DefaultTechStack
	}
	return o.TechStack
}

func (o Options) request(agent string, messages []llm.Message, tools []llm.ToolDefinition) llm.Request {
	req := llm.Request{
		Model:       o.Model,
		Messages:    messages,
		Tools:       tools,
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
		Metadata:    map[string]string{"agent": agent},
	}
	if len(tools) > 0 {
		req.ToolChoice = &llm.ToolChoice{Mode: "auto"}
	}
	return req
}

// complete calls the model and reports the call on the emitter.
func complete(ctx context.Context, model Model, emitter *EventEmitter, req llm.Request) (*llm.Response, error) {
	agent := req.Metadata["agent"]
	start := time.Now()
	resp, err := model.Complete(ctx, req)
	if err != nil {
		emitter.Emit(EventError, map[string]interface{}{"agent": agent, "error": err.Error()})
		return nil, errors.Wrapf(err, "%s model call", agent)
	}
	log.Debug().
		Str("agent", agent).
		Int("tool_calls", len(resp.ToolCalls())).
		Dur("elapsed", time.Since(start)).
		Msg("model replied")
	emitter.Emit(EventModelCall, map[string]interface{}{
		"agent":         agent,
		"tool_calls":    len(resp.ToolCalls()),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	})
	return resp, nil
}

// textHistory keeps the text of system, user and assistant messages and
// drops tool traffic, so the history can be replayed with a different set
// of tools.
func textHistory(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleTool {
			continue
		}
		text := m.TextContent()
		if text == "" {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: []llm.ContentPart{llm.TextPart(text)}})
	}
	return out
}
