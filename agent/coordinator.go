package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/llm"
)

const (
	// GreetingReply is the reply to a conversation without a user message.
	GreetingReply = "I'm ready to help with your coding tasks."
	// EmptyReply stands in when the model produced no text in a turn.
	EmptyReply = "(No response generated)"
)

var coordinatorTools = []ToolKind{ToolBuilder, ToolGetCodebaseContent, ToolAnalyzeCode}

// TurnResult is the outcome of one coordinator turn.
type TurnResult struct {
	Reply string
	// Messages are the messages the turn adds to the conversation, after the
	// user message.
	Messages []llm.Message
	// Context holds every file fetched or built during the turn.
	Context *FileChangeSet
	// Build is set when the turn delegated to the builder.
	Build   *BuildResult
	Bounces int
}

// Coordinator routes a turn: it lets the model delegate to the builder,
// fetch files, or analyze a file, and folds the results into the turn
// context.
type Coordinator struct {
	model    Model
	files    FileAccessor
	opts     Options
	emitter  *EventEmitter
	builder  *Builder
	analyzer *Analyzer
}

// NewCoordinator creates a coordinator. emitter may be nil.
func NewCoordinator(model Model, files FileAccessor, opts Options, emitter *EventEmitter) *Coordinator {
	return &Coordinator{
		model:    model,
		files:    files,
		opts:     opts,
		emitter:  emitter,
		builder:  NewBuilder(model, files, opts, emitter),
		analyzer: NewAnalyzer(model, files, opts, emitter),
	}
}

// Run handles one turn. history is the conversation ending with the new
// user message.
func (c *Coordinator) Run(ctx context.Context, history []llm.Message) (*TurnResult, error) {
	result := &TurnResult{Context: NewFileChangeSet()}

	queryIdx := lastUserIndex(history)
	if queryIdx < 0 {
		result.Reply = GreetingReply
		result.Messages = []llm.Message{llm.AssistantMessage(GreetingReply)}
		return result, nil
	}
	query := history[queryIdx].TextContent()

	tools, err := Definitions(coordinatorTools...)
	if err != nil {
		return nil, err
	}

	for {
		prompt, err := renderPrompt("coordinator", coordinatorPromptData{
			Query:       query,
			TechStack:   c.opts.techStack(),
			ProjectName: c.files.Name(),
			Tree:        c.files.Tree(),
			Files:       promptFiles(result.Context, c.opts.MaxFileChars),
		})
		if err != nil {
			return nil, err
		}

		// The rendered prompt stands in for the user message only for this call.
		messages := make([]llm.Message, 0, len(history)+len(result.Messages))
		messages = append(messages, history[:queryIdx]...)
		messages = append(messages, llm.UserMessage(prompt))
		messages = append(messages, history[queryIdx+1:]...)
		messages = append(messages, result.Messages...)

		resp, err := complete(ctx, c.model, c.emitter, c.opts.request("coordinator", messages, tools))
		if err != nil {
			return nil, err
		}

		calls := withCallIDs(resp.ToolCalls())
		if len(calls) == 0 {
			if text := resp.Text(); text != "" {
				result.Messages = append(result.Messages, llm.AssistantMessage(text))
			}
			break
		}

		kinds := make([]ToolKind, len(calls))
		for i, call := range calls {
			kind, err := resolveCall(call, coordinatorTools)
			if err != nil {
				log.Error().Err(err).Msg("coordinator received an unknown tool call")
				return nil, errors.Wrap(err, "coordinator")
			}
			kinds[i] = kind
		}
		result.Messages = append(result.Messages, llm.AssistantToolCallMessage(resp.Text(), calls))

		built, err := c.dispatch(ctx, history, result, kinds, calls)
		if err != nil {
			return nil, err
		}
		if built {
			break
		}
		if result.Bounces >= c.opts.MaxBounces {
			log.Debug().Int("bounces", result.Bounces).Msg("bounce limit reached, ending turn")
			break
		}
		result.Bounces++
		c.emitter.Emit(EventBounce, map[string]interface{}{"bounce": result.Bounces})
	}

	result.Reply = finalReply(result.Messages)
	return result, nil
}

// dispatch runs the calls of one coordinator reply in order and appends
// their results. It reports whether the builder ran.
func (c *Coordinator) dispatch(ctx context.Context, history []llm.Message, result *TurnResult, kinds []ToolKind, calls []llm.ToolCall) (bool, error) {
	var buildReplies []llm.Message
	built := false

	for i, call := range calls {
		c.emitter.Emit(EventToolCall, map[string]interface{}{"agent": "coordinator", "tool": call.Name})

		switch kinds[i] {
		case ToolBuilder:
			var args BuilderArgs
			if err := decodeArgs(call, &args); err != nil {
				result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, err.Error(), true))
				continue
			}
			prior := make([]llm.Message, 0, len(history)+len(result.Messages))
			prior = append(prior, history...)
			prior = append(prior, result.Messages...)
			build, err := c.builder.Build(ctx, BuildRequest{
				CallID:  call.ID,
				Task:    args.DetailedQuery,
				History: prior,
			})
			if err != nil {
				return false, err
			}
			built = true
			result.Build = build
			result.Context.Merge(build.Changes)
			result.Messages = append(result.Messages, build.Summary)
			if build.LastMessage.TextContent() != "" {
				buildReplies = append(buildReplies, build.LastMessage)
			}

		case ToolGetCodebaseContent:
			var args GetCodebaseContentArgs
			if err := decodeArgs(call, &args); err != nil {
				result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, err.Error(), true))
				continue
			}
			fetched := c.fetch(args.FilesPaths)
			result.Context.Merge(fetched)
			result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, fetched.String(), false))

		case ToolAnalyzeCode:
			var args AnalyzeCodeArgs
			if err := decodeArgs(call, &args); err != nil {
				result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, err.Error(), true))
				continue
			}
			if !c.files.Exists(args.FilePath) {
				result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, c.files.Read(args.FilePath), true))
				continue
			}
			analysis, err := c.analyzer.Analyze(ctx, args.FilePath, args.AnalysisType)
			if err != nil {
				return false, err
			}
			result.Messages = append(result.Messages, llm.ToolResultMessage(call.ID, analysis.String(), false))

		default:
			return false, &UnknownToolError{Name: call.Name, Offered: coordinatorTools}
		}
	}

	result.Messages = append(result.Messages, buildReplies...)
	return built, nil
}

// fetch reads every path. Missing files are recorded with the not-found
// message so the model learns about them.
func (c *Coordinator) fetch(paths []string) *FileChangeSet {
	fetched := NewFileChangeSet()
	for _, p := range paths {
		fetched.Record(p, c.files.Read(p))
	}
	c.emitter.Emit(EventFetch, map[string]interface{}{"paths": paths})
	log.Debug().Strs("paths", paths).Msg("fetched files")
	return fetched
}

func lastUserIndex(messages []llm.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}

// withCallIDs fills in IDs for providers that do not assign them.
func withCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.New().String()[:8]
		}
	}
	return calls
}

var finalAnswerRe = regexp.MustCompile(`(?s)<finalAnswer>(.*?)</finalAnswer>`)

// finalReply picks the text of the last assistant message that has any,
// without status tags.
func finalReply(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != llm.RoleAssistant {
			continue
		}
		text := strings.TrimSpace(statusTagRe.ReplaceAllString(m.TextContent(), ""))
		if text == "" {
			continue
		}
		if match := finalAnswerRe.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
		return text
	}
	return EmptyReply
}

// String summarizes the turn for logs.
func (r *TurnResult) String() string {
	outcome := "none"
	if r.Build != nil {
		outcome = string(r.Build.Outcome)
	}
	return fmt.Sprintf("turn(bounces=%d build=%s files=%d)", r.Bounces, outcome, r.Context.Len())
}
