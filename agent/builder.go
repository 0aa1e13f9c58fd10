package agent

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/llm"
)

// Outcome says how a build ended.
type Outcome string

const (
	// OutcomeDone means the model confirmed the task is complete.
	OutcomeDone Outcome = "done"
	// OutcomeExhausted means the attempt cap was reached without confirmation.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeAborted means the model said it was not done but made no tool
	// calls, so the build stopped making progress.
	OutcomeAborted Outcome = "aborted"
)

var builderTools = []ToolKind{ToolReadFile, ToolEditFile}

// LoopContext is the state of one build, passed through the loop.
type LoopContext struct {
	Attempt     int
	MaxAttempts int
	Changes     *FileChangeSet
}

// BuildRequest is the input to Builder.Build.
type BuildRequest struct {
	// CallID is the ID of the builder_tool call that started the build.
	CallID string
	Task   string
	// History is the conversation so far. Only its text is replayed.
	History []llm.Message
}

// BuildResult is the output of a build.
type BuildResult struct {
	Outcome  Outcome
	Attempts int
	Changes  *FileChangeSet
	// Summary is the tool result carrying the serialized change set.
	Summary llm.Message
	// LastMessage is the last assistant reply of the build. Its text is
	// empty if the model never produced any.
	LastMessage llm.Message
}

// Builder is the sub-agent that implements a task with read_file and
// edit_file, asking the model after every round whether it is finished.
type Builder struct {
	model   Model
	files   FileAccessor
	opts    Options
	emitter *EventEmitter
}

// NewBuilder creates a builder. emitter may be nil.
func NewBuilder(model Model, files FileAccessor, opts Options, emitter *EventEmitter) *Builder {
	return &Builder{model: model, files: files, opts: opts, emitter: emitter}
}

// Build runs the initial request and up to MaxAttempts follow-up rounds.
// Reaching the cap is not an error; the result's Outcome tells it apart from
// a confirmed finish. Errors are returned for failed model calls and for
// tool calls naming a tool the builder does not offer.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	lc := &LoopContext{MaxAttempts: b.opts.MaxAttempts, Changes: NewFileChangeSet()}

	tools, err := Definitions(builderTools...)
	if err != nil {
		return nil, err
	}

	b.emitter.Emit(EventBuildStart, map[string]interface{}{"task": req.Task})
	log.Info().Str("task", truncateRunes(req.Task, 120)).Int("max_attempts", lc.MaxAttempts).Msg("build started")

	prompt, err := renderPrompt("builder", builderPromptData{
		Query:       req.Task,
		TechStack:   b.opts.techStack(),
		ProjectName: b.files.Name(),
		Tree:        b.files.Tree(),
	})
	if err != nil {
		return nil, err
	}

	messages := append(textHistory(req.History), llm.UserMessage(prompt))
	resp, err := complete(ctx, b.model, b.emitter, b.opts.request("builder", messages, tools))
	if err != nil {
		return nil, err
	}
	messages = appendReply(messages, resp)
	last := resp.Text()

	var calls callHistory
	toolErrs, err := b.runTools(lc, resp.ToolCalls(), &calls)
	if err != nil {
		return nil, err
	}

	outcome := OutcomeExhausted
	warning := ""
	for lc.Attempt < lc.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "build interrupted")
		}
		lc.Attempt++
		b.emitter.Emit(EventBuildAttempt, map[string]interface{}{
			"attempt":      lc.Attempt,
			"max_attempts": lc.MaxAttempts,
			"files":        lc.Changes.Len(),
		})

		prompt, err := renderPrompt("followup", followupPromptData{
			Attempt:     lc.Attempt,
			MaxAttempts: lc.MaxAttempts,
			Warning:     warning,
			ToolErrors:  toolErrs,
			Paths:       lc.Changes.Paths(),
			ProjectName: b.files.Name(),
			Tree:        b.files.Tree(),
			Files:       promptFiles(lc.Changes, b.opts.MaxFileChars),
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, llm.UserMessage(prompt))

		resp, err := complete(ctx, b.model, b.emitter, b.opts.request("builder", messages, tools))
		if err != nil {
			return nil, err
		}
		messages = appendReply(messages, resp)
		last = resp.Text()

		verdict := ClassifyCompletion(last)
		roundCalls := resp.ToolCalls()
		log.Debug().
			Int("attempt", lc.Attempt).
			Stringer("verdict", verdict).
			Int("tool_calls", len(roundCalls)).
			Msg("build round")

		toolErrs, err = b.runTools(lc, roundCalls, &calls)
		if err != nil {
			return nil, err
		}

		if verdict == VerdictDone {
			outcome = OutcomeDone
			break
		}
		if verdict == VerdictNotDone && len(roundCalls) == 0 {
			outcome = OutcomeAborted
			break
		}

		warning = ""
		if calls.repeating(b.opts.LoopWindow) {
			warning = fmt.Sprintf("the last %d tool calls repeat the same pattern. "+
				"Try a different approach or declare the task done.", b.opts.LoopWindow)
			b.emitter.Emit(EventLoopDetection, map[string]interface{}{"message": warning})
			log.Warn().Int("attempt", lc.Attempt).Msg("builder is repeating tool calls")
		}
	}

	b.emitter.Emit(EventBuildEnd, map[string]interface{}{
		"outcome":  string(outcome),
		"attempts": lc.Attempt,
		"files":    lc.Changes.Paths(),
	})
	log.Info().Str("outcome", string(outcome)).Int("attempts", lc.Attempt).Int("files", lc.Changes.Len()).Msg("build finished")

	return &BuildResult{
		Outcome:     outcome,
		Attempts:    lc.Attempt,
		Changes:     lc.Changes,
		Summary:     llm.ToolResultMessage(req.CallID, lc.Changes.String(), false),
		LastMessage: llm.AssistantMessage(last),
	}, nil
}

// runTools executes calls in order and records their results in the loop's
// change set. It returns the failures the model should hear about.
// An unknown tool stops the build before any call of the round runs.
func (b *Builder) runTools(lc *LoopContext, calls []llm.ToolCall, history *callHistory) ([]string, error) {
	kinds := make([]ToolKind, len(calls))
	for i, call := range calls {
		kind, err := resolveCall(call, builderTools)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}
	history.add(calls)

	var failures []string
	for i, call := range calls {
		b.emitter.Emit(EventToolCall, map[string]interface{}{"agent": "builder", "tool": call.Name})
		if msg := b.runTool(lc, kinds[i], call); msg != "" {
			failures = append(failures, msg)
		}
	}
	return failures, nil
}

func (b *Builder) runTool(lc *LoopContext, kind ToolKind, call llm.ToolCall) string {
	switch kind {
	case ToolReadFile:
		var args ReadFileArgs
		if err := decodeArgs(call, &args); err != nil {
			return err.Error()
		}
		if !b.files.Exists(args.FilePath) {
			return b.files.Read(args.FilePath)
		}
		lc.Changes.Record(args.FilePath, b.files.Read(args.FilePath))
		return ""

	case ToolEditFile:
		var args EditFileArgs
		if err := decodeArgs(call, &args); err != nil {
			return err.Error()
		}
		written := b.files.Write(args.FilePath, args.FileContent)
		if written != args.FileContent {
			return written
		}
		lc.Changes.Record(args.FilePath, written)
		return ""

	default:
		return fmt.Sprintf("tool %s is not available to the builder", kind)
	}
}

// appendReply adds the text of resp to messages. Tool calls are not replayed;
// their effect reaches the model through the follow-up prompt.
func appendReply(messages []llm.Message, resp *llm.Response) []llm.Message {
	if text := resp.Text(); text != "" {
		messages = append(messages, llm.AssistantMessage(text))
	}
	return messages
}
