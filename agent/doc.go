// Package agent runs the coding assistant's conversation turns.
//
// A Session owns the conversation and hands each user message to the
// Coordinator. The coordinator offers the model three tools: builder_tool
// delegates the work to the Builder, get_codebase_content fetches files, and
// analyze_code reviews one file. Fetches and analyses send the turn back to
// the coordinator a bounded number of times; a build ends the turn.
//
// The Builder edits the project with read_file and edit_file. After its
// first request it asks the model, round after round, whether the task is
// finished, until the model confirms (OutcomeDone), says it is not done
// without making progress (OutcomeAborted) or the attempt cap is reached
// (OutcomeExhausted). ClassifyCompletion reads the model's answer.
//
// Tools form a closed set of ToolKind values. A tool name the model invents,
// or a tool not offered to the agent that received the call, fails the turn
// with an *UnknownToolError.
//
//	ws, _ := workspace.New("user_project")
//	session := agent.NewSession(client, ws, agent.DefaultOptions())
//	defer session.Close()
//
//	result, err := session.Submit(ctx, "Add a contact page")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Reply)
package agent
