package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorPrompt(t *testing.T) {
	out, err := renderPrompt("coordinator", coordinatorPromptData{
		Query:       "  add a footer \n",
		TechStack:   "Go with templ",
		ProjectName: "user_project",
		Tree:        "└── main.go\n",
		Files:       []promptFile{{Path: "main.go", Content: "package main\n"}},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "User Query: add a footer\n")
	assert.Contains(t, out, "Go with templ")
	assert.Contains(t, out, "user_project/\n└── main.go\n")
	assert.Contains(t, out, "--- main.go ---\npackage main")
	assert.NotContains(t, out, "Nothing Yet.")
}

func TestFollowupPromptWithoutChanges(t *testing.T) {
	out, err := renderPrompt("followup", followupPromptData{Attempt: 2, MaxAttempts: 5, ProjectName: "p"})
	require.NoError(t, err)
	assert.Contains(t, out, "Attempt 2 of 5.")
	assert.Contains(t, out, "Modified files:\n(none)")
	assert.Contains(t, out, "Performed changes:\n(none)")
	assert.NotContains(t, out, "Warning")
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt("Rails 8"), "Rails 8")
}
