package main

import (
	"github.com/pkg/errors"

	"github.com/martinemde/codehelper/agent"
	"github.com/martinemde/codehelper/config"
	"github.com/martinemde/codehelper/llm"
	"github.com/martinemde/codehelper/workspace"
)

// newLLMClient builds a client for the configured provider, with logging
// and retries.
func newLLMClient(s *config.Settings) (*llm.Client, error) {
	provider := s.LLM.Provider
	model := s.AgentOptions().Model
	apiKey := s.LLM.ResolvedAPIKey()

	var adapter llm.ProviderAdapter
	switch s.LLM.EffectiveBackend() {
	case config.BackendNative:
		opts := []llm.OpenAIAdapterOption{llm.WithOpenAIName(provider), llm.WithOpenAIModel(model)}
		if s.LLM.BaseURL != "" {
			opts = append(opts, llm.WithOpenAIBaseURL(s.LLM.BaseURL))
		}
		a, err := llm.NewOpenAIAdapter(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		adapter = a
	default:
		opts := []llm.GollmAdapterOption{
			llm.WithGollmModel(model),
			llm.WithGollmTemperature(s.LLM.Temperature),
		}
		if s.LLM.MaxTokens > 0 {
			opts = append(opts, llm.WithGollmMaxTokens(s.LLM.MaxTokens))
		}
		a, err := llm.NewGollmAdapter(provider, apiKey, opts...)
		if err != nil {
			return nil, err
		}
		adapter = a
	}

	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = s.LLM.MaxRetries

	return llm.NewClient(
		llm.WithProvider(provider, adapter),
		llm.WithDefaultProvider(provider),
		llm.WithDefaultModel(model),
		llm.WithMiddleware(llm.LoggingMiddleware(), llm.RetryMiddleware(policy)),
	), nil
}

func openWorkspace(s *config.Settings) (*workspace.Workspace, error) {
	ws, err := workspace.New(s.Project.Root, workspace.WithIgnore(s.Project.Ignore...))
	return ws, errors.Wrap(err, "opening project")
}

// newSession wires a session for the configured project and model.
func newSession(s *config.Settings) (*agent.Session, *workspace.Workspace, *llm.Client, error) {
	ws, err := openWorkspace(s)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newLLMClient(s)
	if err != nil {
		return nil, nil, nil, err
	}
	return agent.NewSession(client, ws, s.AgentOptions()), ws, client, nil
}
