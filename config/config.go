// Package config loads codehelper settings from flags, environment and an
// optional config file through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/codehelper/agent"
	"github.com/martinemde/codehelper/llm"
	"github.com/martinemde/codehelper/workspace"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. CODEHELPER_LLM_MODEL.
	EnvPrefix = "codehelper"
	// FileName is the config file name without extension.
	FileName = "codehelper"
)

// Backends.
const (
	BackendNative = "native"
	BackendGollm  = "gollm"
)

// LLMSettings select and tune the model client.
type LLMSettings struct {
	Provider    string  `mapstructure:"provider" yaml:"provider" validate:"required"`
	Backend     string  `mapstructure:"backend" yaml:"backend,omitempty" validate:"omitempty,oneof=native gollm"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty"`
	APIKey      string  `mapstructure:"api-key" yaml:"api-key,omitempty"`
	BaseURL     string  `mapstructure:"base-url" yaml:"base-url,omitempty" validate:"omitempty,url"`
	MaxTokens   int     `mapstructure:"max-tokens" yaml:"max-tokens" validate:"gte=0"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxRetries  int     `mapstructure:"max-retries" yaml:"max-retries" validate:"gte=0,lte=10"`
}

// ProjectSettings describe the project the assistant works on.
type ProjectSettings struct {
	Root   string   `mapstructure:"root" yaml:"root" validate:"required"`
	Stack  string   `mapstructure:"stack" yaml:"stack"`
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
	Watch  bool     `mapstructure:"watch" yaml:"watch"`
}

// AgentSettings bound the agents' work per turn.
type AgentSettings struct {
	MaxAttempts  int `mapstructure:"max-attempts" yaml:"max-attempts" validate:"gte=0,lte=100"`
	MaxBounces   int `mapstructure:"max-bounces" yaml:"max-bounces" validate:"gte=0,lte=10"`
	MaxFileChars int `mapstructure:"max-file-chars" yaml:"max-file-chars" validate:"gte=0"`
	LoopWindow   int `mapstructure:"loop-window" yaml:"loop-window" validate:"gte=0"`
}

// Settings is the full configuration.
type Settings struct {
	LLM     LLMSettings     `mapstructure:"llm" yaml:"llm"`
	Project ProjectSettings `mapstructure:"project" yaml:"project"`
	Agent   AgentSettings   `mapstructure:"agent" yaml:"agent"`

	LogLevel  string `mapstructure:"log-level" yaml:"log-level" validate:"oneof=trace debug info warn error fatal"`
	LogFormat string `mapstructure:"log-format" yaml:"log-format" validate:"oneof=json text"`
	LogFile   string `mapstructure:"log-file" yaml:"log-file,omitempty"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	opts := agent.DefaultOptions()

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.backend", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api-key", "")
	v.SetDefault("llm.base-url", "")
	v.SetDefault("llm.max-tokens", 4096)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max-retries", 2)

	v.SetDefault("project.root", "user_project")
	v.SetDefault("project.stack", opts.TechStack)
	v.SetDefault("project.ignore", workspace.DefaultIgnore)
	v.SetDefault("project.watch", true)

	v.SetDefault("agent.max-attempts", opts.MaxAttempts)
	v.SetDefault("agent.max-bounces", opts.MaxBounces)
	v.SetDefault("agent.max-file-chars", opts.MaxFileChars)
	v.SetDefault("agent.loop-window", opts.LoopWindow)

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", "")
}

// ReadInConfig sets up environment lookup and reads the config file. With an
// empty configPath the file is searched for in the working directory,
// $HOME/.codehelper and the user config directory; a missing file is fine.
func ReadInConfig(v *viper.Viper, configPath string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.codehelper")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "codehelper"))
		}
	}

	err := v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}
	return errors.Wrap(err, "reading config file")
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decoding settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var validate = validator.New()

// Validate checks the settings and reports every invalid field.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validating settings")
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s fails %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
	}
	return errors.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// AgentOptions converts the settings into agent options.
func (s *Settings) AgentOptions() agent.Options {
	opts := agent.Options{
		Model:        s.LLM.Model,
		TechStack:    s.Project.Stack,
		MaxAttempts:  s.Agent.MaxAttempts,
		MaxBounces:   s.Agent.MaxBounces,
		MaxFileChars: s.Agent.MaxFileChars,
		LoopWindow:   s.Agent.LoopWindow,
	}
	if opts.Model == "" {
		opts.Model = llm.DefaultModel(s.LLM.Provider)
	}
	if s.LLM.MaxTokens > 0 {
		maxTokens := s.LLM.MaxTokens
		opts.MaxTokens = &maxTokens
	}
	temperature := s.LLM.Temperature
	opts.Temperature = &temperature
	return opts
}

// EffectiveBackend returns the configured backend, or the native one for
// openai and gollm for every other provider.
func (l LLMSettings) EffectiveBackend() string {
	if l.Backend != "" {
		return l.Backend
	}
	if l.Provider == "openai" {
		return BackendNative
	}
	return BackendGollm
}

var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
}

// ResolvedAPIKey returns the configured key or the provider's usual
// environment variable.
func (l LLMSettings) ResolvedAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	if name, ok := apiKeyEnv[l.Provider]; ok {
		return os.Getenv(name)
	}
	return ""
}

// YAML renders the settings with the API key masked.
func (s *Settings) YAML() ([]byte, error) {
	masked := *s
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "********"
	}
	out, err := yaml.Marshal(&masked)
	return out, errors.Wrap(err, "encoding settings")
}
