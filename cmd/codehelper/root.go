package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/codehelper/config"
)

// app holds what the commands share once flags and config are parsed.
type app struct {
	v          *viper.Viper
	configPath string
	settings   *config.Settings
}

// quietLogsAnnotation marks full-screen commands whose logs may only go to
// the log file.
const quietLogsAnnotation = "quiet-logs"

// flagKeys maps persistent flags to their viper keys.
var flagKeys = map[string]string{
	"provider":   "llm.provider",
	"backend":    "llm.backend",
	"model":      "llm.model",
	"base-url":   "llm.base-url",
	"project":    "project.root",
	"stack":      "project.stack",
	"log-level":  "log-level",
	"log-format": "log-format",
	"log-file":   "log-file",
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:           "codehelper",
		Short:         "codehelper is a chat-driven coding assistant for a single project",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: codehelper.yaml in ., $HOME/.codehelper or the user config dir)")
	flags.String("provider", "", "LLM provider (openai, anthropic, gemini, ollama, ...)")
	flags.String("backend", "", "client backend: native (go-openai) or gollm")
	flags.String("model", "", "model ID or alias")
	flags.String("base-url", "", "base URL of an OpenAI-compatible endpoint")
	flags.StringP("project", "p", "", "project root directory")
	flags.String("stack", "", "tech stack described to the model")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error, fatal)")
	flags.String("log-format", "", "log format (json, text)")
	flags.String("log-file", "", "write logs to this file")

	for flag, key := range flagKeys {
		cobra.CheckErr(a.v.BindPFlag(key, flags.Lookup(flag)))
	}

	rootCmd.AddCommand(
		newChatCommand(a),
		newAskCommand(a),
		newTreeCommand(a),
		newModelsCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.ReadInConfig(a.v, a.configPath); err != nil {
		return err
	}
	settings, err := config.Load(a.v)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}
	a.settings = settings

	if err := initLogger(&logConfig{
		Level:     settings.LogLevel,
		LogFormat: settings.LogFormat,
		LogFile:   settings.LogFile,
		Quiet:     cmd.Annotations[quietLogsAnnotation] == "true",
		Out:       cmd.ErrOrStderr(),
	}); err != nil {
		return err
	}

	log.Debug().
		Str("config", a.v.ConfigFileUsed()).
		Str("provider", settings.LLM.Provider).
		Str("project", settings.Project.Root).
		Msg("Loaded configuration")
	return nil
}
