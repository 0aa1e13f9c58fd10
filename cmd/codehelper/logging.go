package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type logConfig struct {
	Level     string
	LogFormat string
	LogFile   string
	// Quiet drops console output, keeping only the log file.
	Quiet bool
	Out   io.Writer
}

func initLogger(config *logConfig) error {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", config.Level)
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if !config.Quiet {
		if config.LogFormat == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: config.Out})
		} else {
			writers = append(writers, config.Out)
		}
	}
	if config.LogFile != "" {
		writers = append(writers, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}

	switch len(writers) {
	case 0:
		log.Logger = zerolog.Nop()
	case 1:
		log.Logger = zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	}
	return nil
}
