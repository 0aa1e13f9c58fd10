package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// LoggingMiddleware logs every model call with its latency and token usage.
func LoggingMiddleware() Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		start := time.Now()
		log.Debug().
			Str("provider", req.Provider).
			Str("model", req.Model).
			Int("messages", len(req.Messages)).
			Int("tools", len(req.Tools)).
			Msg("Model request")

		resp, err := next(ctx, req)
		if err != nil {
			log.Warn().
				Err(err).
				Str("provider", req.Provider).
				Str("model", req.Model).
				Dur("latency", time.Since(start)).
				Msg("Model request failed")
			return nil, err
		}

		log.Info().
			Str("provider", resp.Provider).
			Str("model", resp.Model).
			Str("finish_reason", resp.FinishReason.Reason).
			Int("tool_calls", len(resp.ToolCalls())).
			Int("input_tokens", resp.Usage.InputTokens).
			Int("output_tokens", resp.Usage.OutputTokens).
			Dur("latency", time.Since(start)).
			Msg("Model response")
		return resp, nil
	}
}
