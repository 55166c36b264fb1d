package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martinemde/coderef/unifiedllm"
)

// LoggingMiddleware logs every provider call at debug level.
func LoggingMiddleware(logger *zap.Logger) unifiedllm.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req unifiedllm.Request, next func(context.Context, unifiedllm.Request) (*unifiedllm.Response, error)) (*unifiedllm.Response, error) {
		log := logger.With(
			zap.String("request_id", uuid.NewString()),
			zap.String("provider", req.Provider),
			zap.String("model", req.Model))
		log.Debug("LLM request started", zap.Int("messages", len(req.Messages)))

		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			log.Debug("LLM request failed",
				zap.Duration("duration", elapsed),
				zap.Bool("transient", unifiedllm.IsTransient(err)),
				zap.Error(err))
			return nil, err
		}
		log.Debug("LLM request finished",
			zap.Duration("duration", elapsed),
			zap.String("response_id", resp.ID),
			zap.Int("parts", len(resp.Message.Content)),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens))
		return resp, nil
	}
}
