package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// InstrumentedEmbedder wraps an Embedder with metrics and debug logging.
// Sits under the cache so only real model calls are counted.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	space  string
	model  string
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, space domain.Space, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		space:  space.String(),
		model:  model,
		logger: logger,
	}
}

// Embed delegates to the inner embedder and records duration, tokens and failures.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.space, p.model, errorType(ctx)).Inc()
		p.logger.Error("Embedding request failed",
			zap.String("space", p.space),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(p.space, p.model).Observe(duration.Seconds())
	if result.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.space, p.model).Add(float64(result.TotalTokens))
	}

	p.logger.Debug("Embedding request completed",
		zap.String("space", p.space),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

func errorType(ctx context.Context) string {
	if ctx.Err() != nil {
		return "canceled"
	}
	return "model_error"
}
