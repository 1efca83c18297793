package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"

	"ai-assistant-be/internal/pkg/logger"
)

// FallbackMode selects what happens when the upstream provider fails.
type FallbackMode string

const (
	// FallbackDegrade substitutes a pseudo-random vector of the right
	// dimension. The index stays dimensionally consistent; the degraded
	// vector just matches nothing meaningfully.
	FallbackDegrade FallbackMode = "degrade"

	// FallbackFail propagates the provider error to the caller.
	FallbackFail FallbackMode = "fail"
)

// Resilient wraps a Provider with the degrade-vs-fail policy. In
// degrade mode an embedding failure never reaches the caller.
type Resilient struct {
	inner Provider
	mode  FallbackMode
	log   logger.ILogger
}

func NewResilient(inner Provider, mode FallbackMode, log logger.ILogger) *Resilient {
	if mode != FallbackFail {
		mode = FallbackDegrade
	}
	return &Resilient{inner: inner, mode: mode, log: log}
}

func (r *Resilient) Dimension() int { return r.inner.Dimension() }

func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.inner.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if r.mode == FallbackFail {
		return nil, err
	}
	if r.log != nil {
		r.log.Warn("embedding", "provider failed, returning degraded vector", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return r.degradedVector(text), nil
}

func (r *Resilient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := r.inner.EmbedBatch(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if r.mode == FallbackFail {
		return nil, err
	}
	if r.log != nil {
		r.log.Warn("embedding", "batch failed, returning degraded vectors", map[string]interface{}{
			"count": len(texts),
			"error": err.Error(),
		})
	}
	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = r.degradedVector(text)
	}
	return vectors, nil
}

// degradedVector is pseudo-random but seeded from the text, so repeated
// failures for the same input produce the same vector.
func (r *Resilient) degradedVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, r.inner.Dimension())
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	return normalize(vec)
}

var _ Provider = (*Resilient)(nil)
