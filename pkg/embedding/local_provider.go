package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
)

// LocalProvider is a deterministic, offline embedder. Each word hashes
// into a handful of vector positions, so texts sharing vocabulary end
// up with correlated vectors. Relevance is crude but stable, which is
// exactly what dev environments and tests need.
type LocalProvider struct {
	Dim int
}

func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 128
	}
	return &LocalProvider{Dim: dimension}
}

func (p *LocalProvider) Dimension() int { return p.Dim }

func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.Dim)
	words := strings.Fields(strings.ToLower(truncate(text)))
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))
		// Spread each word over a few positions with signed weights.
		for i := 0; i < 4; i++ {
			vec[rng.Intn(p.Dim)] += float32(rng.Float64()*2 - 1)
		}
	}
	return normalize(vec), nil
}

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

var _ Provider = (*LocalProvider)(nil)
