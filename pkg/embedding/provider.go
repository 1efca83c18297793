package embedding

import (
	"context"
	"math"
)

// maxInputChars caps text sent to a provider. Longer inputs are
// truncated, never rejected.
const maxInputChars = 8000

// Provider maps text to fixed-length float vectors. All vectors from
// one provider must share the same dimensionality.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order; result[i] corresponds to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of every vector this provider produces.
	Dimension() int
}

// truncate enforces the provider input cap on rune boundaries.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxInputChars {
		return text
	}
	return string(runes[:maxInputChars])
}

// normalize scales a vector to unit length. Cosine similarity over
// normalized vectors reduces to a dot product.
func normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
