package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenProvider struct{ dim int }

func (p brokenProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("upstream unreachable")
}

func (p brokenProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("upstream unreachable")
}

func (p brokenProvider) Dimension() int { return p.dim }

func magnitude(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p := NewLocalProvider(64)
	ctx := context.Background()

	a, err := p.Embed(ctx, "markdown headings and lists")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "markdown headings and lists")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, magnitude(a), 1e-5, "embeddings are unit length")
}

func TestLocalProvider_SharedVocabularyCorrelates(t *testing.T) {
	p := NewLocalProvider(128)
	ctx := context.Background()

	a, _ := p.Embed(ctx, "markdown syntax for headings")
	b, _ := p.Embed(ctx, "markdown syntax reference")
	c, _ := p.Embed(ctx, "simmer the tomato sauce gently")

	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}
	assert.Greater(t, dot(a, b), dot(a, c),
		"overlapping vocabulary should score higher than disjoint vocabulary")
}

func TestLocalProvider_EmbedBatch(t *testing.T) {
	p := NewLocalProvider(32)
	vectors, err := p.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 32)
	}
}

func TestTruncate_CapsLongInput(t *testing.T) {
	long := strings.Repeat("a", maxInputChars+500)
	assert.Len(t, truncate(long), maxInputChars)
	assert.Equal(t, "short", truncate("short"))
}

func TestResilient_DegradeModeSwallowsFailure(t *testing.T) {
	r := NewResilient(brokenProvider{dim: 16}, FallbackDegrade, nil)

	vec, err := r.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, vec, 16)
	assert.InDelta(t, 1.0, magnitude(vec), 1e-5)

	// Same input degrades to the same vector.
	again, err := r.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, vec, again)

	other, err := r.Embed(context.Background(), "something else")
	require.NoError(t, err)
	assert.NotEqual(t, vec, other)
}

func TestResilient_DegradeBatch(t *testing.T) {
	r := NewResilient(brokenProvider{dim: 16}, FallbackDegrade, nil)

	vectors, err := r.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestResilient_FailModePropagates(t *testing.T) {
	r := NewResilient(brokenProvider{dim: 16}, FallbackFail, nil)

	_, err := r.Embed(context.Background(), "hello")
	assert.Error(t, err)

	_, err = r.EmbedBatch(context.Background(), []string{"hello"})
	assert.Error(t, err)
}

func TestResilient_PassthroughOnSuccess(t *testing.T) {
	inner := NewLocalProvider(16)
	r := NewResilient(inner, FallbackDegrade, nil)

	want, err := inner.Embed(context.Background(), "hello")
	require.NoError(t, err)
	got, err := r.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 16, r.Dimension())
}
