// Package index provides an in-memory exhaustive vector index over
// document chunks with cosine top-k search.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/pkg/rag/chunker"
)

// SearchResult pairs a stored chunk with its similarity to the query.
// Ephemeral, produced per query, never persisted.
type SearchResult struct {
	Chunk      chunker.Chunk
	Similarity float64
}

// Index stores (chunk, vector) pairs. The first insert fixes the
// dimensionality; any later mismatch is corrupt state. The build phase
// is single-writer, steady state is many-reader.
type Index struct {
	mu        sync.RWMutex
	dimension int
	chunks    []chunker.Chunk
	vectors   [][]float32
}

func New() *Index { return &Index{} }

// Insert appends a chunk with its vector. O(1).
func (idx *Index) Insert(chunk chunker.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return apperror.Wrap(apperror.ErrCorruptState, fmt.Errorf("empty vector for chunk %s", chunk.ID))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vector)
	} else if len(vector) != idx.dimension {
		return apperror.Wrap(apperror.ErrCorruptState,
			fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), idx.dimension))
	}

	chunk.Embedding = vector
	idx.chunks = append(idx.chunks, chunk)
	idx.vectors = append(idx.vectors, vector)
	return nil
}

// Len reports the number of stored chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Search scans every stored vector and returns the top k by cosine
// similarity, descending. Ties keep insertion order. An empty index
// yields an empty slice, never an error.
func (idx *Index) Search(query []float32, k int) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.chunks) == 0 || k <= 0 {
		return []SearchResult{}
	}

	results := make([]SearchResult, len(idx.chunks))
	for i, vec := range idx.vectors {
		results[i] = SearchResult{
			Chunk:      idx.chunks[i],
			Similarity: CosineSimilarity(query, vec),
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// CosineSimilarity is the normalized dot product of a and b, in
// [-1, 1]. A zero-magnitude operand yields 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
