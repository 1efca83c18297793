// Package rag orchestrates corpus loading, embedding and vector search
// into prompt-ready context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/embedding"
	"ai-assistant-be/pkg/rag/chunker"
	"ai-assistant-be/pkg/rag/corpus"
	"ai-assistant-be/pkg/rag/index"
)

const (
	DefaultMaxResults    = 3
	DefaultMinSimilarity = 0.1
)

// Options tune search behavior.
type Options struct {
	MaxResults    int
	MinSimilarity float64
}

// Service is the retrieval engine: it builds the index once at startup
// and answers semantic queries afterwards. The index is effectively
// read-only after Initialize.
type Service struct {
	loader   corpus.Loader
	embedder embedding.Provider
	chunker  *chunker.Chunker
	index    *index.Index
	log      logger.ILogger
	opts     Options

	// titles labels context blocks by document title. Written once
	// during Initialize, read-only afterwards, like the index.
	titles map[string]string

	mu          sync.Mutex
	initialized bool
}

func NewService(loader corpus.Loader, embedder embedding.Provider, ch *chunker.Chunker, log logger.ILogger, opts Options) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		loader:   loader,
		embedder: embedder,
		chunker:  ch,
		index:    index.New(),
		log:      log,
		opts:     opts,
	}
}

// Initialize loads, chunks, embeds and indexes the corpus. Idempotent:
// a second call after success is a no-op. On failure the service stays
// uninitialized and queries report that explicitly.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	docs, err := s.loader.Load()
	if err != nil {
		return apperror.Wrap(apperror.ErrDependencyUnavailable, fmt.Errorf("load corpus: %w", err))
	}

	var chunks []chunker.Chunk
	var texts []string
	titles := make(map[string]string, len(docs))
	for _, doc := range docs {
		titles[doc.ID] = doc.Title
		docChunks := s.chunker.Split(doc.ID, doc.Content)
		for _, c := range docChunks {
			chunks = append(chunks, c)
			texts = append(texts, c.Content)
		}
		s.log.Debug("rag", "document chunked", map[string]interface{}{
			"doc":    doc.ID,
			"chunks": len(docChunks),
		})
	}

	if len(chunks) > 0 {
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed corpus: %w", err)
		}
		for i, c := range chunks {
			if err := s.index.Insert(c, vectors[i]); err != nil {
				return err
			}
		}
	}

	s.titles = titles
	s.initialized = true
	s.log.Info("rag", "retrieval index built", map[string]interface{}{
		"documents": len(docs),
		"chunks":    s.index.Len(),
	})
	return nil
}

// ChunkCount reports how many chunks are indexed.
func (s *Service) ChunkCount() int {
	return s.index.Len()
}

// Initialized reports whether the load phase has completed.
func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Search returns the raw ranked results above the similarity floor.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]index.SearchResult, error) {
	if !s.Initialized() {
		return nil, apperror.ErrNotInitialized
	}
	if maxResults <= 0 {
		maxResults = s.opts.MaxResults
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results := s.index.Search(queryVec, maxResults)
	filtered := results[:0]
	for _, r := range results {
		if r.Similarity >= s.opts.MinSimilarity {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// GetRelevantContext formats the top matches as a numbered context
// block, or an empty string when nothing relevant survives the filter.
// Failures other than ErrNotInitialized degrade to empty context.
func (s *Service) GetRelevantContext(ctx context.Context, query string, maxResults int) (string, error) {
	results, err := s.Search(ctx, query, maxResults)
	if err != nil {
		if errors.Is(err, apperror.ErrNotInitialized) {
			return "", err
		}
		s.log.Warn("rag", "search degraded to empty context", map[string]interface{}{
			"error": err.Error(),
		})
		return "", nil
	}
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Relevant information from the knowledge base:\n")
	for i, r := range results {
		label := s.titles[r.Chunk.SourceID]
		if label == "" {
			label = r.Chunk.SourceID
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, label, r.Chunk.Content)
	}
	return b.String(), nil
}
