// Package chunker splits documents into overlapping, sentence-aligned
// windows sized for embedding.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// avgWordLen converts the character overlap budget into a word
	// count. Words are the overlap unit so sentence fragments stay
	// intact at chunk seams.
	avgWordLen = 6
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]?`)

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Embedding is set exactly once, after the
// chunk is built.
type Chunk struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	SourceID    string    `json:"source_id"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	WordCount   int       `json:"word_count"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Chunker accumulates sentences greedily up to ChunkSize characters and
// seeds each following chunk with the trailing overlap words of the
// previous one.
type Chunker struct {
	ChunkSize int
	Overlap   int
}

func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}
}

// Split produces the ordered chunk sequence for one document.
//
// A single sentence longer than ChunkSize is emitted intact as an
// oversized chunk; there is no recursive hard split. Callers needing a
// strict cap must post-process.
func (c *Chunker) Split(sourceID, text string) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapWords := c.Overlap / avgWordLen

	var chunks []Chunk
	var buffer string

	emit := func() {
		content := strings.TrimSpace(buffer)
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("%s:%d", sourceID, len(chunks)),
			Content:    content,
			SourceID:   sourceID,
			ChunkIndex: len(chunks),
			WordCount:  len(strings.Fields(content)),
		})
	}

	for _, sentence := range sentences {
		candidate := sentence
		if buffer != "" {
			candidate = buffer + " " + sentence
		}
		if len(candidate) > c.ChunkSize && buffer != "" {
			emit()
			// Seed the next buffer with the trailing words of the chunk
			// just emitted, then the new sentence.
			tail := trailingWords(buffer, overlapWords)
			if tail != "" {
				buffer = tail + " " + sentence
			} else {
				buffer = sentence
			}
			continue
		}
		buffer = candidate
	}
	emit()

	// Second pass: every chunk carries the document's final count.
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// splitSentences breaks text on sentence terminators, keeping the
// terminator attached to its sentence. Whitespace-only fragments are
// dropped.
func splitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// trailingWords returns the last n words of text joined by spaces.
func trailingWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
