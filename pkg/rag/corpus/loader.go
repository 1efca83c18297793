// Package corpus loads the read-only document set the retrieval
// service indexes at startup.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one source text before chunking.
type Document struct {
	ID      string
	Title   string
	Content string
}

// Loader reads documents once at startup. Absence or read failure of
// the directory is fatal to retrieval initialization only.
type Loader interface {
	Load() ([]Document, error)
}

// DirLoader reads every .txt and .md file in a directory. An optional
// front-matter block supplies the title:
//
//	---
//	title: Markdown Basics
//	---
type DirLoader struct {
	Dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

func (l *DirLoader) Load() ([]Document, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir %s: %w", l.Dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(l.Dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", entry.Name(), err)
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		title, content := parseFrontMatter(string(raw))
		if title == "" {
			title = id
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, Document{ID: id, Title: title, Content: content})
	}
	return docs, nil
}

// parseFrontMatter extracts a title from a leading "---" block, if one
// exists, and returns the remaining body. Unknown keys are ignored.
func parseFrontMatter(raw string) (title, body string) {
	body = raw
	trimmed := strings.TrimLeft(raw, "\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", body
	}

	rest := trimmed[3:]
	end := strings.Index(rest, "---")
	if end < 0 {
		return "", body
	}

	block := rest[:end]
	body = strings.TrimLeft(rest[end+3:], "\r\n")

	for _, line := range strings.Split(block, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.TrimSpace(strings.ToLower(key)) == "title" {
			title = strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return title, body
}

// StaticLoader serves a fixed document set. Used in tests and demos.
type StaticLoader struct {
	Docs []Document
}

func (l *StaticLoader) Load() ([]Document, error) {
	return l.Docs, nil
}
