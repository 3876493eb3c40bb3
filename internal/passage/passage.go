// Package passage turns raw source text into exam-sized reading passages.
//
// The pipeline is Clean -> Chunk -> Filter. Everything here is pure: no I/O,
// no shared state, and the same input always yields the same passages.
package passage

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Word bounds for a passage, mirroring a medium-length exam passage.
const (
	MinWords    = 125
	MaxWords    = 200
	TargetWords = 160
)

// SourceType tags where a raw text came from. Cleaning rules depend on it.
type SourceType string

const (
	SourceBook         SourceType = "book"
	SourceEncyclopedia SourceType = "encyclopedia"
	SourceNews         SourceType = "news"
	SourceMarkdown     SourceType = "markdown"
)

// SourceTypes lists the known source types.
var SourceTypes = []SourceType{SourceBook, SourceEncyclopedia, SourceNews, SourceMarkdown}

// ParseSourceType returns the SourceType for s (case-insensitive) and whether it is known.
func ParseSourceType(s string) (SourceType, bool) {
	t := SourceType(Normalize(s))
	for _, known := range SourceTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// RawSource is a block of text plus its provenance. It is never persisted by this package.
type RawSource struct {
	Text   string
	Type   SourceType
	Title  string
	Author string
	Genre  string
}

// CandidateChunk is a word-bounded slice of cleaned text awaiting the quality filter.
type CandidateChunk struct {
	// ID is a content hash, stable across re-ingestion of the same text
	ID string

	// Index is the chunk's position in the source
	Index int

	Text      string
	WordCount int
}

// Passage is a chunk that passed quality filtering.
type Passage struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"`
	WordCount    int        `json:"word_count"`
	SourceTitle  string     `json:"source_title"`
	SourceAuthor *string    `json:"source_author,omitempty"`
	Genre        string     `json:"genre"`
	SourceType   SourceType `json:"source_type"`
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
// Used for genre labels and source type tags.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ChunkID derives the deterministic ID for a chunk of text.
func ChunkID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}
