package passage

import "strings"

// IngestResult summarizes one pass of the Clean -> Chunk -> Filter pipeline.
type IngestResult struct {
	Passages   []Passage      `json:"passages"`
	Candidates int            `json:"candidates"`
	Rejected   map[Reason]int `json:"rejected,omitempty"`
}

// Ingest cleans, chunks and filters src. A nil filter uses the default English filter;
// targetWords follows ChunkText.
// Duplicate chunks within the same source are reported once.
func Ingest(src RawSource, f *Filter, targetWords int) IngestResult {
	if f == nil {
		f = defaultFilter
	}

	cleaned := Clean(src.Text, src.Type)
	chunks := ChunkText(cleaned, targetWords)

	var author *string
	if a := strings.TrimSpace(src.Author); a != "" {
		author = &a
	}
	genre := Normalize(src.Genre)
	title := strings.TrimSpace(src.Title)

	res := IngestResult{Candidates: len(chunks)}
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		reasons := f.Evaluate(c.Text)
		if len(reasons) > 0 {
			if res.Rejected == nil {
				res.Rejected = make(map[Reason]int)
			}
			for _, r := range reasons {
				res.Rejected[r]++
			}
			continue
		}
		res.Passages = append(res.Passages, Passage{
			ID:           c.ID,
			Text:         c.Text,
			WordCount:    c.WordCount,
			SourceTitle:  title,
			SourceAuthor: author,
			Genre:        genre,
			SourceType:   src.Type,
		})
	}
	return res
}

// RejectedCount returns the number of candidates that did not become passages.
func (r IngestResult) RejectedCount() int {
	return r.Candidates - len(r.Passages)
}
