package ops

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Text        string // required
	SourceType  string // required: book, encyclopedia, news, markdown
	Title       string // required
	Author      string
	Genre       string // required
	TargetWords int    // default: passage.TargetWords
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	SourceID   string         `json:"source_id"`
	Candidates int            `json:"candidates"`
	Accepted   int            `json:"accepted"`
	Inserted   int            `json:"inserted"`
	Duplicates int            `json:"duplicates"`
	Rejected   map[string]int `json:"rejected,omitempty"`
	PassageIDs []string       `json:"passage_ids"`
}

// Ingest cleans, chunks and filters a raw source and stores the accepted passages.
// Passages already stored (same content) are counted as duplicates.
func Ingest(ctx context.Context, database *sql.DB, cfg *config.Config, input IngestInput) (*IngestOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	typ, ok := passage.ParseSourceType(input.SourceType)
	if !ok {
		return nil, errors.NewInvalidRequest("source_type must be one of: book, encyclopedia, news, markdown")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}
	if passage.Normalize(input.Genre) == "" {
		return nil, errors.NewInvalidRequest("genre is required")
	}
	if input.TargetWords != 0 && (input.TargetWords < passage.MinWords || input.TargetWords > passage.MaxWords) {
		return nil, errors.NewInvalidRequest("target_words must be between 125 and 200")
	}

	res := passage.Ingest(passage.RawSource{
		Text:   input.Text,
		Type:   typ,
		Title:  input.Title,
		Author: input.Author,
		Genre:  input.Genre,
	}, newFilter(cfg), input.TargetWords)

	rejected := make(map[string]int, len(res.Rejected))
	for reason, n := range res.Rejected {
		rejected[string(reason)] = n
	}
	if len(res.Passages) == 0 {
		return nil, errors.NewNoPassages(res.Candidates, rejected)
	}

	sourceID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()

	var author *string
	if a := strings.TrimSpace(input.Author); a != "" {
		author = &a
	}
	src := &db.Source{
		ID:         sourceID,
		Title:      strings.TrimSpace(input.Title),
		Author:     author,
		Genre:      passage.Normalize(input.Genre),
		Type:       typ,
		Candidates: res.Candidates,
		Accepted:   len(res.Passages),
		Rejected:   rejected,
		CreatedAt:  now,
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := db.InsertSource(ctx, tx, src); err != nil {
		return nil, err
	}
	inserted, err := db.InsertPassages(ctx, tx, sourceID, res.Passages, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	ids := make([]string, len(res.Passages))
	for i, p := range res.Passages {
		ids[i] = p.ID
	}

	slog.InfoContext(ctx, "source ingested",
		"source_id", sourceID,
		"genre", src.Genre,
		"candidates", res.Candidates,
		"accepted", len(res.Passages),
		"inserted", inserted,
		"rejected", res.RejectedCount(),
	)

	out := &IngestOutput{
		SourceID:   sourceID,
		Candidates: res.Candidates,
		Accepted:   len(res.Passages),
		Inserted:   inserted,
		Duplicates: len(res.Passages) - inserted,
		PassageIDs: ids,
	}
	if len(rejected) > 0 {
		out.Rejected = rejected
	}
	return out, nil
}

// newFilter builds the quality filter, extending the connective list from config.
func newFilter(cfg *config.Config) *passage.Filter {
	opts := passage.DefaultFilterOptions()
	if cfg != nil && len(cfg.ExtraConnectives) > 0 {
		opts.Vocabulary.Connectives = append(opts.Vocabulary.Connectives, cfg.ExtraConnectives...)
	}
	return passage.NewFilter(opts)
}
