package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
	"github.com/hpungsan/drill/internal/review"
	"github.com/hpungsan/drill/internal/selection"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // abort on any problem, import nothing
	ImportModeSkip  ImportMode = "skip"  // skip records that already exist or fail checks
)

// maxImportLine bounds one JSONL line (passages are short, payloads may not be).
const maxImportLine = 4 * 1024 * 1024

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Passages int           `json:"passages"`
	Items    int           `json:"items"`
	Reviews  int           `json:"reviews"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type lineRecord struct {
	line int
	ExportRecord
}

// Import loads an export file. Passages are re-checked by the quality filter and keep
// their content IDs; items need their passage and reviews need their item.
// In error mode the whole file is one transaction.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)
	out := &ImportOutput{Errors: []ImportError{}}
	if len(parseErrors) > 0 {
		if input.Mode == ImportModeError {
			out.Errors = parseErrors
			return out, nil
		}
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped += len(parseErrors)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	im := &importer{
		tx:      tx,
		filter:  newFilter(cfg),
		now:     time.Now().Unix(),
		sources: make(map[string]string),
	}
	for _, rec := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		ie, err := im.apply(ctx, rec)
		if err != nil {
			return nil, err
		}
		if ie == nil {
			switch rec.Kind {
			case RecordPassage:
				out.Passages++
			case RecordItem:
				out.Items++
			case RecordReview:
				out.Reviews++
			}
			continue
		}
		if input.Mode == ImportModeError {
			return &ImportOutput{Errors: []ImportError{*ie}}, nil
		}
		out.Errors = append(out.Errors, *ie)
		out.Skipped++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// parseExportFile decodes every line, skipping the header.
func parseExportFile(r io.Reader) ([]lineRecord, []ImportError) {
	var (
		records     []lineRecord
		parseErrors []ImportError
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var probe struct {
			DrillExport bool `json:"_drill_export"`
			ExportRecord
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if probe.DrillExport {
			continue
		}

		rec := lineRecord{line: lineNum, ExportRecord: probe.ExportRecord}
		if msg := rec.shapeError(); msg != "" {
			parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: msg})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return records, parseErrors
}

// shapeError reports a record whose payload does not match its kind.
func (r lineRecord) shapeError() string {
	switch r.Kind {
	case RecordPassage:
		if r.Passage == nil || r.Passage.ID == "" {
			return "passage record without passage id"
		}
	case RecordItem:
		if r.Item == nil || r.Item.ID == "" {
			return "item record without item id"
		}
	case RecordReview:
		if r.Review == nil || r.Review.ItemID == "" {
			return "review record without item id"
		}
	default:
		return fmt.Sprintf("unknown record kind %q", r.Kind)
	}
	return ""
}

type importer struct {
	tx      *sql.Tx
	filter  *passage.Filter
	now     int64
	sources map[string]string // provenance key -> source id
}

// apply imports one record. A non-nil ImportError means the record was refused;
// a non-nil error aborts the import.
func (im *importer) apply(ctx context.Context, rec lineRecord) (*ImportError, error) {
	switch rec.Kind {
	case RecordPassage:
		return im.passage(ctx, rec.line, *rec.Passage)
	case RecordItem:
		return im.item(ctx, rec.line, *rec.Item)
	default:
		return im.review(ctx, rec.line, *rec.Review)
	}
}

func (im *importer) passage(ctx context.Context, line int, p passage.Passage) (*ImportError, error) {
	refuse := func(code, msg string) (*ImportError, error) {
		return &ImportError{Line: line, ID: p.ID, Code: code, Message: msg}, nil
	}

	if p.ID != passage.ChunkID(p.Text) {
		return refuse("INVALID_RECORD", "passage id does not match its text")
	}
	typ, ok := passage.ParseSourceType(string(p.SourceType))
	if !ok {
		return refuse("INVALID_RECORD", fmt.Sprintf("unknown source type %q", p.SourceType))
	}
	p.SourceType = typ
	p.Genre = passage.Normalize(p.Genre)
	if p.Genre == "" || strings.TrimSpace(p.SourceTitle) == "" {
		return refuse("INVALID_RECORD", "passage needs a genre and source title")
	}
	p.WordCount = passage.CountWords(p.Text)
	if p.WordCount < passage.MinWords || p.WordCount > passage.MaxWords {
		return refuse("INVALID_RECORD", fmt.Sprintf("passage has %d words, want %d-%d", p.WordCount, passage.MinWords, passage.MaxWords))
	}
	if reasons := im.filter.Evaluate(p.Text); len(reasons) > 0 {
		return refuse("REJECTED_PASSAGE", fmt.Sprintf("passage fails quality rules: %v", reasons))
	}

	if _, err := db.GetPassage(ctx, im.tx, p.ID); err == nil {
		return refuse("ID_COLLISION", "passage already exists")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	sourceID, err := im.source(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, err := db.InsertPassages(ctx, im.tx, sourceID, []passage.Passage{p}, im.now); err != nil {
		return nil, err
	}
	return nil, nil
}

// source returns the import source row for p's provenance, creating it on first use.
func (im *importer) source(ctx context.Context, p passage.Passage) (string, error) {
	author := ""
	if p.SourceAuthor != nil {
		author = *p.SourceAuthor
	}
	key := strings.Join([]string{p.SourceTitle, author, p.Genre, string(p.SourceType)}, "\x00")
	if id, ok := im.sources[key]; ok {
		return id, nil
	}

	id, err := generateULID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if err := db.InsertSource(ctx, im.tx, &db.Source{
		ID:        id,
		Title:     p.SourceTitle,
		Author:    p.SourceAuthor,
		Genre:     p.Genre,
		Type:      p.SourceType,
		CreatedAt: im.now,
	}); err != nil {
		return "", err
	}
	im.sources[key] = id
	return id, nil
}

func (im *importer) item(ctx context.Context, line int, it db.Item) (*ImportError, error) {
	refuse := func(code, msg string) (*ImportError, error) {
		return &ImportError{Line: line, ID: it.ID, Code: code, Message: msg}, nil
	}

	d, ok := selection.ParseDifficulty(string(it.Difficulty))
	if !ok {
		return refuse("INVALID_RECORD", fmt.Sprintf("unknown difficulty %q", it.Difficulty))
	}
	it.Difficulty = d
	if len(it.Payload) > 0 && !json.Valid(it.Payload) {
		return refuse("INVALID_RECORD", "payload must be valid JSON")
	}

	if _, err := db.GetItem(ctx, im.tx, it.ID); err == nil {
		return refuse("ID_COLLISION", "item already exists")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if _, err := db.GetPassage(ctx, im.tx, it.PassageID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return refuse("MISSING_PASSAGE", "passage not found: "+it.PassageID)
		}
		return nil, err
	}

	it.CreatedAt = im.now
	if err := db.InsertItems(ctx, im.tx, []db.Item{it}); err != nil {
		return nil, err
	}
	return nil, nil
}

func (im *importer) review(ctx context.Context, line int, r review.Record) (*ImportError, error) {
	refuse := func(code, msg string) (*ImportError, error) {
		return &ImportError{Line: line, ID: r.ItemID, Code: code, Message: msg}, nil
	}

	if r.IntervalDays < review.InitialInterval || r.EaseFactor < review.MinEase || r.RepetitionCount < 0 {
		return refuse("INVALID_RECORD", "review record out of range")
	}
	r.NextReviewDate = review.Day(r.NextReviewDate)
	r.LastReviewDate = review.Day(r.LastReviewDate)

	store := db.NewReviewStore(im.tx)
	if _, err := store.Get(ctx, r.ItemID); err == nil {
		return refuse("ID_COLLISION", "review record already exists")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if _, err := db.GetItem(ctx, im.tx, r.ItemID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return refuse("MISSING_ITEM", "item not found: "+r.ItemID)
		}
		return nil, err
	}

	if err := store.Save(ctx, r); err != nil {
		return nil, err
	}
	return nil, nil
}
