package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
	"github.com/hpungsan/drill/internal/review"
)

// ExportSchemaVersion is written in the header line of every export.
const ExportSchemaVersion = "1"

// Export record kinds.
const (
	RecordPassage = "passage"
	RecordItem    = "item"
	RecordReview  = "review"
)

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	DrillExport   bool   `json:"_drill_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one JSONL line after the header. Exactly one payload matches Kind.
type ExportRecord struct {
	Kind    string           `json:"kind"`
	Passage *passage.Passage `json:"passage,omitempty"`
	Item    *db.Item         `json:"item,omitempty"`
	Review  *review.Record   `json:"review,omitempty"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path  string // default: ~/.drill/exports/<genre|all>-<timestamp>.jsonl
	Genre string // optional: only passages of this genre, their items and reviews
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Passages   int    `json:"passages"`
	Items      int    `json:"items"`
	Reviews    int    `json:"reviews"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the passage library, its items and their review records to a JSONL file.
// The file is written to a temp name and renamed into place, so a failed export never
// clobbers an existing file.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	genre := passage.Normalize(input.Genre)

	exportPath := input.Path
	if exportPath == "" {
		var err error
		if exportPath, err = defaultExportPath(genre, now); err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := &recordWriter{w: bufio.NewWriter(file)}
	out := &ExportOutput{Path: exportPath, ExportedAt: now.Unix()}

	w.write(ExportHeader{DrillExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: out.ExportedAt})

	err = db.EachPassage(ctx, database, func(p passage.Passage) error {
		if ctx.Err() != nil {
			return errors.NewCancelled("export")
		}
		if genre != "" && p.Genre != genre {
			return nil
		}
		w.write(ExportRecord{Kind: RecordPassage, Passage: &p})
		out.Passages++
		if w.err != nil {
			return errors.NewInternal(w.err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := db.ListItems(ctx, database, genre)
	if err != nil {
		return nil, err
	}
	exported := make(map[string]bool, len(items))
	for i := range items {
		w.write(ExportRecord{Kind: RecordItem, Item: &items[i]})
		exported[items[i].ID] = true
	}
	out.Items = len(items)

	records, err := db.NewReviewStore(database).Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if !exported[records[i].ItemID] {
			continue
		}
		w.write(ExportRecord{Kind: RecordReview, Review: &records[i]})
		out.Reviews++
	}

	if err := w.flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if isSymlink(exportPath) {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return out, nil
}

// recordWriter writes JSON lines and remembers the first error.
type recordWriter struct {
	w   *bufio.Writer
	err error
}

func (rw *recordWriter) write(v any) {
	if rw.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		rw.err = err
		return
	}
	if _, err := rw.w.Write(append(data, '\n')); err != nil {
		rw.err = err
	}
}

func (rw *recordWriter) flush() error {
	if rw.err != nil {
		return rw.err
	}
	return rw.w.Flush()
}

// defaultExportPath returns ~/.drill/exports/<genre|all>-<timestamp>.jsonl.
func defaultExportPath(genre string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "all"
	if genre != "" {
		name = SanitizeForFilename(genre)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))), nil
}
