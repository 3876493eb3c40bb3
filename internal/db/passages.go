package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
)

// Source is one ingestion run: provenance plus filter outcome.
type Source struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Author     *string            `json:"author,omitempty"`
	Genre      string             `json:"genre"`
	Type       passage.SourceType `json:"source_type"`
	Candidates int                `json:"candidates"`
	Accepted   int                `json:"accepted"`
	Rejected   map[string]int     `json:"rejected,omitempty"`
	CreatedAt  int64              `json:"created_at"`
}

// InsertSource records an ingestion run.
func InsertSource(ctx context.Context, q Querier, s *Source) error {
	var rejectedJSON sql.NullString
	if len(s.Rejected) > 0 {
		data, err := json.Marshal(s.Rejected)
		if err != nil {
			return errors.NewInternal(err)
		}
		rejectedJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO sources (
			id, title, author, genre, source_type,
			candidates, accepted, rejected_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		s.ID, s.Title, toNullString(s.Author), s.Genre, string(s.Type),
		s.Candidates, s.Accepted, rejectedJSON, s.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertPassages stores passages for sourceID. Passages whose content ID already
// exists are skipped. Returns the number actually inserted.
func InsertPassages(ctx context.Context, q Querier, sourceID string, passages []passage.Passage, createdAt int64) (int, error) {
	query := `
		INSERT OR IGNORE INTO passages (
			id, source_id, text, word_count, source_title, source_author,
			genre, source_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	inserted := 0
	for _, p := range passages {
		res, err := q.ExecContext(ctx, query,
			p.ID, sourceID, p.Text, p.WordCount, p.SourceTitle, toNullString(p.SourceAuthor),
			p.Genre, string(p.SourceType), createdAt,
		)
		if err != nil {
			return inserted, errors.NewInternal(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, errors.NewInternal(err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

const passageColumns = `id, text, word_count, source_title, source_author, genre, source_type`

// GetPassage retrieves a passage by its content ID.
func GetPassage(ctx context.Context, q Querier, id string) (*passage.Passage, error) {
	row := q.QueryRowContext(ctx, `SELECT `+passageColumns+` FROM passages WHERE id = ?`, id)
	p, err := scanPassage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("passage", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// ListPassages returns passages newest first, optionally filtered by normalized genre,
// together with the total matching count.
func ListPassages(ctx context.Context, q Querier, genre string, limit, offset int) ([]passage.Passage, int, error) {
	var total int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM passages WHERE (? = '' OR genre = ?)`, genre, genre,
	).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+passageColumns+`
		FROM passages
		WHERE (? = '' OR genre = ?)
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, genre, genre, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []passage.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// GenreCount is the number of passages in one genre.
type GenreCount struct {
	Genre    string `json:"genre"`
	Passages int    `json:"passages"`
}

// PassageGenres returns passage counts per genre, most populated first.
func PassageGenres(ctx context.Context, q Querier) ([]GenreCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT genre, COUNT(*) FROM passages
		GROUP BY genre
		ORDER BY COUNT(*) DESC, genre
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []GenreCount
	for rows.Next() {
		var gc GenreCount
		if err := rows.Scan(&gc.Genre, &gc.Passages); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(row rowScanner) (*passage.Passage, error) {
	var (
		p          passage.Passage
		author     sql.NullString
		sourceType string
	)
	if err := row.Scan(&p.ID, &p.Text, &p.WordCount, &p.SourceTitle, &author, &p.Genre, &sourceType); err != nil {
		return nil, err
	}
	p.SourceAuthor = fromNullString(author)
	p.SourceType = passage.SourceType(sourceType)
	return &p, nil
}

// EachPassage calls fn for every stored passage, oldest first. It stops at the first error.
func EachPassage(ctx context.Context, q Querier, fn func(passage.Passage) error) error {
	rows, err := q.QueryContext(ctx, `SELECT `+passageColumns+` FROM passages ORDER BY created_at, id`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(*p); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
