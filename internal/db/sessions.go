package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/selection"
)

// Session is a persisted practice session.
type Session struct {
	ID          string        `json:"id"`
	Seed        int64         `json:"seed"`
	TargetCount int           `json:"target_count"`
	Mix         selection.Mix `json:"mix"`
	Genre       *string       `json:"genre,omitempty"`
	ItemIDs     []string      `json:"item_ids"`
	CreatedAt   int64         `json:"created_at"`
	GradedAt    *int64        `json:"graded_at,omitempty"`
	Correct     int           `json:"correct"`
	Total       int           `json:"total"`
}

// Attempt is one graded answer within a session.
type Attempt struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	Correct   bool   `json:"correct"`
	CreatedAt int64  `json:"created_at"`
}

// InsertSession stores a session and its ordered item list.
func InsertSession(ctx context.Context, q Querier, s *Session) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (
			id, seed, target_count, mix_easy, mix_medium, mix_hard, genre, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Seed, s.TargetCount, s.Mix.Easy, s.Mix.Medium, s.Mix.Hard, toNullString(s.Genre), s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	for pos, itemID := range s.ItemIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO session_items (session_id, position, item_id) VALUES (?, ?, ?)`,
			s.ID, pos, itemID,
		); err != nil {
			return writeError(err, "", "item", itemID)
		}
	}
	return nil
}

// GetSession retrieves a session with its item IDs in selection order.
func GetSession(ctx context.Context, q Querier, id string) (*Session, error) {
	var (
		s        Session
		genre    sql.NullString
		gradedAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, seed, target_count, mix_easy, mix_medium, mix_hard, genre,
			created_at, graded_at, correct, total
		FROM sessions WHERE id = ?
	`, id).Scan(
		&s.ID, &s.Seed, &s.TargetCount, &s.Mix.Easy, &s.Mix.Medium, &s.Mix.Hard, &genre,
		&s.CreatedAt, &gradedAt, &s.Correct, &s.Total,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s.Genre = fromNullString(genre)
	if gradedAt.Valid {
		s.GradedAt = &gradedAt.Int64
	}

	rows, err := q.QueryContext(ctx,
		`SELECT item_id FROM session_items WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	s.ItemIDs = []string{}
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.ItemIDs = append(s.ItemIDs, itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &s, nil
}

// MarkSessionGraded records the score of a session. Grading a session twice is a conflict.
func MarkSessionGraded(ctx context.Context, q Querier, id string, correct, total int, gradedAt int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE sessions
		SET graded_at = ?, correct = ?, total = ?
		WHERE id = ? AND graded_at IS NULL
	`, gradedAt, correct, total, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		if _, err := GetSession(ctx, q, id); err != nil {
			return err
		}
		return errors.NewConflict("session already graded: " + id)
	}
	return nil
}

// InsertAttempts stores graded answers.
func InsertAttempts(ctx context.Context, q Querier, attempts []Attempt) error {
	for _, a := range attempts {
		correct := 0
		if a.Correct {
			correct = 1
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO attempts (session_id, item_id, correct, created_at)
			VALUES (?, ?, ?, ?)
		`, a.SessionID, a.ItemID, correct, a.CreatedAt); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// RecentAccuracy returns correct and total counts over the last window attempts.
func RecentAccuracy(ctx context.Context, q Querier, window int) (correct, total int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(correct), 0), COUNT(*)
		FROM (SELECT correct FROM attempts ORDER BY id DESC LIMIT ?)
	`, window).Scan(&correct, &total)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	return correct, total, nil
}

// SessionCounts returns the number of sessions built and graded.
func SessionCounts(ctx context.Context, q Querier) (built, graded int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(graded_at) FROM sessions
	`).Scan(&built, &graded)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	return built, graded, nil
}
