package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/review"
)

// ReviewStore persists review records in SQLite. It implements review.Repository.
type ReviewStore struct {
	q Querier
}

// NewReviewStore returns a ReviewStore backed by q (a *sql.DB or *sql.Tx).
func NewReviewStore(q Querier) *ReviewStore {
	return &ReviewStore{q: q}
}

var _ review.Repository = (*ReviewStore)(nil)

const reviewColumns = `item_id, source_session_id, interval_days, ease_factor, repetition_count, next_review_date, last_review_date`

// Load returns every review record ordered by item ID.
func (s *ReviewStore) Load(ctx context.Context) ([]review.Record, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+reviewColumns+` FROM review_records ORDER BY item_id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// Save upserts records by item ID.
func (s *ReviewStore) Save(ctx context.Context, records ...review.Record) error {
	query := `
		INSERT INTO review_records (` + reviewColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			interval_days = excluded.interval_days,
			ease_factor = excluded.ease_factor,
			repetition_count = excluded.repetition_count,
			next_review_date = excluded.next_review_date,
			last_review_date = excluded.last_review_date
	`
	for _, r := range records {
		if _, err := s.q.ExecContext(ctx, query,
			r.ItemID, r.SourceSessionID, r.IntervalDays, r.EaseFactor, r.RepetitionCount,
			formatDay(r.NextReviewDate), formatDay(r.LastReviewDate),
		); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// Delete removes the record for itemID. Deleting a missing record is not an error.
func (s *ReviewStore) Delete(ctx context.Context, itemID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM review_records WHERE item_id = ?`, itemID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Get retrieves the record for itemID.
func (s *ReviewStore) Get(ctx context.Context, itemID string) (*review.Record, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_records WHERE item_id = ?`, itemID)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("review", itemID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// CountDue returns how many records are due on or before today, and the total tracked.
func (s *ReviewStore) CountDue(ctx context.Context, today time.Time) (due, total int, err error) {
	err = s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(next_review_date <= ?), 0), COUNT(*) FROM review_records
	`, formatDay(today)).Scan(&due, &total)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	return due, total, nil
}

func formatDay(t time.Time) string {
	return review.Day(t).Format(time.DateOnly)
}

func collectReviews(rows *sql.Rows) ([]review.Record, error) {
	var out []review.Record
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanReview(row rowScanner) (*review.Record, error) {
	var (
		r          review.Record
		next, last string
	)
	if err := row.Scan(&r.ItemID, &r.SourceSessionID, &r.IntervalDays, &r.EaseFactor, &r.RepetitionCount, &next, &last); err != nil {
		return nil, err
	}
	var err error
	if r.NextReviewDate, err = review.ParseDay(next); err != nil {
		return nil, err
	}
	if r.LastReviewDate, err = review.ParseDay(last); err != nil {
		return nil, err
	}
	return &r, nil
}
