package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/review"
)

// DueReviewsInput contains parameters for the DueReviews operation.
type DueReviewsInput struct {
	Today string // default: current date (YYYY-MM-DD)
	Limit int    // default: cfg.ReviewLimit, max: 500
}

// DueReviewsOutput contains the result of the DueReviews operation.
type DueReviewsOutput struct {
	Today string          `json:"today"`
	Items []review.Record `json:"items"`
	Due   int             `json:"due"`
	Limit int             `json:"limit"`
}

// DueReviews returns review records due on or before today, oldest first.
func DueReviews(ctx context.Context, database *sql.DB, cfg *config.Config, input DueReviewsInput) (*DueReviewsOutput, error) {
	today, err := resolveToday(input.Today)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(input.Limit, cfg.ReviewLimit, MaxReviewLimit)

	items, due, err := dueFrom(ctx, db.NewReviewStore(database), today, limit)
	if err != nil {
		return nil, err
	}
	return &DueReviewsOutput{
		Today: today.Format(time.DateOnly),
		Items: items,
		Due:   due,
		Limit: limit,
	}, nil
}

// dueFrom returns at most limit records of repo due on today, most overdue first,
// and how many are due in total.
func dueFrom(ctx context.Context, repo review.Repository, today time.Time, limit int) ([]review.Record, int, error) {
	records, err := repo.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	due := review.DueToday(records, today)
	review.SortByStaleness(due)

	items := due[:min(limit, len(due))]
	if items == nil {
		items = []review.Record{}
	}
	return items, len(due), nil
}

// GradeReviewInput contains parameters for the GradeReview operation.
type GradeReviewInput struct {
	ItemID string // required
	Grade  int    // 0-5
	Today  string // default: current date (YYYY-MM-DD)
}

// GradeReviewOutput contains the result of the GradeReview operation.
type GradeReviewOutput struct {
	Record   review.Record `json:"record"`
	Previous review.Record `json:"previous"`
	Passed   bool          `json:"passed"`
}

// GradeReview applies a recall grade to an item under review.
func GradeReview(ctx context.Context, database *sql.DB, input GradeReviewInput) (*GradeReviewOutput, error) {
	itemID := strings.TrimSpace(input.ItemID)
	if itemID == "" {
		return nil, errors.NewInvalidRequest("item_id is required")
	}
	if input.Grade < 0 || input.Grade > review.MaxGrade {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("grade must be between 0 and %d", review.MaxGrade))
	}
	today, err := resolveToday(input.Today)
	if err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	store := db.NewReviewStore(tx)
	prev, err := store.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	updated := review.Grade(*prev, input.Grade, today)
	if err := store.Save(ctx, updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &GradeReviewOutput{
		Record:   updated,
		Previous: *prev,
		Passed:   input.Grade >= review.PassGrade,
	}, nil
}

// RemoveReviewInput contains parameters for the RemoveReview operation.
type RemoveReviewInput struct {
	ItemID string // required
}

// RemoveReviewOutput contains the result of the RemoveReview operation.
type RemoveReviewOutput struct {
	ItemID  string `json:"item_id"`
	Removed bool   `json:"removed"`
}

// RemoveReview stops reviewing an item. The record is deleted immediately.
func RemoveReview(ctx context.Context, database *sql.DB, input RemoveReviewInput) (*RemoveReviewOutput, error) {
	itemID := strings.TrimSpace(input.ItemID)
	if itemID == "" {
		return nil, errors.NewInvalidRequest("item_id is required")
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := removeFrom(ctx, db.NewReviewStore(tx), itemID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &RemoveReviewOutput{ItemID: itemID, Removed: true}, nil
}

// removeFrom deletes itemID's record from repo, or reports it as not found.
func removeFrom(ctx context.Context, repo review.Repository, itemID string) error {
	records, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	if _, removed := review.Remove(records, itemID); !removed {
		return errors.NewNotFound("review", itemID)
	}
	return repo.Delete(ctx, itemID)
}
