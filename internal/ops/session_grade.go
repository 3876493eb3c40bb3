package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/review"
	"github.com/hpungsan/drill/internal/selection"
)

// ItemResult is the outcome of one answered item.
type ItemResult struct {
	ItemID  string `json:"item_id"`
	Correct bool   `json:"correct"`
}

// GradeSessionInput contains parameters for the GradeSession operation.
type GradeSessionInput struct {
	SessionID string       // required
	Results   []ItemResult // required; every item must belong to the session
	Today     string       // default: current date (YYYY-MM-DD)
}

// GradeSessionOutput contains the result of the GradeSession operation.
type GradeSessionOutput struct {
	SessionID       string        `json:"session_id"`
	Correct         int           `json:"correct"`
	Total           int           `json:"total"`
	AccuracyPercent float64       `json:"accuracy_percent"`
	Registered      []string      `json:"registered"`
	Failed          []string      `json:"failed"`
	Recommended     selection.Mix `json:"recommended_mix"`
}

// GradeSession records answers for a session. Every incorrect item enters review:
// a new item is registered due today, an item already under review is failed.
// A session can be graded once.
func GradeSession(ctx context.Context, database *sql.DB, input GradeSessionInput) (*GradeSessionOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, errors.NewInvalidRequest("session_id is required")
	}
	if len(input.Results) == 0 {
		return nil, errors.NewInvalidRequest("results is required")
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

	s, err := db.GetSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.GradedAt != nil {
		return nil, errors.NewConflict("session already graded: " + sessionID)
	}

	inSession := make(map[string]bool, len(s.ItemIDs))
	for _, id := range s.ItemIDs {
		inSession[id] = true
	}

	now := time.Now().Unix()
	seen := make(map[string]bool, len(input.Results))
	attempts := make([]db.Attempt, 0, len(input.Results))
	correct := 0
	for _, r := range input.Results {
		if !inSession[r.ItemID] {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("item %s is not part of session %s", r.ItemID, sessionID))
		}
		if seen[r.ItemID] {
			return nil, errors.NewInvalidRequest("duplicate result for item " + r.ItemID)
		}
		seen[r.ItemID] = true
		if r.Correct {
			correct++
		}
		attempts = append(attempts, db.Attempt{SessionID: sessionID, ItemID: r.ItemID, Correct: r.Correct, CreatedAt: now})
	}

	if err := db.InsertAttempts(ctx, tx, attempts); err != nil {
		return nil, err
	}

	store := db.NewReviewStore(tx)
	out := &GradeSessionOutput{
		SessionID:  sessionID,
		Correct:    correct,
		Total:      len(attempts),
		Registered: []string{},
		Failed:     []string{},
	}
	for _, r := range input.Results {
		if r.Correct {
			continue
		}
		var existing []review.Record
		rec, err := store.Get(ctx, r.ItemID)
		switch {
		case err == nil:
			existing = append(existing, *rec)
			out.Failed = append(out.Failed, r.ItemID)
		case errors.Is(err, errors.ErrNotFound):
			out.Registered = append(out.Registered, r.ItemID)
		default:
			return nil, err
		}
		_, updated := review.RecordFailure(existing, r.ItemID, sessionID, today)
		if err := store.Save(ctx, updated); err != nil {
			return nil, err
		}
	}

	if err := db.MarkSessionGraded(ctx, tx, sessionID, correct, len(attempts), now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	out.AccuracyPercent = selection.Accuracy(correct, len(attempts))
	out.Recommended = selection.Recommend(out.AccuracyPercent)

	slog.InfoContext(ctx, "session graded",
		"session_id", sessionID,
		"correct", correct,
		"total", len(attempts),
		"registered", len(out.Registered),
		"failed", len(out.Failed),
	)
	return out, nil
}
