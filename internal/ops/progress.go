package ops

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/selection"
)

// ProgressInput contains parameters for the Progress operation.
type ProgressInput struct {
	Today string // default: current date (YYYY-MM-DD)
}

// ProgressOutput summarizes a learner's standing.
type ProgressOutput struct {
	Today           string                       `json:"today"`
	Window          int                          `json:"window"`
	Attempts        int                          `json:"attempts"`
	Correct         int                          `json:"correct"`
	AccuracyPercent *float64                     `json:"accuracy_percent,omitempty"`
	RecommendedMix  selection.Mix                `json:"recommended_mix"`
	ReviewsDue      int                          `json:"reviews_due"`
	ReviewsTracked  int                          `json:"reviews_tracked"`
	Passages        int                          `json:"passages"`
	Genres          []db.GenreCount              `json:"genres"`
	Items           map[selection.Difficulty]int `json:"items"`
	SessionsBuilt   int                          `json:"sessions_built"`
	SessionsGraded  int                          `json:"sessions_graded"`
}

// Progress reports rolling accuracy, the recommended mix and library totals.
func Progress(ctx context.Context, database *sql.DB, cfg *config.Config, input ProgressInput) (*ProgressOutput, error) {
	today, err := resolveToday(input.Today)
	if err != nil {
		return nil, err
	}

	correct, attempts, err := db.RecentAccuracy(ctx, database, cfg.AccuracyWindow)
	if err != nil {
		return nil, err
	}
	due, tracked, err := db.NewReviewStore(database).CountDue(ctx, today)
	if err != nil {
		return nil, err
	}
	genres, err := db.PassageGenres(ctx, database)
	if err != nil {
		return nil, err
	}
	items, err := db.CountItems(ctx, database)
	if err != nil {
		return nil, err
	}
	built, graded, err := db.SessionCounts(ctx, database)
	if err != nil {
		return nil, err
	}

	if genres == nil {
		genres = []db.GenreCount{}
	}
	passages := 0
	for _, g := range genres {
		passages += g.Passages
	}

	out := &ProgressOutput{
		Today:          today.Format(time.DateOnly),
		Window:         cfg.AccuracyWindow,
		Attempts:       attempts,
		Correct:        correct,
		RecommendedMix: selection.DefaultMix,
		ReviewsDue:     due,
		ReviewsTracked: tracked,
		Passages:       passages,
		Genres:         genres,
		Items:          items,
		SessionsBuilt:  built,
		SessionsGraded: graded,
	}
	if acc := selection.Accuracy(correct, attempts); !math.IsNaN(acc) {
		out.AccuracyPercent = &acc
		out.RecommendedMix = selection.Recommend(acc)
	}
	return out, nil
}
