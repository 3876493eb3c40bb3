package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/drill/internal/errors"
)

// TestFullWorkflow exercises the learner loop:
// ingest → add items → build → grade → due → review → forget → progress
func TestFullWorkflow(t *testing.T) {
	database, cfg := setupTest(t)
	ctx := context.Background()

	// 1. Ingest
	ingested, err := Ingest(ctx, database, cfg, IngestInput{
		Text:       "# The Mill\n\n" + goodPassage,
		SourceType: "markdown",
		Title:      "River Towns",
		Genre:      "history",
	})
	require.NoError(t, err)
	require.Len(t, ingested.PassageIDs, 1)
	pid := ingested.PassageIDs[0]

	// 2. Items written against the passage
	added, err := AddItems(ctx, database, AddItemsInput{Items: []ItemSpec{
		{ID: "e1", PassageID: pid, Difficulty: "easy"},
		{ID: "m1", PassageID: pid, Difficulty: "medium"},
		{ID: "h1", PassageID: pid, Difficulty: "hard"},
	}})
	require.NoError(t, err)
	require.Equal(t, 3, added.Added)

	// 3. Build: one passage caps the session at two items
	built, err := BuildSession(ctx, database, cfg, BuildSessionInput{Size: 3, Seed: int64Ptr(1)})
	require.NoError(t, err)
	require.Len(t, built.Items, 2)
	require.Equal(t, 1, built.Stats.UniquePassageCount)

	// 4. Grade: miss everything
	results := make([]ItemResult, len(built.Items))
	for i, it := range built.Items {
		results[i] = ItemResult{ItemID: it.ID}
	}
	graded, err := GradeSession(ctx, database, GradeSessionInput{SessionID: built.SessionID, Results: results, Today: "2026-05-01"})
	require.NoError(t, err)
	require.Len(t, graded.Registered, 2)
	require.Equal(t, 0.0, graded.AccuracyPercent)

	// 5. Due today
	due, err := DueReviews(ctx, database, cfg, DueReviewsInput{Today: "2026-05-01"})
	require.NoError(t, err)
	require.Len(t, due.Items, 2)

	// 6. Review one, forget the other
	reviewed, err := GradeReview(ctx, database, GradeReviewInput{ItemID: due.Items[0].ItemID, Grade: 5, Today: "2026-05-01"})
	require.NoError(t, err)
	require.Equal(t, "2026-05-02", reviewed.Record.NextReviewDate.Format("2006-01-02"))

	_, err = RemoveReview(ctx, database, RemoveReviewInput{ItemID: due.Items[1].ItemID})
	require.NoError(t, err)

	due, err = DueReviews(ctx, database, cfg, DueReviewsInput{Today: "2026-05-01"})
	require.NoError(t, err)
	require.Empty(t, due.Items)

	// 7. Progress
	progress, err := Progress(ctx, database, cfg, ProgressInput{Today: "2026-05-02"})
	require.NoError(t, err)
	require.Equal(t, 1, progress.ReviewsDue)
	require.Equal(t, 1, progress.ReviewsTracked)
	require.Equal(t, 1, progress.Passages)

	// 8. Regrading is rejected
	_, err = GradeSession(ctx, database, GradeSessionInput{SessionID: built.SessionID, Results: results})
	require.True(t, errors.Is(err, errors.ErrConflict))
}
