package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/drill/internal/selection"
)

func TestProgress_Empty(t *testing.T) {
	database, cfg := setupTest(t)

	out, err := Progress(context.Background(), database, cfg, ProgressInput{Today: "2026-05-01"})
	require.NoError(t, err)
	require.Nil(t, out.AccuracyPercent)
	require.Equal(t, selection.DefaultMix, out.RecommendedMix)
	require.Equal(t, cfg.AccuracyWindow, out.Window)
	require.Zero(t, out.Passages)
	require.NotNil(t, out.Genres)
	require.Zero(t, out.ReviewsDue)
}

func TestProgress_AfterSession(t *testing.T) {
	database, cfg := setupTest(t)
	seedPool(t, database, []string{"history", "science"}, 5)
	ctx := context.Background()

	built, err := BuildSession(ctx, database, cfg, BuildSessionInput{Size: 5, Seed: int64Ptr(8)})
	require.NoError(t, err)
	results := make([]ItemResult, len(built.Items))
	for i, it := range built.Items {
		results[i] = ItemResult{ItemID: it.ID, Correct: i%2 == 0}
	}
	_, err = GradeSession(ctx, database, GradeSessionInput{SessionID: built.SessionID, Results: results, Today: "2026-05-01"})
	require.NoError(t, err)

	out, err := Progress(ctx, database, cfg, ProgressInput{Today: "2026-05-01"})
	require.NoError(t, err)
	require.Equal(t, 5, out.Attempts)
	require.Equal(t, 3, out.Correct)
	require.NotNil(t, out.AccuracyPercent)
	require.InDelta(t, 60.0, *out.AccuracyPercent, 0.001)
	require.Equal(t, selection.Mix{Easy: 30, Medium: 50, Hard: 20}, out.RecommendedMix)
	require.Equal(t, 2, out.ReviewsDue)
	require.Equal(t, 2, out.ReviewsTracked)
	require.Equal(t, 10, out.Passages)
	require.Len(t, out.Genres, 2)
	require.Equal(t, 10, out.Items[selection.Easy])
	require.Equal(t, 1, out.SessionsBuilt)
	require.Equal(t, 1, out.SessionsGraded)
}
