package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
	"github.com/hpungsan/drill/internal/selection"
)

// MixSource says where a session's difficulty mix came from.
type MixSource string

const (
	MixDefault  MixSource = "default"
	MixExplicit MixSource = "explicit"
	MixAdaptive MixSource = "adaptive"
)

// BuildSessionInput contains parameters for the BuildSession operation.
type BuildSessionInput struct {
	Size     int            // default: cfg.SessionSize, max 200
	Genre    string         // optional pool filter
	Seed     *int64         // default: derived from the clock
	Mix      *selection.Mix // explicit mix; excludes Accuracy and Adaptive
	Accuracy *float64       // recommend the mix for this accuracy percent
	Adaptive bool           // recommend the mix from recent attempts
	DryRun   bool           // select without persisting
}

// BuildSessionOutput contains the result of the BuildSession operation.
type BuildSessionOutput struct {
	SessionID              string           `json:"session_id,omitempty"`
	Seed                   int64            `json:"seed"`
	Policy                 selection.Policy `json:"policy"`
	MixSource              MixSource        `json:"mix_source"`
	Accuracy               *float64         `json:"accuracy,omitempty"`
	PoolSize               int              `json:"pool_size"`
	Items                  []selection.Item `json:"items"`
	Stats                  selection.Stats  `json:"stats"`
	UniquePassageTargetMet bool             `json:"unique_passage_target_met"`
	DryRun                 bool             `json:"dry_run,omitempty"`
}

// BuildSession selects a practice session from the stored item pool.
// The pool is shuffled with Seed before selection, so a seed reproduces a session.
func BuildSession(ctx context.Context, database *sql.DB, cfg *config.Config, input BuildSessionInput) (*BuildSessionOutput, error) {
	size := input.Size
	if size == 0 {
		size = cfg.SessionSize
	}
	if size <= 0 || size > MaxSessionSize {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("size must be between 1 and %d", MaxSessionSize))
	}
	if input.Mix != nil && (input.Accuracy != nil || input.Adaptive) {
		return nil, errors.NewInvalidRequest("mix cannot be combined with accuracy or adaptive")
	}

	mix, source, accuracy, err := resolveMix(ctx, database, cfg, input)
	if err != nil {
		return nil, err
	}

	policy, err := selection.NewPolicy(size, cfg.MaxItemsPerPassage, cfg.MinUniquePassagePercent, !cfg.DisableGenreDiversity, mix)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	genre := passage.Normalize(input.Genre)
	stored, err := db.ListItems(ctx, database, genre)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, errors.NewEmptyPool(genre)
	}

	seed := time.Now().UnixNano()
	if input.Seed != nil {
		seed = *input.Seed
	}
	pool := make([]selection.Item, len(stored))
	for i, it := range stored {
		pool[i] = it.Item
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	selected := selection.Select(pool, policy)
	stats := selection.ComputeStats(selected)
	met := stats.MeetsUniquePassageTarget(policy)

	if len(selected) < policy.TargetCount {
		slog.InfoContext(ctx, "session smaller than target",
			"target", policy.TargetCount, "selected", len(selected), "pool", len(pool))
	}
	if !met {
		slog.WarnContext(ctx, "unique passage target missed",
			"diversity_percent", stats.PassageDiversityPercent,
			"target_percent", policy.MinUniquePassagePercent,
			"unique_passages", stats.UniquePassageCount)
	}

	out := &BuildSessionOutput{
		Seed:                   seed,
		Policy:                 policy,
		MixSource:              source,
		Accuracy:               accuracy,
		PoolSize:               len(pool),
		Items:                  selected,
		Stats:                  stats,
		UniquePassageTargetMet: met,
		DryRun:                 input.DryRun,
	}
	if input.DryRun {
		return out, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s := &db.Session{
		ID:          id,
		Seed:        seed,
		TargetCount: policy.TargetCount,
		Mix:         policy.Mix,
		ItemIDs:     make([]string, len(selected)),
		CreatedAt:   time.Now().Unix(),
	}
	if genre != "" {
		s.Genre = &genre
	}
	for i, it := range selected {
		s.ItemIDs[i] = it.ID
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := db.InsertSession(ctx, tx, s); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	out.SessionID = id
	return out, nil
}

// resolveMix picks the difficulty mix: explicit, adaptive from a given or measured accuracy, or the default.
func resolveMix(ctx context.Context, database *sql.DB, cfg *config.Config, input BuildSessionInput) (selection.Mix, MixSource, *float64, error) {
	switch {
	case input.Mix != nil:
		return *input.Mix, MixExplicit, nil, nil
	case input.Accuracy != nil:
		acc := *input.Accuracy
		if acc < 0 || acc > 100 {
			return selection.Mix{}, "", nil, errors.NewInvalidRequest("accuracy must be between 0 and 100")
		}
		return selection.Recommend(acc), MixAdaptive, &acc, nil
	case input.Adaptive:
		correct, total, err := db.RecentAccuracy(ctx, database, cfg.AccuracyWindow)
		if err != nil {
			return selection.Mix{}, "", nil, err
		}
		if total == 0 {
			return selection.DefaultMix, MixDefault, nil, nil
		}
		acc := selection.Accuracy(correct, total)
		return selection.Recommend(acc), MixAdaptive, &acc, nil
	}
	return selection.DefaultMix, MixDefault, nil, nil
}
