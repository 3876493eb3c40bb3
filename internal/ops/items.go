package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/selection"
)

// ItemSpec describes one externally generated practice item.
type ItemSpec struct {
	ID         string          `json:"id,omitempty"` // default: generated ULID
	PassageID  string          `json:"passage_id"`
	Difficulty string          `json:"difficulty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// AddItemsInput contains parameters for the AddItems operation.
type AddItemsInput struct {
	Items []ItemSpec // required, max 500
}

// AddItemsOutput contains the result of the AddItems operation.
type AddItemsOutput struct {
	IDs   []string `json:"ids"`
	Added int      `json:"added"`
}

// AddItems registers practice items against stored passages. The batch is all-or-nothing.
func AddItems(ctx context.Context, database *sql.DB, input AddItemsInput) (*AddItemsOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items is required")
	}
	if len(input.Items) > MaxAddItems {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d items per call", MaxAddItems))
	}

	now := time.Now().Unix()
	items := make([]db.Item, 0, len(input.Items))
	ids := make([]string, 0, len(input.Items))
	seen := make(map[string]bool, len(input.Items))

	for i, spec := range input.Items {
		passageID := strings.TrimSpace(spec.PassageID)
		if passageID == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: passage_id is required", i))
		}
		d, ok := selection.ParseDifficulty(spec.Difficulty)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: difficulty must be one of: easy, medium, hard", i))
		}
		if len(spec.Payload) > 0 && !json.Valid(spec.Payload) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: payload must be valid JSON", i))
		}

		id := strings.TrimSpace(spec.ID)
		if id == "" {
			generated, err := generateULID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			id = generated
		}
		if seen[id] {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: duplicate id %s", i, id))
		}
		seen[id] = true

		items = append(items, db.Item{
			Item:      selection.Item{ID: id, PassageID: passageID, Difficulty: d},
			Payload:   spec.Payload,
			CreatedAt: now,
		})
		ids = append(ids, id)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := db.InsertItems(ctx, tx, items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &AddItemsOutput{IDs: ids, Added: len(ids)}, nil
}
