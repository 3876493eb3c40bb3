package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/passage"
)

// ListPassagesInput contains parameters for the ListPassages operation.
type ListPassagesInput struct {
	Genre  string // optional filter
	Limit  int    // default: 20, max: 100
	Offset int
}

// ListPassagesOutput contains the result of the ListPassages operation.
type ListPassagesOutput struct {
	Items      []passage.Passage `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// ListPassages returns stored passages, newest first.
func ListPassages(ctx context.Context, database *sql.DB, input ListPassagesInput) (*ListPassagesOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	items, total, err := db.ListPassages(ctx, database, passage.Normalize(input.Genre), limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []passage.Passage{}
	}

	return &ListPassagesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// FetchPassageInput contains parameters for the FetchPassage operation.
type FetchPassageInput struct {
	ID string // required
}

// FetchPassageOutput is a passage plus the practice items written against it.
type FetchPassageOutput struct {
	passage.Passage
	Items []db.Item `json:"items"`
}

// FetchPassage retrieves one passage by ID.
func FetchPassage(ctx context.Context, database *sql.DB, input FetchPassageInput) (*FetchPassageOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	p, err := db.GetPassage(ctx, database, id)
	if err != nil {
		return nil, err
	}
	items, err := db.ItemsForPassage(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.Item{}
	}
	return &FetchPassageOutput{Passage: *p, Items: items}, nil
}
