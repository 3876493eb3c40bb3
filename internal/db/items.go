package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/selection"
)

// Item is a stored practice item. Genre comes from its passage.
type Item struct {
	selection.Item
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// InsertItems stores items. A duplicate ID is a conflict; an unknown passage is not found.
func InsertItems(ctx context.Context, q Querier, items []Item) error {
	query := `
		INSERT INTO items (id, passage_id, difficulty, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, it := range items {
		_, err := q.ExecContext(ctx, query, it.ID, it.PassageID, string(it.Difficulty), toNullJSON(it.Payload), it.CreatedAt)
		if err != nil {
			return writeError(err, fmt.Sprintf("item already exists: %s", it.ID), "passage", it.PassageID)
		}
	}
	return nil
}

const itemSelect = `
	SELECT i.id, i.passage_id, i.difficulty, p.genre, i.payload_json, i.created_at
	FROM items i
	JOIN passages p ON p.id = i.passage_id
`

// GetItem retrieves an item by ID.
func GetItem(ctx context.Context, q Querier, id string) (*Item, error) {
	row := q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("item", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return it, nil
}

// ListItems returns every item, optionally filtered by genre, in insertion order.
func ListItems(ctx context.Context, q Querier, genre string) ([]Item, error) {
	rows, err := q.QueryContext(ctx, itemSelect+`
		WHERE (? = '' OR p.genre = ?)
		ORDER BY i.created_at, i.id
	`, genre, genre)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsForPassage returns the items written against passageID, in insertion order.
func ItemsForPassage(ctx context.Context, q Querier, passageID string) ([]Item, error) {
	rows, err := q.QueryContext(ctx, itemSelect+`
		WHERE i.passage_id = ?
		ORDER BY i.created_at, i.id
	`, passageID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsByIDs returns the items with the given IDs, in the order of ids.
// Missing IDs are reported as not found.
func ItemsByIDs(ctx context.Context, q Querier, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, itemSelect+` WHERE i.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	found, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, errors.NewNotFound("item", id)
		}
		out = append(out, it)
	}
	return out, nil
}

// CountItems returns item counts per difficulty.
func CountItems(ctx context.Context, q Querier) (map[selection.Difficulty]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT difficulty, COUNT(*) FROM items GROUP BY difficulty`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[selection.Difficulty]int)
	for rows.Next() {
		var (
			d string
			n int
		)
		if err := rows.Scan(&d, &n); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[selection.Difficulty(d)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		it         Item
		difficulty string
		payload    sql.NullString
	)
	if err := row.Scan(&it.ID, &it.PassageID, &difficulty, &it.Genre, &payload, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.Difficulty = selection.Difficulty(difficulty)
	if payload.Valid && payload.String != "" {
		it.Payload = json.RawMessage(payload.String)
	}
	return &it, nil
}
