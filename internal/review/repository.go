package review

import (
	"context"
	"sort"
	"sync"
)

// Repository loads and saves review records. The scheduler itself never persists.
type Repository interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records ...Record) error
	Delete(ctx context.Context, itemID string) error
}

// MemoryRepository is an in-process Repository, safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

// Load returns a copy of every record, ordered by item ID.
func (m *MemoryRepository) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// Save upserts records by item ID.
func (m *MemoryRepository) Save(ctx context.Context, records ...Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		m.records[r.ItemID] = r
	}
	return nil
}

// Delete removes the record for itemID. Deleting a missing record is a no-op.
func (m *MemoryRepository) Delete(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, itemID)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
