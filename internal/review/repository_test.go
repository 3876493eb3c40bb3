package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if recs, err := repo.Load(ctx); err != nil || len(recs) != 0 {
		t.Fatalf("Load(empty) = %v, %v", recs, err)
	}

	a := Register("a", "s", day0)
	b := Register("b", "s", day0)
	if err := repo.Save(ctx, b, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	recs, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 2 || recs[0].ItemID != "a" || recs[1].ItemID != "b" {
		t.Errorf("Load = %v, want [a b]", recs)
	}

	// Save upserts
	a = Grade(a, 5, day0)
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	recs, _ = repo.Load(ctx)
	if recs[0].RepetitionCount != 1 {
		t.Errorf("upsert lost: %+v", recs[0])
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete(missing): %v", err)
	}
	recs, _ = repo.Load(ctx)
	if len(recs) != 1 || recs[0].ItemID != "b" {
		t.Errorf("after delete = %v", recs)
	}
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryRepository()

	if _, err := repo.Load(ctx); err == nil {
		t.Error("Load with canceled context should fail")
	}
	if err := repo.Save(ctx, Register("a", "s", day0)); err == nil {
		t.Error("Save with canceled context should fail")
	}
}

func TestMemoryRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Save(ctx, Register(fmt.Sprintf("item-%d", i), "s", day0))
			_, _ = repo.Load(ctx)
		}(i)
	}
	wg.Wait()

	recs, _ := repo.Load(ctx)
	if len(recs) != 20 {
		t.Errorf("len = %d, want 20", len(recs))
	}
}
