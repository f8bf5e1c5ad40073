package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/memory"
)

func TestPruneRemovesOnlyStaleResolvedRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	repo := memory.NewFailedBlockRepo(store)

	add := func(number uint64) *domain.FailedBlock {
		fb := &domain.FailedBlock{Number: number, Reason: "boom"}
		if err := repo.Add(ctx, fb); err != nil {
			t.Fatalf("add block %d: %v", number, err)
		}
		return fb
	}

	pending := add(1)
	recovered := add(2)
	if err := repo.MarkRecovered(ctx, recovered.ID); err != nil {
		t.Fatalf("mark recovered: %v", err)
	}

	p := NewPruner(time.Hour, repo, nil)

	// Nothing is old enough yet.
	p.prune(ctx)
	if count, _ := repo.Count(ctx); count != 1 {
		t.Fatalf("pending count = %d, want 1", count)
	}

	// A negative retention makes every resolved row stale.
	stale := NewPruner(-time.Minute, repo, nil)
	stale.prune(ctx)

	if count, _ := repo.Count(ctx); count != 1 {
		t.Errorf("pending count after prune = %d, want 1 (pending row %d kept)", count, pending.Number)
	}
	if rows, _ := repo.GetPending(ctx, 10); len(rows) != 1 || rows[0].Number != 1 {
		t.Errorf("pending rows = %v, want only block 1", rows)
	}
}

func TestStartIsNoOpWithoutRetention(t *testing.T) {
	store := memory.NewMemoryStorage()
	p := NewPruner(0, memory.NewFailedBlockRepo(store), nil)

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return with retention disabled")
	}
}
