package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingHeadSource struct {
	head  uint64
	err   error
	calls int
}

func (s *countingHeadSource) BlockNumber(ctx context.Context) (uint64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.head, nil
}

func TestHeadCacheServesMemoWithinTTL(t *testing.T) {
	src := &countingHeadSource{head: 1000}
	cache := NewHeadCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		head, err := cache.BlockNumber(ctx)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if head != 1000 {
			t.Fatalf("call %d: head = %d, want 1000", i, head)
		}
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}
}

func TestHeadCacheRefetchesAfterTTL(t *testing.T) {
	src := &countingHeadSource{head: 1000}
	cache := NewHeadCache(src, 20*time.Millisecond)
	ctx := context.Background()

	if _, err := cache.BlockNumber(ctx); err != nil {
		t.Fatal(err)
	}

	time.Sleep(40 * time.Millisecond)
	src.head = 1001

	head, err := cache.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != 1001 {
		t.Errorf("head = %d, want fresh 1001", head)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}

func TestHeadCacheInvalidateForcesRefetch(t *testing.T) {
	src := &countingHeadSource{head: 1000}
	cache := NewHeadCache(src, time.Minute)
	ctx := context.Background()

	if _, err := cache.BlockNumber(ctx); err != nil {
		t.Fatal(err)
	}

	cache.Invalidate()
	src.head = 995 // rollback rewound the chain

	head, err := cache.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != 995 {
		t.Errorf("head = %d, want 995 after invalidate", head)
	}
}

func TestHeadCacheNeverCachesErrors(t *testing.T) {
	src := &countingHeadSource{err: errors.New("connection refused")}
	cache := NewHeadCache(src, time.Minute)
	ctx := context.Background()

	if _, err := cache.BlockNumber(ctx); err == nil {
		t.Fatal("expected error from source")
	}

	src.err = nil
	src.head = 42
	head, err := cache.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != 42 {
		t.Errorf("head = %d, want 42 once the source recovers", head)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}
