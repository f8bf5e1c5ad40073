package reorg

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// mockBlockRepo stores blocks by number.
type mockBlockRepo struct {
	blocks map[uint64]*domain.Block
}

func (m *mockBlockRepo) Save(ctx context.Context, b *domain.Block) error { return nil }
func (m *mockBlockRepo) SaveBatch(ctx context.Context, bs []*domain.Block) error {
	return nil
}
func (m *mockBlockRepo) GetByNumber(ctx context.Context, n uint64) (*domain.Block, error) {
	b, ok := m.blocks[n]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}
func (m *mockBlockRepo) GetByHash(ctx context.Context, h string) (*domain.Block, error) {
	return nil, storage.ErrNotFound
}
func (m *mockBlockRepo) GetLatest(ctx context.Context) (*domain.Block, error) {
	return nil, storage.ErrNotFound
}
func (m *mockBlockRepo) CountSince(ctx context.Context, n uint64) (uint64, error) { return 0, nil }

// mockHeaders serves minimal live headers. A header's hash is fully
// determined by its number, so tests mark a stored block as canonical
// by giving it liveHash(n) and as stale by giving it anything else.
type mockHeaders struct {
	known map[uint64]bool
}

func (m *mockHeaders) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	if m.known != nil && !m.known[number] {
		return nil, errors.New("header not found")
	}
	return &types.Header{Number: new(big.Int).SetUint64(number)}, nil
}

// liveHash computes the hash the mock header for a number will produce.
func liveHash(number uint64) string {
	header := &types.Header{Number: new(big.Int).SetUint64(number)}
	return header.Hash().Hex()
}

func storedBlock(number uint64, hash string) *domain.Block {
	return &domain.Block{Number: number, Hash: hash, ParentHash: ""}
}

func TestCheckParentHash_Match(t *testing.T) {
	repo := &mockBlockRepo{blocks: map[uint64]*domain.Block{
		99: storedBlock(99, "0xaa"),
	}}
	detector := NewDetector(Config{}, repo, &mockHeaders{})

	ok, err := detector.CheckParentHash(context.Background(), 100, "0xaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("matching parent hash reported as mismatch")
	}
}

func TestCheckParentHash_Mismatch(t *testing.T) {
	repo := &mockBlockRepo{blocks: map[uint64]*domain.Block{
		99: storedBlock(99, "0xaa"),
	}}
	detector := NewDetector(Config{}, repo, &mockHeaders{})

	ok, err := detector.CheckParentHash(context.Background(), 100, "0xbb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("mismatching parent hash reported as match")
	}
}

func TestCheckParentHash_NoStoredBlock(t *testing.T) {
	detector := NewDetector(Config{}, &mockBlockRepo{blocks: map[uint64]*domain.Block{}}, &mockHeaders{})

	ok, err := detector.CheckParentHash(context.Background(), 100, "0xany")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("missing predecessor treated as reorg")
	}
}

func TestFindDivergence_WalksToAgreement(t *testing.T) {
	// Stored chain diverges at 98: blocks 98 and 99 have stale hashes,
	// block 97 matches the live chain.
	repo := &mockBlockRepo{blocks: map[uint64]*domain.Block{
		97: storedBlock(97, liveHash(97)),
		98: storedBlock(98, "0xstale98"),
		99: storedBlock(99, "0xstale99"),
	}}
	detector := NewDetector(Config{MaxDepth: 10}, repo, &mockHeaders{})

	info, err := detector.FindDivergence(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Detected {
		t.Fatal("reorg not detected")
	}
	if info.Divergence != 98 {
		t.Errorf("divergence = %d, want 98", info.Divergence)
	}
	if info.SafeBlock != 97 {
		t.Errorf("safe block = %d, want 97", info.SafeBlock)
	}
	if info.Depth != 2 {
		t.Errorf("depth = %d, want 2", info.Depth)
	}
}

func TestFindDivergence_NoReorgAtTop(t *testing.T) {
	repo := &mockBlockRepo{blocks: map[uint64]*domain.Block{
		99: storedBlock(99, liveHash(99)),
	}}
	detector := NewDetector(Config{MaxDepth: 10}, repo, &mockHeaders{})

	info, err := detector.FindDivergence(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Detected {
		t.Error("false positive: top block matches but reorg detected")
	}
}

func TestFindDivergence_DepthExceeded(t *testing.T) {
	blocks := make(map[uint64]*domain.Block)
	for n := uint64(90); n <= 99; n++ {
		blocks[n] = storedBlock(n, "0xstale")
	}
	detector := NewDetector(Config{MaxDepth: 5}, &mockBlockRepo{blocks: blocks}, &mockHeaders{})

	_, err := detector.FindDivergence(context.Background(), 99)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestFindDivergence_BelowHistory(t *testing.T) {
	// Only blocks 98..99 stored, both stale; safe point falls below
	// indexed history.
	repo := &mockBlockRepo{blocks: map[uint64]*domain.Block{
		98: storedBlock(98, "0xstale98"),
		99: storedBlock(99, "0xstale99"),
	}}
	detector := NewDetector(Config{MaxDepth: 10}, repo, &mockHeaders{})

	info, err := detector.FindDivergence(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Detected {
		t.Fatal("reorg not detected")
	}
	if info.Divergence != 98 {
		t.Errorf("divergence = %d, want 98", info.Divergence)
	}
}

// mockUnitOfWork records rollback operations.
type mockUnitOfWork struct {
	deletedFrom *uint64
	cursorSet   *uint64
	failOn      string
}

func (m *mockUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx storage.RollbackTx) error) error {
	return fn(ctx, m)
}

func (m *mockUnitOfWork) DeleteFromHeight(ctx context.Context, height uint64) error {
	if m.failOn == "delete" {
		return errors.New("delete failed")
	}
	m.deletedFrom = &height
	return nil
}

func (m *mockUnitOfWork) SetCursor(ctx context.Context, blockNumber uint64) error {
	if m.failOn == "cursor" {
		return errors.New("cursor failed")
	}
	m.cursorSet = &blockNumber
	return nil
}

func TestRollback_DeletesAndRewindsCursor(t *testing.T) {
	uow := &mockUnitOfWork{}
	handler := NewHandler(uow)

	var event *RollbackEvent
	handler.SetRollbackCallback(func(e RollbackEvent) { event = &e })

	result, err := handler.Rollback(context.Background(), &ReorgInfo{
		Detected:   true,
		Depth:      3,
		Divergence: 97,
		SafeBlock:  96,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if uow.deletedFrom == nil || *uow.deletedFrom != 97 {
		t.Errorf("deleted from %v, want 97", uow.deletedFrom)
	}
	if uow.cursorSet == nil || *uow.cursorSet != 96 {
		t.Errorf("cursor set to %v, want 96", uow.cursorSet)
	}
	if result.SafeBlock != 96 {
		t.Errorf("result safe block = %d, want 96", result.SafeBlock)
	}
	if event == nil || event.Divergence != 97 {
		t.Errorf("rollback event not emitted correctly: %+v", event)
	}
}

func TestRollback_FailurePropagates(t *testing.T) {
	handler := NewHandler(&mockUnitOfWork{failOn: "delete"})

	_, err := handler.Rollback(context.Background(), &ReorgInfo{Detected: true, Divergence: 97})
	if err == nil {
		t.Fatal("expected error from failing delete")
	}
}

func TestRollback_RejectsUndetected(t *testing.T) {
	handler := NewHandler(&mockUnitOfWork{})

	if _, err := handler.Rollback(context.Background(), &ReorgInfo{Detected: false}); err == nil {
		t.Error("rollback accepted without a detected reorg")
	}
	if _, err := handler.Rollback(context.Background(), nil); err == nil {
		t.Error("rollback accepted nil info")
	}
}
