package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// MemoryStorage backs all repositories with maps. Used in tests and
// for running without a database.
type MemoryStorage struct {
	blocks    map[uint64]*domain.Block
	txs       map[string]*domain.Transaction
	logs      map[string][]*domain.TransactionLog
	tokens    map[string]*domain.Token
	transfers map[string]*domain.TokenTransfer
	holders   map[string]*domain.TokenHolder
	nfts      map[string]*domain.NftToken
	internal  map[string][]*domain.InternalTransaction
	addresses map[string]*domain.Address
	state     *domain.IndexerState
	failed    map[string]*domain.FailedBlock
	netStats  *domain.NetworkStats
	daily     map[string]*domain.DailyStats
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		blocks:    make(map[uint64]*domain.Block),
		txs:       make(map[string]*domain.Transaction),
		logs:      make(map[string][]*domain.TransactionLog),
		tokens:    make(map[string]*domain.Token),
		transfers: make(map[string]*domain.TokenTransfer),
		holders:   make(map[string]*domain.TokenHolder),
		nfts:      make(map[string]*domain.NftToken),
		internal:  make(map[string][]*domain.InternalTransaction),
		addresses: make(map[string]*domain.Address),
		failed:    make(map[string]*domain.FailedBlock),
		daily:     make(map[string]*domain.DailyStats),
	}
}

func holderKey(tokenAddress, holder string, tokenID *string) string {
	id := ""
	if tokenID != nil {
		id = *tokenID
	}
	return tokenAddress + "|" + holder + "|" + id
}

func transferKey(txHash string, logIndex, batchIndex uint) string {
	return fmt.Sprintf("%s|%d|%d", txHash, logIndex, batchIndex)
}

// -----------------------------------------------------------------------------
// Block Repository
// -----------------------------------------------------------------------------

type BlockRepo struct {
	store *MemoryStorage
}

func NewBlockRepo(store *MemoryStorage) *BlockRepo {
	return &BlockRepo{store: store}
}

func (r *BlockRepo) Save(ctx context.Context, block *domain.Block) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.blocks[block.Number] = block
	return nil
}

func (r *BlockRepo) SaveBatch(ctx context.Context, blocks []*domain.Block) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range blocks {
		r.store.blocks[b.Number] = b
	}
	return nil
}

func (r *BlockRepo) GetByNumber(ctx context.Context, number uint64) (*domain.Block, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.blocks[number]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func (r *BlockRepo) GetByHash(ctx context.Context, hash string) (*domain.Block, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, b := range r.store.blocks {
		if b.Hash == hash {
			return b, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *BlockRepo) GetLatest(ctx context.Context) (*domain.Block, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var max *domain.Block
	for _, b := range r.store.blocks {
		if max == nil || b.Number > max.Number {
			max = b
		}
	}
	if max == nil {
		return nil, storage.ErrNotFound
	}
	return max, nil
}

func (r *BlockRepo) CountSince(ctx context.Context, number uint64) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var count uint64
	for _, b := range r.store.blocks {
		if b.Number >= number {
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) SaveBatch(ctx context.Context, txs []*domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range txs {
		r.store.txs[t.Hash] = t
	}
	return nil
}

func (r *TxRepo) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.txs[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (r *TxRepo) GetByBlock(ctx context.Context, blockNumber uint64) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var txs []*domain.Transaction
	for _, t := range r.store.txs {
		if t.BlockNumber == blockNumber {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Index < txs[j].Index })
	return txs, nil
}

func (r *TxRepo) Count(ctx context.Context) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return uint64(len(r.store.txs)), nil
}

// -----------------------------------------------------------------------------
// Log Repository
// -----------------------------------------------------------------------------

type LogRepo struct {
	store *MemoryStorage
}

func NewLogRepo(store *MemoryStorage) *LogRepo {
	return &LogRepo{store: store}
}

func (r *LogRepo) SaveBatch(ctx context.Context, logs []*domain.TransactionLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range logs {
		r.store.logs[l.TxHash] = append(r.store.logs[l.TxHash], l)
	}
	return nil
}

func (r *LogRepo) GetByTx(ctx context.Context, txHash string) ([]*domain.TransactionLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	logs := append([]*domain.TransactionLog(nil), r.store.logs[txHash]...)
	sort.Slice(logs, func(i, j int) bool { return logs[i].LogIndex < logs[j].LogIndex })
	return logs, nil
}

// -----------------------------------------------------------------------------
// Token Repository
// -----------------------------------------------------------------------------

type TokenRepo struct {
	store *MemoryStorage
}

func NewTokenRepo(store *MemoryStorage) *TokenRepo {
	return &TokenRepo{store: store}
}

func (r *TokenRepo) Save(ctx context.Context, token *domain.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.tokens[token.Address]; ok {
		existing.Type = token.Type
		return nil
	}
	cp := *token
	r.store.tokens[token.Address] = &cp
	return nil
}

func (r *TokenRepo) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.tokens[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (r *TokenRepo) ListWithoutMetadata(ctx context.Context, limit int) ([]*domain.Token, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var tokens []*domain.Token
	for _, t := range r.store.tokens {
		if t.Name == nil && t.Symbol == nil {
			tokens = append(tokens, t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].FirstSeenAt < tokens[j].FirstSeenAt })
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens, nil
}

func (r *TokenRepo) UpdateMetadata(ctx context.Context, token *domain.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.tokens[token.Address]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = token.Name
	existing.Symbol = token.Symbol
	existing.Decimals = token.Decimals
	existing.TotalSupply = token.TotalSupply
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *TokenRepo) SetTransferCount(ctx context.Context, address string, count uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t, ok := r.store.tokens[address]; ok {
		t.TransferCount = count
	}
	return nil
}

func (r *TokenRepo) SetHolderCount(ctx context.Context, address string, count uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t, ok := r.store.tokens[address]; ok {
		t.HolderCount = count
	}
	return nil
}

func (r *TokenRepo) Count(ctx context.Context) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return uint64(len(r.store.tokens)), nil
}

// -----------------------------------------------------------------------------
// Token Transfer Repository
// -----------------------------------------------------------------------------

type TransferRepo struct {
	store *MemoryStorage
}

func NewTransferRepo(store *MemoryStorage) *TransferRepo {
	return &TransferRepo{store: store}
}

func (r *TransferRepo) SaveBatch(ctx context.Context, transfers []*domain.TokenTransfer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range transfers {
		r.store.transfers[transferKey(t.TxHash, t.LogIndex, t.BatchIndex)] = t
	}
	return nil
}

func (r *TransferRepo) GetByToken(ctx context.Context, tokenAddress string, limit int) ([]*domain.TokenTransfer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var transfers []*domain.TokenTransfer
	for _, t := range r.store.transfers {
		if t.TokenAddress == tokenAddress {
			transfers = append(transfers, t)
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		if transfers[i].BlockNumber != transfers[j].BlockNumber {
			return transfers[i].BlockNumber > transfers[j].BlockNumber
		}
		return transfers[i].LogIndex > transfers[j].LogIndex
	})
	if len(transfers) > limit {
		transfers = transfers[:limit]
	}
	return transfers, nil
}

func (r *TransferRepo) CountByToken(ctx context.Context, tokenAddress string) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var count uint64
	for _, t := range r.store.transfers {
		if t.TokenAddress == tokenAddress {
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Token Holder Repository
// -----------------------------------------------------------------------------

type HolderRepo struct {
	store *MemoryStorage
}

func NewHolderRepo(store *MemoryStorage) *HolderRepo {
	return &HolderRepo{store: store}
}

func (r *HolderRepo) Upsert(ctx context.Context, holder *domain.TokenHolder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *holder
	cp.UpdatedAt = time.Now()
	r.store.holders[holderKey(holder.TokenAddress, holder.Holder, holder.TokenID)] = &cp
	return nil
}

func (r *HolderRepo) Delete(ctx context.Context, tokenAddress, holder string, tokenID *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.holders, holderKey(tokenAddress, holder, tokenID))
	return nil
}

func (r *HolderRepo) GetBalances(ctx context.Context, tokenAddress string) ([]*domain.TokenHolder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var holders []*domain.TokenHolder
	for _, h := range r.store.holders {
		if h.TokenAddress == tokenAddress {
			holders = append(holders, h)
		}
	}
	sort.Slice(holders, func(i, j int) bool {
		if len(holders[i].Balance) != len(holders[j].Balance) {
			return len(holders[i].Balance) > len(holders[j].Balance)
		}
		return holders[i].Balance > holders[j].Balance
	})
	return holders, nil
}

func (r *HolderRepo) GetByHolder(ctx context.Context, holder string) ([]*domain.TokenHolder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var holders []*domain.TokenHolder
	for _, h := range r.store.holders {
		if h.Holder == holder {
			holders = append(holders, h)
		}
	}
	sort.Slice(holders, func(i, j int) bool {
		return holders[i].TokenAddress < holders[j].TokenAddress
	})
	return holders, nil
}

func (r *HolderRepo) CountHolders(ctx context.Context, tokenAddress string) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, h := range r.store.holders {
		if h.TokenAddress == tokenAddress {
			seen[h.Holder] = struct{}{}
		}
	}
	return uint64(len(seen)), nil
}

// -----------------------------------------------------------------------------
// NFT Repository
// -----------------------------------------------------------------------------

type NftRepo struct {
	store *MemoryStorage
}

func NewNftRepo(store *MemoryStorage) *NftRepo {
	return &NftRepo{store: store}
}

func nftKey(contractAddress, tokenID string) string {
	return contractAddress + "|" + tokenID
}

func (r *NftRepo) Upsert(ctx context.Context, nft *domain.NftToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *nft
	cp.UpdatedAt = time.Now()
	key := nftKey(nft.ContractAddress, nft.TokenID)
	// Ownership on an existing row is updated only through SetOwner, so
	// a late metadata write cannot clobber it.
	if prev, ok := r.store.nfts[key]; ok {
		cp.Owner = prev.Owner
	}
	r.store.nfts[key] = &cp
	return nil
}

func (r *NftRepo) Get(ctx context.Context, contractAddress, tokenID string) (*domain.NftToken, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n, ok := r.store.nfts[nftKey(contractAddress, tokenID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return n, nil
}

func (r *NftRepo) SetOwner(ctx context.Context, contractAddress, tokenID, owner string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := nftKey(contractAddress, tokenID)
	if n, ok := r.store.nfts[key]; ok {
		n.Owner = owner
		n.UpdatedAt = time.Now()
		return nil
	}
	r.store.nfts[key] = &domain.NftToken{
		ContractAddress: contractAddress,
		TokenID:         tokenID,
		Owner:           owner,
		UpdatedAt:       time.Now(),
	}
	return nil
}

// -----------------------------------------------------------------------------
// Internal Transaction Repository
// -----------------------------------------------------------------------------

type InternalTxRepo struct {
	store *MemoryStorage
}

func NewInternalTxRepo(store *MemoryStorage) *InternalTxRepo {
	return &InternalTxRepo{store: store}
}

func (r *InternalTxRepo) SaveBatch(ctx context.Context, itxs []*domain.InternalTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, it := range itxs {
		r.store.internal[it.TxHash] = append(r.store.internal[it.TxHash], it)
	}
	return nil
}

func (r *InternalTxRepo) GetByTx(ctx context.Context, txHash string) ([]*domain.InternalTransaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	itxs := append([]*domain.InternalTransaction(nil), r.store.internal[txHash]...)
	sort.Slice(itxs, func(i, j int) bool { return itxs[i].TraceAddress < itxs[j].TraceAddress })
	return itxs, nil
}

// -----------------------------------------------------------------------------
// Address Repository
// -----------------------------------------------------------------------------

type AddressRepo struct {
	store *MemoryStorage
}

func NewAddressRepo(store *MemoryStorage) *AddressRepo {
	return &AddressRepo{store: store}
}

// Upsert writes an address row. The transaction count is derived from
// the stored transactions, so writing the same block twice cannot
// drift it.
func (r *AddressRepo) Upsert(ctx context.Context, addr *domain.Address) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var txCount uint64
	for _, tx := range r.store.txs {
		if tx.From == addr.Address || tx.To == addr.Address {
			txCount++
		}
	}

	if existing, ok := r.store.addresses[addr.Address]; ok {
		existing.Balance = addr.Balance
		existing.Nonce = addr.Nonce
		existing.IsContract = addr.IsContract
		existing.TxCount = txCount
		if addr.LastSeenBlock > existing.LastSeenBlock {
			existing.LastSeenBlock = addr.LastSeenBlock
		}
		existing.UpdatedAt = time.Now()
		return nil
	}
	cp := *addr
	cp.TxCount = txCount
	cp.UpdatedAt = time.Now()
	r.store.addresses[addr.Address] = &cp
	return nil
}

func (r *AddressRepo) Get(ctx context.Context, address string) (*domain.Address, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.addresses[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (r *AddressRepo) Count(ctx context.Context) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return uint64(len(r.store.addresses)), nil
}

// -----------------------------------------------------------------------------
// State Repository
// -----------------------------------------------------------------------------

type StateRepo struct {
	store *MemoryStorage
}

func NewStateRepo(store *MemoryStorage) *StateRepo {
	return &StateRepo{store: store}
}

func (r *StateRepo) Get(ctx context.Context) (*domain.IndexerState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.state == nil {
		return nil, storage.ErrNotFound
	}
	cp := *r.store.state
	return &cp, nil
}

func (r *StateRepo) Save(ctx context.Context, state *domain.IndexerState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *state
	cp.UpdatedAt = time.Now()
	r.store.state = &cp
	return nil
}

func (r *StateRepo) SetCursor(ctx context.Context, blockNumber uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.state == nil {
		r.store.state = &domain.IndexerState{Status: domain.SyncStatusSyncing}
	}
	r.store.state.LastIndexedBlock = blockNumber
	r.store.state.UpdatedAt = time.Now()
	return nil
}

// -----------------------------------------------------------------------------
// Failed Block Repository
// -----------------------------------------------------------------------------

type FailedBlockRepo struct {
	store *MemoryStorage
	next  int
}

func NewFailedBlockRepo(store *MemoryStorage) *FailedBlockRepo {
	return &FailedBlockRepo{store: store}
}

func (r *FailedBlockRepo) Add(ctx context.Context, fb *domain.FailedBlock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.failed {
		if existing.Number == fb.Number && existing.Status == domain.FailedBlockPending {
			existing.Reason = fb.Reason
			existing.RetryCount++
			existing.LastAttempt = time.Now()
			return nil
		}
	}
	if fb.ID == "" {
		r.next++
		fb.ID = fmt.Sprintf("failed-%d", r.next)
	}
	cp := *fb
	cp.Status = domain.FailedBlockPending
	cp.CreatedAt = time.Now()
	cp.LastAttempt = cp.CreatedAt
	r.store.failed[cp.ID] = &cp
	return nil
}

func (r *FailedBlockRepo) GetPending(ctx context.Context, limit int) ([]*domain.FailedBlock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var fbs []*domain.FailedBlock
	for _, fb := range r.store.failed {
		if fb.Status == domain.FailedBlockPending {
			fbs = append(fbs, fb)
		}
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].Number < fbs[j].Number })
	if len(fbs) > limit {
		fbs = fbs[:limit]
	}
	return fbs, nil
}

func (r *FailedBlockRepo) IncrementRetry(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if fb, ok := r.store.failed[id]; ok {
		fb.RetryCount++
		fb.LastAttempt = time.Now()
	}
	return nil
}

func (r *FailedBlockRepo) MarkRecovered(ctx context.Context, id string) error {
	return r.setStatus(id, domain.FailedBlockRecovered)
}

func (r *FailedBlockRepo) MarkAbandoned(ctx context.Context, id string) error {
	return r.setStatus(id, domain.FailedBlockAbandoned)
}

func (r *FailedBlockRepo) setStatus(id string, status domain.FailedBlockStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if fb, ok := r.store.failed[id]; ok {
		fb.Status = status
		fb.LastAttempt = time.Now()
	}
	return nil
}

func (r *FailedBlockRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, fb := range r.store.failed {
		if fb.Status == domain.FailedBlockPending {
			count++
		}
	}
	return count, nil
}

func (r *FailedBlockRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, fb := range r.store.failed {
		if fb.Status == domain.FailedBlockPending {
			continue
		}
		if fb.LastAttempt.Before(cutoff) {
			delete(r.store.failed, id)
			deleted++
		}
	}
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Stats Repository
// -----------------------------------------------------------------------------

type StatsRepo struct {
	store *MemoryStorage
}

func NewStatsRepo(store *MemoryStorage) *StatsRepo {
	return &StatsRepo{store: store}
}

func (r *StatsRepo) SaveNetworkStats(ctx context.Context, stats *domain.NetworkStats) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *stats
	cp.UpdatedAt = time.Now()
	r.store.netStats = &cp
	return nil
}

func (r *StatsRepo) GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.netStats == nil {
		return nil, storage.ErrNotFound
	}
	cp := *r.store.netStats
	return &cp, nil
}

func (r *StatsRepo) SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *stats
	r.store.daily[stats.Date] = &cp
	return nil
}

func (r *StatsRepo) AggregateDay(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &domain.DailyStats{Date: start.Format("2006-01-02")}
	for _, b := range r.store.blocks {
		ts := int64(b.Timestamp)
		if ts < start.Unix() || ts >= end.Unix() {
			continue
		}
		stats.BlockCount++
		stats.TxCount += uint64(b.TxCount)
		stats.GasUsed += b.GasUsed
	}

	active := make(map[string]struct{})
	for _, tx := range r.store.txs {
		ts := int64(tx.Timestamp)
		if ts < start.Unix() || ts >= end.Unix() {
			continue
		}
		active[tx.From] = struct{}{}
	}
	stats.ActiveAddresses = uint64(len(active))

	return stats, nil
}

// -----------------------------------------------------------------------------
// Unit of Work
// -----------------------------------------------------------------------------

// UnitOfWork mirrors the transactional rollback surface. The in-memory
// form applies deletes directly; atomicity holds under the storage lock.
type UnitOfWork struct {
	store *MemoryStorage
}

func NewUnitOfWork(store *MemoryStorage) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx storage.RollbackTx) error) error {
	return fn(ctx, &rollbackTx{store: u.store})
}

type rollbackTx struct {
	store *MemoryStorage
}

func (r *rollbackTx) DeleteFromHeight(ctx context.Context, height uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for num := range r.store.blocks {
		if num >= height {
			delete(r.store.blocks, num)
		}
	}
	for hash, t := range r.store.txs {
		if t.BlockNumber >= height {
			delete(r.store.txs, hash)
			delete(r.store.logs, hash)
			delete(r.store.internal, hash)
		}
	}
	for key, t := range r.store.transfers {
		if t.BlockNumber >= height {
			delete(r.store.transfers, key)
		}
	}
	return nil
}

func (r *rollbackTx) SetCursor(ctx context.Context, blockNumber uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.state == nil {
		r.store.state = &domain.IndexerState{Status: domain.SyncStatusSyncing}
	}
	r.store.state.LastIndexedBlock = blockNumber
	r.store.state.UpdatedAt = time.Now()
	return nil
}
