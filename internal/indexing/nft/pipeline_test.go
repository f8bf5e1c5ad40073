package nft

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

type mockNftRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.NftToken
}

func newMockNftRepo() *mockNftRepo {
	return &mockNftRepo{rows: make(map[string]*domain.NftToken)}
}

// Upsert mirrors the real repository: ownership on an existing row is
// updated only through SetOwner.
func (r *mockNftRepo) Upsert(ctx context.Context, nft *domain.NftToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := nft.ContractAddress + "#" + nft.TokenID
	cp := *nft
	if prev, ok := r.rows[key]; ok {
		cp.Owner = prev.Owner
	}
	r.rows[key] = &cp
	return nil
}

func (r *mockNftRepo) Get(ctx context.Context, contractAddress, tokenID string) (*domain.NftToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.rows[contractAddress+"#"+tokenID]; ok {
		return n, nil
	}
	return nil, storage.ErrNotFound
}

func (r *mockNftRepo) SetOwner(ctx context.Context, contractAddress, tokenID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := contractAddress + "#" + tokenID
	if n, ok := r.rows[key]; ok {
		n.Owner = owner
		return nil
	}
	r.rows[key] = &domain.NftToken{ContractAddress: contractAddress, TokenID: tokenID, Owner: owner}
	return nil
}

func (r *mockNftRepo) get(key string) *domain.NftToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[key]
}

type mockURISource struct {
	uri string
	err error
}

func (m *mockURISource) TokenURI(ctx context.Context, contract, tokenID string, tokenType domain.TokenType) (string, error) {
	return m.uri, m.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func startPipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Start(ctx)
}

func TestInlineMetadataDecoded(t *testing.T) {
	doc := `{"name":"Punk","description":"a punk","image":"ipfs://Qm123/img.png","attributes":[{"trait_type":"hat","value":"cap"}]}`
	uri := dataJSONPrefix + base64.StdEncoding.EncodeToString([]byte(doc))

	repo := newMockNftRepo()
	p := NewPipeline(Config{FetchDelay: time.Millisecond}, repo, &mockURISource{uri: uri}, nil)
	startPipeline(t, p)

	if !p.Enqueue("0xabc", "1", "0xholder", domain.TokenTypeERC721) {
		t.Fatal("enqueue rejected")
	}
	waitFor(t, func() bool { return repo.get("0xabc#1") != nil })

	nft := repo.get("0xabc#1")
	if nft.Owner != "0xholder" {
		t.Errorf("owner = %q, want 0xholder", nft.Owner)
	}
	if nft.Name == nil || *nft.Name != "Punk" {
		t.Errorf("name = %v, want Punk", nft.Name)
	}
	if nft.ImageURL == nil || *nft.ImageURL != defaultIPFSGateway+"Qm123/img.png" {
		t.Errorf("imageURL = %v, want gateway url", nft.ImageURL)
	}
	if len(nft.Attributes) == 0 {
		t.Error("attributes not captured")
	}
	if nft.FetchError != "" {
		t.Errorf("fetchError = %q, want empty", nft.FetchError)
	}
}

func TestHTTPMetadataFetched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Ape #7"}`))
	}))
	defer srv.Close()

	repo := newMockNftRepo()
	p := NewPipeline(Config{FetchDelay: time.Millisecond}, repo, &mockURISource{uri: srv.URL + "/7"}, nil)
	startPipeline(t, p)

	p.Enqueue("0xabc", "7", "0xholder", domain.TokenTypeERC721)
	waitFor(t, func() bool { return repo.get("0xabc#7") != nil })

	nft := repo.get("0xabc#7")
	if nft.Name == nil || *nft.Name != "Ape #7" {
		t.Errorf("name = %v, want Ape #7", nft.Name)
	}
}

func TestPlaceholderPersistedWhenURIReadFails(t *testing.T) {
	repo := newMockNftRepo()
	p := NewPipeline(Config{FetchDelay: time.Millisecond}, repo, &mockURISource{err: errors.New("execution reverted")}, nil)
	startPipeline(t, p)

	p.Enqueue("0xabc", "9", "0xholder", domain.TokenTypeERC1155)
	waitFor(t, func() bool { return repo.get("0xabc#9") != nil })

	nft := repo.get("0xabc#9")
	if nft.FetchError == "" {
		t.Error("placeholder should record the failure reason")
	}
	if nft.Name != nil || nft.MetadataURI != nil {
		t.Error("placeholder should carry no metadata")
	}
}

func TestEnqueueNeverBlocksWhenQueueFull(t *testing.T) {
	repo := newMockNftRepo()
	// Consumer never started, queue of one slot.
	p := NewPipeline(Config{QueueSize: 1}, repo, &mockURISource{uri: "http://x"}, nil)

	if !p.Enqueue("0xabc", "1", "0xholder", domain.TokenTypeERC721) {
		t.Fatal("first enqueue should be accepted")
	}

	done := make(chan bool, 1)
	go func() {
		done <- p.Enqueue("0xabc", "2", "0xholder", domain.TokenTypeERC721)
	}()
	select {
	case accepted := <-done:
		if accepted {
			t.Error("enqueue into a full queue should report a drop")
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestMetadataWriteKeepsLatestOwner(t *testing.T) {
	repo := newMockNftRepo()
	p := NewPipeline(Config{FetchDelay: time.Millisecond}, repo, &mockURISource{err: errors.New("execution reverted")}, nil)

	// The instance changed hands before the queued metadata job ran.
	if err := repo.SetOwner(context.Background(), "0xabc", "3", "0xnewowner"); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}

	startPipeline(t, p)
	p.Enqueue("0xabc", "3", "0xoldowner", domain.TokenTypeERC721)
	waitFor(t, func() bool { return repo.get("0xabc#3").FetchError != "" })

	if got := repo.get("0xabc#3").Owner; got != "0xnewowner" {
		t.Errorf("owner = %q, want 0xnewowner", got)
	}
}

func TestRewriteURL(t *testing.T) {
	r := NewResolver("https://gw.example/ipfs/", 0)

	tests := []struct {
		in, want string
	}{
		{"ipfs://QmAbc/1.json", "https://gw.example/ipfs/QmAbc/1.json"},
		{"ipfs://ipfs/QmAbc", "https://gw.example/ipfs/QmAbc"},
		{"https://meta.example/1.json", "https://meta.example/1.json"},
	}
	for _, tt := range tests {
		if got := r.RewriteURL(tt.in); got != tt.want {
			t.Errorf("RewriteURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	r := NewResolver("", 0)
	if _, err := r.Resolve(context.Background(), "ftp://meta.example/1.json"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
