package nft

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// URISource reads the metadata URI of a token instance off its
// contract.
type URISource interface {
	TokenURI(ctx context.Context, contract, tokenID string, tokenType domain.TokenType) (string, error)
}

// Config controls the metadata pipeline.
type Config struct {
	// QueueSize bounds the number of pending fetch jobs. Enqueueing
	// into a full queue drops the job.
	QueueSize int `yaml:"queue_size"`

	// FetchDelay is the pause between consecutive fetches, protecting
	// third-party gateways from bursts.
	FetchDelay time.Duration `yaml:"fetch_delay"`

	// HTTPTimeout is the hard per-request timeout for metadata fetches.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// IPFSGateway is the HTTP gateway used for ipfs:// URIs.
	IPFSGateway string `yaml:"ipfs_gateway"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:   1024,
		FetchDelay:  200 * time.Millisecond,
		HTTPTimeout: defaultHTTPTimeout,
		IPFSGateway: defaultIPFSGateway,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.FetchDelay <= 0 {
		c.FetchDelay = def.FetchDelay
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = def.HTTPTimeout
	}
	if c.IPFSGateway == "" {
		c.IPFSGateway = def.IPFSGateway
	}
	return c
}

type job struct {
	contract  string
	tokenID   string
	owner     string
	tokenType domain.TokenType
}

// Pipeline is the decoupled metadata consumer. Producers call Enqueue
// (never blocking); Start drains the queue serially with a fixed delay
// between items.
type Pipeline struct {
	cfg      Config
	jobs     chan job
	nfts     storage.NftRepository
	uris     URISource
	resolver *Resolver
	log      *slog.Logger
}

// NewPipeline creates a metadata pipeline.
func NewPipeline(cfg Config, nfts storage.NftRepository, uris URISource, log *slog.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		jobs:     make(chan job, cfg.QueueSize),
		nfts:     nfts,
		uris:     uris,
		resolver: NewResolver(cfg.IPFSGateway, cfg.HTTPTimeout),
		log:      log.With("component", "nft_pipeline"),
	}
}

// Enqueue hands an instance to the consumer. Returns false when the
// queue is full; the job is dropped rather than blocking the caller.
func (p *Pipeline) Enqueue(contract, tokenID, owner string, tokenType domain.TokenType) bool {
	select {
	case p.jobs <- job{contract: contract, tokenID: tokenID, owner: owner, tokenType: tokenType}:
		metrics.NftQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		metrics.NftFetchesTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// Start runs the consumer until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	p.log.Info("nft metadata pipeline started", "queue_size", p.cfg.QueueSize, "fetch_delay", p.cfg.FetchDelay)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.NftQueueDepth.Set(float64(len(p.jobs)))
			p.process(ctx, j)

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.FetchDelay):
			}
		}
	}
}

// tokenMetadata is the commonly used shape of NFT metadata documents.
type tokenMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"image_url"`
	Attributes  json.RawMessage `json:"attributes"`
}

// process resolves one instance's metadata. Every failure path still
// persists a placeholder row so the instance is not retried forever.
func (p *Pipeline) process(ctx context.Context, j job) {
	nft := &domain.NftToken{
		ContractAddress: j.contract,
		TokenID:         j.tokenID,
		Owner:           j.owner,
	}

	uri, err := p.uris.TokenURI(ctx, j.contract, j.tokenID, j.tokenType)
	if err != nil {
		p.persistFailure(ctx, nft, "uri read failed: "+err.Error())
		return
	}
	nft.MetadataURI = &uri

	raw, err := p.resolver.Resolve(ctx, uri)
	if err != nil {
		p.persistFailure(ctx, nft, "metadata fetch failed: "+err.Error())
		return
	}

	var meta tokenMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		p.persistFailure(ctx, nft, "metadata parse failed: "+err.Error())
		return
	}

	if meta.Name != "" {
		nft.Name = &meta.Name
	}
	if meta.Description != "" {
		nft.Description = &meta.Description
	}
	image := meta.Image
	if image == "" {
		image = meta.ImageURL
	}
	if image != "" {
		resolved := p.resolver.RewriteURL(image)
		nft.ImageURL = &resolved
	}
	if len(meta.Attributes) > 0 {
		nft.Attributes = meta.Attributes
	}

	if err := p.nfts.Upsert(ctx, nft); err != nil {
		p.log.Warn("nft upsert failed", "contract", j.contract, "token_id", j.tokenID, "err", err)
		return
	}
	metrics.NftFetchesTotal.WithLabelValues("ok").Inc()
}

func (p *Pipeline) persistFailure(ctx context.Context, nft *domain.NftToken, reason string) {
	nft.FetchError = reason
	if err := p.nfts.Upsert(ctx, nft); err != nil {
		p.log.Warn("nft placeholder upsert failed", "contract", nft.ContractAddress, "token_id", nft.TokenID, "err", err)
		return
	}
	metrics.NftFetchesTotal.WithLabelValues("failed").Inc()
	p.log.Debug("nft metadata unavailable", "contract", nft.ContractAddress, "token_id", nft.TokenID, "reason", reason)
}
