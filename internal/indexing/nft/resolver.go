// Package nft enriches indexed NFT instances with their off-chain
// metadata. A single background consumer drains a bounded queue fed by
// the token transfer extractor, so metadata fetching can never stall
// block ingestion.
package nft

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultIPFSGateway = "https://ipfs.io/ipfs/"
	defaultHTTPTimeout = 10 * time.Second

	// maxMetadataBytes caps how much of a metadata document is read.
	maxMetadataBytes = 1 << 20
)

const dataJSONPrefix = "data:application/json;base64,"

// Resolver turns token metadata URIs into their document bytes. It
// understands ipfs:// (rewritten to an HTTP gateway), inline base64
// data URIs and plain http(s) URLs.
type Resolver struct {
	client  *http.Client
	gateway string
}

// NewResolver creates a resolver. Zero values select the default IPFS
// gateway and a 10 second HTTP timeout.
func NewResolver(gateway string, timeout time.Duration) *Resolver {
	if gateway == "" {
		gateway = defaultIPFSGateway
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Resolver{
		client:  &http.Client{Timeout: timeout},
		gateway: gateway,
	}
}

// RewriteURL maps an ipfs:// URI onto the configured gateway and
// returns other URIs unchanged. Used for image links, which are stored
// as resolvable URLs rather than fetched.
func (r *Resolver) RewriteURL(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		rest = strings.TrimPrefix(rest, "ipfs/")
		return r.gateway + rest
	}
	return uri
}

// Resolve fetches the document behind a metadata URI.
func (r *Resolver) Resolve(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, dataJSONPrefix):
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataJSONPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid inline metadata: %w", err)
		}
		return raw, nil

	case strings.HasPrefix(uri, "ipfs://"):
		return r.fetch(ctx, r.RewriteURL(uri))

	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return r.fetch(ctx, uri)
	}
	return nil, fmt.Errorf("unsupported metadata uri scheme: %q", uri)
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
}
