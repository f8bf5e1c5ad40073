package recovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureCategory buckets errors by how the pipeline should react.
type FailureCategory int

const (
	// CategoryTransient covers errors worth retrying in place, like a
	// node that briefly returned malformed data or a missing receipt.
	CategoryTransient FailureCategory = iota

	// CategoryNetwork covers connectivity loss. The pipeline enters
	// recovery mode and probes until the node answers again.
	CategoryNetwork

	// CategoryData covers errors retries cannot fix for now, like a
	// block the node persistently refuses to serve. The block goes to
	// the failed queue and the loop moves on.
	CategoryData
)

func (c FailureCategory) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryNetwork:
		return "network"
	case CategoryData:
		return "data"
	default:
		return "unknown"
	}
}

// Classifier maps an error to a failure category.
type Classifier func(err error) FailureCategory

var networkErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"network is unreachable",
	"eof",
	"tls handshake timeout",
	"dial tcp",
}

// Classify is the default classifier.
func Classify(err error) FailureCategory {
	if err == nil {
		return CategoryTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return CategoryNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryNetwork
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range networkErrorPatterns {
		if strings.Contains(lower, pattern) {
			return CategoryNetwork
		}
	}

	return CategoryTransient
}

// IsNetworkError reports whether the error indicates connectivity loss.
func IsNetworkError(err error) bool {
	return err != nil && Classify(err) == CategoryNetwork
}
