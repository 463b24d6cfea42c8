package source

import (
	"context"
	"fmt"

	"github.com/sabio-ai/sabio/internal/log"
)

// URLIssuer issues temporary signed download URLs. Implemented by
// kb.Client.
type URLIssuer interface {
	TemporaryDownloadURL(ctx context.Context, resourceID, fileID string, ttl int) (string, error)
}

// Resolution is the outcome of one download-reference resolution attempt.
// The Reference is always usable; FallbackCause records why the
// temporary-signed path was abandoned when the proxy mechanism was used,
// so the decision stays inspectable without triggering real failures.
type Resolution struct {
	Reference     DownloadReference
	FallbackCause error
}

// Resolver produces download references for (resource, file) pairs.
//
// Primary path: a temporary signed URL with the configured TTL. Fallback:
// a proxy-relative URL through sabio's own streaming endpoint. Resolution
// never fails outright — a file source must never be left without some
// download reference.
type Resolver struct {
	issuer URLIssuer
	ttl    int
	logger log.Logger
}

// NewResolver creates a resolver. A nil issuer skips the primary path
// entirely and always resolves to the proxy mechanism.
func NewResolver(issuer URLIssuer, ttl int, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resolver{issuer: issuer, ttl: ttl, logger: logger}
}

// Resolve obtains a download reference for one file. Failure of the
// temporary-URL issuance is absorbed into the proxy fallback, not
// propagated: stale or less-optimal access beats dropping the source.
func (r *Resolver) Resolve(ctx context.Context, resourceID, fileID string) Resolution {
	if r.issuer != nil {
		url, err := r.issuer.TemporaryDownloadURL(ctx, resourceID, fileID, r.ttl)
		if err == nil {
			ttl := r.ttl
			return Resolution{Reference: DownloadReference{
				URL:        url,
				Mechanism:  MechanismTemporarySigned,
				TTLSeconds: &ttl,
			}}
		}

		r.logger.Warn("temporary download URL unavailable, falling back to proxy",
			"resource_id", resourceID,
			"file_id", fileID,
			"error", err,
		)
		return Resolution{
			Reference:     proxyReference(resourceID, fileID),
			FallbackCause: err,
		}
	}

	return Resolution{Reference: proxyReference(resourceID, fileID)}
}

// proxyReference builds the fixed-shape relative URL served by sabio's
// streaming proxy route.
func proxyReference(resourceID, fileID string) DownloadReference {
	return DownloadReference{
		URL:       fmt.Sprintf("/download/%s/%s", resourceID, fileID),
		Mechanism: MechanismProxy,
	}
}
