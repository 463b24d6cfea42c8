package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
)

// untitled is used when a resource carries no title.
const untitled = "Untitled document"

// AssemblerConfig configures an Assembler.
type AssemblerConfig struct {
	Fetcher  ResourceFetcher // required
	Resolver *Resolver       // required
	KBHost   string          // knowledge-box host, used to label URL types
	Logger   log.Logger
}

// Assembler turns raw search/ask responses into normalized Source lists.
// Stateless and safe for concurrent use; per-call state (the resource
// cache) lives inside each Assemble invocation.
type Assembler struct {
	fetcher  ResourceFetcher
	resolver *Resolver
	kbHost   string
	logger   log.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(cfg AssemblerConfig) (*Assembler, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("source: fetcher is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("source: resolver is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Assembler{
		fetcher:  cfg.Fetcher,
		resolver: cfg.Resolver,
		kbHost:   cfg.KBHost,
		logger:   logger,
	}, nil
}

// Assemble produces the ordered source list for one response.
//
// Candidates are walked in upstream order: passages below minScore are
// skipped, and assembly stops as soon as maxCount sources have been
// emitted. Output order is a sub-sequence of upstream order — upstream is
// trusted to have ranked already, so no re-sorting happens here.
//
// A failure enriching one source degrades that source to non-downloadable
// and assembly continues. Only a malformed response or a canceled context
// fails the whole call.
func (a *Assembler) Assemble(ctx context.Context, raw []byte, maxCount int, minScore float64) ([]Source, error) {
	candidates, err := Candidates(raw)
	if err != nil {
		return nil, err
	}

	cache := newResourceCache(a.fetcher)
	sources := make([]Source, 0, min(len(candidates), maxCount))

	for _, c := range candidates {
		if maxCount > 0 && len(sources) >= maxCount {
			break
		}
		if c.Paragraph.Score < minScore {
			continue
		}
		text := strings.TrimSpace(c.Paragraph.Text)
		if text == "" {
			continue
		}

		src := Source{
			Title:        c.Resource.Title,
			Text:         text,
			Score:        roundedScore(c.Paragraph.Score),
			Page:         c.Paragraph.Position.PageNumber,
			Field:        c.Paragraph.Field,
			ResourceID:   c.Paragraph.RID,
			ResourceType: resourceType(c.Resource.Icon),
		}
		if src.Title == "" {
			src.Title = untitled
		}

		switch Classify(c.Resource.Icon) {
		case File:
			if err := a.enrichFile(ctx, cache, &src); err != nil {
				return nil, err
			}
		case Link:
			src.URL = linkURL(c.Resource)
		}

		src.URLType = a.urlType(src.URL)
		src.HasURL = src.URL != ""
		src.ID = len(sources) + 1
		sources = append(sources, src)
	}

	return sources, nil
}

// enrichFile attaches a file descriptor and download reference to a
// file-classified source. Upstream failures degrade the source to
// non-downloadable; only context cancellation propagates, since partial
// enrichment results are discarded on cancel rather than returned.
func (a *Assembler) enrichFile(ctx context.Context, cache *resourceCache, src *Source) error {
	detail, err := cache.get(ctx, src.ResourceID)
	if err != nil {
		// A canceled enclosing request aborts assembly; a per-call
		// upstream timeout only degrades this one source.
		if ctx.Err() != nil {
			return fmt.Errorf("enrichment canceled: %w", ctx.Err())
		}
		a.logger.Warn("resource detail unavailable, source degraded",
			"resource_id", src.ResourceID,
			"error", err,
		)
		return nil
	}

	descriptors := ExtractFiles(detail)
	for _, d := range descriptors {
		// Entries without a content type carry no stored file yet;
		// keep looking at the remaining entries.
		if d.ContentType == "" {
			continue
		}

		resolution := a.resolver.Resolve(ctx, src.ResourceID, d.FileID)
		ref := resolution.Reference

		filename := d.Filename
		if filename == "" {
			filename = src.Title
		}

		src.IsDownloadable = true
		src.URL = ref.URL
		src.File = &FileInfo{
			FileID:      d.FileID,
			DownloadURL: ref.URL,
			ContentType: d.ContentType,
			Size:        d.Size,
			Filename:    filename,
			IsPDF:       d.IsPDF(),
			IsExcel:     d.IsExcel(),
			Mechanism:   ref.Mechanism,
			TTL:         ref.TTLSeconds,
		}

		// A resource with several files still yields one source per
		// passage; the first stored file wins.
		break
	}

	return nil
}

// linkURL recovers the external URL of a link resource, trying the origin
// block first, then metadata. An unresolvable link keeps an empty URL —
// never fail the whole response for one unresolved link.
func linkURL(res kb.Resource) string {
	if res.Origin != nil {
		if res.Origin.URL != "" {
			return res.Origin.URL
		}
		if res.Origin.Path != "" {
			return res.Origin.Path
		}
	}
	if res.Metadata != nil {
		if res.Metadata.URI != "" {
			return res.Metadata.URI
		}
		if res.Metadata.URL != "" {
			return res.Metadata.URL
		}
	}
	return ""
}

// urlType labels a source URL for the caller.
func (a *Assembler) urlType(rawURL string) string {
	switch {
	case rawURL == "":
		return URLTypeNone
	case strings.HasPrefix(rawURL, "/"):
		return URLTypeProxy
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return URLTypeNone
	}
	if a.kbHost != "" && u.Host == a.kbHost {
		return URLTypeKB
	}
	return URLTypeExternal
}

// resourceType maps the icon to the caller-facing resource type label.
func resourceType(icon string) string {
	if icon == "" {
		return "unknown"
	}
	return icon
}

// roundedScore converts an upstream score into the serialized form:
// rounded to 3 decimals, nil when absent (zero).
func roundedScore(score float64) *float64 {
	if score == 0 {
		return nil
	}
	rounded := math.Round(score*1000) / 1000
	return &rounded
}
