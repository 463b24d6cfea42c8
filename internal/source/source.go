// Package source implements the source enrichment pipeline.
//
// The pipeline turns a raw search or ask response from the knowledge box
// into an ordered list of normalized Source records. Each source carries
// the matched passage, its owning resource's classification (file,
// external link, or other), and — for files — a resolvable download
// reference: a temporary signed URL when the service issues one, or a
// proxy-relative URL served by sabio's own streaming endpoint otherwise.
//
// Enrichment degrades gracefully: a failure while enriching one source
// never drops that source from the answer, and never aborts assembly of
// the remaining sources.
package source

// Classification is the coarse type of a resource.
type Classification int

const (
	// Other is any resource that is neither a stored file nor a link.
	Other Classification = iota
	// File is a resource backed by downloadable file fields.
	File
	// Link is a resource that references an external URL.
	Link
)

// String returns the classification name for logging.
func (c Classification) String() string {
	switch c {
	case File:
		return "file"
	case Link:
		return "link"
	default:
		return "other"
	}
}

// Mechanism identifies how a download reference was obtained.
type Mechanism string

const (
	// MechanismTemporarySigned is a service-issued URL with an embedded
	// short-lived token.
	MechanismTemporarySigned Mechanism = "temporary_signed"
	// MechanismProxy is a relative URL routed through sabio's own
	// streaming endpoint, which injects the credential server-side.
	MechanismProxy Mechanism = "proxy"
)

// DownloadReference is a usable download location for one file.
type DownloadReference struct {
	URL        string
	Mechanism  Mechanism
	TTLSeconds *int // set only for temporary signed URLs
}

// FileDescriptor describes one file field of a resource.
// Metadata may be partially populated; only FileID is guaranteed.
type FileDescriptor struct {
	FileID      string
	ContentType string
	Size        int64
	Filename    string
}

// URL type labels attached to sources, describing what kind of location
// the source's url points at.
const (
	URLTypeNone     = "none"     // no URL available
	URLTypeExternal = "external" // absolute URL outside the knowledge box
	URLTypeKB       = "kb"       // absolute URL on the knowledge-box host
	URLTypeProxy    = "proxy"    // sabio's own /download route
)

// Source is the normalized, caller-facing representation of one matched
// passage plus its owning resource's download or link metadata.
type Source struct {
	ID           int      `json:"id"` // 1-based position in this response
	Title        string   `json:"title"`
	Text         string   `json:"text"`
	Score        *float64 `json:"score"`
	Page         *int     `json:"page"`
	Field        string   `json:"field"`
	ResourceID   string   `json:"resource_id"`
	ResourceType string   `json:"resource_type"` // MIME string or "unknown"

	URL     string `json:"url,omitempty"`
	URLType string `json:"url_type"`
	HasURL  bool   `json:"has_url"`

	IsDownloadable bool      `json:"is_downloadable"`
	File           *FileInfo `json:"file,omitempty"` // present only when IsDownloadable
}

// FileInfo is the serialized file descriptor plus download reference
// attached to downloadable sources.
type FileInfo struct {
	FileID      string    `json:"file_id"`
	DownloadURL string    `json:"download_url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	IsPDF       bool      `json:"is_pdf"`
	IsExcel     bool      `json:"is_excel"`
	Mechanism   Mechanism `json:"mechanism"`
	TTL         *int      `json:"ttl,omitempty"` // seconds; temporary signed URLs only
}
