package kb

// Resource is a knowledge-box resource record as returned by the service.
// The record is owned by the service; sabio reads it for the duration of
// one request and never writes it back.
type Resource struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Icon     string            `json:"icon"`
	Data     ResourceData      `json:"data"`
	Origin   *ResourceOrigin   `json:"origin,omitempty"`
	Metadata *ResourceMetadata `json:"metadata,omitempty"`
}

// ResourceData holds the field maps of a resource. Only file fields are
// relevant to sabio.
type ResourceData struct {
	Files map[string]FileField `json:"files"`
}

// FileField is one entry of a resource's file-field map.
type FileField struct {
	Value FileFieldValue `json:"value"`
}

// FileFieldValue wraps the nested file payload.
type FileFieldValue struct {
	File FilePayload `json:"file"`
}

// FilePayload carries the stored file's metadata. Any of the fields may be
// absent for partially-processed resources.
type FilePayload struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Filename    string `json:"filename"`
}

// ResourceOrigin describes where a resource was ingested from. For link
// resources it carries the original external URL.
type ResourceOrigin struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ResourceMetadata is the free-form metadata block of a resource.
type ResourceMetadata struct {
	URI string `json:"uri"`
	URL string `json:"url"`
}

// Paragraph is one matched passage in a search response.
type Paragraph struct {
	RID      string            `json:"rid"`
	Field    string            `json:"field"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Position ParagraphPosition `json:"position"`
}

// ParagraphPosition locates a paragraph inside its source document.
type ParagraphPosition struct {
	PageNumber *int `json:"page_number,omitempty"`
}

// SearchOptions configures a knowledge-box search call.
type SearchOptions struct {
	Size      int      // number of results to request (service default if 0)
	Features  []string // "keyword", "semantic", "relations"
	MinScore  float64
	Vectorset string // required when Features includes "semantic"
}

// AskTurn is one message of conversational context for Ask.
type AskTurn struct {
	Author string `json:"author"` // "USER" or "AGENT"
	Text   string `json:"text"`
}

// AskPrompt carries custom prompts for the service's generative endpoint.
type AskPrompt struct {
	System   string `json:"system,omitempty"`
	User     string `json:"user,omitempty"`
	Rephrase string `json:"rephrase,omitempty"`
}

// AskRequest is the payload for the knowledge-box generative ask endpoint.
type AskRequest struct {
	Query     string     `json:"query"`
	Context   []AskTurn  `json:"context,omitempty"`
	Rephrase  bool       `json:"rephrase,omitempty"`
	Citations string     `json:"citations,omitempty"`
	Filters   []string   `json:"filters,omitempty"`
	Prompt    *AskPrompt `json:"prompt,omitempty"`
	Features  []string   `json:"features,omitempty"`
	MaxTokens int        `json:"max_tokens,omitempty"`
}
