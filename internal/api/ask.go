package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sabio-ai/sabio/internal/agent"
	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
	"github.com/sabio-ai/sabio/internal/source"
)

// Request body size limit for ask endpoints.
const maxAskBodyBytes = 1 << 20 // 1MB

// Inbound parameter bounds and defaults.
const (
	minQueryLen = 2
	maxQueryLen = 2000

	defaultSize = 30
	maxSize     = 100

	defaultMaxChunks = 20
	maxMaxChunks     = 50

	maxAskTokens = 4096
)

// askAgent is the slice of the agent the handlers use.
type askAgent interface {
	Ask(ctx context.Context, question string, opts agent.Options) (*agent.Result, error)
	EnrichSources(ctx context.Context, raw []byte, maxChunks int, minScore float64) ([]source.Source, error)
}

// kbAsker is the knowledge box's generative ask primitive.
type kbAsker interface {
	Ask(ctx context.Context, req kb.AskRequest) ([]byte, error)
}

// askHandler holds dependencies for the ask endpoints.
type askHandler struct {
	agent  askAgent
	kb     kbAsker
	model  string
	kbID   string
	logger log.Logger
}

// askRequest is the inbound body of POST /ask.
type askRequest struct {
	Query       string   `json:"query"`
	Size        *int     `json:"size,omitempty"`
	MaxChunks   *int     `json:"max_chunks,omitempty"`
	UseSemantic *bool    `json:"use_semantic,omitempty"`
	MinScore    *float64 `json:"min_score,omitempty"`
}

// askParams is the echo of the effective parameters in responses.
type askParams struct {
	Size        int     `json:"size"`
	MaxChunks   int     `json:"max_chunks"`
	UseSemantic bool    `json:"use_semantic"`
	MinScore    float64 `json:"min_score"`
}

// options resolves defaults and validates bounds.
func (r *askRequest) options() (agent.Options, error) {
	if len(r.Query) < minQueryLen || len(r.Query) > maxQueryLen {
		return agent.Options{}, fmt.Errorf("query must be %d-%d characters", minQueryLen, maxQueryLen)
	}

	opts := agent.Options{
		Size:        defaultSize,
		MaxChunks:   defaultMaxChunks,
		UseSemantic: true,
	}
	if r.Size != nil {
		if *r.Size < 1 || *r.Size > maxSize {
			return agent.Options{}, fmt.Errorf("size must be 1-%d", maxSize)
		}
		opts.Size = *r.Size
	}
	if r.MaxChunks != nil {
		if *r.MaxChunks < 1 || *r.MaxChunks > maxMaxChunks {
			return agent.Options{}, fmt.Errorf("max_chunks must be 1-%d", maxMaxChunks)
		}
		opts.MaxChunks = *r.MaxChunks
	}
	if r.UseSemantic != nil {
		opts.UseSemantic = *r.UseSemantic
	}
	if r.MinScore != nil {
		if *r.MinScore < 0 || *r.MinScore > 1 {
			return agent.Options{}, errors.New("min_score must be 0.0-1.0")
		}
		opts.MinScore = *r.MinScore
	}
	return opts, nil
}

// askResponse is the outbound body of POST /ask.
type askResponse struct {
	Answer  string          `json:"answer"`
	Sources []source.Source `json:"sources"`
	Model   string          `json:"model"`
	KB      string          `json:"kb"`
	Params  askParams       `json:"params"`
}

// ask handles POST /ask: search, answer generation, source enrichment.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	opts, err := req.options()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	result, err := h.agent.Ask(r.Context(), req.Query, opts)
	if err != nil {
		h.writeAskFailure(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, askResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
		Model:   h.model,
		KB:      h.kbID,
		Params: askParams{
			Size:        opts.Size,
			MaxChunks:   opts.MaxChunks,
			UseSemantic: opts.UseSemantic,
			MinScore:    opts.MinScore,
		},
	}, h.logger)
}

// kbAskRequest is the inbound body of POST /kb-ask.
type kbAskRequest struct {
	Query     string        `json:"query"`
	Context   []kb.AskTurn  `json:"context,omitempty"`
	Rephrase  bool          `json:"rephrase,omitempty"`
	Citations string        `json:"citations,omitempty"`
	Filters   []string      `json:"filters,omitempty"`
	Prompt    *kb.AskPrompt `json:"prompt,omitempty"`
	Features  []string      `json:"features,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	MaxChunks *int          `json:"max_chunks,omitempty"`
	MinScore  *float64      `json:"min_score,omitempty"`
}

// kbAskUpstream is the subset of the generative reply passed through.
type kbAskUpstream struct {
	Answer    string          `json:"answer"`
	Citations json.RawMessage `json:"citations,omitempty"`
	Relations json.RawMessage `json:"relations,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// kbAsk handles POST /kb-ask: the knowledge box generates the answer
// itself; sabio enriches the retrieval results into sources.
func (h *askHandler) kbAsk(w http.ResponseWriter, r *http.Request) {
	var req kbAskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	if len(req.Query) < minQueryLen || len(req.Query) > maxQueryLen {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("query must be %d-%d characters", minQueryLen, maxQueryLen), h.logger)
		return
	}
	if req.MaxTokens < 0 || req.MaxTokens > maxAskTokens {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("max_tokens must be 0-%d", maxAskTokens), h.logger)
		return
	}

	maxChunks := defaultMaxChunks
	if req.MaxChunks != nil && *req.MaxChunks >= 1 && *req.MaxChunks <= maxMaxChunks {
		maxChunks = *req.MaxChunks
	}
	minScore := 0.0
	if req.MinScore != nil && *req.MinScore >= 0 && *req.MinScore <= 1 {
		minScore = *req.MinScore
	}

	raw, err := h.kb.Ask(r.Context(), kb.AskRequest{
		Query:     req.Query,
		Context:   req.Context,
		Rephrase:  req.Rephrase,
		Citations: req.Citations,
		Filters:   req.Filters,
		Prompt:    req.Prompt,
		Features:  req.Features,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		h.writeAskFailure(w, r, err)
		return
	}

	var upstream kbAskUpstream
	if err := json.Unmarshal(raw, &upstream); err != nil {
		h.logger.Error("unparseable generative reply", "error", err,
			"request_id", requestIDFromContext(r.Context()))
		WriteError(w, http.StatusBadGateway, "upstream_unavailable",
			"knowledge box returned an unparseable reply", h.logger)
		return
	}

	sources, err := h.agent.EnrichSources(r.Context(), raw, maxChunks, minScore)
	if err != nil {
		h.writeAskFailure(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"answer":    upstream.Answer,
		"sources":   sources,
		"citations": upstream.Citations,
		"relations": upstream.Relations,
		"metadata":  upstream.Metadata,
		"kb":        h.kbID,
		"params": map[string]any{
			"rephrase":   req.Rephrase,
			"citations":  req.Citations,
			"features":   req.Features,
			"max_chunks": maxChunks,
			"min_score":  minScore,
		},
	}, h.logger)
}

// writeAskFailure maps a pipeline failure onto the error taxonomy.
// Per-source enrichment failures never reach here — only the top-level
// search, ask, or completion call failing is a request-level error.
func (h *askHandler) writeAskFailure(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFromContext(r.Context())

	if r.Context().Err() != nil {
		// Client went away; partial results are discarded, nothing to write.
		h.logger.Debug("request canceled", "request_id", requestID)
		return
	}

	switch {
	case errors.Is(err, kb.ErrUpstreamUnavailable), errors.Is(err, kb.ErrCredential):
		h.logger.Error("knowledge box call failed", "error", err, "request_id", requestID)
		WriteError(w, http.StatusBadGateway, "upstream_unavailable",
			"error querying the knowledge box", h.logger)
	default:
		h.logger.Error("answer generation failed", "error", err, "request_id", requestID)
		WriteError(w, http.StatusBadGateway, "llm_failed",
			"error generating the answer", h.logger)
	}
}
