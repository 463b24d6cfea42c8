// Package kb is a client for the hosted knowledge-box search service.
//
// The client covers the four primitives sabio consumes: search, generative
// ask, resource detail, and file download (temporary signed URL or direct
// stream). Every call bounds its wait with a per-category timeout and
// carries the service credential in a header that is never logged.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sabio-ai/sabio/internal/log"
)

// Timeouts describes the per-call-category wait bounds.
type Timeouts struct {
	Metadata time.Duration // resource detail, temporary URL issuance
	Search   time.Duration // search and ask calls
	Stream   time.Duration // file download relay
}

// Config configures a knowledge-box client.
type Config struct {
	BaseURL  string // e.g. "https://europe-1.rag.example.cloud/api/v1"
	KBID     string
	Token    string
	Timeouts Timeouts
}

// Client talks to one knowledge box. Safe for concurrent use.
type Client struct {
	baseURL    string
	kbID       string
	token      string
	timeouts   Timeouts
	httpClient *http.Client
	logger     log.Logger
}

// New creates a knowledge-box client.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("kb: base URL is required")
	}
	if cfg.KBID == "" {
		return nil, errors.New("kb: knowledge-box id is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("kb: token is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	t := cfg.Timeouts
	if t.Metadata <= 0 {
		t.Metadata = 30 * time.Second
	}
	if t.Search <= 0 {
		t.Search = 60 * time.Second
	}
	if t.Stream <= 0 {
		t.Stream = 60 * time.Second
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		kbID:     cfg.KBID,
		token:    cfg.Token,
		timeouts: t,
		// Timeouts are applied per call via context; the client itself
		// stays unbounded so streaming downloads are not cut short by
		// a global deadline.
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// kbURL joins path segments under the client's knowledge-box root.
// Segments are path-escaped so opaque ids cannot break out of the path.
func (c *Client) kbURL(segments ...string) string {
	u := c.baseURL + "/kb/" + url.PathEscape(c.kbID)
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// Search performs a search against the knowledge box and returns the raw
// response JSON. The caller is responsible for interpreting the shape.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Search)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	if opts.Size > 0 {
		params.Set("size", strconv.Itoa(opts.Size))
	}
	features := opts.Features
	if len(features) == 0 {
		features = []string{"keyword", "semantic"}
	}
	semantic := false
	for _, f := range features {
		params.Add("features", f)
		if f == "semantic" {
			semantic = true
		}
	}
	if semantic && opts.Vectorset != "" {
		params.Set("vectorset", opts.Vectorset)
	}
	if opts.MinScore > 0 {
		params.Set("min_score", strconv.FormatFloat(opts.MinScore, 'f', -1, 64))
	}

	start := time.Now()
	raw, err := c.doJSON(ctx, http.MethodGet, c.kbURL("search")+"?"+params.Encode(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	c.logger.Debug("kb search completed",
		"query_len", len(query),
		"duration", time.Since(start),
	)
	return raw, nil
}

// Ask calls the knowledge box's generative ask endpoint in synchronous
// mode and returns the raw response JSON.
func (c *Client) Ask(ctx context.Context, req AskRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Search)
	defer cancel()

	raw, err := c.doJSON(ctx, http.MethodPost, c.kbURL("ask"), req, map[string]string{
		"x-synchronous": "true",
	})
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	return raw, nil
}

// Resource fetches the full detail of one resource, including its file
// fields and origin block.
func (c *Client) Resource(ctx context.Context, resourceID string) (*Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Metadata)
	defer cancel()

	u := c.kbURL("resource", resourceID) + "?show=basic&show=values&show=origin"
	raw, err := c.doJSON(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	var res Resource
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("resource %s: decoding: %w", resourceID, err)
	}
	if res.ID == "" {
		res.ID = resourceID
	}
	return &res, nil
}

// temporaryURLResponse is the service's reply to a temporary URL request.
type temporaryURLResponse struct {
	URL string `json:"url"`
	TTL int    `json:"ttl"`
}

// TemporaryDownloadURL requests a temporary signed download URL for one
// file of a resource. The returned URL embeds a short-lived token and
// requires no further credential from the caller.
func (c *Client) TemporaryDownloadURL(ctx context.Context, resourceID, fileID string, ttl int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Metadata)
	defer cancel()

	u := c.kbURL("resource", resourceID, "file", fileID, "temporary-url") +
		"?ttl=" + strconv.Itoa(ttl)
	raw, err := c.doJSON(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return "", fmt.Errorf("temporary url %s/%s: %w", resourceID, fileID, err)
	}

	var resp temporaryURLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("temporary url %s/%s: decoding: %w", resourceID, fileID, err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("temporary url %s/%s: %w: empty url in response",
			resourceID, fileID, ErrCredential)
	}
	return resp.URL, nil
}

// doJSON performs a JSON request and returns the raw response body.
// Non-2xx statuses are mapped to the package sentinels; transport
// failures (including context deadline) map to ErrUpstreamUnavailable.
func (c *Client) doJSON(ctx context.Context, method, u string, body any, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// setHeaders attaches the service credential.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Service-Token", c.token)
}
