package kb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testToken = "test-token-value"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL: srv.URL + "/api/v1",
		KBID:    "kb-123",
		Token:   testToken,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, srv
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing base url", Config{KBID: "kb", Token: "t"}},
		{"missing kb id", Config{BaseURL: "http://x", Token: "t"}},
		{"missing token", Config{BaseURL: "http://x", KBID: "kb"}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg, nil); err == nil {
			t.Errorf("%s: New() error = nil, want error", tt.name)
		}
	}
}

func TestSearchRequestShape(t *testing.T) {
	var gotPath, gotToken string
	var gotQuery map[string][]string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Service-Token")
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"paragraphs": {"results": []}}`))
	}))

	raw, err := client.Search(context.Background(), "hello world", SearchOptions{
		Size:      25,
		Features:  []string{"keyword", "semantic"},
		MinScore:  0.5,
		Vectorset: "multilingual-2024-05-06",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("Search() returned empty body")
	}

	if gotPath != "/api/v1/kb/kb-123/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotToken != testToken {
		t.Errorf("token header = %q", gotToken)
	}
	if got := gotQuery["query"]; len(got) != 1 || got[0] != "hello world" {
		t.Errorf("query param = %v", got)
	}
	if got := gotQuery["size"]; len(got) != 1 || got[0] != "25" {
		t.Errorf("size param = %v", got)
	}
	if got := gotQuery["features"]; len(got) != 2 {
		t.Errorf("features params = %v, want 2 values", got)
	}
	if got := gotQuery["vectorset"]; len(got) != 1 || got[0] != "multilingual-2024-05-06" {
		t.Errorf("vectorset param = %v", got)
	}
	if got := gotQuery["min_score"]; len(got) != 1 || got[0] != "0.5" {
		t.Errorf("min_score param = %v", got)
	}
}

func TestSearchOmitsVectorsetWithoutSemantic(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{}`))
	}))

	_, err := client.Search(context.Background(), "q", SearchOptions{
		Features:  []string{"keyword"},
		Vectorset: "ignored",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, ok := gotQuery["vectorset"]; ok {
		t.Error("vectorset sent for keyword-only search")
	}
}

func TestSearchStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrCredential},
		{http.StatusForbidden, ErrCredential},
		{http.StatusNotFound, ErrResourceNotFound},
		{http.StatusInternalServerError, ErrUpstreamUnavailable},
		{http.StatusBadGateway, ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"detail": "nope"}`))
		}))

		_, err := client.Search(context.Background(), "q", SearchOptions{})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestAskSynchronousHeader(t *testing.T) {
	var gotSync, gotMethod string
	var gotBody AskRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSync = r.Header.Get("x-synchronous")
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"answer": "ok"}`))
	}))

	_, err := client.Ask(context.Background(), AskRequest{
		Query:     "what is this",
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotSync != "true" {
		t.Errorf("x-synchronous = %q, want true", gotSync)
	}
	if gotBody.Query != "what is this" || gotBody.MaxTokens != 512 {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestResourceShowParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/kb/kb-123/resource/r1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query()["show"]; len(got) != 3 {
			t.Errorf("show params = %v, want [basic values origin]", got)
		}
		w.Write([]byte(`{"id": "r1", "title": "Doc", "icon": "application/pdf"}`))
	}))

	res, err := client.Resource(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Resource() error = %v", err)
	}
	if res.Title != "Doc" || res.Icon != "application/pdf" {
		t.Errorf("resource = %+v", res)
	}
}

func TestResourceBackfillsID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"title": "No id in body"}`))
	}))

	res, err := client.Resource(context.Background(), "r9")
	if err != nil {
		t.Fatalf("Resource() error = %v", err)
	}
	if res.ID != "r9" {
		t.Errorf("ID = %q, want backfilled r9", res.ID)
	}
}

func TestTemporaryDownloadURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/kb/kb-123/resource/r1/file/f1/temporary-url" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("ttl"); got != "3600" {
			t.Errorf("ttl = %q, want 3600", got)
		}
		w.Write([]byte(`{"url": "https://cdn.example.com/signed", "ttl": 3600}`))
	}))

	u, err := client.TemporaryDownloadURL(context.Background(), "r1", "f1", 3600)
	if err != nil {
		t.Fatalf("TemporaryDownloadURL() error = %v", err)
	}
	if u != "https://cdn.example.com/signed" {
		t.Errorf("url = %q", u)
	}
}

func TestTemporaryDownloadURLEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"url": ""}`))
	}))

	_, err := client.TemporaryDownloadURL(context.Background(), "r1", "f1", 3600)
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("error = %v, want %v", err, ErrCredential)
	}
}

func TestKBURLEscapesSegments(t *testing.T) {
	client, err := New(Config{BaseURL: "http://x/api/v1", KBID: "kb/../../etc", Token: "t"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	u := client.kbURL("resource", "a/b")
	if u != "http://x/api/v1/kb/kb%2F..%2F..%2Fetc/resource/a%2Fb" {
		t.Errorf("kbURL = %q", u)
	}
}

func TestUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client, err := New(Config{BaseURL: srv.URL, KBID: "kb", Token: "t"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = client.Search(context.Background(), "q", SearchOptions{})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want %v", err, ErrUpstreamUnavailable)
	}
}
