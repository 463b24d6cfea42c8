package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
)

type fakeDownloader struct {
	dl  *kb.Download
	err error
}

func (f *fakeDownloader) DownloadFile(context.Context, string, string) (*kb.Download, error) {
	return f.dl, f.err
}

func fakeDownload(body, contentType, filename string) *kb.Download {
	return &kb.Download{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentType:   contentType,
		ContentLength: int64(len(body)),
		Filename:      filename,
	}
}

func doDownload(t *testing.T, h *downloadHandler, rid, fid string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/download/"+rid+"/"+fid, nil)
	req.SetPathValue("resource_id", rid)
	req.SetPathValue("file_id", fid)
	rec := httptest.NewRecorder()
	h.download(rec, req)
	return rec
}

func TestDownloadRelaysStream(t *testing.T) {
	h := &downloadHandler{
		kb:     &fakeDownloader{dl: fakeDownload("pdf bytes here", "application/pdf", "handbook.pdf")},
		logger: log.NewNop(),
	}

	rec := doDownload(t, h, "r1", "f1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="handbook.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != downloadCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "14" {
		t.Errorf("Content-Length = %q", got)
	}
	if rec.Body.String() != "pdf bytes here" {
		t.Errorf("body = %q", rec.Body)
	}
}

func TestDownloadOmitsUnknownLength(t *testing.T) {
	dl := fakeDownload("stream", "application/octet-stream", "")
	dl.ContentLength = -1
	h := &downloadHandler{kb: &fakeDownloader{dl: dl}, logger: log.NewNop()}

	rec := doDownload(t, h, "r1", "f1")

	if got := rec.Header().Get("Content-Length"); got != "" {
		t.Errorf("Content-Length = %q, want unset", got)
	}
}

func TestDownloadSyntheticFilename(t *testing.T) {
	h := &downloadHandler{
		kb:     &fakeDownloader{dl: fakeDownload("x", "application/octet-stream", "")},
		logger: log.NewNop(),
	}

	rec := doDownload(t, h, "r1", "f1")

	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="r1_f1"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestDownloadNotFound(t *testing.T) {
	h := &downloadHandler{kb: &fakeDownloader{err: kb.ErrResourceNotFound}, logger: log.NewNop()}

	rec := doDownload(t, h, "r1", "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_found") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestDownloadUpstreamFailure(t *testing.T) {
	h := &downloadHandler{kb: &fakeDownloader{err: kb.ErrUpstreamUnavailable}, logger: log.NewNop()}

	rec := doDownload(t, h, "r1", "f1")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upstream_unavailable") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", `attachment; filename="report.pdf"`},
		{`quo"te.pdf`, `attachment; filename="quote.pdf"`},
		{"new\nline.txt", `attachment; filename="newline.txt"`},
		{"", `attachment; filename="rid_fid"`},
	}
	for _, tt := range tests {
		if got := contentDisposition(tt.filename, "rid", "fid"); got != tt.want {
			t.Errorf("contentDisposition(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
