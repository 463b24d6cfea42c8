package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
)

// downloadChunkSize bounds the relay buffer so a large file never gets
// materialized in memory.
const downloadChunkSize = 32 * 1024

// downloadCacheControl marks relayed bytes cacheable: file content for a
// given (resource, file) pair is treated as immutable for an hour.
const downloadCacheControl = "private, max-age=3600"

// fileDownloader opens a credentialed file stream. Implemented by kb.Client.
type fileDownloader interface {
	DownloadFile(ctx context.Context, resourceID, fileID string) (*kb.Download, error)
}

// downloadHandler is the streaming proxy for file downloads. It exists
// for sources whose download reference fell back to the proxy mechanism:
// the service credential is injected here, server-side, and never reaches
// the caller.
type downloadHandler struct {
	kb     fileDownloader
	logger log.Logger
}

// download handles GET /download/{resource_id}/{file_id}.
func (h *downloadHandler) download(w http.ResponseWriter, r *http.Request) {
	resourceID := r.PathValue("resource_id")
	fileID := r.PathValue("file_id")
	if resourceID == "" || fileID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "resource and file ids are required", h.logger)
		return
	}

	dl, err := h.kb.DownloadFile(r.Context(), resourceID, fileID)
	if err != nil {
		h.writeDownloadFailure(w, r, err)
		return
	}
	defer dl.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(dl.Filename, resourceID, fileID))
	w.Header().Set("Cache-Control", downloadCacheControl)
	if dl.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, downloadChunkSize)
	if _, err := io.CopyBuffer(w, dl.Body, buf); err != nil {
		// Headers are already out; all we can do is log. Client
		// disconnects land here too.
		h.logger.Debug("download relay interrupted",
			"resource_id", resourceID,
			"file_id", fileID,
			"error", err,
		)
	}
}

// writeDownloadFailure maps an upstream failure before any bytes were
// relayed.
func (h *downloadHandler) writeDownloadFailure(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFromContext(r.Context())

	switch {
	case errors.Is(err, kb.ErrResourceNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "file not found", h.logger)
	default:
		h.logger.Error("download failed", "error", err, "request_id", requestID)
		WriteError(w, http.StatusBadGateway, "upstream_unavailable",
			"error downloading the file", h.logger)
	}
}

// contentDisposition builds the attachment header, preferring the
// upstream filename and falling back to a synthetic one. Quotes and
// control characters are stripped to keep the header well-formed.
func contentDisposition(filename, resourceID, fileID string) string {
	if filename == "" {
		filename = resourceID + "_" + fileID
	}
	filename = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return -1
		}
		return r
	}, filename)
	return fmt.Sprintf("attachment; filename=%q", filename)
}
