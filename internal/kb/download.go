package kb

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// Download is an open file stream from the knowledge box. The caller must
// Close the body. Body reads are bounded by the client's stream timeout.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when the service did not report a length
	Filename      string

	cancel context.CancelFunc
}

// Close releases the underlying connection and the stream deadline.
// Safe on Downloads constructed without a deadline, as test fakes are.
func (d *Download) Close() error {
	if d.cancel != nil {
		defer d.cancel()
	}
	return d.Body.Close()
}

// DownloadFile opens a credentialed stream for one file of a resource.
// The body is not buffered; bytes flow through as the caller reads them.
func (c *Client) DownloadFile(ctx context.Context, resourceID, fileID string) (*Download, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Stream)

	u := c.kbURL("resource", resourceID, "file", fileID, "download")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %s/%s: creating request: %w", resourceID, fileID, err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %s/%s: %w: %v", resourceID, fileID, ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("download %s/%s: %w", resourceID, fileID, statusError(resp.StatusCode, body))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.logger.Debug("kb download stream opened",
		"resource_id", resourceID,
		"file_id", fileID,
		"content_type", contentType,
		"elapsed", time.Since(start),
	)

	return &Download{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Filename:      filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		cancel:        cancel,
	}, nil
}

// filenameFromDisposition extracts the filename parameter of a
// Content-Disposition header. Returns "" when absent or unparseable.
func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
