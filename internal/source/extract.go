package source

import (
	"sort"
	"strings"

	"github.com/sabio-ai/sabio/internal/kb"
)

// ExtractFiles walks a resource's file-field map and produces one
// descriptor per entry. Missing sub-fields stay zero-valued rather than
// failing; a partially-populated resource still yields usable
// descriptors, since the caller's primary guarantee is the download URL,
// not metadata completeness.
//
// Entries are returned in sorted file-id order so the result is
// consistent within a single response. No semantic ordering is promised
// beyond that.
func ExtractFiles(res *kb.Resource) []FileDescriptor {
	if res == nil || len(res.Data.Files) == 0 {
		return nil
	}

	ids := make([]string, 0, len(res.Data.Files))
	for id := range res.Data.Files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	descriptors := make([]FileDescriptor, 0, len(ids))
	for _, id := range ids {
		payload := res.Data.Files[id].Value.File
		descriptors = append(descriptors, FileDescriptor{
			FileID:      id,
			ContentType: payload.ContentType,
			Size:        payload.Size,
			Filename:    payload.Filename,
		})
	}
	return descriptors
}

// IsPDF reports whether the descriptor's content type marks a PDF.
// Unknown or empty content types report false.
func (d FileDescriptor) IsPDF() bool {
	return containsFold(d.ContentType, "pdf")
}

// IsExcel reports whether the descriptor's content type marks a
// spreadsheet (Excel or OOXML sheet formats).
func (d FileDescriptor) IsExcel() bool {
	return containsFold(d.ContentType, "sheet") || containsFold(d.ContentType, "excel")
}

// containsFold is a case-insensitive substring match.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
