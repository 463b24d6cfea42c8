package source

import (
	"testing"

	"github.com/sabio-ai/sabio/internal/kb"
)

func fileResource(files map[string]kb.FileField) *kb.Resource {
	return &kb.Resource{
		ID:    "r1",
		Title: "Doc.pdf",
		Icon:  "application/pdf",
		Data:  kb.ResourceData{Files: files},
	}
}

func TestExtractFiles(t *testing.T) {
	res := fileResource(map[string]kb.FileField{
		"f2": {Value: kb.FileFieldValue{File: kb.FilePayload{
			ContentType: "application/pdf",
			Size:        4956786,
			Filename:    "Doc.pdf",
		}}},
		"f1": {Value: kb.FileFieldValue{File: kb.FilePayload{
			ContentType: "application/vnd.ms-excel",
			Size:        1024,
			Filename:    "Sheet.xls",
		}}},
	})

	got := ExtractFiles(res)
	if len(got) != 2 {
		t.Fatalf("ExtractFiles() returned %d descriptors, want 2", len(got))
	}

	// Sorted file-id order keeps results consistent within a response.
	if got[0].FileID != "f1" || got[1].FileID != "f2" {
		t.Errorf("ExtractFiles() order = [%s %s], want [f1 f2]", got[0].FileID, got[1].FileID)
	}
	if got[1].Size != 4956786 {
		t.Errorf("Size = %d, want 4956786", got[1].Size)
	}
	if got[1].Filename != "Doc.pdf" {
		t.Errorf("Filename = %q, want %q", got[1].Filename, "Doc.pdf")
	}
}

func TestExtractFilesPartialMetadata(t *testing.T) {
	// A resource with partially-populated metadata must still surface a
	// usable descriptor.
	res := fileResource(map[string]kb.FileField{
		"f1": {}, // empty value block
	})

	got := ExtractFiles(res)
	if len(got) != 1 {
		t.Fatalf("ExtractFiles() returned %d descriptors, want 1", len(got))
	}
	if got[0].FileID != "f1" {
		t.Errorf("FileID = %q, want %q", got[0].FileID, "f1")
	}
	if got[0].ContentType != "" || got[0].Size != 0 || got[0].Filename != "" {
		t.Errorf("missing sub-fields should stay zero-valued, got %+v", got[0])
	}
}

func TestExtractFilesEmpty(t *testing.T) {
	if got := ExtractFiles(nil); got != nil {
		t.Errorf("ExtractFiles(nil) = %v, want nil", got)
	}
	if got := ExtractFiles(&kb.Resource{ID: "r1"}); got != nil {
		t.Errorf("ExtractFiles(no files) = %v, want nil", got)
	}
}

func TestFileDescriptorFlags(t *testing.T) {
	tests := []struct {
		contentType string
		isPDF       bool
		isExcel     bool
	}{
		{"application/pdf", true, false},
		{"Application/PDF", true, false},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", false, true},
		{"application/vnd.ms-EXCEL", false, true},
		{"text/plain", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		d := FileDescriptor{ContentType: tt.contentType}
		if got := d.IsPDF(); got != tt.isPDF {
			t.Errorf("IsPDF(%q) = %v, want %v", tt.contentType, got, tt.isPDF)
		}
		if got := d.IsExcel(); got != tt.isExcel {
			t.Errorf("IsExcel(%q) = %v, want %v", tt.contentType, got, tt.isExcel)
		}
	}
}
