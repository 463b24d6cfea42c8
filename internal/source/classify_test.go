package source

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		icon string
		want Classification
	}{
		{"pdf file", "application/pdf", File},
		{"excel file", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", File},
		{"generic application", "application/octet-stream", File},
		{"link sentinel", "application/stf-link", Link},
		{"empty icon", "", Other},
		{"image icon", "image/png", Other},
		{"text icon", "text/plain", Other},
		{"application substring not prefix", "x-application/pdf", Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.icon); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.icon, got, tt.want)
			}
		})
	}
}

func TestClassificationString(t *testing.T) {
	if got := File.String(); got != "file" {
		t.Errorf("File.String() = %q, want %q", got, "file")
	}
	if got := Link.String(); got != "link" {
		t.Errorf("Link.String() = %q, want %q", got, "link")
	}
	if got := Other.String(); got != "other" {
		t.Errorf("Other.String() = %q, want %q", got, "other")
	}
}
