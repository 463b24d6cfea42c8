package source

import (
	"encoding/json"
	"fmt"

	"github.com/sabio-ai/sabio/internal/kb"
)

// Candidate is one passage/resource pair in the normalized internal
// representation both upstream shapes map into.
type Candidate struct {
	Paragraph kb.Paragraph
	Resource  kb.Resource // basic info from the response; zero when absent
}

// envelope is the tagged-union view of the two upstream response shapes.
// Shape is detected once at ingestion; nothing downstream branches on it.
type envelope struct {
	// Generative ask replies nest the retrieval payload.
	RawResponse      *envelope `json:"raw_response,omitempty"`
	RetrievalResults *envelope `json:"retrieval_results,omitempty"`

	// Some ask variants return a flat result list instead.
	Retrieval *struct {
		Results []flatResult `json:"results"`
	} `json:"retrieval,omitempty"`

	// Direct search shape: paragraphs plus a resource map.
	Paragraphs *struct {
		Results []kb.Paragraph `json:"results"`
	} `json:"paragraphs,omitempty"`
	Resources map[string]kb.Resource `json:"resources,omitempty"`
}

// flatResult is one entry of the flat retrieval list. It carries the
// resource title inline instead of referencing a resource map.
type flatResult struct {
	RID   string  `json:"rid"`
	Field string  `json:"field"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
}

// Candidates parses a raw search or ask response into the ordered
// candidate list, preserving upstream order. Both upstream shapes
// normalize here; an unrecognized but valid JSON object yields an empty
// list, not an error.
func Candidates(raw []byte) ([]Candidate, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return env.candidates(), nil
}

func (e *envelope) candidates() []Candidate {
	if e == nil {
		return nil
	}

	// Nested payloads take precedence: a response that wraps
	// retrieval_results is the ask shape even if it also carries
	// top-level fields.
	if e.RawResponse != nil {
		if out := e.RawResponse.candidates(); out != nil {
			return out
		}
	}
	if e.RetrievalResults != nil {
		if out := e.RetrievalResults.candidates(); out != nil {
			return out
		}
	}

	if e.Paragraphs != nil {
		out := make([]Candidate, 0, len(e.Paragraphs.Results))
		for _, p := range e.Paragraphs.Results {
			c := Candidate{Paragraph: p}
			if res, ok := e.Resources[p.RID]; ok {
				c.Resource = res
			}
			out = append(out, c)
		}
		return out
	}

	if e.Retrieval != nil {
		out := make([]Candidate, 0, len(e.Retrieval.Results))
		for _, r := range e.Retrieval.Results {
			out = append(out, Candidate{
				Paragraph: kb.Paragraph{
					RID:   r.RID,
					Field: r.Field,
					Text:  r.Text,
					Score: r.Score,
				},
				Resource: kb.Resource{ID: r.RID, Title: r.Title},
			})
		}
		return out
	}

	return nil
}
