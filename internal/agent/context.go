package agent

import (
	"fmt"
	"strings"

	"github.com/sabio-ai/sabio/internal/source"
)

// blockSeparator keeps retrieved passages visually distinct in the
// prompt context.
const blockSeparator = "\n\n---\n\n"

// BuildContext renders retrieved passages into the context block handed
// to the LLM. Passages below minScore or with empty text are skipped,
// and at most maxChunks passages are included, in upstream order. Each
// block is prefixed with a metadata header (document title, page number)
// when available, so the model can cite its sources.
func BuildContext(candidates []source.Candidate, maxChunks int, minScore float64) string {
	var blocks []string

	for _, c := range candidates {
		if maxChunks > 0 && len(blocks) >= maxChunks {
			break
		}
		if c.Paragraph.Score < minScore {
			continue
		}
		text := strings.TrimSpace(c.Paragraph.Text)
		if text == "" {
			continue
		}

		header := contextHeader(c)
		if header != "" {
			blocks = append(blocks, header+"\n"+text)
		} else {
			blocks = append(blocks, text)
		}
	}

	return strings.Join(blocks, blockSeparator)
}

// contextHeader builds the metadata line for one passage. Returns ""
// when nothing useful is known about the passage's origin.
func contextHeader(c source.Candidate) string {
	var parts []string

	switch {
	case c.Resource.Title != "":
		parts = append(parts, c.Resource.Title)
	case c.Paragraph.Field != "":
		parts = append(parts, "Source: "+c.Paragraph.Field)
	}

	if page := c.Paragraph.Position.PageNumber; page != nil {
		parts = append(parts, fmt.Sprintf("(page %d)", *page))
	}

	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}
