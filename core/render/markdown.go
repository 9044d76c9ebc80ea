package render

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/medtosdigital/aulagia/core"
)

// pageSeparator is the thematic break written between pages.
const pageSeparator = "\n\n---\n\n"

// MarkdownRenderer converts the composed pages to Markdown, one section per
// page separated by thematic breaks.
type MarkdownRenderer struct{}

var _ core.Renderer = (*MarkdownRenderer)(nil)

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render converts the block markup of every page, framed by a Markdown
// header and footer.
func (r *MarkdownRenderer) Render(ctx context.Context, doc *core.Rendering) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fail(core.FormatMarkdown, fmt.Errorf("rendering %s has no pages", doc.ID))
	}
	pages := make([]string, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, fail(core.FormatMarkdown, err)
		}
		body, err := htmltomarkdown.ConvertString(strings.Join(p.Blocks, "\n"))
		if err != nil {
			return nil, fail(core.FormatMarkdown, fmt.Errorf("page %d: %w", p.Ordinal, err))
		}

		var b strings.Builder
		if p.IsFirst {
			fmt.Fprintf(&b, "# %s\n\n", p.Header.Title)
			for _, f := range p.Header.Fields {
				value := f.Value
				if value == "" {
					value = blankRule
				}
				fmt.Fprintf(&b, "**%s:** %s  \n", f.Label, value)
			}
			if len(p.Header.Fields) > 0 {
				b.WriteString("\n")
			}
		}
		b.WriteString(strings.TrimSpace(body))
		fmt.Fprintf(&b, "\n\n_%s_", p.Footer.Label)
		pages = append(pages, b.String())
	}
	return []byte(strings.Join(pages, pageSeparator) + "\n"), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// ContentType returns the MIME type of Markdown output.
func (r *MarkdownRenderer) ContentType() string {
	return "text/markdown; charset=utf-8"
}
