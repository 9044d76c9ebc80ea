package render

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"strings"

	"github.com/medtosdigital/aulagia/core"
)

//go:embed assets/print.css
var printCSS string

// landscapeCSS switches the printed page box for slide decks.
const landscapeCSS = `@page { size: A4 landscape; }`

// HTMLRenderer produces a self-contained print-ready HTML document: the
// composed pages plus embedded pagination CSS and print-media rules.
type HTMLRenderer struct{}

var _ core.Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render writes every composed page into one HTML document.
func (r *HTMLRenderer) Render(ctx context.Context, doc *core.Rendering) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(core.FormatPrint, err)
	}
	if len(doc.Pages) == 0 {
		return nil, fail(core.FormatPrint, fmt.Errorf("rendering %s has no pages", doc.ID))
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(doc.Material.Title))
	b.WriteString("<style>\n")
	b.WriteString(printCSS)
	if doc.Material.Type == core.MaterialSlideDeck {
		b.WriteString(landscapeCSS)
		b.WriteString("\n")
	}
	b.WriteString("</style>\n</head>\n")
	fmt.Fprintf(&b, "<body class=\"material-%s\">\n", html.EscapeString(string(doc.Material.Type)))
	for _, p := range doc.Pages {
		b.WriteString(p.Markup)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String()), nil
}

// Extension returns the file extension for print output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// ContentType returns the MIME type of print output.
func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}
