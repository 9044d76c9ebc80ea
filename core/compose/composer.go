// Package compose wraps page fragments with their frame: a header with the
// brand mark, title and material-specific fields, a footer with the
// generation timestamp and page label, and decorative background shapes.
package compose

import (
	"fmt"
	"html"
	"strings"

	"github.com/medtosdigital/aulagia/core"
)

// palette is the pair of decoration colours of a material type.
type palette struct {
	primary, secondary string
}

var palettes = map[core.MaterialType]palette{
	core.MaterialLessonPlan:      {"#2563EB", "#93C5FD"},
	core.MaterialActivity:        {"#059669", "#6EE7B7"},
	core.MaterialAssessment:      {"#7C3AED", "#C4B5FD"},
	core.MaterialSlideDeck:       {"#D97706", "#FCD34D"},
	core.MaterialSupportDocument: {"#DB2777", "#F9A8D4"},
}

var defaultPalette = palette{"#475569", "#CBD5E1"}

// Composer implements core.Composer.
type Composer struct {
	brand string
}

var _ core.Composer = (*Composer)(nil)

// New creates a Composer that stamps brand on every page.
func New(brand string) *Composer {
	return &Composer{brand: brand}
}

// Compose frames every fragment. The result depends only on the fragments,
// the material and the brand.
func (c *Composer) Compose(fragments []core.PageFragment, m core.Material) []core.ComposedPage {
	total := len(fragments)
	pages := make([]core.ComposedPage, 0, total)
	for i, f := range fragments {
		ordinal := i + 1
		page := core.ComposedPage{
			Ordinal:    ordinal,
			TotalPages: total,
			IsFirst:    ordinal == 1,
			Header:     c.header(m, ordinal == 1),
			Footer:     Footer(m, ordinal, total),
			Blocks:     append([]string(nil), f.Blocks...),
		}
		if m.Type == core.MaterialSlideDeck {
			page.Markup = slideFrame(page, m)
		} else {
			page.Markup = pageFrame(page, m)
		}
		pages = append(pages, page)
	}
	return pages
}

// header builds the full header for the first page and the compact
// brand-and-title header for continuation pages.
func (c *Composer) header(m core.Material, first bool) core.PageHeader {
	h := core.PageHeader{Brand: c.brand, Title: m.Title}
	if !first {
		return h
	}
	switch {
	case m.Type.IsQuestionSet():
		h.Fields = []core.HeaderField{
			{Label: "School", Value: m.School},
			{Label: "Name"},
			{Label: "Class"},
			{Label: "Date"},
		}
	case m.Type == core.MaterialLessonPlan:
		duration := ""
		if m.LessonPlan != nil {
			duration = m.LessonPlan.Duration
		}
		h.Fields = []core.HeaderField{
			{Label: "Teacher", Value: m.Teacher},
			{Label: "Subject", Value: m.Subject},
			{Label: "Grade", Value: m.Grade},
			{Label: "Duration", Value: duration},
		}
	case m.Type == core.MaterialSupportDocument:
		h.Fields = []core.HeaderField{
			{Label: "Subject", Value: m.Subject},
			{Label: "Grade", Value: m.Grade},
		}
	}
	return h
}

// Footer returns the footer of page ordinal out of total.
func Footer(m core.Material, ordinal, total int) core.PageFooter {
	return core.PageFooter{
		GeneratedAt: m.FormattedGeneratedAt(),
		Label:       fmt.Sprintf("Page %d of %d", ordinal, total),
	}
}

func parity(ordinal int) string {
	if ordinal%2 == 0 {
		return "even"
	}
	return "odd"
}

func paletteFor(mt core.MaterialType) palette {
	if p, ok := palettes[mt]; ok {
		return p
	}
	return defaultPalette
}

func pageFrame(p core.ComposedPage, m core.Material) string {
	pal := paletteFor(m.Type)
	var b strings.Builder

	fmt.Fprintf(&b, `<div class="page page-%s page-%s" data-page="%d" data-total="%d">`,
		html.EscapeString(string(m.Type)), parity(p.Ordinal), p.Ordinal, p.TotalPages)
	b.WriteString("\n")
	writeDecoration(&b, p.Ordinal, pal)

	headerClass := "page-header"
	if !p.IsFirst {
		headerClass += " page-header-compact"
	}
	fmt.Fprintf(&b, `<header class="%s" style="border-color:%s">`, headerClass, pal.primary)
	fmt.Fprintf(&b, `<div class="brand">%s</div>`, html.EscapeString(p.Header.Brand))
	fmt.Fprintf(&b, `<h1 class="page-title">%s</h1>`, html.EscapeString(p.Header.Title))
	if len(p.Header.Fields) > 0 {
		b.WriteString(`<div class="header-fields">`)
		for _, f := range p.Header.Fields {
			fmt.Fprintf(&b, `<span class="header-field"><span class="header-label">%s:</span> `, html.EscapeString(f.Label))
			if f.Value == "" {
				b.WriteString(`<span class="header-blank"></span>`)
			} else {
				fmt.Fprintf(&b, `<span class="header-value">%s</span>`, html.EscapeString(f.Value))
			}
			b.WriteString(`</span>`)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString("</header>\n")

	b.WriteString(`<main class="page-content">`)
	b.WriteString("\n")
	for _, block := range p.Blocks {
		b.WriteString(block)
		b.WriteString("\n")
	}
	b.WriteString("</main>\n")

	writeFooter(&b, p.Footer)
	b.WriteString("</div>")
	return b.String()
}

// slideFrame is the lighter frame of a slide: brand mark, content and the
// page label, no header fields.
func slideFrame(p core.ComposedPage, m core.Material) string {
	pal := paletteFor(m.Type)
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="page page-slide-deck page-%s" data-page="%d" data-total="%d" style="--accent:%s">`,
		parity(p.Ordinal), p.Ordinal, p.TotalPages, pal.primary)
	fmt.Fprintf(&b, `<div class="brand slide-brand">%s</div>`, html.EscapeString(p.Header.Brand))
	b.WriteString("\n")
	for _, block := range p.Blocks {
		b.WriteString(block)
		b.WriteString("\n")
	}
	writeFooter(&b, p.Footer)
	b.WriteString("</div>")
	return b.String()
}

// writeDecoration places two background shapes; odd pages put the large
// shape top-right, even pages mirror it to the bottom-left.
func writeDecoration(b *strings.Builder, ordinal int, pal palette) {
	large, small := "top-right", "bottom-left"
	if ordinal%2 == 0 {
		large, small = small, large
	}
	fmt.Fprintf(b, `<div class="page-decoration" aria-hidden="true">`+
		`<span class="shape shape-large shape-%s" style="background:%s"></span>`+
		`<span class="shape shape-small shape-%s" style="background:%s"></span>`+
		`</div>`, large, pal.secondary, small, pal.primary)
	b.WriteString("\n")
}

func writeFooter(b *strings.Builder, f core.PageFooter) {
	b.WriteString(`<footer class="page-footer">`)
	if f.GeneratedAt != "" {
		fmt.Fprintf(b, `<span class="generated-at">Generated on %s</span>`, html.EscapeString(f.GeneratedAt))
	}
	fmt.Fprintf(b, `<span class="page-number">%s</span>`, html.EscapeString(f.Label))
	b.WriteString("</footer>\n")
}
