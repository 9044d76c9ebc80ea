package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/render/docx"
)

const (
	blankRule  = "____________________"
	answerRule = "________________________________________________________________"
)

// blockTags are elements that start a new paragraph in the word document.
var blockTags = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "main": true, "figure": true, "ul": true, "ol": true,
	"li": true, "table": true, "thead": true, "tbody": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var spaceRun = regexp.MustCompile(`\s+`)

// WordRenderer writes a .docx document with one section per composed page.
// Header and footer come from the structured page fields; page content is
// rebuilt from the block markup.
type WordRenderer struct{}

var _ core.Renderer = (*WordRenderer)(nil)

// NewWordRenderer creates a WordRenderer.
func NewWordRenderer() *WordRenderer {
	return &WordRenderer{}
}

// Render converts every page into a document section.
func (r *WordRenderer) Render(ctx context.Context, doc *core.Rendering) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fail(core.FormatWord, fmt.Errorf("rendering %s has no pages", doc.ID))
	}

	out := &docx.Document{Title: doc.Material.Title}
	for _, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, fail(core.FormatWord, err)
		}
		sec := out.AddSection()
		sec.Add(wordHeader(p.Header, p.IsFirst)...)
		for _, block := range p.Blocks {
			ps, err := blockParagraphs(block)
			if err != nil {
				return nil, fail(core.FormatWord, fmt.Errorf("page %d: %w", p.Ordinal, err))
			}
			sec.Add(ps...)
		}
		sec.Add(wordFooter(p.Footer))
	}

	var buf bytes.Buffer
	if err := out.Encode(&buf); err != nil {
		return nil, fail(core.FormatWord, err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for word output.
func (r *WordRenderer) Extension() string {
	return ".docx"
}

// ContentType returns the MIME type of word output.
func (r *WordRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func wordHeader(h core.PageHeader, first bool) []docx.Paragraph {
	if !first {
		return []docx.Paragraph{{
			Style: docx.StyleHeader,
			Runs:  []docx.Run{{Text: h.Brand, Bold: true}, {Text: " · " + h.Title}},
		}}
	}
	ps := []docx.Paragraph{
		{Style: docx.StyleHeader, Runs: []docx.Run{{Text: h.Brand, Bold: true}}},
		{Style: docx.StyleTitle, Align: docx.AlignCenter, Runs: []docx.Run{{Text: h.Title}}},
	}
	for _, f := range h.Fields {
		value := f.Value
		if value == "" {
			value = blankRule
		}
		ps = append(ps, docx.Paragraph{
			Style: docx.StyleHeader,
			Runs:  []docx.Run{{Text: f.Label + ": ", Bold: true}, {Text: value}},
		})
	}
	return ps
}

func wordFooter(f core.PageFooter) docx.Paragraph {
	text := f.Label
	if f.GeneratedAt != "" {
		text = "Generated on " + f.GeneratedAt + "    " + f.Label
	}
	return docx.Paragraph{Style: docx.StyleFooter, Align: docx.AlignRight, Runs: []docx.Run{{Text: text}}}
}

// blockParagraphs rebuilds one block of page markup as word paragraphs.
func blockParagraphs(markup string) ([]docx.Paragraph, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing block: %w", err)
	}
	var out []docx.Paragraph
	walkBlock(doc.Find("body"), &out)
	return out, nil
}

func walkBlock(sel *goquery.Selection, out *[]docx.Paragraph) {
	var loose []docx.Run
	emit := func(style, align string, runs []docx.Run) {
		if p, ok := paragraph(style, align, runs); ok {
			*out = append(*out, p)
		}
	}
	flush := func() {
		emit(docx.StyleNormal, "", loose)
		loose = nil
	}

	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case c.HasClass("answer-line"):
			flush()
			*out = append(*out, docx.Text(docx.StyleAnswer, answerRule))
		case c.HasClass("drawing-box"):
			flush()
			*out = append(*out, docx.Paragraph{
				Style: docx.StyleNormal,
				Align: docx.AlignCenter,
				Runs:  []docx.Run{{Text: "[drawing area]", Italic: true}, {Break: true}, {Break: true}, {Break: true}, {Break: true}, {Break: true}},
			})
		case name == "h1":
			flush()
			emit(docx.StyleHeading1, "", inlineRuns(c, docx.Run{}, nil))
		case name == "h2" || name == "h3" || name == "h4" || name == "h5" || name == "h6":
			flush()
			emit(docx.StyleHeading2, "", inlineRuns(c, docx.Run{}, nil))
		case name == "li":
			flush()
			emit(docx.StyleListItem, "", inlineRuns(c, docx.Run{}, nil))
		case name == "tr":
			flush()
			emit(docx.StyleNormal, "", rowRuns(c))
		case name == "img":
			flush()
			emit(docx.StyleNormal, docx.AlignCenter, []docx.Run{imageRun(c)})
		case blockTags[name]:
			flush()
			if hasBlockChild(c) {
				walkBlock(c, out)
			} else {
				emit(docx.StyleNormal, "", inlineRuns(c, docx.Run{}, nil))
			}
		default:
			loose = nodeRuns(c, docx.Run{}, loose)
		}
	})
	flush()
}

func hasBlockChild(sel *goquery.Selection) bool {
	return sel.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return blockTags[goquery.NodeName(c)] || goquery.NodeName(c) == "img" ||
			c.HasClass("answer-line") || c.HasClass("drawing-box")
	}).Length() > 0
}

func inlineRuns(sel *goquery.Selection, format docx.Run, runs []docx.Run) []docx.Run {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		runs = nodeRuns(c, format, runs)
	})
	return runs
}

// nodeRuns appends the runs of a single inline node, inheriting format.
func nodeRuns(c *goquery.Selection, format docx.Run, runs []docx.Run) []docx.Run {
	switch goquery.NodeName(c) {
	case "#text":
		if t := spaceRun.ReplaceAllString(c.Text(), " "); t != "" {
			r := format
			r.Text = t
			runs = append(runs, r)
		}
	case "#comment", "script", "style":
	case "br":
		runs = append(runs, docx.Run{Break: true})
	case "img":
		runs = append(runs, imageRun(c))
	case "strong", "b":
		f := format
		f.Bold = true
		runs = inlineRuns(c, f, runs)
	case "em", "i":
		f := format
		f.Italic = true
		runs = inlineRuns(c, f, runs)
	case "u":
		f := format
		f.Underline = true
		runs = inlineRuns(c, f, runs)
	default:
		runs = inlineRuns(c, format, runs)
	}
	return runs
}

func rowRuns(tr *goquery.Selection) []docx.Run {
	var runs []docx.Run
	tr.Children().Each(func(i int, cell *goquery.Selection) {
		if i > 0 {
			runs = append(runs, docx.Run{Text: " | "})
		}
		format := docx.Run{Bold: goquery.NodeName(cell) == "th"}
		cellRuns := inlineRuns(cell, format, nil)
		if len(cellRuns) == 0 {
			cellRuns = []docx.Run{{Text: blankRule}}
		}
		runs = append(runs, cellRuns...)
	})
	return runs
}

func imageRun(img *goquery.Selection) docx.Run {
	alt := strings.TrimSpace(img.AttrOr("alt", ""))
	if alt == "" {
		return docx.Run{Text: "[image]", Italic: true}
	}
	return docx.Run{Text: "[image: " + alt + "]", Italic: true}
}

// paragraph trims the outer whitespace of runs and drops the paragraph
// when no text remains.
func paragraph(style, align string, runs []docx.Run) (docx.Paragraph, bool) {
	var kept []docx.Run
	for _, r := range runs {
		if r.Break {
			kept = append(kept, r)
			continue
		}
		if len(kept) == 0 || kept[len(kept)-1].Break || strings.HasSuffix(kept[len(kept)-1].Text, " ") {
			r.Text = strings.TrimLeft(r.Text, " ")
		}
		if r.Text != "" {
			kept = append(kept, r)
		}
	}
	for len(kept) > 0 {
		last := &kept[len(kept)-1]
		if last.Break {
			kept = kept[:len(kept)-1]
			continue
		}
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		kept = kept[:len(kept)-1]
	}
	if len(kept) == 0 {
		return docx.Paragraph{}, false
	}
	return docx.Paragraph{Style: style, Align: align, Runs: kept}, true
}
