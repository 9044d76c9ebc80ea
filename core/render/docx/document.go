// Package docx is a minimal WordprocessingML writer: a document is a list
// of sections, each a list of paragraphs made of formatted runs. Sections
// are separated by explicit page breaks.
package docx

// Paragraph styles defined in styles.xml.
const (
	StyleNormal    = "Normal"
	StyleTitle     = "Title"
	StyleHeading1  = "Heading1"
	StyleHeading2  = "Heading2"
	StyleListItem  = "ListParagraph"
	StyleHeader    = "PageHeader"
	StyleFooter    = "PageFooter"
	StyleAnswer    = "AnswerLine"
	StyleSlideBody = "SlideBody"
)

// Paragraph alignments.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
	AlignBoth   = "both"
)

// Document is the object graph of a word-processor document.
type Document struct {
	Title    string
	Sections []Section
}

// Section is one printed page worth of paragraphs.
type Section struct {
	Paragraphs []Paragraph
}

// Paragraph is a styled sequence of runs.
type Paragraph struct {
	Style string
	Align string
	Runs  []Run
}

// Run is a span of uniformly formatted text. A Run with Break set is a
// line break and carries no text.
type Run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Break     bool
}

// Text returns a paragraph holding a single plain run.
func Text(style, text string) Paragraph {
	return Paragraph{Style: style, Runs: []Run{{Text: text}}}
}

// PlainText concatenates the text of every run.
func (p Paragraph) PlainText() string {
	var out []byte
	for _, r := range p.Runs {
		if r.Break {
			out = append(out, '\n')
			continue
		}
		out = append(out, r.Text...)
	}
	return string(out)
}

// AddSection appends a section and returns a pointer to it.
func (d *Document) AddSection() *Section {
	d.Sections = append(d.Sections, Section{})
	return &d.Sections[len(d.Sections)-1]
}

// Add appends paragraphs to the section.
func (s *Section) Add(ps ...Paragraph) {
	s.Paragraphs = append(s.Paragraphs, ps...)
}
