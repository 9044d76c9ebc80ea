package core

// Template is a markup string with placeholders, iteration blocks and
// conditional blocks, bound to one material type. Templates are registered
// at process start and never mutated afterwards.
type Template struct {
	ID                string       `json:"id" yaml:"id" validate:"required"`
	MaterialType      MaterialType `json:"materialType" yaml:"materialType" validate:"required,oneof=lesson-plan slide-deck activity assessment support-document"`
	Markup            string       `json:"markup" yaml:"markup" validate:"required"`
	DeclaredVariables []string     `json:"declaredVariables" yaml:"declaredVariables"`
}

// Declares reports whether name is one of the template's declared variables.
func (t Template) Declares(name string) bool {
	for _, v := range t.DeclaredVariables {
		if v == name {
			return true
		}
	}
	return false
}

// PageFragment is the content of one page before it receives its frame.
type PageFragment struct {
	Ordinal         int      `json:"ordinal"` // 1-based
	IsFirst         bool     `json:"isFirst"`
	Blocks          []string `json:"blocks"` // opaque markup chunks, in order
	EstimatedHeight float64  `json:"estimatedHeight"`
}

// HeaderField is a labelled header entry. An empty Value is rendered as a
// blank line to be filled in by hand.
type HeaderField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PageHeader is the structured view of a composed page header.
type PageHeader struct {
	Brand  string        `json:"brand"`
	Title  string        `json:"title"`
	Fields []HeaderField `json:"fields,omitempty"`
}

// PageFooter is the structured view of a composed page footer.
type PageFooter struct {
	GeneratedAt string `json:"generatedAt,omitempty"`
	Label       string `json:"label"` // "Page N of T"
}

// ComposedPage is a fragment wrapped with its frame, ready for export.
// Markup is the complete frame markup; Header, Footer and Blocks are the
// same content in structured form for non-HTML backends.
type ComposedPage struct {
	Ordinal    int        `json:"ordinal"`
	TotalPages int        `json:"totalPages"`
	IsFirst    bool       `json:"isFirst"`
	Header     PageHeader `json:"header"`
	Footer     PageFooter `json:"footer"`
	Blocks     []string   `json:"blocks"`
	Markup     string     `json:"markup"`
}

// Format is an export target.
type Format string

const (
	FormatPrint    Format = "print"
	FormatWord     Format = "word"
	FormatSlide    Format = "slide"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every export target.
var Formats = []Format{FormatPrint, FormatWord, FormatSlide, FormatMarkdown, FormatJSON}

// Rendering is the output of the shared pipeline for one material. It is
// never mutated by export backends, so the same Rendering can be exported
// again (or to another format) without re-running the pipeline.
type Rendering struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"templateId"`
	Format     Format         `json:"format"` // layout the pages were paginated for
	Material   Material       `json:"material"`
	Markup     string         `json:"markup"` // compiled, unpaginated markup
	Pages      []ComposedPage `json:"pages"`
}

// Artifact is an exported file.
type Artifact struct {
	Format      Format
	Extension   string
	ContentType string
	Data        []byte
}
