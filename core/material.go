package core

import "time"

// MaterialType identifies the kind of teaching material.
type MaterialType string

const (
	MaterialLessonPlan      MaterialType = "lesson-plan"
	MaterialSlideDeck       MaterialType = "slide-deck"
	MaterialActivity        MaterialType = "activity"
	MaterialAssessment      MaterialType = "assessment"
	MaterialSupportDocument MaterialType = "support-document"
)

// MaterialTypes lists every supported material type.
var MaterialTypes = []MaterialType{
	MaterialLessonPlan,
	MaterialSlideDeck,
	MaterialActivity,
	MaterialAssessment,
	MaterialSupportDocument,
}

// Valid reports whether t is one of MaterialTypes.
func (t MaterialType) Valid() bool {
	for _, mt := range MaterialTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// IsQuestionSet reports whether materials of type t carry a QuestionSet.
func (t MaterialType) IsQuestionSet() bool {
	return t == MaterialActivity || t == MaterialAssessment
}

// Material is a type-tagged material: exactly one of the content pointers
// is set, the one matching Type.
type Material struct {
	Type        MaterialType `json:"type"`
	Title       string       `json:"title"`
	Subject     string       `json:"subject,omitempty"`
	Grade       string       `json:"grade,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	Teacher     string       `json:"teacher,omitempty"`
	School      string       `json:"school,omitempty"`
	GeneratedAt time.Time    `json:"generatedAt"`

	LessonPlan      *LessonPlan      `json:"lessonPlan,omitempty"`
	QuestionSet     *QuestionSet     `json:"questionSet,omitempty"`
	SlideDeck       *SlideDeck       `json:"slideDeck,omitempty"`
	SupportDocument *SupportDocument `json:"supportDocument,omitempty"`
}

// LessonPlan is the content of a lesson-plan material.
type LessonPlan struct {
	Duration    string            `json:"duration,omitempty"`
	BNCC        []string          `json:"bncc,omitempty"`
	Objectives  []string          `json:"objectives"`
	Skills      []string          `json:"skills,omitempty"`
	Development []DevelopmentStep `json:"development"`
	Resources   []string          `json:"resources"`
	Methodology string            `json:"methodology,omitempty"`
	Assessment  string            `json:"assessment"`
}

// DevelopmentStep is one row of the lesson development table.
type DevelopmentStep struct {
	Stage     string `json:"stage"`
	Activity  string `json:"activity"`
	Duration  string `json:"duration"`
	Resources string `json:"resources"`
}

// QuestionSet is the content of activity and assessment materials.
type QuestionSet struct {
	Instructions string     `json:"instructions"`
	Questions    []Question `json:"questions"`
}

// QuestionKind tags the Question variant.
type QuestionKind string

const (
	QuestionMultipleChoice QuestionKind = "multiple-choice"
	QuestionTrueFalse      QuestionKind = "true-false"
	QuestionFillBlank      QuestionKind = "fill-blank"
	QuestionMatching       QuestionKind = "matching"
	QuestionOpen           QuestionKind = "open"
	QuestionDrawing        QuestionKind = "drawing"
)

// QuestionKinds lists every supported question kind.
var QuestionKinds = []QuestionKind{
	QuestionMultipleChoice,
	QuestionTrueFalse,
	QuestionFillBlank,
	QuestionMatching,
	QuestionOpen,
	QuestionDrawing,
}

// Valid reports whether k is one of QuestionKinds.
func (k QuestionKind) Valid() bool {
	for _, qk := range QuestionKinds {
		if k == qk {
			return true
		}
	}
	return false
}

// Question is a single question of a QuestionSet. Which fields are
// meaningful depends on Kind:
//   - multiple-choice: Options (exactly 4)
//   - true-false: Options holds the statements to judge (may be empty)
//   - matching: ColumnA and ColumnB (exactly 4 each)
//   - open: Lines answer lines
//   - drawing, fill-blank: Prompt only
type Question struct {
	Number  int          `json:"number"`
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	ColumnA []string     `json:"columnA,omitempty"`
	ColumnB []string     `json:"columnB,omitempty"`
	Answer  string       `json:"answer,omitempty"`
	Lines   int          `json:"lines,omitempty"`
	Image   string       `json:"image,omitempty"`
}

// SlideDeck is the content of a slide-deck material.
type SlideDeck struct {
	Slides []Slide `json:"slides"`
}

// Slide is one fixed-size slide.
type Slide struct {
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Bullets     []string  `json:"bullets,omitempty"`
	ImagePrompt string    `json:"imagePrompt,omitempty"`
	Image       *ImageRef `json:"image,omitempty"`
}

// ImageRef points at a slide image. Src is a URL or a data URI; a
// Placeholder reference stands in for an image that could not be produced.
type ImageRef struct {
	Src         string `json:"src,omitempty"`
	Alt         string `json:"alt,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// SupportDocument is either a list of named sections or a single
// pre-rendered content block. Bodies are sanitised HTML.
type SupportDocument struct {
	Sections []SupportSection `json:"sections,omitempty"`
	Content  string           `json:"content,omitempty"`
}

// SupportSection is a named section of a support document.
type SupportSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Warning is a non-blocking finding of normalisation or validation.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}

// ValidationReport is the result of validating a question set.
type ValidationReport struct {
	Valid    bool      `json:"valid"`
	Errors   []Warning `json:"errors"`
	Warnings []Warning `json:"warnings"`
}
