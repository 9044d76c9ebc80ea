// Package normalize repairs loosely typed material content into the
// canonical model. Malformed input is never an error: defects are fixed
// locally with placeholder values and reported as warnings. Input maps
// are only read, never modified.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medtosdigital/aulagia/core"
)

// PendingSuffix ends every placeholder text.
const PendingSuffix = "– pending content"

const (
	choiceCount   = 4
	matchingCount = 4
	defaultLines  = 5
	maxLines      = 20
)

var (
	kindAliases    = []string{"kind", "type", "tipo", "questionType", "tipo_questao"}
	promptAliases  = []string{"prompt", "question", "text", "statement", "enunciado", "pergunta", "texto"}
	optionAliases  = []string{"options", "alternatives", "choices", "opcoes", "alternativas", "statements", "afirmativas"}
	columnAAliases = []string{"columnA", "colA", "column_a", "colunaA", "coluna_a", "left"}
	columnBAliases = []string{"columnB", "colB", "column_b", "colunaB", "coluna_b", "right"}
	pairAliases    = []string{"pairs", "pares"}
	answerAliases  = []string{"answer", "correctAnswer", "correct_answer", "resposta", "resposta_correta", "gabarito"}
	linesAliases   = []string{"lines", "answerLines", "linhas"}
	imageAliases   = []string{"image", "imageUrl", "imagem", "diagram", "figura"}
)

// kindTags maps folded type tags to question kinds.
var kindTags = map[string]core.QuestionKind{
	"multiple-choice":     core.QuestionMultipleChoice,
	"multiplechoice":      core.QuestionMultipleChoice,
	"multipla-escolha":    core.QuestionMultipleChoice,
	"multipla":            core.QuestionMultipleChoice,
	"objetiva":            core.QuestionMultipleChoice,
	"mc":                  core.QuestionMultipleChoice,
	"true-false":          core.QuestionTrueFalse,
	"truefalse":           core.QuestionTrueFalse,
	"true-or-false":       core.QuestionTrueFalse,
	"verdadeiro-falso":    core.QuestionTrueFalse,
	"verdadeiro-ou-falso": core.QuestionTrueFalse,
	"v-f":                 core.QuestionTrueFalse,
	"vf":                  core.QuestionTrueFalse,
	"fill-blank":          core.QuestionFillBlank,
	"fill-in-the-blank":   core.QuestionFillBlank,
	"completar":           core.QuestionFillBlank,
	"lacuna":              core.QuestionFillBlank,
	"lacunas":             core.QuestionFillBlank,
	"preencher-lacunas":   core.QuestionFillBlank,
	"matching":            core.QuestionMatching,
	"ligar":               core.QuestionMatching,
	"ligar-colunas":       core.QuestionMatching,
	"associacao":          core.QuestionMatching,
	"associar":            core.QuestionMatching,
	"relacionar":          core.QuestionMatching,
	"correspondencia":     core.QuestionMatching,
	"open":                core.QuestionOpen,
	"essay":               core.QuestionOpen,
	"aberta":              core.QuestionOpen,
	"dissertativa":        core.QuestionOpen,
	"discursiva":          core.QuestionOpen,
	"drawing":             core.QuestionDrawing,
	"desenho":             core.QuestionDrawing,
	"desenhar":            core.QuestionDrawing,
}

// letterPrefix matches option labels such as "a)", "B.", "(c)", "d:" and
// "e - " at the start of an option.
var letterPrefix = regexp.MustCompile(`^\s*(?:\([A-Ea-e]\)|[A-Ea-e]\s*[\).:]|[A-Ea-e]\s+[-–])\s*`)

// Kind resolves a raw type tag. ok is false for unknown tags.
func Kind(tag string) (core.QuestionKind, bool) {
	k, ok := kindTags[fold(tag)]
	return k, ok
}

// StripLetterPrefix removes a leading option label.
func StripLetterPrefix(s string) string {
	return strings.TrimSpace(letterPrefix.ReplaceAllString(s, ""))
}

// OptionPlaceholder is the text of the i-th (0-based) missing option.
func OptionPlaceholder(i int) string {
	return fmt.Sprintf("Option %c %s", 'A'+i, PendingSuffix)
}

// PromptPlaceholder is the prompt of question number n when missing.
func PromptPlaceholder(n int) string {
	return fmt.Sprintf("Question %d %s", n, PendingSuffix)
}

func columnPlaceholder(label string, i int) string {
	return fmt.Sprintf("%s %d %s", label, i+1, PendingSuffix)
}

// Question normalizes the raw question at index (0-based) of its set.
func Question(raw map[string]any, index int) (core.Question, []core.Warning) {
	path := fmt.Sprintf("questions[%d]", index)
	var warnings []core.Warning
	warn := func(format string, args ...any) {
		warnings = append(warnings, core.Warning{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	q := core.Question{Number: index + 1}

	tag := str(raw, kindAliases...)
	kind, ok := Kind(tag)
	if !ok {
		if tag == "" {
			warn("missing question type, using multiple-choice")
		} else {
			warn("unknown question type %q, using multiple-choice", tag)
		}
		kind = core.QuestionMultipleChoice
	}
	q.Kind = kind

	q.Prompt = str(raw, promptAliases...)
	if q.Prompt == "" {
		q.Prompt = PromptPlaceholder(q.Number)
		warn("missing prompt")
	}
	q.Answer = str(raw, answerAliases...)
	q.Image = str(raw, imageAliases...)

	switch kind {
	case core.QuestionMultipleChoice:
		opts, _ := list(raw, optionAliases...)
		q.Options, warnings = choices(opts, path, warnings)
	case core.QuestionTrueFalse:
		opts, _ := list(raw, optionAliases...)
		for _, o := range opts {
			if o != "" {
				q.Options = append(q.Options, o)
			}
		}
	case core.QuestionMatching:
		colA, okA := list(raw, columnAAliases...)
		colB, okB := list(raw, columnBAliases...)
		if !okA && !okB {
			colA, colB = pairs(raw)
		}
		q.ColumnA, warnings = column(colA, "Item", path+".columnA", warnings)
		q.ColumnB, warnings = column(colB, "Match", path+".columnB", warnings)
	case core.QuestionOpen:
		q.Lines = defaultLines
		if n, ok := integer(raw, linesAliases...); ok && n > 0 {
			q.Lines = n
			if n > maxLines {
				q.Lines = maxLines
				warn("%d answer lines capped at %d", n, maxLines)
			}
		}
	}
	return q, warnings
}

// choices enforces exactly four options. Any other count is replaced
// wholesale so real and placeholder answers are never mixed; with four
// options only the empty ones are filled in.
func choices(opts []string, path string, warnings []core.Warning) ([]string, []core.Warning) {
	out := make([]string, choiceCount)
	if len(opts) != choiceCount {
		for i := range out {
			out[i] = OptionPlaceholder(i)
		}
		return out, append(warnings, core.Warning{
			Path:    path + ".options",
			Message: fmt.Sprintf("expected %d options, got %d; replaced with placeholders", choiceCount, len(opts)),
		})
	}
	for i, o := range opts {
		o = StripLetterPrefix(o)
		if o == "" {
			o = OptionPlaceholder(i)
			warnings = append(warnings, core.Warning{
				Path:    fmt.Sprintf("%s.options[%d]", path, i),
				Message: "empty option replaced with placeholder",
			})
		}
		out[i] = o
	}
	return out, warnings
}

// column enforces exactly four matching items per side, independently of
// the other side.
func column(items []string, label, path string, warnings []core.Warning) ([]string, []core.Warning) {
	out := make([]string, matchingCount)
	if len(items) != matchingCount {
		for i := range out {
			out[i] = columnPlaceholder(label, i)
		}
		return out, append(warnings, core.Warning{
			Path:    path,
			Message: fmt.Sprintf("expected %d items, got %d; replaced with placeholders", matchingCount, len(items)),
		})
	}
	for i, it := range items {
		it = StripLetterPrefix(it)
		if it == "" {
			it = columnPlaceholder(label, i)
			warnings = append(warnings, core.Warning{
				Path:    fmt.Sprintf("%s[%d]", path, i),
				Message: "empty item replaced with placeholder",
			})
		}
		out[i] = it
	}
	return out, warnings
}

// pairs reads matching content given as [{left, right}] objects.
func pairs(raw map[string]any) (left, right []string) {
	ps, _ := maps(raw, pairAliases...)
	if len(ps) == 0 {
		return nil, nil
	}
	for _, p := range ps {
		left = append(left, str(p, columnAAliases...))
		right = append(right, str(p, columnBAliases...))
	}
	return left, right
}

// ValidateSet reports structural defects of a question set without
// modifying it. Only unknown kinds and broken numbering are errors.
func ValidateSet(questions []core.Question) core.ValidationReport {
	report := core.ValidationReport{Errors: []core.Warning{}, Warnings: []core.Warning{}}
	seen := map[int]int{}
	for i, q := range questions {
		path := fmt.Sprintf("questions[%d]", i)
		add := func(dst *[]core.Warning, format string, args ...any) {
			*dst = append(*dst, core.Warning{Path: path, Message: fmt.Sprintf(format, args...)})
		}

		if !q.Kind.Valid() {
			add(&report.Errors, "unknown question kind %q", q.Kind)
		}
		if q.Number <= 0 {
			add(&report.Errors, "question number %d is not positive", q.Number)
		} else if prev, dup := seen[q.Number]; dup {
			add(&report.Errors, "question number %d already used by questions[%d]", q.Number, prev)
		} else {
			seen[q.Number] = i
		}

		if strings.TrimSpace(q.Prompt) == "" {
			add(&report.Warnings, "empty prompt")
		} else if strings.HasSuffix(q.Prompt, PendingSuffix) {
			add(&report.Warnings, "prompt is a placeholder")
		}

		switch q.Kind {
		case core.QuestionMultipleChoice:
			if len(q.Options) != choiceCount {
				add(&report.Warnings, "expected %d options, got %d", choiceCount, len(q.Options))
			}
			if n := countPending(q.Options); n > 0 {
				add(&report.Warnings, "%d placeholder options", n)
			}
		case core.QuestionMatching:
			if len(q.ColumnA) != matchingCount || len(q.ColumnB) != matchingCount {
				add(&report.Warnings, "expected %d items per column, got %d and %d", matchingCount, len(q.ColumnA), len(q.ColumnB))
			}
			if n := countPending(q.ColumnA) + countPending(q.ColumnB); n > 0 {
				add(&report.Warnings, "%d placeholder matching items", n)
			}
		case core.QuestionOpen:
			if q.Lines <= 0 {
				add(&report.Warnings, "open question without answer lines")
			}
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}

func countPending(items []string) int {
	n := 0
	for _, s := range items {
		if strings.HasSuffix(s, PendingSuffix) {
			n++
		}
	}
	return n
}
