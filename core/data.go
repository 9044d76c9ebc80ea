package core

// GeneratedAtLayout formats the generation timestamp printed on materials.
const GeneratedAtLayout = "02/01/2006 15:04"

// FormattedGeneratedAt returns the generation timestamp, or "" when unset.
func (m Material) FormattedGeneratedAt() string {
	if m.GeneratedAt.IsZero() {
		return ""
	}
	return m.GeneratedAt.Format(GeneratedAtLayout)
}

// TemplateData converts the material into the data object consumed by the
// template compiler. Only plain maps, slices, strings, ints and bools are
// produced so any template language can walk the result.
func (m Material) TemplateData() map[string]any {
	data := map[string]any{
		"materialType": string(m.Type),
		"title":        m.Title,
		"subject":      m.Subject,
		"grade":        m.Grade,
		"topic":        m.Topic,
		"teacher":      m.Teacher,
		"school":       m.School,
		"generatedAt":  m.FormattedGeneratedAt(),
	}

	switch {
	case m.LessonPlan != nil:
		lessonPlanData(data, m.LessonPlan)
	case m.QuestionSet != nil:
		questionSetData(data, m.QuestionSet)
	case m.SlideDeck != nil:
		slideDeckData(data, m.SlideDeck)
	case m.SupportDocument != nil:
		supportDocumentData(data, m.SupportDocument)
	}
	return data
}

func lessonPlanData(data map[string]any, lp *LessonPlan) {
	steps := make([]any, 0, len(lp.Development))
	for _, s := range lp.Development {
		steps = append(steps, map[string]any{
			"stage":     s.Stage,
			"activity":  s.Activity,
			"duration":  s.Duration,
			"resources": s.Resources,
		})
	}
	data["duration"] = lp.Duration
	data["bncc"] = stringsToAny(lp.BNCC)
	data["objectives"] = stringsToAny(lp.Objectives)
	data["skills"] = stringsToAny(lp.Skills)
	data["development"] = steps
	data["resources"] = stringsToAny(lp.Resources)
	data["methodology"] = lp.Methodology
	data["assessment"] = lp.Assessment
}

func questionSetData(data map[string]any, qs *QuestionSet) {
	questions := make([]any, 0, len(qs.Questions))
	for _, q := range qs.Questions {
		questions = append(questions, questionData(q))
	}
	data["instructions"] = qs.Instructions
	data["questions"] = questions
}

func questionData(q Question) map[string]any {
	pairs := make([]any, 0, len(q.ColumnA))
	for i, left := range q.ColumnA {
		right := ""
		if i < len(q.ColumnB) {
			right = q.ColumnB[i]
		}
		pairs = append(pairs, map[string]any{"left": left, "right": right})
	}
	lines := make([]any, 0, q.Lines)
	for i := 0; i < q.Lines; i++ {
		lines = append(lines, i+1)
	}
	return map[string]any{
		"number":           q.Number,
		"kind":             string(q.Kind),
		"prompt":           q.Prompt,
		"answer":           q.Answer,
		"image":            q.Image,
		"options":          stringsToAny(q.Options),
		"pairs":            pairs,
		"lines":            lines,
		"isMultipleChoice": q.Kind == QuestionMultipleChoice,
		"isTrueFalse":      q.Kind == QuestionTrueFalse,
		"isFillBlank":      q.Kind == QuestionFillBlank,
		"isMatching":       q.Kind == QuestionMatching,
		"isOpen":           q.Kind == QuestionOpen,
		"isDrawing":        q.Kind == QuestionDrawing,
	}
}

func slideDeckData(data map[string]any, sd *SlideDeck) {
	slides := make([]any, 0, len(sd.Slides))
	for i, s := range sd.Slides {
		slide := map[string]any{
			"index":            s.Index,
			"title":            s.Title,
			"body":             s.Body,
			"bullets":          stringsToAny(s.Bullets),
			"imageSrc":         "",
			"imageAlt":         s.ImagePrompt,
			"imagePlaceholder": false,
			"isCover":          i == 0,
			"isClosing":        i == len(sd.Slides)-1 && i > 0,
		}
		if s.Image != nil {
			if s.Image.Alt != "" {
				slide["imageAlt"] = s.Image.Alt
			}
			if s.Image.Placeholder || s.Image.Src == "" {
				slide["imagePlaceholder"] = true
			} else {
				slide["imageSrc"] = s.Image.Src
			}
		}
		slides = append(slides, slide)
	}
	data["slides"] = slides
}

func supportDocumentData(data map[string]any, sd *SupportDocument) {
	sections := make([]any, 0, len(sd.Sections))
	for _, s := range sd.Sections {
		sections = append(sections, map[string]any{"heading": s.Heading, "body": s.Body})
	}
	data["content"] = sd.Content
	data["sections"] = sections
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
