package normalize

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/extract"
)

var typeTags = map[string]core.MaterialType{
	"lesson-plan":        core.MaterialLessonPlan,
	"lessonplan":         core.MaterialLessonPlan,
	"plano-de-aula":      core.MaterialLessonPlan,
	"plano":              core.MaterialLessonPlan,
	"slide-deck":         core.MaterialSlideDeck,
	"slidedeck":          core.MaterialSlideDeck,
	"slides":             core.MaterialSlideDeck,
	"apresentacao":       core.MaterialSlideDeck,
	"activity":           core.MaterialActivity,
	"atividade":          core.MaterialActivity,
	"exercicios":         core.MaterialActivity,
	"assessment":         core.MaterialAssessment,
	"avaliacao":          core.MaterialAssessment,
	"prova":              core.MaterialAssessment,
	"quiz":               core.MaterialAssessment,
	"support-document":   core.MaterialSupportDocument,
	"supportdocument":    core.MaterialSupportDocument,
	"support":            core.MaterialSupportDocument,
	"apoio":              core.MaterialSupportDocument,
	"material-de-apoio":  core.MaterialSupportDocument,
	"documento-de-apoio": core.MaterialSupportDocument,
}

// SlideImageFields lists, by priority, the slide fields that may carry an
// image prompt or an image reference.
var SlideImageFields = []string{"imagePrompt", "image_prompt", "imagem", "image", "illustration", "ilustracao", "visual"}

var (
	htmlTag    = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	imageRefRe = regexp.MustCompile(`(?i)^(https?://|data:image/)`)
	markdown   = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

// MaterialType resolves a raw material type tag. ok is false for unknown
// tags.
func MaterialType(tag string) (core.MaterialType, bool) {
	mt, ok := typeTags[fold(tag)]
	return mt, ok
}

// Material normalizes a whole raw material. An unknown type falls back to
// a support document so the content still renders.
func Material(raw map[string]any) (core.Material, []core.Warning) {
	var warnings []core.Warning
	warn := func(path, format string, args ...any) {
		warnings = append(warnings, core.Warning{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	m := core.Material{
		Title:   str(raw, "title", "titulo"),
		Subject: str(raw, "subject", "disciplina", "materia", "componente_curricular"),
		Grade:   str(raw, "grade", "serie", "ano", "turma"),
		Topic:   str(raw, "topic", "tema", "assunto"),
		Teacher: str(raw, "teacher", "professor", "professora"),
		School:  str(raw, "school", "escola"),
	}
	if ts := str(raw, "generatedAt", "createdAt", "created_at", "data_criacao"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			m.GeneratedAt = t
		} else {
			warn("generatedAt", "unparseable timestamp %q ignored", ts)
		}
	}

	tag := str(raw, "type", "tipo", "materialType", "tipo_material")
	mt, ok := MaterialType(tag)
	if !ok {
		warn("type", "unknown material type %q, rendering as support document", tag)
		mt = core.MaterialSupportDocument
	}
	m.Type = mt

	content := raw
	if v, ok := field(raw, "content", "conteudo"); ok {
		if cm, ok := v.(map[string]any); ok {
			content = cm
		}
	}
	if m.Title == "" {
		m.Title = str(content, "title", "titulo")
	}
	if m.Topic == "" {
		m.Topic = str(content, "topic", "tema")
	}

	switch {
	case mt == core.MaterialLessonPlan:
		m.LessonPlan = lessonPlan(content)
	case mt.IsQuestionSet():
		var ws []core.Warning
		m.QuestionSet, ws = questionSet(content)
		warnings = append(warnings, ws...)
	case mt == core.MaterialSlideDeck:
		var ws []core.Warning
		m.SlideDeck, ws = slideDeck(content)
		warnings = append(warnings, ws...)
	default:
		var ws []core.Warning
		m.SupportDocument, ws = supportDocument(content)
		warnings = append(warnings, ws...)
	}
	return m, warnings
}

func lessonPlan(raw map[string]any) *core.LessonPlan {
	lp := &core.LessonPlan{
		Duration:    str(raw, "duration", "duracao", "tempo"),
		Methodology: str(raw, "methodology", "metodologia"),
		Assessment:  str(raw, "assessment", "avaliacao"),
	}
	lp.BNCC, _ = list(raw, "bncc", "codigos_bncc", "habilidades_bncc")
	lp.Objectives, _ = list(raw, "objectives", "objetivos")
	lp.Skills, _ = list(raw, "skills", "habilidades")
	resources, _ := list(raw, "resources", "recursos")
	lp.BNCC = dedupe(lp.BNCC)
	lp.Objectives = dedupe(lp.Objectives)
	lp.Skills = dedupe(lp.Skills)

	steps, _ := maps(raw, "development", "desenvolvimento", "etapas")
	for _, s := range steps {
		step := core.DevelopmentStep{
			Stage:    str(s, "stage", "etapa", "fase"),
			Activity: str(s, "activity", "atividade", "descricao"),
			Duration: str(s, "duration", "tempo", "duracao"),
		}
		stepResources, _ := list(s, "resources", "recursos")
		stepResources = dedupe(stepResources)
		step.Resources = strings.Join(stepResources, ", ")
		resources = append(resources, stepResources...)
		lp.Development = append(lp.Development, step)
	}
	lp.Resources = dedupe(resources)
	return lp
}

func questionSet(raw map[string]any) (*core.QuestionSet, []core.Warning) {
	var warnings []core.Warning
	qs := &core.QuestionSet{Instructions: str(raw, "instructions", "instrucoes", "orientacoes")}

	v, _ := field(raw, "questions", "questoes", "perguntas")
	seq, ok := v.([]any)
	if !ok && v != nil {
		warnings = append(warnings, core.Warning{Path: "questions", Message: "questions is not a list"})
	}
	for i, e := range seq {
		rq, ok := e.(map[string]any)
		if !ok {
			warnings = append(warnings, core.Warning{Path: fmt.Sprintf("questions[%d]", i), Message: "question is not an object"})
			rq = map[string]any{}
		}
		q, ws := Question(rq, i)
		qs.Questions = append(qs.Questions, q)
		warnings = append(warnings, ws...)
	}
	if len(qs.Questions) == 0 {
		warnings = append(warnings, core.Warning{Path: "questions", Message: "question set has no questions"})
	}
	return qs, warnings
}

func slideDeck(raw map[string]any) (*core.SlideDeck, []core.Warning) {
	var warnings []core.Warning
	deck := &core.SlideDeck{}
	slides, skipped := maps(raw, "slides", "slide")
	if skipped > 0 {
		warnings = append(warnings, core.Warning{Path: "slides", Message: fmt.Sprintf("%d slides are not objects and were dropped", skipped)})
	}
	for i, s := range slides {
		slide := core.Slide{
			Index: i + 1,
			Title: str(s, "title", "titulo"),
			Body:  str(s, "body", "content", "conteudo", "texto", "text", "subtitle", "subtitulo"),
		}
		slide.Bullets, _ = list(s, "bullets", "topicos", "itens", "points", "pontos")
		if slide.Title == "" {
			slide.Title = fmt.Sprintf("Slide %d", slide.Index)
			warnings = append(warnings, core.Warning{Path: fmt.Sprintf("slides[%d]", i), Message: "missing title"})
		}
		for _, name := range SlideImageFields {
			v := str(s, name)
			if v == "" {
				continue
			}
			if imageRefRe.MatchString(v) {
				slide.Image = &core.ImageRef{Src: v, Alt: slide.Title}
			} else {
				slide.ImagePrompt = v
			}
			break
		}
		deck.Slides = append(deck.Slides, slide)
	}
	if len(deck.Slides) == 0 {
		warnings = append(warnings, core.Warning{Path: "slides", Message: "slide deck has no slides"})
	}
	return deck, warnings
}

func supportDocument(raw map[string]any) (*core.SupportDocument, []core.Warning) {
	var warnings []core.Warning
	doc := &core.SupportDocument{}

	if v, ok := field(raw, "content", "conteudo", "html", "markdown", "texto", "text"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			content, err := richText(s)
			if err != nil {
				warnings = append(warnings, core.Warning{Path: "content", Message: err.Error()})
			}
			doc.Content = content
		}
	}

	sections, _ := maps(raw, "sections", "secoes", "seções")
	for i, s := range sections {
		body, err := richText(str(s, "body", "content", "conteudo", "texto", "text"))
		if err != nil {
			warnings = append(warnings, core.Warning{Path: fmt.Sprintf("sections[%d]", i), Message: err.Error()})
		}
		doc.Sections = append(doc.Sections, core.SupportSection{
			Heading: str(s, "heading", "title", "titulo"),
			Body:    body,
		})
	}
	if doc.Content == "" && len(doc.Sections) == 0 {
		warnings = append(warnings, core.Warning{Path: "content", Message: "support document is empty"})
	}
	return doc, warnings
}

// richText turns markdown or HTML into sanitized HTML. On failure the text
// is kept escaped so content is never lost.
func richText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	src := s
	if !htmlTag.MatchString(s) {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(s), &buf); err != nil {
			return "<p>" + html.EscapeString(s) + "</p>", fmt.Errorf("converting markdown: %w", err)
		}
		src = buf.String()
	}
	out, err := extract.Sanitize(src)
	if err != nil {
		return "<p>" + html.EscapeString(s) + "</p>", err
	}
	return out, nil
}
