package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/images"
	"github.com/medtosdigital/aulagia/core/logger"
	"github.com/medtosdigital/aulagia/core/render"
	"github.com/medtosdigital/aulagia/core/templates"
)

func rawActivity(n int) map[string]any {
	questions := make([]any, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, map[string]any{
			"tipo":         "multipla_escolha",
			"enunciado":    fmt.Sprintf("Quanto é %d + %d?", i, i),
			"alternativas": []any{"a) 1", "b) 2", "c) 3", "d) 4"},
		})
	}
	return map[string]any{
		"tipo":   "atividade",
		"titulo": "Adição",
		"escola": "EE Central",
		"conteudo": map[string]any{
			"instrucoes": "Leia com atenção.",
			"questoes":   questions,
		},
	}
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *templates.Registry) {
	t.Helper()
	reg, err := templates.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return New(config.Default(), logger.Nop(), opts...), reg
}

func template(t *testing.T, reg *templates.Registry, mt core.MaterialType) core.Template {
	t.Helper()
	tpl, err := reg.ForType(mt)
	if err != nil {
		t.Fatalf("ForType(%s): %v", mt, err)
	}
	return tpl
}

func TestRenderQuestionSetScenario(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(rawActivity(10))

	r, err := e.Render(template(t, reg, core.MaterialActivity), m, core.FormatPrint)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(r.Pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(r.Pages))
	}
	if r.ID == "" || r.TemplateID != "activity-default" {
		t.Errorf("id = %q template = %q", r.ID, r.TemplateID)
	}

	questions := 0
	for i, p := range r.Pages {
		if p.Ordinal != i+1 || p.TotalPages != 4 || p.IsFirst != (i == 0) {
			t.Errorf("page %d: ordinal=%d total=%d first=%v", i, p.Ordinal, p.TotalPages, p.IsFirst)
		}
		if want := fmt.Sprintf("Page %d of 4", i+1); !strings.Contains(p.Markup, want) {
			t.Errorf("page %d missing %q", i+1, want)
		}
		questions += strings.Count(p.Markup, `class="question question-multiple-choice"`)
	}
	if questions != 10 {
		t.Errorf("%d questions across pages, want 10", questions)
	}
	if !strings.Contains(r.Pages[0].Markup, "Instructions:") || strings.Contains(r.Pages[1].Markup, "Instructions:") {
		t.Error("instructions must lead the first page only")
	}
	if len(r.Pages[0].Header.Fields) == 0 || len(r.Pages[1].Header.Fields) != 0 {
		t.Error("full header on first page, compact header afterwards")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(rawActivity(7))
	tpl := template(t, reg, core.MaterialActivity)

	a, err := e.Render(tpl, m, core.FormatPrint)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Render(tpl, m, core.FormatPrint)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("renderings share an id")
	}
	if a.Markup != b.Markup || !reflect.DeepEqual(a.Pages, b.Pages) {
		t.Error("same input produced different pages")
	}
}

func TestRenderTemplateMismatch(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(rawActivity(1))
	_, err := e.Render(template(t, reg, core.MaterialLessonPlan), m, core.FormatPrint)
	if !errors.Is(err, ErrTemplateMismatch) {
		t.Errorf("err = %v, want ErrTemplateMismatch", err)
	}
}

func TestRenderForPreview(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(rawActivity(10))
	tpl := template(t, reg, core.MaterialActivity)

	pages, err := e.RenderForPreview(tpl, m)
	if err != nil {
		t.Fatal(err)
	}
	r, err := e.Render(tpl, m, core.FormatPrint)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pages, r.Pages) {
		t.Error("preview differs from the print rendering")
	}
}

func TestRenderEveryMaterialType(t *testing.T) {
	raws := map[core.MaterialType]map[string]any{
		core.MaterialActivity:        rawActivity(3),
		core.MaterialAssessment:      {"type": "assessment", "title": "Prova", "questions": []any{map[string]any{"type": "open", "prompt": "Explique."}}},
		core.MaterialLessonPlan:      {"type": "plano_de_aula", "title": "Frações", "objectives": []any{"Somar"}, "assessment": "Oral"},
		core.MaterialSlideDeck:       {"type": "slides", "title": "Água", "slides": []any{map[string]any{"title": "Intro"}, map[string]any{"title": "Fim"}}},
		core.MaterialSupportDocument: {"type": "apoio", "title": "Guia", "content": "# Guia\n\nTexto."},
	}
	for mt, raw := range raws {
		t.Run(string(mt), func(t *testing.T) {
			e, reg := newEngine(t)
			m, _ := e.NormalizeAndValidate(raw)
			if m.Type != mt {
				t.Fatalf("normalized type = %s", m.Type)
			}
			for _, f := range core.Formats {
				artifact, _, err := e.RenderForExport(context.Background(), template(t, reg, mt), m, f)
				if err != nil {
					t.Fatalf("%s: %v", f, err)
				}
				if len(artifact.Data) == 0 || artifact.Format != f {
					t.Errorf("%s: empty artifact", f)
				}
			}
		})
	}
}

func TestSlideDeckOnePagePerSlide(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(map[string]any{
		"type":   "slide-deck",
		"title":  "Água",
		"slides": []any{map[string]any{"title": "A"}, map[string]any{"title": "B"}, map[string]any{"title": "C"}},
	})
	r, err := e.Render(template(t, reg, core.MaterialSlideDeck), m, core.FormatSlide)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Pages) != 3 {
		t.Errorf("got %d pages, want 3", len(r.Pages))
	}
}

type flakyRenderer struct {
	failures int
	calls    int
}

func (f *flakyRenderer) Render(_ context.Context, doc *core.Rendering) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("disk full")
	}
	return []byte(doc.ID), nil
}

func (f *flakyRenderer) Extension() string   { return ".bin" }
func (f *flakyRenderer) ContentType() string { return "application/octet-stream" }

func TestExportRetryAfterBackendFailure(t *testing.T) {
	flaky := &flakyRenderer{failures: 1}
	e, reg := newEngine(t, WithRenderer(core.FormatWord, flaky))
	m, _ := e.NormalizeAndValidate(rawActivity(5))

	artifact, rendering, err := e.RenderForExport(context.Background(), template(t, reg, core.MaterialActivity), m, core.FormatWord)
	if err == nil || artifact != nil {
		t.Fatalf("want backend failure, got artifact=%v err=%v", artifact, err)
	}
	if rendering == nil {
		t.Fatal("rendering must survive a backend failure")
	}
	before, _ := json.Marshal(rendering)

	artifact, err = e.Export(context.Background(), rendering, core.FormatWord)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if string(artifact.Data) != rendering.ID || artifact.Extension != ".bin" {
		t.Errorf("artifact = %+v", artifact)
	}

	if _, err := e.Export(context.Background(), rendering, core.FormatPrint); err != nil {
		t.Errorf("redirect to print: %v", err)
	}
	after, _ := json.Marshal(rendering)
	if string(before) != string(after) {
		t.Error("export modified the rendering")
	}
}

func TestBackendErrorsAreTyped(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Export(context.Background(), &core.Rendering{ID: "empty"}, core.FormatPrint)
	var rerr *render.Error
	if !errors.As(err, &rerr) || rerr.Format != core.FormatPrint {
		t.Errorf("err = %v, want *render.Error for print", err)
	}
}

func TestUnknownFormat(t *testing.T) {
	e, reg := newEngine(t)
	m, _ := e.NormalizeAndValidate(rawActivity(1))
	_, _, err := e.RenderForExport(context.Background(), template(t, reg, core.MaterialActivity), m, core.Format("pptx"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
	if e.Supports("pptx") || !e.Supports(core.FormatSlide) {
		t.Error("Supports disagrees with the renderer set")
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	e, _ := newEngine(t)
	raw := map[string]any{
		"type": "activity",
		"questions": []any{
			map[string]any{"type": "mystery", "prompt": "Q1", "options": []any{"x", "y"}},
			map[string]any{"type": "matching", "prompt": "Q2", "columnA": []any{"a", "b", "c", "d"}, "columnB": []any{"1", "", "3", "4"}},
		},
	}
	before, _ := json.Marshal(raw)

	m, warnings := e.NormalizeAndValidate(raw)

	after, _ := json.Marshal(raw)
	if string(before) != string(after) {
		t.Error("raw content was modified")
	}
	if len(warnings) == 0 {
		t.Fatal("want warnings for the repaired questions")
	}
	q := m.QuestionSet.Questions
	if q[0].Kind != core.QuestionMultipleChoice || len(q[0].Options) != 4 {
		t.Errorf("question 1 = %+v", q[0])
	}
	if q[1].ColumnB[0] != "1" || q[1].ColumnB[2] != "3" || !strings.HasSuffix(q[1].ColumnB[1], "pending content") {
		t.Errorf("question 2 column B = %q", q[1].ColumnB)
	}
}

type stubGenerator struct{ calls int }

func (g *stubGenerator) Generate(context.Context, string) (*core.GeneratedImage, error) {
	g.calls++
	return &core.GeneratedImage{URL: "https://cdn.example.com/slide.png"}, nil
}

func TestRenderForExportIllustratesSlides(t *testing.T) {
	gen := &stubGenerator{}
	il := images.NewIllustrator(gen, logger.Nop(), config.Images{})
	e, reg := newEngine(t, WithIllustrator(il))
	m, _ := e.NormalizeAndValidate(map[string]any{
		"type":   "slide-deck",
		"title":  "Água",
		"slides": []any{map[string]any{"title": "Chuva", "imagem": "nuvens carregadas"}},
	})

	_, rendering, err := e.RenderForExport(context.Background(), template(t, reg, core.MaterialSlideDeck), m, core.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times", gen.calls)
	}
	if img := rendering.Material.SlideDeck.Slides[0].Image; img == nil || img.Src != "https://cdn.example.com/slide.png" {
		t.Errorf("rendered slide image = %+v", img)
	}
	if m.SlideDeck.Slides[0].Image != nil {
		t.Error("caller's material was modified")
	}
	if !strings.Contains(rendering.Pages[0].Markup, "https://cdn.example.com/slide.png") {
		t.Error("slide markup lacks the generated image")
	}
}
