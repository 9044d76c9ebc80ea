package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/compile"
)

func fullMaterial(mt core.MaterialType) core.Material {
	m := core.Material{
		Type:        mt,
		Title:       "Frações",
		Subject:     "Matemática",
		Grade:       "5º ano",
		Topic:       "Frações equivalentes",
		Teacher:     "Ana",
		School:      "EMEF Sol",
		GeneratedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	switch mt {
	case core.MaterialLessonPlan:
		m.LessonPlan = &core.LessonPlan{
			Duration:    "50 min",
			BNCC:        []string{"EF05MA03", "EF05MA04"},
			Objectives:  []string{"Comparar frações"},
			Skills:      []string{"Representar frações"},
			Development: []core.DevelopmentStep{{Stage: "Introdução", Activity: "Roda de conversa", Duration: "10 min", Resources: "Quadro"}},
			Resources:   []string{"Quadro", "Papel"},
			Methodology: "Aula expositiva dialogada",
			Assessment:  "Observação",
		}
	case core.MaterialActivity, core.MaterialAssessment:
		m.QuestionSet = &core.QuestionSet{
			Instructions: "Responda com atenção.",
			Questions: []core.Question{
				{Number: 1, Kind: core.QuestionMultipleChoice, Prompt: "Quanto é 1/2 + 1/4?", Options: []string{"3/4", "2/6", "1/8", "1"}, Image: "https://example.test/d.png"},
				{Number: 2, Kind: core.QuestionTrueFalse, Prompt: "Julgue.", Options: []string{"1/2 = 2/4"}},
				{Number: 3, Kind: core.QuestionMatching, Prompt: "Relacione.", ColumnA: []string{"a", "b", "c", "d"}, ColumnB: []string{"1", "2", "3", "4"}},
				{Number: 4, Kind: core.QuestionOpen, Prompt: "Explique.", Lines: 3},
				{Number: 5, Kind: core.QuestionFillBlank, Prompt: "Complete: 1/2 = __/4"},
				{Number: 6, Kind: core.QuestionDrawing, Prompt: "Desenhe 3/4."},
			},
		}
	case core.MaterialSlideDeck:
		m.SlideDeck = &core.SlideDeck{Slides: []core.Slide{
			{Index: 1, Title: "Capa", Body: "Frações", Image: &core.ImageRef{Src: "data:image/png;base64,AAAA", Alt: "pizza"}},
			{Index: 2, Title: "Conceito", Bullets: []string{"parte", "todo"}, Image: &core.ImageRef{Alt: "bolo", Placeholder: true}},
			{Index: 3, Title: "Fim", Body: "Obrigado"},
		}}
	case core.MaterialSupportDocument:
		m.SupportDocument = &core.SupportDocument{
			Content:  "<p>Intro</p>",
			Sections: []core.SupportSection{{Heading: "Leitura", Body: "<p>Texto</p>"}},
		}
	}
	return m
}

func TestDefaultTemplatesCoverEveryType(t *testing.T) {
	r, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}
	for _, mt := range core.MaterialTypes {
		if _, err := r.ForType(mt); err != nil {
			t.Errorf("no default template for %s: %v", mt, err)
		}
	}
}

func TestDefaultTemplatesLeaveNoPlaceholders(t *testing.T) {
	r, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}
	c := compile.New()
	for _, tpl := range r.All() {
		t.Run(tpl.ID, func(t *testing.T) {
			data := fullMaterial(tpl.MaterialType).TemplateData()
			for _, name := range tpl.DeclaredVariables {
				if _, ok := data[name]; !ok {
					t.Errorf("declared variable %q missing from template data", name)
				}
			}
			out := c.Compile(tpl, data)
			if left := compile.Leftovers(out); len(left) > 0 {
				t.Fatalf("leftover placeholders %q in:\n%s", left, out)
			}
			if strings.TrimSpace(out) == "" {
				t.Fatal("empty output")
			}
		})
	}
}

func TestRegisterRejectsBadTemplates(t *testing.T) {
	r := New()
	tests := []struct {
		name string
		tpl  core.Template
		is   error
	}{
		{"unbalanced", core.Template{ID: "x", MaterialType: core.MaterialActivity, Markup: "{{#each questions}}", DeclaredVariables: []string{"questions"}}, compile.ErrMalformed},
		{"crossed", core.Template{ID: "x", MaterialType: core.MaterialActivity, Markup: "{{#if a}}{{#each b}}{{/if}}{{/each}}", DeclaredVariables: []string{"a", "b"}}, compile.ErrMalformed},
		{"undeclared", core.Template{ID: "x", MaterialType: core.MaterialActivity, Markup: "{{title}}{{school}}", DeclaredVariables: []string{"title"}}, nil},
		{"bad type", core.Template{ID: "x", MaterialType: "poster", Markup: "x"}, nil},
		{"no id", core.Template{MaterialType: core.MaterialActivity, Markup: "x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.tpl)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v is not %v", err, tt.is)
			}
		})
	}
	if len(r.All()) != 0 {
		t.Errorf("rejected templates were registered: %v", r.All())
	}
}

func TestLoadDirOverridesDefault(t *testing.T) {
	r, err := NewDefault()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	def := `id: activity-default
materialType: activity
declaredVariables: [questions]
markup: |
  {{#each questions}}<div class="question">{{prompt}}</div>{{/each}}
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(def), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	got, err := r.Get("activity-default")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got.Markup, `{{#each questions}}<div class="question">`) {
		t.Errorf("template not overridden: %q", got.Markup)
	}
	if len(r.All()) != 5 {
		t.Errorf("override added a template: %d registered", len(r.All()))
	}
}

func TestGetReturnsCopies(t *testing.T) {
	r, err := NewDefault()
	if err != nil {
		t.Fatal(err)
	}
	a, _ := r.Get("activity-default")
	a.DeclaredVariables[0] = "mutated"
	b, _ := r.Get("activity-default")
	if b.DeclaredVariables[0] == "mutated" {
		t.Fatal("registry template was mutated through a returned copy")
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}
