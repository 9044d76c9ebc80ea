package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/compose"
	"github.com/medtosdigital/aulagia/core/config"
)

const questionBlock = `<div class="question question-multiple-choice" data-number="1">` +
	`<p class="question-prompt"><span class="question-number">1.</span> What is <strong>2+2</strong>?</p>` +
	`<img class="question-diagram" src="https://example.com/t.png" alt="Triangle">` +
	`<ol class="question-options"><li class="question-option"><span class="option-letter">A)</span> 3</li>` +
	`<li class="question-option"><span class="option-letter">B)</span> 4</li></ol></div>`

const openBlock = `<div class="question question-open" data-number="2">` +
	`<p class="question-prompt"><span class="question-number">2.</span> Explain.</p>` +
	`<div class="answer-line"></div><div class="answer-line"></div></div>`

func activityRendering() *core.Rendering {
	m := core.Material{
		Type:        core.MaterialActivity,
		Title:       "Frações & decimais",
		Subject:     "Matemática",
		School:      "EE Central",
		GeneratedAt: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		QuestionSet: &core.QuestionSet{Instructions: "Answer all."},
	}
	fragments := []core.PageFragment{
		{Ordinal: 1, IsFirst: true, Blocks: []string{
			`<div class="page-lead instructions"><strong>Instructions:</strong> Answer all.</div>`,
			questionBlock,
		}},
		{Ordinal: 2, Blocks: []string{openBlock}},
	}
	return &core.Rendering{
		ID:         "r-1",
		TemplateID: "activity-default",
		Format:     core.FormatPrint,
		Material:   m,
		Pages:      compose.New("AulaGIA").Compose(fragments, m),
	}
}

func slideRendering(slides ...string) *core.Rendering {
	m := core.Material{Type: core.MaterialSlideDeck, Title: "Ciclo da água", SlideDeck: &core.SlideDeck{}}
	fragments := make([]core.PageFragment, 0, len(slides))
	for i, s := range slides {
		fragments = append(fragments, core.PageFragment{Ordinal: i + 1, IsFirst: i == 0, Blocks: []string{s}})
	}
	return &core.Rendering{ID: "r-2", Format: core.FormatSlide, Material: m, Pages: compose.New("AulaGIA").Compose(fragments, m)}
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func documentXML(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening docx: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	t.Fatal("word/document.xml not found")
	return ""
}

type stubFetcher struct {
	calls int
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.FetchResult{URL: url, StatusCode: 200}, nil
}

func TestHTMLRenderer(t *testing.T) {
	doc := activityRendering()
	out, err := NewHTMLRenderer().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Frações &amp; decimais</title>",
		"@page { size: A4; margin: 0; }",
		"@media print",
		`data-page="1" data-total="2"`,
		`data-page="2" data-total="2"`,
		"Page 2 of 2",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(s, landscapeCSS) {
		t.Error("portrait material should not get the landscape page rule")
	}
}

func TestHTMLRendererLandscapeForSlides(t *testing.T) {
	doc := slideRendering(`<section class="slide"><h2 class="slide-title">Intro</h2></section>`)
	out, err := NewHTMLRenderer().Render(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), landscapeCSS) {
		t.Error("slide deck should get the landscape page rule")
	}
}

func TestRenderersRejectEmptyRendering(t *testing.T) {
	for format, r := range Defaults(nil, config.Default().Layouts.Slide) {
		if format == core.FormatJSON {
			continue
		}
		_, err := r.Render(context.Background(), &core.Rendering{ID: "empty"})
		var rerr *Error
		if !errors.As(err, &rerr) {
			t.Errorf("%s: err = %v, want *Error", format, err)
			continue
		}
		if rerr.Format != format {
			t.Errorf("%s: error format = %s", format, rerr.Format)
		}
	}
}

func TestDefaultsCoverEveryFormat(t *testing.T) {
	rs := Defaults(nil, config.Default().Layouts.Slide)
	for _, f := range core.Formats {
		r, ok := rs[f]
		if !ok {
			t.Errorf("no renderer for %s", f)
			continue
		}
		if r.Extension() == "" || r.ContentType() == "" {
			t.Errorf("%s: empty extension or content type", f)
		}
	}
}

func TestRendererDoesNotMutateRendering(t *testing.T) {
	doc := activityRendering()
	before, _ := json.Marshal(doc)
	for format, r := range Defaults(nil, config.Default().Layouts.Slide) {
		if _, err := r.Render(context.Background(), doc); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
	}
	after, _ := json.Marshal(doc)
	if !bytes.Equal(before, after) {
		t.Error("rendering changed during export")
	}
}

func TestWordRenderer(t *testing.T) {
	out, err := NewWordRenderer().Render(context.Background(), activityRendering())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	xml := documentXML(t, out)
	for _, want := range []string{
		"Frações &amp; decimais",
		"Instructions:",
		"EE Central",
		blankRule,
		"[image: Triangle]",
		`w:val="AnswerLine"`,
		`w:val="ListParagraph"`,
		"Page 1 of 2",
		"Generated on 02/03/2026 14:30",
		`w:type="page"`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
}

func TestBlockParagraphs(t *testing.T) {
	ps, err := blockParagraphs(questionBlock + openBlock)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range ps {
		got = append(got, p.Style+"|"+p.PlainText())
	}
	want := []string{
		"Normal|1. What is 2+2?",
		"Normal|[image: Triangle]",
		"ListParagraph|A) 3",
		"ListParagraph|B) 4",
		"Normal|2. Explain.",
		"AnswerLine|" + answerRule,
		"AnswerLine|" + answerRule,
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("paragraphs:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	var bold bool
	for _, r := range ps[0].Runs {
		if r.Text == "2+2" && r.Bold {
			bold = true
		}
	}
	if !bold {
		t.Errorf("strong text lost its formatting: %+v", ps[0].Runs)
	}
}

func TestBlockParagraphsTableRow(t *testing.T) {
	ps, err := blockParagraphs(`<table><tr><th>Stage</th><th>Activity</th></tr><tr><td>Intro</td><td></td></tr></table>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(ps))
	}
	if got := ps[0].PlainText(); got != "Stage | Activity" {
		t.Errorf("header row = %q", got)
	}
	if got := ps[1].PlainText(); got != "Intro | "+blankRule {
		t.Errorf("body row = %q", got)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := NewMarkdownRenderer().Render(context.Background(), activityRendering())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"# Frações & decimais",
		"**School:** EE Central",
		"**Name:** " + blankRule,
		"**2+2**",
		"_Page 1 of 2_",
		"---",
		"_Page 2 of 2_",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown missing %q\n%s", want, s)
		}
	}
	if strings.Count(s, "\n---\n") != 1 {
		t.Errorf("want exactly one page separator")
	}
}

func TestJSONRenderer(t *testing.T) {
	doc := activityRendering()
	out, err := NewJSONRenderer().Render(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	var got jsonDocument
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.ID != "r-1" || got.TotalPages != 2 || len(got.Pages) != 2 {
		t.Errorf("got id=%q total=%d pages=%d", got.ID, got.TotalPages, len(got.Pages))
	}
	if got.Material.Type != core.MaterialActivity {
		t.Errorf("material type = %s", got.Material.Type)
	}
}

func TestSlideRenderer(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("offline")}
	doc := slideRendering(
		`<section class="slide slide-cover"><h2 class="slide-title">Ciclo da água</h2><p class="slide-text">5º ano</p></section>`,
		`<section class="slide"><h2 class="slide-title">Evaporação</h2><ul class="slide-bullets"><li>Calor</li><li>Vapor</li></ul>`+
			`<img class="slide-image" src="`+pngDataURI(t)+`" alt="sun"></section>`,
		`<section class="slide"><h2 class="slide-title">Chuva</h2><img class="slide-image" src="https://example.com/rain.png" alt="rain"></section>`,
		`<section class="slide slide-closing"><h2 class="slide-title">Fim</h2><div class="slide-image-placeholder">nuvens</div></section>`,
	)
	r := NewSlideRenderer(fetcher, config.Default().Layouts.Slide)
	out, err := r.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
	if !bytes.Contains(out, []byte("/Count 4")) {
		t.Error("want 4 PDF pages")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestSlideRendererCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := slideRendering(`<section class="slide"><h2 class="slide-title">A</h2></section>`)
	_, err := NewSlideRenderer(nil, config.Default().Layouts.Slide).Render(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPageSlide(t *testing.T) {
	doc := slideRendering(`<section class="slide slide-cover"><h2 class="slide-title"> Água </h2>` +
		`<p class="slide-text">Estados   físicos</p><ul class="slide-bullets"><li>Sólido</li><li> </li></ul>` +
		`<div class="slide-image-placeholder">gelo</div></section>`)
	c, err := pageSlide(doc.Pages[0], "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if c.title != "Água" || c.body != "Estados físicos" || !c.cover {
		t.Errorf("got %+v", c)
	}
	if len(c.bullets) != 1 || c.bullets[0] != "Sólido" {
		t.Errorf("bullets = %q", c.bullets)
	}
	if !c.placeholder || c.imageAlt != "gelo" {
		t.Errorf("placeholder = %v alt = %q", c.placeholder, c.imageAlt)
	}

	plain := activityRendering()
	c, err = pageSlide(plain.Pages[1], plain.Material.Title)
	if err != nil {
		t.Fatal(err)
	}
	if c.title != plain.Material.Title || !strings.Contains(c.body, "Explain.") {
		t.Errorf("text slide = %+v", c)
	}
}

func TestDecodeDataURI(t *testing.T) {
	got, err := decodeDataURI("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")))
	if err != nil || string(got) != "hi" {
		t.Errorf("base64: %q, %v", got, err)
	}
	got, err = decodeDataURI("data:text/plain,a%20b")
	if err != nil || string(got) != "a b" {
		t.Errorf("escaped: %q, %v", got, err)
	}
	if _, err := decodeDataURI("data:nocomma"); err == nil {
		t.Error("want error for malformed URI")
	}
}
