package extract

import (
	"strings"
	"testing"
)

func TestBlocksFlattensContainers(t *testing.T) {
	markup := `<div class="material">
  <div class="page-lead">Leia.</div>
  <div class="questions">
    <div class="question" data-number="1">Q1</div>
    <!-- gap -->
    <div class="question" data-number="2">Q2</div>
  </div>
  <p>Rodapé</p>
</div>`
	blocks, err := Blocks(markup, ".question")
	if err != nil {
		t.Fatalf("Blocks failed: %v", err)
	}
	if len(blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(blocks))
	}
	if !blocks[0].Lead || blocks[0].Atomic {
		t.Errorf("block 0 = %+v, want lead", blocks[0])
	}
	for i := 1; i <= 2; i++ {
		if !blocks[i].Atomic {
			t.Errorf("block %d not atomic", i)
		}
	}
	if blocks[2].Text() != "Q2" {
		t.Errorf("block 2 text = %q", blocks[2].Text())
	}
	if !strings.HasPrefix(blocks[3].Markup, "<p>") || blocks[3].Atomic || blocks[3].Lead {
		t.Errorf("block 3 = %q, want loose paragraph", blocks[3].Markup)
	}
}

func TestBlocksWithoutAtomicMatches(t *testing.T) {
	blocks, err := Blocks(`<h1>Title</h1>loose text<p>x</p>`, ".question")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	for _, b := range blocks {
		if b.Atomic {
			t.Errorf("unexpected atomic block %q", b.Markup)
		}
	}
	if blocks[1].Markup != "loose text" {
		t.Errorf("text block = %q", blocks[1].Markup)
	}
}

func TestSanitize(t *testing.T) {
	in := `<p onclick="steal()">Olá <a href="javascript:alert(1)">x</a> <a href="https://ok.test">y</a></p><script>alert(1)</script><iframe src="x"></iframe>`
	out, err := Sanitize(in)
	if err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	for _, bad := range []string{"onclick", "javascript:", "<script", "<iframe"} {
		if strings.Contains(out, bad) {
			t.Errorf("sanitized output still contains %q: %s", bad, out)
		}
	}
	if !strings.Contains(out, `href="https://ok.test"`) || !strings.Contains(out, "Olá") {
		t.Errorf("sanitized output lost safe content: %s", out)
	}
}
