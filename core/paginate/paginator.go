// Package paginate splits compiled markup into page fragments. Heights are
// estimated from text length and element counts, not measured: the
// constants live in config.Heuristics and are tuned against real output.
package paginate

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/extract"
)

const (
	questionSelector = ".question"
	sectionSelector  = ".plan-section"
	slideSelector    = ".slide"

	optionSelector  = ".question-option, .match-row, .answer-line"
	diagramSelector = ".question-diagram, .drawing-box, img"
)

// Paginator implements core.Paginator.
type Paginator struct {
	h config.Heuristics
}

var _ core.Paginator = (*Paginator)(nil)

// New creates a Paginator using the given height heuristics.
func New(h config.Heuristics) *Paginator {
	return &Paginator{h: h}
}

// AtomicSelector returns the selector of the blocks that are never split
// for material type mt, or "" when the type is not split at all.
func AtomicSelector(mt core.MaterialType) string {
	switch {
	case mt.IsQuestionSet():
		return questionSelector
	case mt == core.MaterialLessonPlan:
		return sectionSelector
	case mt == core.MaterialSlideDeck:
		return slideSelector
	}
	return ""
}

// Paginate splits markup into fragments whose estimated height stays within
// budget. A block taller than the budget is placed alone on its page.
// Markup with no atomic blocks comes back as one unchanged fragment.
func (p *Paginator) Paginate(markup string, mt core.MaterialType, budget float64) ([]core.PageFragment, error) {
	sel := AtomicSelector(mt)
	if sel == "" {
		return single(markup), nil
	}

	blocks, err := extract.Blocks(markup, sel)
	if err != nil {
		return nil, fmt.Errorf("paginating %s: %w", mt, err)
	}
	if countAtomic(blocks) == 0 {
		return single(markup), nil
	}

	switch {
	case mt == core.MaterialSlideDeck:
		return p.perSlide(blocks), nil
	case mt == core.MaterialLessonPlan:
		if countAtomic(blocks) <= 2 {
			return p.onePage(blocks, p.sectionHeight), nil
		}
		return p.accumulate(blocks, budget, p.sectionHeight), nil
	default:
		return p.accumulate(blocks, budget, p.questionHeight), nil
	}
}

func single(markup string) []core.PageFragment {
	return []core.PageFragment{{Ordinal: 1, IsFirst: true, Blocks: []string{markup}}}
}

func countAtomic(blocks []extract.Block) int {
	n := 0
	for _, b := range blocks {
		if b.Atomic {
			n++
		}
	}
	return n
}

// leadFirst moves lead blocks to the front, keeping relative order.
func leadFirst(blocks []extract.Block) []extract.Block {
	out := make([]extract.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Lead {
			out = append(out, b)
		}
	}
	for _, b := range blocks {
		if !b.Lead {
			out = append(out, b)
		}
	}
	return out
}

// accumulate fills pages in order, closing the current page when the next
// block would overflow it.
func (p *Paginator) accumulate(blocks []extract.Block, budget float64, atomicHeight func(extract.Block) float64) []core.PageFragment {
	var (
		pages  []core.PageFragment
		cur    []string
		height float64
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		pages = append(pages, core.PageFragment{
			Ordinal:         len(pages) + 1,
			IsFirst:         len(pages) == 0,
			Blocks:          cur,
			EstimatedHeight: height,
		})
		cur, height = nil, 0
	}

	for _, b := range leadFirst(blocks) {
		h := p.looseHeight(b)
		if b.Atomic {
			h = atomicHeight(b)
		}
		if len(cur) > 0 && height+h > budget {
			flush()
		}
		cur = append(cur, b.Markup)
		height += h
	}
	flush()
	return pages
}

func (p *Paginator) onePage(blocks []extract.Block, atomicHeight func(extract.Block) float64) []core.PageFragment {
	frag := core.PageFragment{Ordinal: 1, IsFirst: true}
	for _, b := range leadFirst(blocks) {
		frag.Blocks = append(frag.Blocks, b.Markup)
		if b.Atomic {
			frag.EstimatedHeight += atomicHeight(b)
		} else {
			frag.EstimatedHeight += p.looseHeight(b)
		}
	}
	return []core.PageFragment{frag}
}

// perSlide maps every slide to its own fragment. Loose blocks travel with
// the following slide, or with the last slide when none follows.
func (p *Paginator) perSlide(blocks []extract.Block) []core.PageFragment {
	var (
		pages   []core.PageFragment
		pending []string
	)
	for _, b := range blocks {
		if !b.Atomic {
			pending = append(pending, b.Markup)
			continue
		}
		pages = append(pages, core.PageFragment{
			Ordinal: len(pages) + 1,
			IsFirst: len(pages) == 0,
			Blocks:  append(pending, b.Markup),
		})
		pending = nil
	}
	if len(pending) > 0 {
		last := &pages[len(pages)-1]
		last.Blocks = append(last.Blocks, pending...)
	}
	return pages
}

// questionHeight estimates a question block as a base height plus prompt
// lines, one row per option, matching row or answer line, and a fixed
// allowance when the question carries a diagram or drawing area.
func (p *Paginator) questionHeight(b extract.Block) float64 {
	s := b.Selection
	prompt := b.Text()
	if ps := s.Find(".question-prompt"); ps.Length() > 0 {
		prompt = strings.Join(strings.Fields(ps.First().Text()), " ")
	}
	h := p.h.QuestionBase + p.textLines(prompt)*p.h.LineHeight
	h += float64(s.Find(optionSelector).Length()) * p.h.OptionHeight
	if s.Find(diagramSelector).Length() > 0 {
		h += p.h.DiagramHeight
	}
	return h
}

func (p *Paginator) sectionHeight(extract.Block) float64 {
	return p.h.SectionHeight
}

func (p *Paginator) looseHeight(b extract.Block) float64 {
	return p.h.BlockBase + p.textLines(b.Text())*p.h.LineHeight
}

func (p *Paginator) textLines(text string) float64 {
	if p.h.CharsPerLine <= 0 {
		return 0
	}
	return math.Ceil(float64(utf8.RuneCountInString(text)) / float64(p.h.CharsPerLine))
}
