package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/logger"
)

// Slide roles appended to prompts.
const (
	RoleCover   = "cover"
	RoleContent = "content"
	RoleClosing = "closing"
)

// Illustrator generates the images of a slide deck one slide at a time.
type Illustrator struct {
	gen   core.ImageGenerator
	log   *logger.Logger
	delay time.Duration
	max   int
}

// NewIllustrator creates an Illustrator. Requests are spaced by cfg.Delay
// and capped at cfg.MaxPerDeck per deck (0 means no cap).
func NewIllustrator(gen core.ImageGenerator, log *logger.Logger, cfg config.Images) *Illustrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Illustrator{gen: gen, log: log, delay: cfg.Delay, max: cfg.MaxPerDeck}
}

// Role returns the role of slide i in a deck of n slides.
func Role(i, n int) string {
	switch {
	case i == 0:
		return RoleCover
	case i == n-1:
		return RoleClosing
	default:
		return RoleContent
	}
}

// Prompt augments a slide's image prompt with the material context.
func Prompt(prompt string, m core.Material, role string) string {
	parts := []string{strings.TrimRight(strings.TrimSpace(prompt), ".")}
	if m.Subject != "" {
		parts = append(parts, "subject: "+m.Subject)
	}
	if m.Grade != "" {
		parts = append(parts, "grade: "+m.Grade)
	}
	parts = append(parts, "slide role: "+role, "educational illustration, no text")
	return strings.Join(parts, "; ")
}

// Illustrate returns a copy of m whose slides carry generated images.
// Slides that already have an image, or have no prompt, are left alone.
// Failures, the request cap and cancellation leave a placeholder image and
// a warning; Illustrate itself never fails. m is not modified.
func (il *Illustrator) Illustrate(ctx context.Context, m core.Material) (core.Material, []core.Warning) {
	if m.SlideDeck == nil {
		return m, nil
	}
	deck := *m.SlideDeck
	deck.Slides = append([]core.Slide(nil), m.SlideDeck.Slides...)
	m.SlideDeck = &deck

	var warnings []core.Warning
	requests := 0
	for i := range deck.Slides {
		s := &deck.Slides[i]
		if s.ImagePrompt == "" || (s.Image != nil && !s.Image.Placeholder && s.Image.Src != "") {
			continue
		}
		path := fmt.Sprintf("slides[%d].image", i)
		placeholder := func(reason string) {
			s.Image = &core.ImageRef{Alt: s.ImagePrompt, Placeholder: true}
			warnings = append(warnings, core.Warning{Path: path, Message: reason})
		}

		if il.max > 0 && requests >= il.max {
			placeholder(fmt.Sprintf("image limit of %d per deck reached", il.max))
			continue
		}
		if requests > 0 && il.delay > 0 {
			if err := wait(ctx, il.delay); err != nil {
				placeholder("image generation cancelled")
				continue
			}
		}
		if ctx.Err() != nil {
			placeholder("image generation cancelled")
			continue
		}

		requests++
		img, err := il.gen.Generate(ctx, Prompt(s.ImagePrompt, m, Role(i, len(deck.Slides))))
		if err != nil {
			il.log.Warn("slide image generation failed", "slide", i, "error", err)
			placeholder("image generation failed: " + err.Error())
			continue
		}
		src := img.URL
		if len(img.Bytes) > 0 {
			src = "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Bytes)
		}
		s.Image = &core.ImageRef{Src: src, Alt: s.ImagePrompt}
		il.log.Debug("slide image generated", "slide", i)
	}
	return m, warnings
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
