// Package render provides the export backends. Every backend reads the
// same finished core.Rendering (composed pages plus the material) and never
// modifies it, so a failed export can be retried, or redirected to another
// format, without running the pipeline again.
package render

import (
	"fmt"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
)

// Error is a backend failure for one export attempt.
type Error struct {
	Format core.Format
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s export: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(format core.Format, err error) error {
	return &Error{Format: format, Err: err}
}

// Defaults returns one renderer per export format. fetcher resolves slide
// images referenced by URL and may be nil; slide is the slide canvas.
func Defaults(fetcher core.Fetcher, slide config.Layout) map[core.Format]core.Renderer {
	return map[core.Format]core.Renderer{
		core.FormatPrint:    NewHTMLRenderer(),
		core.FormatWord:     NewWordRenderer(),
		core.FormatSlide:    NewSlideRenderer(fetcher, slide),
		core.FormatMarkdown: NewMarkdownRenderer(),
		core.FormatJSON:     NewJSONRenderer(),
	}
}
