// Package pipeline wires the stages into the operations offered to a host:
// normalise and validate raw content, render composed pages for preview,
// and render an export artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/compile"
	"github.com/medtosdigital/aulagia/core/compose"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/images"
	"github.com/medtosdigital/aulagia/core/logger"
	"github.com/medtosdigital/aulagia/core/normalize"
	"github.com/medtosdigital/aulagia/core/paginate"
	"github.com/medtosdigital/aulagia/core/render"
)

var (
	// ErrTemplateMismatch is returned when a template is applied to a
	// material of another type.
	ErrTemplateMismatch = errors.New("template does not match material type")
	// ErrUnknownFormat is returned for an export format with no renderer.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Engine runs the shared pipeline. It holds no per-render state, so one
// Engine serves concurrent renders.
type Engine struct {
	cfg         *config.Config
	log         *logger.Logger
	compiler    core.Compiler
	paginator   core.Paginator
	composer    core.Composer
	fetcher     core.Fetcher
	illustrator *images.Illustrator
	overrides   map[core.Format]core.Renderer
	renderers   map[core.Format]core.Renderer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer replaces the backend of one export format.
func WithRenderer(format core.Format, r core.Renderer) Option {
	return func(e *Engine) { e.overrides[format] = r }
}

// WithCompiler replaces the template compiler.
func WithCompiler(c core.Compiler) Option {
	return func(e *Engine) { e.compiler = c }
}

// WithPaginator replaces the pagination engine.
func WithPaginator(p core.Paginator) Option {
	return func(e *Engine) { e.paginator = p }
}

// WithComposer replaces the page composer.
func WithComposer(c core.Composer) Option {
	return func(e *Engine) { e.composer = c }
}

// WithFetcher sets the fetcher the slide backend uses for image URLs.
func WithFetcher(f core.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithIllustrator enables image generation for slide deck exports.
func WithIllustrator(il *images.Illustrator) Option {
	return func(e *Engine) { e.illustrator = il }
}

// New creates an Engine from the configuration.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		cfg:       cfg,
		log:       log,
		compiler:  compile.New(),
		paginator: paginate.New(cfg.Heuristics),
		composer:  compose.New(cfg.Brand),
		overrides: make(map[core.Format]core.Renderer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.renderers = render.Defaults(e.fetcher, cfg.Layouts.Slide)
	for f, r := range e.overrides {
		e.renderers[f] = r
	}
	return e
}

// NormalizeAndValidate repairs raw content into a Material and reports
// what was repaired, plus the structural findings of question sets. raw is
// never modified.
func (e *Engine) NormalizeAndValidate(raw map[string]any) (core.Material, []core.Warning) {
	m, warnings := normalize.Material(raw)
	if m.QuestionSet != nil {
		report := normalize.ValidateSet(m.QuestionSet.Questions)
		warnings = append(warnings, report.Errors...)
		warnings = append(warnings, report.Warnings...)
	}
	return m, warnings
}

// Render runs compile → paginate → compose for the layout of format.
func (e *Engine) Render(tpl core.Template, m core.Material, format core.Format) (*core.Rendering, error) {
	if tpl.MaterialType != m.Type {
		return nil, fmt.Errorf("%w: template %s is for %s, material is %s",
			ErrTemplateMismatch, tpl.ID, tpl.MaterialType, m.Type)
	}
	id := uuid.NewString()
	log := e.log.With("rendering", id, "template", tpl.ID, "format", string(format))

	markup := e.compiler.Compile(tpl, m.TemplateData())
	if left := compile.Leftovers(markup); len(left) > 0 {
		log.Error("compiled markup has unresolved placeholders", "placeholders", left)
	}

	layout := e.cfg.Layout(format)
	fragments, err := e.paginator.Paginate(markup, m.Type, layout.Budget())
	if err != nil {
		return nil, fmt.Errorf("paginating %s: %w", tpl.ID, err)
	}
	pages := e.composer.Compose(fragments, m)
	log.Debug("rendered", "pages", len(pages))

	return &core.Rendering{
		ID:         id,
		TemplateID: tpl.ID,
		Format:     format,
		Material:   m,
		Markup:     markup,
		Pages:      pages,
	}, nil
}

// RenderForPreview returns the composed pages in the print layout.
func (e *Engine) RenderForPreview(tpl core.Template, m core.Material) ([]core.ComposedPage, error) {
	r, err := e.Render(tpl, m, core.FormatPrint)
	if err != nil {
		return nil, err
	}
	return r.Pages, nil
}

// RenderForExport runs the shared pipeline and the backend of format.
// Slide decks are illustrated first when an Illustrator is configured.
// When only the backend fails, the rendering is still returned so the
// export can be retried with Export.
func (e *Engine) RenderForExport(ctx context.Context, tpl core.Template, m core.Material, format core.Format) (*core.Artifact, *core.Rendering, error) {
	if _, ok := e.renderers[format]; !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if e.illustrator != nil && m.SlideDeck != nil {
		var warnings []core.Warning
		m, warnings = e.illustrator.Illustrate(ctx, m)
		for _, w := range warnings {
			e.log.Warn("slide illustration", "warning", w.String())
		}
	}
	rendering, err := e.Render(tpl, m, format)
	if err != nil {
		return nil, nil, err
	}
	artifact, err := e.Export(ctx, rendering, format)
	if err != nil {
		return nil, rendering, err
	}
	return artifact, rendering, nil
}

// Export converts an existing rendering with the backend of format. The
// rendering is not modified.
func (e *Engine) Export(ctx context.Context, rendering *core.Rendering, format core.Format) (*core.Artifact, error) {
	r, ok := e.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	data, err := r.Render(ctx, rendering)
	if err != nil {
		e.log.Error("export failed", "rendering", rendering.ID, "format", string(format), "error", err)
		return nil, err
	}
	e.log.Info("exported", "rendering", rendering.ID, "format", string(format), "bytes", len(data))
	return &core.Artifact{
		Format:      format,
		Extension:   r.Extension(),
		ContentType: r.ContentType(),
		Data:        data,
	}, nil
}

// Supports reports whether format has a backend.
func (e *Engine) Supports(format core.Format) bool {
	_, ok := e.renderers[format]
	return ok
}
