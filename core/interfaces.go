// Package core defines the data model and the stage interfaces of the
// material rendering pipeline: normalize → compile → paginate → compose →
// render. Each stage is a clean, testable interface; every value that flows
// between stages is created per render and never shared mutably.
package core

import "context"

// FetchResult holds the body and response metadata of a fetched asset.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a remote asset (slide images referenced by URL).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Compiler substitutes a template's placeholders, loops and conditionals
// with values from data. Compile is pure: same input, same output.
type Compiler interface {
	Compile(tpl Template, data map[string]any) string
}

// Paginator splits compiled markup into page fragments whose estimated
// height stays within budget, never splitting an atomic block.
type Paginator interface {
	Paginate(markup string, materialType MaterialType, budget float64) ([]PageFragment, error)
}

// Composer wraps page fragments with header, footer and decoration.
type Composer interface {
	Compose(fragments []PageFragment, m Material) []ComposedPage
}

// Renderer converts a finished Rendering into an export artifact.
type Renderer interface {
	Render(ctx context.Context, doc *Rendering) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".html", ".pdf").
	Extension() string
	// ContentType returns the MIME type of the produced artifact.
	ContentType() string
}

// GeneratedImage is a raster image returned by an ImageGenerator.
// Either Bytes (with MimeType) or URL is set.
type GeneratedImage struct {
	Bytes         []byte
	MimeType      string
	URL           string
	RevisedPrompt string
}

// ImageGenerator produces an image for a textual prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*GeneratedImage, error)
}
