package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medtosdigital/aulagia/core"
)

// jsonDocument is the structured export: the normalised material with its
// composed pages, for clients that lay out the content themselves.
type jsonDocument struct {
	ID         string              `json:"id"`
	TemplateID string              `json:"templateId"`
	Layout     core.Format         `json:"layout"`
	Material   core.Material       `json:"material"`
	TotalPages int                 `json:"totalPages"`
	Pages      []core.ComposedPage `json:"pages"`
}

// JSONRenderer produces the structured JSON export.
type JSONRenderer struct{}

var _ core.Renderer = (*JSONRenderer)(nil)

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the rendering.
func (r *JSONRenderer) Render(ctx context.Context, doc *core.Rendering) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(core.FormatJSON, err)
	}
	data, err := json.MarshalIndent(jsonDocument{
		ID:         doc.ID,
		TemplateID: doc.TemplateID,
		Layout:     doc.Format,
		Material:   doc.Material,
		TotalPages: len(doc.Pages),
		Pages:      doc.Pages,
	}, "", "  ")
	if err != nil {
		return nil, fail(core.FormatJSON, fmt.Errorf("marshaling JSON: %w", err))
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// ContentType returns the MIME type of JSON output.
func (r *JSONRenderer) ContentType() string {
	return "application/json"
}
