// Package images produces slide illustrations: an HTTP client for an
// OpenAI-style image generation endpoint and an Illustrator that attaches
// generated images to a slide deck.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// HTTPGenerator calls an images/generations endpoint.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	model    string
	size     string
	client   *http.Client
}

var _ core.ImageGenerator = (*HTTPGenerator)(nil)

// NewHTTPGenerator creates a generator from the image service settings.
func NewHTTPGenerator(cfg config.Images) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		size:     cfg.Size,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type generateResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate requests one image for prompt.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (*core.GeneratedImage, error) {
	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, N: 1, Size: g.size})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling image API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("image API returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("image API returned %d: %s", resp.StatusCode, string(raw))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("image API returned no images")
	}

	d := out.Data[0]
	img := &core.GeneratedImage{RevisedPrompt: d.RevisedPrompt}
	switch {
	case d.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decoding image data: %w", err)
		}
		img.Bytes = data
		img.MimeType = http.DetectContentType(data)
	case d.URL != "":
		img.URL = d.URL
	default:
		return nil, errors.New("image API returned an empty image")
	}
	return img, nil
}
