// Package extract splits compiled markup into top-level content blocks for
// the paginator and sanitises untrusted rich text before it reaches a
// template.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LeadSelector marks content that must open the first page (instructions,
// lesson topic).
const LeadSelector = ".page-lead"

// Block is one top-level chunk of compiled markup.
type Block struct {
	Markup    string
	Atomic    bool // matches the atomic selector; never split
	Lead      bool // matches LeadSelector
	Selection *goquery.Selection
}

// Text returns the whitespace-collapsed text content of the block.
func (b Block) Text() string {
	return strings.Join(strings.Fields(b.Selection.Text()), " ")
}

// Blocks parses markup and returns its blocks in document order. Elements
// matching atomicSel become atomic blocks; containers holding atomic
// blocks are flattened into their children; everything else is kept
// whole. Whitespace-only text and comments are skipped.
func Blocks(markup, atomicSel string) ([]Block, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	var (
		blocks  []Block
		walkErr error
	)
	var walk func(parent *goquery.Selection)
	walk = func(parent *goquery.Selection) {
		parent.Contents().Each(func(_ int, s *goquery.Selection) {
			if walkErr != nil {
				return
			}
			switch goquery.NodeName(s) {
			case "#comment", "#doctype":
				return
			case "#text":
				if strings.TrimSpace(s.Text()) == "" {
					return
				}
			}

			b := Block{Selection: s}
			switch {
			case atomicSel != "" && s.Is(atomicSel):
				b.Atomic = true
			case s.Is(LeadSelector):
				b.Lead = true
			case atomicSel != "" && s.Find(atomicSel).Length() > 0:
				walk(s)
				return
			}
			b.Markup, walkErr = goquery.OuterHtml(s)
			if walkErr != nil {
				walkErr = fmt.Errorf("serializing block: %w", walkErr)
				return
			}
			blocks = append(blocks, b)
		})
	}
	walk(doc.Find("body"))
	if walkErr != nil {
		return nil, walkErr
	}
	return blocks, nil
}

// noiseSelectors are elements never allowed in user or generator supplied
// rich text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"iframe", "frame", "frameset", "object", "embed",
	"link", "meta", "base",
	"form", "button", "input", "select", "textarea",
}

// Sanitize removes active content from an HTML fragment: noise elements,
// on* event handler attributes and javascript: URLs.
func Sanitize(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		var unsafe []string
		for _, attr := range node.Attr {
			key := strings.ToLower(attr.Key)
			val := strings.ToLower(strings.TrimSpace(attr.Val))
			if strings.HasPrefix(key, "on") ||
				((key == "href" || key == "src") && strings.HasPrefix(val, "javascript:")) {
				unsafe = append(unsafe, attr.Key)
			}
		}
		for _, key := range unsafe {
			s.RemoveAttr(key)
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML: %w", err)
	}
	return strings.TrimSpace(out), nil
}
