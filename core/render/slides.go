package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
)

// pxToPt converts CSS pixels to PDF points.
const pxToPt = 0.75

const (
	slideMargin  = 56.0
	accentColour = "#D97706"
	inkColour    = "#0F172A"
	mutedColour  = "#64748B"
)

var (
	fontsOnce             sync.Once
	regularFont, boldFont *truetype.Font
	fontsErr              error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

// SlideRenderer rasterises each page as one fixed-size slide and assembles
// the slides into a landscape PDF, one slide per PDF page.
type SlideRenderer struct {
	fetcher core.Fetcher
	width   float64
	height  float64
}

var _ core.Renderer = (*SlideRenderer)(nil)

// NewSlideRenderer creates a SlideRenderer drawing on a canvas of the
// layout's page size. fetcher resolves images referenced by URL; with a nil
// fetcher only data URIs are drawn and other images become placeholders.
func NewSlideRenderer(fetcher core.Fetcher, layout config.Layout) *SlideRenderer {
	return &SlideRenderer{fetcher: fetcher, width: layout.PageWidth, height: layout.PageHeight}
}

// slideContent is what gets drawn on one canvas.
type slideContent struct {
	title       string
	body        string
	bullets     []string
	imageSrc    string
	imageAlt    string
	placeholder bool
	cover       bool
}

// Render draws every page and writes the PDF.
func (r *SlideRenderer) Render(ctx context.Context, doc *core.Rendering) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fail(core.FormatSlide, fmt.Errorf("rendering %s has no pages", doc.ID))
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, fail(core.FormatSlide, fmt.Errorf("invalid slide canvas %.0fx%.0f", r.width, r.height))
	}
	if err := loadFonts(); err != nil {
		return nil, fail(core.FormatSlide, fmt.Errorf("loading fonts: %w", err))
	}

	wPt, hPt := r.width*pxToPt, r.height*pxToPt
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wPt, Ht: hPt},
	})
	pdf.SetTitle(doc.Material.Title, true)
	pdf.SetCreator(doc.Pages[0].Header.Brand, true)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for _, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, fail(core.FormatSlide, err)
		}
		content, err := pageSlide(p, doc.Material.Title)
		if err != nil {
			return nil, fail(core.FormatSlide, fmt.Errorf("page %d: %w", p.Ordinal, err))
		}
		png, err := r.draw(ctx, p, content)
		if err != nil {
			return nil, fail(core.FormatSlide, fmt.Errorf("page %d: %w", p.Ordinal, err))
		}
		name := fmt.Sprintf("slide-%d", p.Ordinal)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, 0, 0, wPt, hPt, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fail(core.FormatSlide, err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for slide output.
func (r *SlideRenderer) Extension() string {
	return ".pdf"
}

// ContentType returns the MIME type of slide output.
func (r *SlideRenderer) ContentType() string {
	return "application/pdf"
}

// pageSlide reads the slide content back from the page blocks. Pages of
// other material types become text slides titled with the material title.
func pageSlide(p core.ComposedPage, title string) (slideContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.Join(p.Blocks, "\n")))
	if err != nil {
		return slideContent{}, fmt.Errorf("parsing page: %w", err)
	}
	slide := doc.Find(".slide").First()
	if slide.Length() == 0 {
		return slideContent{title: title, body: collapseSpace(doc.Find("body").Text())}, nil
	}

	c := slideContent{
		title: collapseSpace(slide.Find(".slide-title").First().Text()),
		body:  collapseSpace(slide.Find(".slide-text").First().Text()),
		cover: slide.HasClass("slide-cover"),
	}
	slide.Find(".slide-bullets li").Each(func(_ int, li *goquery.Selection) {
		if t := collapseSpace(li.Text()); t != "" {
			c.bullets = append(c.bullets, t)
		}
	})
	if img := slide.Find("img.slide-image").First(); img.Length() > 0 {
		c.imageSrc = img.AttrOr("src", "")
		c.imageAlt = img.AttrOr("alt", "")
	}
	if ph := slide.Find(".slide-image-placeholder").First(); ph.Length() > 0 {
		c.placeholder = true
		c.imageAlt = collapseSpace(ph.Text())
	}
	return c, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *SlideRenderer) draw(ctx context.Context, p core.ComposedPage, c slideContent) ([]byte, error) {
	w, h := r.width, r.height
	dc := gg.NewContext(int(w), int(h))
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetHexColor(accentColour)
	dc.DrawRectangle(0, 0, w, 14)
	dc.Fill()

	dc.SetFontFace(face(boldFont, 18))
	dc.SetHexColor(mutedColour)
	dc.DrawString(p.Header.Brand, slideMargin, 52)

	if c.cover {
		dc.SetFontFace(face(boldFont, 60))
		dc.SetHexColor(accentColour)
		dc.DrawStringWrapped(c.title, w/2, h/2-40, 0.5, 0.5, w-4*slideMargin, 1.3, gg.AlignCenter)
		if c.body != "" {
			dc.SetFontFace(face(regularFont, 28))
			dc.SetHexColor(inkColour)
			dc.DrawStringWrapped(c.body, w/2, h/2+70, 0.5, 0, w-4*slideMargin, 1.4, gg.AlignCenter)
		}
	} else {
		textWidth := w - 2*slideMargin
		hasImage := c.imageSrc != "" || c.placeholder
		if hasImage {
			textWidth = w*0.55 - slideMargin
		}

		dc.SetFontFace(face(boldFont, 42))
		dc.SetHexColor(accentColour)
		y := 120.0
		for _, line := range dc.WordWrap(c.title, w-2*slideMargin) {
			dc.DrawString(line, slideMargin, y)
			y += 52
		}
		y += 16

		dc.SetHexColor(inkColour)
		dc.SetFontFace(face(regularFont, 26))
		for _, line := range dc.WordWrap(c.body, textWidth) {
			dc.DrawString(line, slideMargin, y)
			y += 36
		}
		if c.body != "" {
			y += 12
		}
		for _, bullet := range c.bullets {
			lines := dc.WordWrap(bullet, textWidth-32)
			dc.DrawString("•", slideMargin, y)
			for _, line := range lines {
				dc.DrawString(line, slideMargin+32, y)
				y += 36
			}
			y += 6
		}

		if hasImage {
			x, top := w*0.55+slideMargin/2, 150.0
			bw, bh := w-x-slideMargin, h-top-90
			r.drawImage(ctx, dc, c, x, top, bw, bh)
		}
	}

	dc.SetFontFace(face(regularFont, 18))
	dc.SetHexColor(mutedColour)
	dc.DrawStringAnchored(p.Footer.Label, w-slideMargin, h-36, 1, 0)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding slide: %w", err)
	}
	return buf.Bytes(), nil
}

// drawImage fits the slide image into the box, or draws a placeholder
// when the image is missing or cannot be loaded.
func (r *SlideRenderer) drawImage(ctx context.Context, dc *gg.Context, c slideContent, x, y, bw, bh float64) {
	if !c.placeholder && c.imageSrc != "" {
		if img, err := r.loadImage(ctx, c.imageSrc); err == nil {
			b := img.Bounds()
			scale := min(bw/float64(b.Dx()), bh/float64(b.Dy()))
			dw, dh := int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)
			if dw > 0 && dh > 0 {
				dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
				draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
				dc.DrawImage(dst, int(x+(bw-float64(dw))/2), int(y+(bh-float64(dh))/2))
				return
			}
		}
	}

	dc.SetHexColor("#CBD5E1")
	dc.SetLineWidth(3)
	dc.SetDash(14, 10)
	dc.DrawRoundedRectangle(x, y, bw, bh, 14)
	dc.Stroke()
	dc.SetDash()

	label := c.imageAlt
	if label == "" {
		label = "Image unavailable"
	}
	dc.SetFontFace(face(regularFont, 20))
	dc.SetHexColor("#94A3B8")
	dc.DrawStringWrapped(label, x+bw/2, y+bh/2, 0.5, 0.5, bw-40, 1.4, gg.AlignCenter)
}

func (r *SlideRenderer) loadImage(ctx context.Context, src string) (image.Image, error) {
	var data []byte
	switch {
	case strings.HasPrefix(src, "data:"):
		decoded, err := decodeDataURI(src)
		if err != nil {
			return nil, err
		}
		data = decoded
	case r.fetcher != nil:
		res, err := r.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		data = res.Body
	default:
		return nil, errors.New("no fetcher for remote image")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// decodeDataURI returns the payload of a data: URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingNone})
}
