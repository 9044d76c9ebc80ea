package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

type xmlDocument struct {
	XMLName xml.Name `xml:"w:document"`
	NS      string   `xml:"xmlns:w,attr"`
	Body    xmlBody  `xml:"w:body"`
}

type xmlBody struct {
	Paragraphs []xmlParagraph `xml:"w:p"`
	SectPr     xmlSectPr      `xml:"w:sectPr"`
}

type xmlParagraph struct {
	Props *xmlParagraphProps `xml:"w:pPr,omitempty"`
	Runs  []xmlRun           `xml:"w:r"`
}

type xmlParagraphProps struct {
	Style *xmlVal `xml:"w:pStyle,omitempty"`
	Jc    *xmlVal `xml:"w:jc,omitempty"`
}

type xmlVal struct {
	Val string `xml:"w:val,attr"`
}

type xmlRun struct {
	Props *xmlRunProps `xml:"w:rPr,omitempty"`
	Br    *xmlBreak    `xml:"w:br,omitempty"`
	Text  *xmlText     `xml:"w:t,omitempty"`
}

type xmlRunProps struct {
	Bold      *struct{} `xml:"w:b,omitempty"`
	Italic    *struct{} `xml:"w:i,omitempty"`
	Underline *xmlVal   `xml:"w:u,omitempty"`
}

type xmlBreak struct {
	Type string `xml:"w:type,attr,omitempty"`
}

type xmlText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

// A4 portrait with 2 cm margins, in twentieths of a point.
type xmlSectPr struct {
	PgSz  xmlPageSize   `xml:"w:pgSz"`
	PgMar xmlPageMargin `xml:"w:pgMar"`
}

type xmlPageSize struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type xmlPageMargin struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
}

func pageBreak() xmlParagraph {
	return xmlParagraph{Runs: []xmlRun{{Br: &xmlBreak{Type: "page"}}}}
}

func (d *Document) body() xmlBody {
	var b xmlBody
	for i, s := range d.Sections {
		if i > 0 {
			b.Paragraphs = append(b.Paragraphs, pageBreak())
		}
		for _, p := range s.Paragraphs {
			b.Paragraphs = append(b.Paragraphs, encodeParagraph(p))
		}
	}
	b.SectPr = xmlSectPr{
		PgSz:  xmlPageSize{W: 11906, H: 16838},
		PgMar: xmlPageMargin{Top: 1134, Right: 1134, Bottom: 1134, Left: 1134, Header: 567, Footer: 567},
	}
	return b
}

func encodeParagraph(p Paragraph) xmlParagraph {
	var xp xmlParagraph
	if p.Style != "" || p.Align != "" {
		xp.Props = &xmlParagraphProps{}
		if p.Style != "" {
			xp.Props.Style = &xmlVal{Val: p.Style}
		}
		if p.Align != "" {
			xp.Props.Jc = &xmlVal{Val: p.Align}
		}
	}
	for _, r := range p.Runs {
		xp.Runs = append(xp.Runs, encodeRun(r))
	}
	return xp
}

func encodeRun(r Run) xmlRun {
	var xr xmlRun
	if r.Bold || r.Italic || r.Underline {
		xr.Props = &xmlRunProps{}
		if r.Bold {
			xr.Props.Bold = &struct{}{}
		}
		if r.Italic {
			xr.Props.Italic = &struct{}{}
		}
		if r.Underline {
			xr.Props.Underline = &xmlVal{Val: "single"}
		}
	}
	if r.Break {
		xr.Br = &xmlBreak{}
		return xr
	}
	t := &xmlText{Value: r.Text}
	if strings.TrimSpace(r.Text) != r.Text {
		t.Space = "preserve"
	}
	xr.Text = t
	return xr
}

// DocumentXML renders word/document.xml.
func (d *Document) DocumentXML() ([]byte, error) {
	out, err := xml.Marshal(xmlDocument{NS: wordNS, Body: d.body()})
	if err != nil {
		return nil, fmt.Errorf("marshaling document.xml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Encode writes the document as a .docx package.
func (d *Document) Encode(w io.Writer) error {
	documentXML, err := d.DocumentXML()
	if err != nil {
		return err
	}

	var title strings.Builder
	if err := xml.EscapeText(&title, []byte(d.Title)); err != nil {
		return fmt.Errorf("escaping title: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"docProps/core.xml", []byte(fmt.Sprintf(coreXML, title.String()))},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", documentXML},
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		entry, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := entry.Write(p.data); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing docx archive: %w", err)
	}
	return nil
}
