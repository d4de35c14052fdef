package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/slidekit/internal/logging"
	"github.com/tsawler/slidekit/model"
)

// Page is one rendered page. Sizes and line boxes are in page points with
// the origin at the top-left corner.
type Page struct {
	Number int // 1-based
	Width  float64
	Height float64
	Lines  []Line
}

// Line is one line of rendered text.
type Line struct {
	Text string
	Box  model.Rect
}

// LineSource reads the rendered text lines of a PDF.
type LineSource interface {
	Pages(ctx context.Context, pdfPath string) ([]Page, error)
}

// Structs to parse the stext XML output of mutool. Boxes are
// "x0 y0 x1 y1" in float points.
type stextChar struct {
	C string `xml:"c,attr"`
}

// stextFont covers <font> and, in older MuPDF releases, <span>.
type stextFont struct {
	Chars []stextChar `xml:"char"`
}

type stextLine struct {
	BBox  string      `xml:"bbox,attr"`
	Fonts []stextFont `xml:"font"`
	Spans []stextFont `xml:"span"`
}

type stextBlock struct {
	Lines []stextLine `xml:"line"`
}

type stextPage struct {
	Width  float64      `xml:"width,attr"`
	Height float64      `xml:"height,attr"`
	Blocks []stextBlock `xml:"block"`
}

type stextDocument struct {
	XMLName xml.Name    `xml:"document"`
	Pages   []stextPage `xml:"page"`
}

func (l stextLine) text() string {
	var b strings.Builder
	for _, fonts := range [][]stextFont{l.Fonts, l.Spans} {
		for _, f := range fonts {
			for _, c := range f.Chars {
				b.WriteString(c.C)
			}
		}
	}
	return b.String()
}

func parseBBox(s string) (model.Rect, error) {
	f := strings.Fields(s)
	if len(f) != 4 {
		return model.Rect{}, fmt.Errorf("malformed bbox %q", s)
	}
	var v [4]float64
	for i := range f {
		n, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return model.Rect{}, fmt.Errorf("malformed bbox %q", s)
		}
		v[i] = n
	}
	return model.Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, nil
}

// Mutool reads lines with "mutool draw -F stext" and page sizes with
// pdfcpu.
type Mutool struct {
	Binary string // defaults to "mutool"
	Logger *slog.Logger
}

// Pages implements LineSource. Page sizes come from the PDF itself; the
// sizes mutool reports are used only for pages pdfcpu does not list.
func (m *Mutool) Pages(ctx context.Context, pdfPath string) ([]Page, error) {
	bin := m.Binary
	if bin == "" {
		bin = "mutool"
	}
	log := logging.OrDiscard(m.Logger)

	output, err := execStdout(ctx, bin, "draw", "-q", "-F", "stext", pdfPath)
	if err != nil {
		return nil, fmt.Errorf("reading layout of %s: %w", pdfPath, err)
	}
	pages, err := ParseSText(output)
	if err != nil {
		return nil, fmt.Errorf("reading layout of %s: %w", pdfPath, err)
	}

	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dimensions: %w", err)
	}
	if len(dims) != len(pages) {
		log.Warn("page count mismatch", "pdf", pdfPath, "layout_pages", len(pages), "pdf_pages", len(dims))
	}
	for i := range pages {
		if i < len(dims) {
			pages[i].Width, pages[i].Height = dims[i].Width, dims[i].Height
		}
	}
	log.Debug("layout read", "pdf", pdfPath, "pages", len(pages))
	return pages, nil
}

// ParseSText decodes mutool stext XML output. Stray warning lines are
// ignored. Line text is the concatenation of its characters, trimmed and
// NFKC-normalized so ligature glyphs read as plain letters. Image blocks
// carry no lines.
func ParseSText(output []byte) ([]Page, error) {
	var doc stextDocument
	if err := xml.NewDecoder(bytes.NewReader(stripWarnings(output))).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding stext: %w", err)
	}

	pages := make([]Page, len(doc.Pages))
	for pn, p := range doc.Pages {
		page := Page{Number: pn + 1, Width: p.Width, Height: p.Height, Lines: make([]Line, 0)}
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				box, err := parseBBox(l.BBox)
				if err != nil {
					return nil, fmt.Errorf("decoding stext page %d: %w", pn+1, err)
				}
				page.Lines = append(page.Lines, Line{
					Text: norm.NFKC.String(strings.TrimSpace(l.text())),
					Box:  box,
				})
			}
		}
		pages[pn] = page
	}
	return pages, nil
}
