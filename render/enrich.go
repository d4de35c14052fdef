package render

import (
	"fmt"

	"github.com/tsawler/slidekit/model"
)

const stage = "enrich"

// Report summarizes an Enrich call.
type Report struct {
	Attached int // line-to-shape attachments; a line may attach to several shapes
	Dropped  int // lines inside no text shape
	Shapes   int // text shapes whose rendered lines were replaced
	Warnings []model.Warning
}

// Enrich returns a copy of pres with rendered lines attached. Page n maps to
// the slide whose slide_number is n. Each line box is scaled from page space to slide points per axis,
// and the line is attached to every text shape whose rectangle contains the
// scaled top-left corner, bounds included. Lines keep their page order.
//
// A shape that gains at least one line has its rendered lines replaced; a
// shape that gains none keeps whatever it had.
func Enrich(pres *model.Presentation, pages []Page) (*model.Presentation, Report) {
	out := pres.Clone()
	var rep Report
	warn := func(slide int, format string, args ...any) {
		rep.Warnings = append(rep.Warnings, model.Warning{Stage: stage, Slide: slide, Message: fmt.Sprintf(format, args...)})
	}

	slideW, slideH := out.WidthPt(), out.HeightPt()
	seen := make(map[int]bool, len(pages))

	for _, page := range pages {
		seen[page.Number] = true
		slide := out.GetSlide(page.Number)
		if slide == nil {
			warn(0, "page %d has no matching slide", page.Number)
			rep.Dropped += len(page.Lines)
			continue
		}
		if page.Width <= 0 || page.Height <= 0 {
			warn(slide.Number, "page %d has no usable size", page.Number)
			rep.Dropped += len(page.Lines)
			continue
		}
		sx, sy := slideW/page.Width, slideH/page.Height

		shapes := slide.TextShapes()
		gained := make([][]string, len(shapes))
		for _, line := range page.Lines {
			corner := line.Box.Scale(sx, sy).Origin()
			matched := false
			for i, sh := range shapes {
				if sh.Rect().Contains(corner) {
					gained[i] = append(gained[i], line.Text)
					rep.Attached++
					matched = true
				}
			}
			if !matched {
				rep.Dropped++
			}
		}
		for i, sh := range shapes {
			if len(gained[i]) > 0 {
				sh.RenderedLines = gained[i]
				rep.Shapes++
			}
		}
	}

	for _, slide := range out.Slides {
		if !seen[slide.Number] {
			warn(slide.Number, "slide has no rendered page")
		}
	}
	return out, rep
}
