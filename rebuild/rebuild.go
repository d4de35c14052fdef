// Package rebuild writes a PPTX deck from the slidekit interchange model.
//
// Text shapes become text boxes. Rendered lines, when present, win over the
// paragraph structure so the rebuilt deck breaks lines where the renderer
// did. Image shapes are read back from an ImageSource by file name.
package rebuild

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/tsawler/slidekit/archive"
	"github.com/tsawler/slidekit/internal/logging"
	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/pptx"
)

const stage = "rebuild"

// ImageSource returns image bytes by archive entry name.
// archive.Zip and archive.Dir implement it.
type ImageSource interface {
	ReadFile(name string) ([]byte, error)
}

// Options configures a rebuild.
type Options struct {
	// InlineFallback uses an image's inline base64 copy when the source has
	// no entry for it.
	InlineFallback bool

	Logger *slog.Logger
}

// alignments are the paragraph alignments written back; anything else is
// written as left.
var alignments = map[string]string{
	"left":    "l",
	"center":  "ctr",
	"right":   "r",
	"justify": "just",
}

type builder struct {
	opts     Options
	log      *slog.Logger
	images   ImageSource
	warnings []model.Warning
}

func (b *builder) warn(slide int, shape, format string, args ...any) {
	w := model.Warning{Stage: stage, Slide: slide, Shape: shape, Message: fmt.Sprintf(format, args...)}
	b.warnings = append(b.warnings, w)
	b.log.Warn(w.Message, "slide", slide, "shape", shape)
}

// Build lays out pres on a new deck of the recorded slide size with one
// blank slide per slide. images may be nil when the deck has no pictures.
// Shapes that cannot be rebuilt are skipped and reported as warnings.
func Build(pres *model.Presentation, images ImageSource, opts Options) (*pptx.Writer, []model.Warning) {
	b := &builder{opts: opts, log: logging.OrDiscard(opts.Logger).With("stage", stage), images: images}
	w := pptx.NewWriter(pres.SlideWidthEMU, pres.SlideHeightEMU)

	for _, slide := range pres.Slides {
		sw := w.AddSlide()
		for _, sh := range slide.Shapes {
			switch sh.Type {
			case model.ShapeText:
				b.addText(sw, sh)
			case model.ShapeImage:
				b.addImage(sw, slide.Number, sh)
			default:
				b.warn(slide.Number, sh.Name, "unknown shape type %q skipped", sh.Type)
			}
		}
		b.log.Debug("slide rebuilt", "slide", slide.Number, "shapes", sw.ShapeCount())
	}
	return w, b.warnings
}

func geometry(sh *model.Shape) (x, y, cx, cy int64) {
	x, y = sh.Position.EMU()
	cx, cy = sh.Size.EMU()
	return x, y, cx, cy
}

func (b *builder) addText(sw *pptx.SlideWriter, sh *model.Shape) {
	x, y, cx, cy := geometry(sh)
	sw.AddTextBox(sh.Name, x, y, cx, cy, TextBody(sh))
}

// TextBody converts the text of a shape into a text frame. Paragraphs come
// from, in order of preference: rendered lines (one unformatted paragraph
// each), the recorded paragraphs, or the newline-separated content.
func TextBody(sh *model.Shape) pptx.TextBody {
	var body pptx.TextBody
	props := sh.TextProperties
	if props != nil {
		if props.VerticalAlignment != nil {
			if code, ok := pptx.AnchorCode(*props.VerticalAlignment); ok {
				body.Props.Anchor = code
			}
		}
		body.Props.LIns = emu(props.MarginLeft)
		body.Props.TIns = emu(props.MarginTop)
		body.Props.RIns = emu(props.MarginRight)
		body.Props.BIns = emu(props.MarginBottom)
	}

	switch {
	case len(sh.RenderedLines) > 0:
		for _, line := range sh.RenderedLines {
			body.Paragraphs = append(body.Paragraphs, plainParagraph(line))
		}
	case props != nil && len(props.Paragraphs) > 0:
		for _, p := range props.Paragraphs {
			body.Paragraphs = append(body.Paragraphs, paragraph(p))
		}
	case sh.Content != nil && *sh.Content != "":
		for _, line := range strings.Split(*sh.Content, "\n") {
			body.Paragraphs = append(body.Paragraphs, plainParagraph(line))
		}
	}
	return body
}

func plainParagraph(text string) pptx.Paragraph {
	return pptx.Paragraph{Runs: []pptx.Run{{Text: text}}}
}

func paragraph(p model.Paragraph) pptx.Paragraph {
	out := pptx.Paragraph{
		Align:       "l",
		LineSpacing: hundredths(p.LineSpacing),
		SpaceBefore: hundredths(p.SpaceBefore),
		SpaceAfter:  hundredths(p.SpaceAfter),
	}
	if p.Alignment != nil {
		if code, ok := alignments[*p.Alignment]; ok {
			out.Align = code
		}
	}
	for _, r := range p.Runs {
		out.Runs = append(out.Runs, pptx.Run{
			Text:      r.Text,
			Size:      hundredths(r.FontSize),
			Typeface:  r.FontName,
			Bold:      r.Bold,
			Italic:    r.Italic,
			Underline: r.Underline,
		})
	}
	return out
}

// hundredths converts points to hundredths of a point.
func hundredths(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v * 100))
	return &n
}

func emu(pt *float64) *int64 {
	if pt == nil {
		return nil
	}
	v := model.ToEMU(*pt)
	return &v
}

func (b *builder) addImage(sw *pptx.SlideWriter, slide int, sh *model.Shape) {
	meta := sh.ImageMetadata
	switch {
	case meta == nil:
		b.warn(slide, sh.Name, "image has no metadata, skipped")
		return
	case meta.Error != "":
		b.warn(slide, sh.Name, "image was not extracted (%s), skipped", meta.Error)
		return
	case meta.Filename == "":
		b.warn(slide, sh.Name, "image has no filename, skipped")
		return
	}

	data, err := b.imageData(meta)
	if err != nil {
		b.warn(slide, sh.Name, "image %s skipped: %v", meta.Filename, err)
		return
	}

	ext := meta.Ext
	if ext == "" {
		if i := strings.LastIndexByte(meta.Filename, '.'); i >= 0 {
			ext = meta.Filename[i+1:]
		}
	}
	x, y, cx, cy := geometry(sh)
	if err := sw.AddPicture(sh.Name, x, y, cx, cy, data, ext); err != nil {
		b.warn(slide, sh.Name, "image %s skipped: %v", meta.Filename, err)
	}
}

func (b *builder) imageData(meta *model.ImageMetadata) ([]byte, error) {
	var err error
	if b.images != nil {
		var data []byte
		data, err = b.images.ReadFile(meta.Filename)
		if err == nil {
			return data, nil
		}
	} else {
		err = fmt.Errorf("%w: no image archive", archive.ErrNotFound)
	}

	if !b.opts.InlineFallback || meta.Base64 == "" || !errors.Is(err, archive.ErrNotFound) {
		return nil, err
	}
	data, decErr := base64.StdEncoding.DecodeString(meta.Base64)
	if decErr != nil {
		return nil, fmt.Errorf("%v; inline copy unreadable: %w", err, decErr)
	}
	b.log.Debug("using inline image copy", "file", meta.Filename)
	return data, nil
}
