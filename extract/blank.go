package extract

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/pptx"
)

// Placeholder text written into blanked shapes.
const (
	TextPlaceholder  = "[Text Placeholder]"
	ImagePlaceholder = "[Image Placeholder]"
)

// ErrUnsupportedRelationship is returned for a raw shape that references a
// package part other than media, such as a chart or embedded object.
var ErrUnsupportedRelationship = errors.New("relationship to unsupported part")

// Blank creates a layout-only copy of doc. Every text shape and picture is
// replaced by a text box at the same geometry holding a placeholder string;
// all other shapes are dropped.
//
// The returned presentation is the matching blank structure: the kept
// shapes with their type, name and geometry, plus the original text of text
// shapes. Image shapes carry empty metadata until MergeImages fills it.
func Blank(doc *pptx.Document, opts Options) (*pptx.Writer, *model.Presentation) {
	log := opts.logger()
	w := pptx.NewWriter(doc.SlideWidth(), doc.SlideHeight())
	pres := model.NewPresentation(doc.SlideWidth(), doc.SlideHeight())

	for _, s := range doc.Slides() {
		sw := w.AddSlide()
		slide := pres.AddSlide()

		for _, sh := range s.Shapes {
			pos, size := model.PositionFromEMU(sh.X, sh.Y), model.SizeFromEMU(sh.Width, sh.Height)

			var shape *model.Shape
			var text string
			switch {
			case sh.HasTextFrame():
				shape = model.NewTextShape(sh.Name, pos, size)
				content := sh.Text.Text()
				shape.Content = &content
				shape.TextProperties = nil
				text = TextPlaceholder
			case sh.IsPicture():
				shape = model.NewImageShape(sh.Name, pos, size, model.ImageMetadata{})
				text = ImagePlaceholder
			default:
				log.Debug("shape dropped", "slide", slide.Number, "shape", sh.Name, "kind", sh.Kind)
				continue
			}
			shape.SourceIndex = sh.Index
			slide.Shapes = append(slide.Shapes, shape)

			sw.AddTextBox(sh.Name, sh.X, sh.Y, sh.Width, sh.Height, pptx.TextBody{
				Paragraphs: []pptx.Paragraph{{Runs: []pptx.Run{{Text: text}}}},
			})
		}
	}

	log.Info("blank layout built", "slides", len(pres.Slides), "shapes", pres.ShapeCount())
	return w, pres
}

// BlankRaw copies every top-level shape of doc into a new deck verbatim.
// Media the shapes reference is copied along with them and external links
// are re-created. A shape that references any other part is skipped with a
// warning, as is one whose namespaces cannot be declared on the new slide.
func BlankRaw(doc *pptx.Document, opts Options) (*pptx.Writer, []model.Warning) {
	r := &run{log: opts.logger()}
	w := pptx.NewWriter(doc.SlideWidth(), doc.SlideHeight())

	for _, s := range doc.Slides() {
		sw := w.AddSlide()
		for _, sh := range s.Shapes {
			remap := func(id string) (string, error) {
				return copyRel(doc, s, sw, id)
			}
			if err := sw.AddRaw(sh.Raw, s.Namespaces, remap); err != nil {
				r.warn(s.Index+1, sh.Name, "shape not copied: %v", err)
			}
		}
	}
	return w, r.warnings
}

// copyRel re-creates relationship id of s on sw and returns its new ID.
func copyRel(doc *pptx.Document, s *pptx.Slide, sw *pptx.SlideWriter, id string) (string, error) {
	rel, ok := s.Rel(id)
	if !ok {
		return "", fmt.Errorf("unknown relationship %s", id)
	}
	if rel.External {
		return sw.LinkExternal(rel.Type, rel.Target), nil
	}
	if !strings.HasPrefix(rel.Target, "ppt/media/") {
		return "", fmt.Errorf("%w: %s -> %s", ErrUnsupportedRelationship, id, rel.Target)
	}
	data, err := doc.Part(rel.Target)
	if err != nil {
		return "", err
	}
	return sw.EmbedPart(rel.Type, data, path.Ext(rel.Target), doc.ContentType(rel.Target)), nil
}
