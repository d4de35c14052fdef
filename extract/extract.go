package extract

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tsawler/slidekit/archive"
	"github.com/tsawler/slidekit/internal/logging"
	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/pptx"
)

const stage = "extract"

// Options configures the extraction functions.
type Options struct {
	Logger *slog.Logger

	// MatchTolerance is used by MergeImages; zero means
	// model.DefaultMatchTolerance.
	MatchTolerance float64
}

func (o Options) logger() *slog.Logger {
	return logging.OrDiscard(o.Logger).With("stage", stage)
}

func (o Options) tolerance() float64 {
	if o.MatchTolerance <= 0 {
		return model.DefaultMatchTolerance
	}
	return o.MatchTolerance
}

// Result is the outcome of an extraction.
type Result struct {
	Presentation *model.Presentation
	Warnings     []model.Warning
	ArchivePath  string // zip written from the store; "" if none
}

type run struct {
	log      *slog.Logger
	store    *archive.Store
	warnings []model.Warning
}

func (r *run) warn(slide int, shape, format string, args ...any) {
	w := model.Warning{Stage: stage, Slide: slide, Shape: shape, Message: fmt.Sprintf(format, args...)}
	r.warnings = append(r.warnings, w)
	r.log.Warn(w.Message, "slide", slide, "shape", shape)
}

// Extract builds a presentation from the text shapes of textDoc and the
// pictures of imageDoc. Slides are paired by position; a slide that exists
// in only one document still contributes its shapes. Slide size is taken
// from textDoc.
//
// Each slide lists its text shapes first, then its images, each group in
// shape-tree order. When all slides are done the store is packed into its
// zip; failing to write the zip is the only fatal error.
func Extract(textDoc, imageDoc *pptx.Document, store *archive.Store, opts Options) (*Result, error) {
	r := &run{log: opts.logger(), store: store}

	textSlides, imageSlides := textDoc.Slides(), imageDoc.Slides()
	n := max(len(textSlides), len(imageSlides))
	if len(textSlides) != len(imageSlides) {
		r.warn(0, "", "text source has %d slides, image source has %d", len(textSlides), len(imageSlides))
	}

	pres := model.NewPresentation(textDoc.SlideWidth(), textDoc.SlideHeight())
	for i := 0; i < n; i++ {
		slide := pres.AddSlide()

		var ts, is *pptx.Slide
		if i < len(textSlides) {
			ts = textSlides[i]
		}
		if i < len(imageSlides) {
			is = imageSlides[i]
		}
		switch {
		case ts == nil:
			r.warn(slide.Number, "", "slide missing from text source")
		case is == nil:
			r.warn(slide.Number, "", "slide missing from image source")
		case len(ts.Shapes) != len(is.Shapes):
			r.warn(slide.Number, "", "sources differ in shape count (%d text, %d image)", len(ts.Shapes), len(is.Shapes))
		}

		if ts != nil {
			for _, sh := range ts.Shapes {
				if sh.HasTextFrame() {
					slide.Shapes = append(slide.Shapes, TextShape(sh))
				}
			}
		}
		if is != nil {
			for _, sh := range is.Shapes {
				if sh.IsPicture() {
					slide.Shapes = append(slide.Shapes, r.imageShape(imageDoc, is, sh, slide.Number))
				}
			}
		}
		r.log.Debug("slide extracted", "slide", slide.Number, "shapes", len(slide.Shapes))
	}

	res := &Result{Presentation: pres, Warnings: r.warnings}
	zipPath, err := store.Pack()
	if err != nil {
		return res, &model.StageError{Stage: stage, Path: store.ZipPath(), Err: fmt.Errorf("%w: %v", model.ErrOutputWrite, err)}
	}
	res.ArchivePath = zipPath
	r.log.Info("extraction finished", "slides", len(pres.Slides), "images", len(pres.Images()), "warnings", len(r.warnings))
	return res, nil
}

// TextShape converts a shape with a text frame into a text shape. Content
// is the paragraph text joined by newlines with surrounding whitespace
// removed.
func TextShape(sh *pptx.Shape) *model.Shape {
	s := model.NewTextShape(sh.Name, model.PositionFromEMU(sh.X, sh.Y), model.SizeFromEMU(sh.Width, sh.Height))
	s.SourceIndex = sh.Index
	if sh.Text == nil {
		return s
	}

	content := strings.TrimSpace(sh.Text.Text())
	s.Content = &content

	props := s.TextProperties
	if name, ok := pptx.AnchorName(sh.Text.Props.Anchor); ok {
		props.VerticalAlignment = model.String(name)
	}
	l, t, rt, b := sh.Text.Props.Insets()
	props.MarginLeft = model.Float(model.ToPoints(l))
	props.MarginTop = model.Float(model.ToPoints(t))
	props.MarginRight = model.Float(model.ToPoints(rt))
	props.MarginBottom = model.Float(model.ToPoints(b))

	for _, p := range sh.Text.Paragraphs {
		props.Paragraphs = append(props.Paragraphs, paragraph(p))
	}
	return s
}

func paragraph(p pptx.Paragraph) model.Paragraph {
	out := model.Paragraph{
		LineSpacing: hundredths(p.LineSpacing),
		SpaceBefore: hundredths(p.SpaceBefore),
		SpaceAfter:  hundredths(p.SpaceAfter),
		Runs:        make([]model.Run, 0, len(p.Runs)),
	}
	if name, ok := pptx.AlignmentName(p.Align); ok {
		out.Alignment = model.String(name)
	}
	for _, r := range p.Runs {
		out.Runs = append(out.Runs, model.Run{
			Text:      r.Text,
			FontSize:  hundredths(r.Size),
			FontName:  r.Typeface,
			Bold:      r.Bold,
			Italic:    r.Italic,
			Underline: r.Underline,
		})
	}
	return out
}

// hundredths converts a value in hundredths of a point to points.
func hundredths(v *int) *float64 {
	if v == nil {
		return nil
	}
	return model.Float(float64(*v) / 100)
}

// imageShape converts a picture. The shape is always returned; when its
// bytes cannot be read, validated or stored the metadata carries the error
// instead.
func (r *run) imageShape(doc *pptx.Document, s *pptx.Slide, sh *pptx.Shape, slideNum int) *model.Shape {
	out := model.NewImageShape(sh.Name, model.PositionFromEMU(sh.X, sh.Y), model.SizeFromEMU(sh.Width, sh.Height), model.ImageMetadata{})
	out.SourceIndex = sh.Index

	meta, err := r.storeImage(doc, s, sh, slideNum)
	if err != nil {
		out.ImageMetadata.Error = err.Error()
		r.warn(slideNum, sh.Name, "image not extracted: %v", err)
		return out
	}
	out.ImageMetadata = meta
	return out
}

func (r *run) storeImage(doc *pptx.Document, s *pptx.Slide, sh *pptx.Shape, slideNum int) (*model.ImageMetadata, error) {
	data, ext, contentType, err := doc.PictureData(s, sh)
	if err != nil {
		return nil, err
	}
	info, err := archive.Probe(data, contentType, ext)
	if err != nil {
		return nil, err
	}
	name, path, err := r.store.Put(slideNum, info.Ext, data)
	if err != nil {
		return nil, err
	}
	r.log.Debug("image stored", "slide", slideNum, "shape", sh.Name, "file", name, "bytes", len(data))
	return &model.ImageMetadata{
		ContentType: info.ContentType,
		Ext:         info.Ext,
		Filename:    name,
		SavedPath:   path,
		Base64:      base64.StdEncoding.EncodeToString(data),
	}, nil
}
