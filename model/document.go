package model

import "strings"

// ShapeType discriminates the shape union. Only text boxes and pictures are
// modelled; anything else read from JSON keeps its raw discriminator and is
// reported as unknown.
type ShapeType string

const (
	ShapeText  ShapeType = "text"
	ShapeImage ShapeType = "image"
)

// Known reports whether t is one of the modelled shape types.
func (t ShapeType) Known() bool {
	return t == ShapeText || t == ShapeImage
}

// Presentation is the interchange representation of a slide deck.
type Presentation struct {
	SlideWidthEMU  int64    `json:"slide_width_emu"`
	SlideHeightEMU int64    `json:"slide_height_emu"`
	Slides         []*Slide `json:"slides"`
}

// Slide holds the shapes of one slide in document order.
type Slide struct {
	Number int      `json:"slide_number"` // 1-based
	Shapes []*Shape `json:"shapes"`
}

// Shape is a text box or a picture. Geometry is always in points.
type Shape struct {
	Type        ShapeType `json:"type"`
	Name        string    `json:"name"`
	SourceIndex int       `json:"source_index"`
	Position    Position  `json:"position"`
	Size        Size      `json:"size"`

	// Text
	Content        *string         `json:"content,omitempty"`
	TextProperties *TextProperties `json:"text_properties,omitempty"`
	RenderedLines  []string        `json:"rendered_lines,omitempty"`

	// Image
	ImageMetadata *ImageMetadata `json:"image_metadata,omitempty"`
}

// TextProperties carries the text frame formatting of a text shape.
type TextProperties struct {
	Paragraphs        []Paragraph `json:"paragraphs"`
	VerticalAlignment *string     `json:"vertical_alignment"`
	MarginLeft        *float64    `json:"margin_left_pt,omitempty"`
	MarginRight       *float64    `json:"margin_right_pt,omitempty"`
	MarginTop         *float64    `json:"margin_top_pt,omitempty"`
	MarginBottom      *float64    `json:"margin_bottom_pt,omitempty"`
}

// Paragraph is one paragraph of a text frame. Nil fields inherit the
// container default.
type Paragraph struct {
	Alignment   *string  `json:"alignment"`
	Runs        []Run    `json:"runs"`
	LineSpacing *float64 `json:"line_spacing"`
	SpaceBefore *float64 `json:"space_before"`
	SpaceAfter  *float64 `json:"space_after"`
}

// Text returns the concatenated run text.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Run is a span of text sharing one formatting set. The boolean attributes
// are three-state: nil means inherit, which is distinct from false.
type Run struct {
	Text      string   `json:"text"`
	FontSize  *float64 `json:"font_size_pt"`
	FontName  *string  `json:"font_name"`
	Bold      *bool    `json:"bold"`
	Italic    *bool    `json:"italic"`
	Underline *bool    `json:"underline"`
}

// ImageMetadata describes an image shape's bytes and where they were stored.
// Error is set instead of the other fields when the bytes could not be
// extracted or stored.
type ImageMetadata struct {
	ContentType string `json:"content_type,omitempty"`
	Ext         string `json:"ext,omitempty"`
	Filename    string `json:"filename,omitempty"`
	SavedPath   string `json:"saved_path,omitempty"`
	Base64      string `json:"thumbnail_base64,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewPresentation creates an empty presentation of the given size in EMU.
func NewPresentation(widthEMU, heightEMU int64) *Presentation {
	return &Presentation{
		SlideWidthEMU:  widthEMU,
		SlideHeightEMU: heightEMU,
		Slides:         make([]*Slide, 0),
	}
}

// AddSlide appends a new empty slide and returns it.
func (p *Presentation) AddSlide() *Slide {
	s := &Slide{Number: len(p.Slides) + 1, Shapes: make([]*Shape, 0)}
	p.Slides = append(p.Slides, s)
	return s
}

// GetSlide returns the first slide whose slide_number is number, or nil.
// Numbers need not be consecutive.
func (p *Presentation) GetSlide(number int) *Slide {
	for _, s := range p.Slides {
		if s.Number == number {
			return s
		}
	}
	return nil
}

// WidthPt returns the slide width in points.
func (p *Presentation) WidthPt() float64 {
	return ToPoints(p.SlideWidthEMU)
}

// HeightPt returns the slide height in points.
func (p *Presentation) HeightPt() float64 {
	return ToPoints(p.SlideHeightEMU)
}

// ShapeCount returns the number of shapes across all slides.
func (p *Presentation) ShapeCount() int {
	n := 0
	for _, s := range p.Slides {
		n += len(s.Shapes)
	}
	return n
}

// Images returns every image shape, in slide order.
func (p *Presentation) Images() []*Shape {
	var out []*Shape
	for _, s := range p.Slides {
		for _, sh := range s.Shapes {
			if sh.Type == ShapeImage {
				out = append(out, sh)
			}
		}
	}
	return out
}

// NewTextShape creates a text shape with an empty text frame.
func NewTextShape(name string, pos Position, size Size) *Shape {
	content := ""
	return &Shape{
		Type:           ShapeText,
		Name:           name,
		Position:       pos,
		Size:           size,
		Content:        &content,
		TextProperties: &TextProperties{Paragraphs: make([]Paragraph, 0)},
	}
}

// NewImageShape creates an image shape with the given metadata.
func NewImageShape(name string, pos Position, size Size, meta ImageMetadata) *Shape {
	return &Shape{
		Type:          ShapeImage,
		Name:          name,
		Position:      pos,
		Size:          size,
		ImageMetadata: &meta,
	}
}

// Rect returns the rectangle the shape covers, in points.
func (s *Shape) Rect() Rect {
	return RectOf(s.Position, s.Size)
}

// Text returns the shape's flattened text, or "" for non-text shapes.
func (s *Shape) Text() string {
	if s.Content == nil {
		return ""
	}
	return *s.Content
}

// RemoveImages drops every image shape from the slide and returns how many
// were removed.
func (s *Slide) RemoveImages() int {
	kept := s.Shapes[:0]
	removed := 0
	for _, sh := range s.Shapes {
		if sh.Type == ShapeImage {
			removed++
			continue
		}
		kept = append(kept, sh)
	}
	for i := len(kept); i < len(s.Shapes); i++ {
		s.Shapes[i] = nil
	}
	s.Shapes = kept
	return removed
}

// TextShapes returns the slide's text shapes in order.
func (s *Slide) TextShapes() []*Shape {
	var out []*Shape
	for _, sh := range s.Shapes {
		if sh.Type == ShapeText {
			out = append(out, sh)
		}
	}
	return out
}

// Clone returns a deep copy of the presentation.
func (p *Presentation) Clone() *Presentation {
	if p == nil {
		return nil
	}
	out := &Presentation{
		SlideWidthEMU:  p.SlideWidthEMU,
		SlideHeightEMU: p.SlideHeightEMU,
		Slides:         make([]*Slide, len(p.Slides)),
	}
	for i, s := range p.Slides {
		ns := &Slide{Number: s.Number, Shapes: make([]*Shape, len(s.Shapes))}
		for j, sh := range s.Shapes {
			ns.Shapes[j] = sh.Clone()
		}
		out.Slides[i] = ns
	}
	return out
}

// Clone returns a deep copy of the shape.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}
	out := *s
	if s.Content != nil {
		c := *s.Content
		out.Content = &c
	}
	if s.RenderedLines != nil {
		out.RenderedLines = append([]string(nil), s.RenderedLines...)
	}
	if s.ImageMetadata != nil {
		m := *s.ImageMetadata
		out.ImageMetadata = &m
	}
	if s.TextProperties != nil {
		tp := *s.TextProperties
		tp.VerticalAlignment = cloneString(tp.VerticalAlignment)
		tp.MarginLeft = cloneFloat(tp.MarginLeft)
		tp.MarginRight = cloneFloat(tp.MarginRight)
		tp.MarginTop = cloneFloat(tp.MarginTop)
		tp.MarginBottom = cloneFloat(tp.MarginBottom)
		tp.Paragraphs = make([]Paragraph, len(s.TextProperties.Paragraphs))
		for i, para := range s.TextProperties.Paragraphs {
			np := Paragraph{
				Alignment:   cloneString(para.Alignment),
				LineSpacing: cloneFloat(para.LineSpacing),
				SpaceBefore: cloneFloat(para.SpaceBefore),
				SpaceAfter:  cloneFloat(para.SpaceAfter),
				Runs:        make([]Run, len(para.Runs)),
			}
			for j, r := range para.Runs {
				np.Runs[j] = Run{
					Text:      r.Text,
					FontSize:  cloneFloat(r.FontSize),
					FontName:  cloneString(r.FontName),
					Bold:      cloneBool(r.Bold),
					Italic:    cloneBool(r.Italic),
					Underline: cloneBool(r.Underline),
				}
			}
			tp.Paragraphs[i] = np
		}
		out.TextProperties = &tp
	}
	return &out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// String returns a pointer to s. Handy for filling optional fields.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
