package pptx

import "strings"

// ShapeKind is the element name of a shape-tree child.
type ShapeKind string

const (
	KindShape        ShapeKind = "sp"
	KindPicture      ShapeKind = "pic"
	KindGroup        ShapeKind = "grpSp"
	KindGraphicFrame ShapeKind = "graphicFrame"
	KindConnector    ShapeKind = "cxnSp"
	KindOther        ShapeKind = "other"
)

// Default text frame insets in EMUs, used by PowerPoint when bodyPr omits them.
const (
	DefaultInsetLeftRight = 91440
	DefaultInsetTopBottom = 45720
)

// Slide represents a parsed slide.
type Slide struct {
	Index  int      // 0-indexed slide number
	Part   string   // Part name, e.g. ppt/slides/slide1.xml
	Layout string   // Part name of the slide layout, if any
	Shapes []*Shape // Top-level shapes in tree order

	// Namespaces maps the prefixes declared on the slide root to their URIs.
	// Raw shape elements are only well-formed in this scope.
	Namespaces map[string]string

	rels map[string]Relationship
}

// Rel returns the slide relationship with the given ID.
func (s *Slide) Rel(id string) (Relationship, bool) {
	rel, ok := s.rels[id]
	return rel, ok
}

// Relationship is a resolved package relationship. For internal targets,
// Target is the absolute part name without a leading slash.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Shape is one top-level element of a slide's shape tree.
type Shape struct {
	Index int // Position in the shape tree, 0-based
	Kind  ShapeKind
	ID    int
	Name  string

	X, Y          int64 // Position in EMUs
	Width, Height int64 // Size in EMUs
	Inherited     bool  // Geometry came from the layout or master

	Placeholder *Placeholder
	Text        *TextBody // set for every autoshape, nil otherwise
	Picture     *Picture  // set for pictures only

	// Raw is the element exactly as serialized in the slide part.
	Raw []byte
}

// HasTextFrame reports whether the shape can hold text. Autoshapes always
// can; pictures, groups, graphic frames and connectors cannot.
func (s *Shape) HasTextFrame() bool {
	return s.Text != nil
}

// IsPicture reports whether the shape is a picture.
func (s *Shape) IsPicture() bool {
	return s.Kind == KindPicture
}

// Placeholder identifies a placeholder shape.
type Placeholder struct {
	Type string // title, body, ctrTitle, subTitle, pic, ...; "" means obj
	Idx  *int
}

// Picture holds the relationship references of a picture's blip.
type Picture struct {
	Embed string // r:embed
	Link  string // r:link
}

// TextBody is the text frame of a shape. The same type is used when
// writing text boxes.
type TextBody struct {
	Props      BodyProps
	Paragraphs []Paragraph
}

// Text returns the paragraphs joined by newlines.
func (b *TextBody) Text() string {
	if b == nil {
		return ""
	}
	parts := make([]string, len(b.Paragraphs))
	for i, p := range b.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// BodyProps holds text frame properties. Nil insets mean the default.
type BodyProps struct {
	Anchor string // t, ctr, b; "" when absent
	Wrap   string
	LIns   *int64
	TIns   *int64
	RIns   *int64
	BIns   *int64
}

// Insets returns the left, top, right and bottom insets in EMUs with
// defaults applied.
func (p BodyProps) Insets() (l, t, r, b int64) {
	l, t, r, b = DefaultInsetLeftRight, DefaultInsetTopBottom, DefaultInsetLeftRight, DefaultInsetTopBottom
	if p.LIns != nil {
		l = *p.LIns
	}
	if p.TIns != nil {
		t = *p.TIns
	}
	if p.RIns != nil {
		r = *p.RIns
	}
	if p.BIns != nil {
		b = *p.BIns
	}
	return l, t, r, b
}

// Paragraph represents a paragraph within a text body. Spacing values are in
// hundredths of a point; nil means inherited or not expressed in points.
type Paragraph struct {
	Align       string // l, ctr, r, just, dist, ...; "" when absent
	LineSpacing *int
	SpaceBefore *int
	SpaceAfter  *int
	Runs        []Run
}

// Text returns the concatenated run text.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Run represents a text run. A line break is a run whose text is "\n".
// Nil attributes are inherited.
type Run struct {
	Text      string
	Size      *int // In hundredths of a point
	Typeface  *string
	Bold      *bool
	Italic    *bool
	Underline *bool
}

var alignNames = map[string]string{
	"l":        "left",
	"ctr":      "center",
	"r":        "right",
	"just":     "justify",
	"dist":     "distribute",
	"justLow":  "justify_low",
	"thaiDist": "thai_distribute",
}

var anchorNames = map[string]string{
	"t":   "top",
	"ctr": "middle",
	"b":   "bottom",
}

// AlignmentName maps an algn attribute value to its name ("ctr" -> "center").
func AlignmentName(code string) (string, bool) {
	name, ok := alignNames[code]
	return name, ok
}

// AlignmentCode maps an alignment name back to its attribute value.
func AlignmentCode(name string) (string, bool) {
	for code, n := range alignNames {
		if n == name {
			return code, true
		}
	}
	return "", false
}

// AnchorName maps a bodyPr anchor value to its name ("ctr" -> "middle").
func AnchorName(code string) (string, bool) {
	name, ok := anchorNames[code]
	return name, ok
}

// AnchorCode maps a vertical alignment name back to its anchor value.
func AnchorCode(name string) (string, bool) {
	for code, n := range anchorNames {
		if n == name {
			return code, true
		}
	}
	return "", false
}
