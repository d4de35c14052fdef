// Package pptx provides PPTX (Office Open XML Presentation) reading and writing.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Errors returned by PictureData.
var (
	ErrNotPicture   = errors.New("shape is not a picture")
	ErrLinkedImage  = errors.New("picture is linked, not embedded")
	ErrMissingImage = errors.New("picture part not found")
)

// Document provides access to PPTX document content.
type Document struct {
	closer       io.Closer
	files        map[string]*zip.File
	contentTypes *contentTypesXML
	width        int64
	height       int64
	slides       []*Slide
	layouts      map[string]*placeholderSet // layout/master part -> placeholders
}

// placeholderSet holds the placeholder geometry of a layout or master.
type placeholderSet struct {
	parent string // master part for a layout
	shapes []placeholderGeom
}

type placeholderGeom struct {
	typ  string
	idx  *int
	xfrm xfrmXML
}

// Open opens a PPTX file for reading.
func Open(filename string) (*Document, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	d, err := newDocument(&zr.Reader)
	if err != nil {
		zr.Close()
		return nil, err
	}
	d.closer = zr
	return d, nil
}

// OpenReader reads a PPTX package from r.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	return newDocument(zr)
}

func newDocument(zr *zip.Reader) (*Document, error) {
	d := &Document{
		files:   make(map[string]*zip.File, len(zr.File)),
		layouts: make(map[string]*placeholderSet),
	}
	for _, f := range zr.File {
		d.files[f.Name] = f
	}

	// Validate required files exist
	if err := d.validate(); err != nil {
		return nil, err
	}

	d.parseContentTypes()

	if err := d.parseSlides(); err != nil {
		return nil, fmt.Errorf("parsing slides: %w", err)
	}
	return d, nil
}

// Close releases resources associated with the Document.
func (d *Document) Close() error {
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

// validate checks that required PPTX files exist.
func (d *Document) validate() error {
	for _, name := range []string{"[Content_Types].xml", "ppt/presentation.xml"} {
		if _, ok := d.files[name]; !ok {
			return fmt.Errorf("missing required file: %s", name)
		}
	}
	return nil
}

// Part returns the content of a package part.
func (d *Document) Part(name string) ([]byte, error) {
	f, ok := d.files[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HasPart reports whether the package contains the named part.
func (d *Document) HasPart(name string) bool {
	_, ok := d.files[strings.TrimPrefix(name, "/")]
	return ok
}

// ContentType returns the declared content type of a part, or "".
func (d *Document) ContentType(name string) string {
	if d.contentTypes == nil {
		return ""
	}
	partName := "/" + strings.TrimPrefix(name, "/")
	for _, o := range d.contentTypes.Override {
		if strings.EqualFold(o.PartName, partName) {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, def := range d.contentTypes.Default {
		if strings.EqualFold(def.Extension, ext) {
			return def.ContentType
		}
	}
	return ""
}

// SlideWidth returns the slide width in EMUs.
func (d *Document) SlideWidth() int64 {
	return d.width
}

// SlideHeight returns the slide height in EMUs.
func (d *Document) SlideHeight() int64 {
	return d.height
}

// Slides returns the slides in presentation order.
func (d *Document) Slides() []*Slide {
	return d.slides
}

// SlideCount returns the number of slides.
func (d *Document) SlideCount() int {
	return len(d.slides)
}

// PictureData returns the embedded bytes of a picture together with the
// lowercase file extension and declared content type of its media part.
func (d *Document) PictureData(s *Slide, sh *Shape) ([]byte, string, string, error) {
	if sh.Picture == nil {
		return nil, "", "", ErrNotPicture
	}
	if sh.Picture.Embed == "" {
		if sh.Picture.Link != "" {
			return nil, "", "", ErrLinkedImage
		}
		return nil, "", "", fmt.Errorf("%w: no r:embed on %q", ErrMissingImage, sh.Name)
	}
	rel, ok := s.Rel(sh.Picture.Embed)
	if !ok {
		return nil, "", "", fmt.Errorf("%w: relationship %s", ErrMissingImage, sh.Picture.Embed)
	}
	if rel.External {
		return nil, "", "", ErrLinkedImage
	}
	data, err := d.Part(rel.Target)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", ErrMissingImage, err)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(rel.Target), "."))
	return data, ext, d.ContentType(rel.Target), nil
}

func (d *Document) parseContentTypes() {
	data, err := d.Part("[Content_Types].xml")
	if err != nil {
		return
	}
	ct := &contentTypesXML{}
	if xml.Unmarshal(data, ct) == nil {
		d.contentTypes = ct
	}
}

// readRels parses the relationships of a part. A missing .rels file yields
// an empty map.
func (d *Document) readRels(part string) (map[string]Relationship, error) {
	rels := make(map[string]Relationship)
	relsPath := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	data, err := d.Part(relsPath)
	if err != nil {
		return rels, nil // Relationships are optional
	}

	var rx relationshipsXML
	if err := xml.Unmarshal(data, &rx); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relsPath, err)
	}
	for _, r := range rx.Relationship {
		rel := Relationship{ID: r.ID, Type: r.Type, Target: r.Target}
		if strings.EqualFold(r.TargetMode, "External") {
			rel.External = true
		} else {
			rel.Target = resolveTarget(part, r.Target)
		}
		rels[r.ID] = rel
	}
	return rels, nil
}

// resolveTarget resolves a relationship target relative to its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

// parseSlides reads slide size and order from the presentation part, then
// parses every slide.
func (d *Document) parseSlides() error {
	data, err := d.Part("ppt/presentation.xml")
	if err != nil {
		return err
	}
	var pres presentationXML
	if err := xml.Unmarshal(data, &pres); err != nil {
		return fmt.Errorf("parsing presentation: %w", err)
	}
	if pres.SlideSz != nil {
		d.width, d.height = pres.SlideSz.Cx, pres.SlideSz.Cy
	}

	slideParts, err := d.slideOrder(&pres)
	if err != nil {
		return err
	}

	d.slides = make([]*Slide, 0, len(slideParts))
	for i, part := range slideParts {
		slide, err := d.parseSlide(part, i)
		if err != nil {
			return fmt.Errorf("%s: %w", part, err)
		}
		d.slides = append(d.slides, slide)
	}
	return nil
}

// slideOrder lists slide parts in presentation order. Packages without a
// slide ID list fall back to file name order.
func (d *Document) slideOrder(pres *presentationXML) ([]string, error) {
	if pres.SlideIdList != nil && len(pres.SlideIdList.SlideId) > 0 {
		rels, err := d.readRels("ppt/presentation.xml")
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(pres.SlideIdList.SlideId))
		for _, id := range pres.SlideIdList.SlideId {
			rel, ok := rels[id.RID]
			if !ok || rel.External {
				return nil, fmt.Errorf("slide relationship %s not found", id.RID)
			}
			parts = append(parts, rel.Target)
		}
		return parts, nil
	}

	var parts []string
	for name := range d.files {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			parts = append(parts, name)
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		return extractSlideNumber(parts[i]) < extractSlideNumber(parts[j])
	})
	return parts, nil
}

// extractSlideNumber extracts the slide number from a path like "ppt/slides/slide1.xml"
func extractSlideNumber(path string) int {
	name := strings.TrimPrefix(path, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

// parseSlide parses a single slide part.
func (d *Document) parseSlide(part string, index int) (*Slide, error) {
	data, err := d.Part(part)
	if err != nil {
		return nil, err
	}
	rels, err := d.readRels(part)
	if err != nil {
		return nil, err
	}

	shapes, ns, err := parseShapeTree(data)
	if err != nil {
		return nil, err
	}

	slide := &Slide{
		Index:      index,
		Part:       part,
		Shapes:     shapes,
		Namespaces: ns,
		rels:       rels,
	}
	for _, rel := range rels {
		if rel.Type == RelTypeSlideLayout {
			slide.Layout = rel.Target
			break
		}
	}

	for _, sh := range shapes {
		if sh.Inherited {
			d.inheritGeometry(slide.Layout, sh)
		}
	}
	return slide, nil
}

// parseShapeTree walks a slide part token by token so that shapes keep their
// document order and each top-level element's raw bytes can be captured.
func parseShapeTree(data []byte) ([]*Shape, map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	ns := make(map[string]string)
	shapes := make([]*Shape, 0)

	depth, treeDepth := 0, -1
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				for _, a := range t.Attr {
					if a.Name.Space == "xmlns" {
						ns[a.Name.Local] = a.Value
					}
				}
			}
			if treeDepth < 0 {
				if t.Name.Local == "spTree" {
					treeDepth = depth
				}
				continue
			}

			var sx shapeXML
			if err := dec.DecodeElement(&sx, &t); err != nil {
				return nil, nil, err
			}
			depth--
			switch t.Name.Local {
			case "nvGrpSpPr", "grpSpPr", "extLst":
				continue
			}
			raw := append([]byte(nil), data[start:dec.InputOffset()]...)
			shapes = append(shapes, newShape(len(shapes), &sx, raw))

		case xml.EndElement:
			if treeDepth > 0 && depth == treeDepth {
				return shapes, ns, nil
			}
			depth--
		}
	}
	return shapes, ns, nil
}

// newShape converts a decoded shape-tree child into a Shape.
func newShape(index int, sx *shapeXML, raw []byte) *Shape {
	sh := &Shape{
		Index: index,
		Kind:  shapeKind(sx.XMLName.Local),
		Raw:   raw,
	}

	if nv := sx.nonVisual(); nv != nil {
		sh.ID = nv.CNvPr.ID
		sh.Name = nv.CNvPr.Name
		if ph := nv.NvPr.Ph; ph != nil {
			sh.Placeholder = &Placeholder{Type: ph.Type, Idx: ph.Idx}
		}
	}

	if x := sx.transform(); x != nil {
		sh.X, sh.Y = x.Off.X, x.Off.Y
		sh.Width, sh.Height = x.Ext.Cx, x.Ext.Cy
	} else if sh.Placeholder != nil {
		sh.Inherited = true
	}

	if sh.Kind == KindShape {
		// Every autoshape has a text frame, even when txBody is omitted.
		sh.Text = &TextBody{}
		if sx.TxBody != nil {
			sh.Text = newTextBody(sx.TxBody)
		}
	}
	if sh.Kind == KindPicture {
		sh.Picture = &Picture{}
		if sx.BlipFill != nil && sx.BlipFill.Blip != nil {
			sh.Picture.Embed = sx.BlipFill.Blip.Embed
			sh.Picture.Link = sx.BlipFill.Blip.Link
		}
	}
	return sh
}

func shapeKind(local string) ShapeKind {
	switch k := ShapeKind(local); k {
	case KindShape, KindPicture, KindGroup, KindGraphicFrame, KindConnector:
		return k
	}
	return KindOther
}

// newTextBody extracts text and formatting from a text body.
func newTextBody(tb *txBodyXML) *TextBody {
	body := &TextBody{
		Props: BodyProps{
			Anchor: tb.BodyPr.Anchor,
			Wrap:   tb.BodyPr.Wrap,
			LIns:   tb.BodyPr.LIns,
			TIns:   tb.BodyPr.TIns,
			RIns:   tb.BodyPr.RIns,
			BIns:   tb.BodyPr.BIns,
		},
		Paragraphs: make([]Paragraph, 0, len(tb.P)),
	}
	for i := range tb.P {
		body.Paragraphs = append(body.Paragraphs, newParagraph(&tb.P[i]))
	}
	return body
}

func newParagraph(p *pXML) Paragraph {
	para := Paragraph{Runs: make([]Run, 0, len(p.Items))}

	if p.PPr != nil {
		para.Align = p.PPr.Algn
		para.LineSpacing = spacingPoints(p.PPr.LnSpc)
		para.SpaceBefore = spacingPoints(p.PPr.SpcBef)
		para.SpaceAfter = spacingPoints(p.PPr.SpcAft)
	}

	for _, item := range p.Items {
		run := Run{Text: item.T}
		if item.Break {
			run.Text = "\n"
		}
		if rp := item.RPr; rp != nil {
			run.Size = rp.Sz
			if rp.Latin != nil && rp.Latin.Typeface != "" {
				tf := rp.Latin.Typeface
				run.Typeface = &tf
			}
			run.Bold = boolAttr(rp.B)
			run.Italic = boolAttr(rp.I)
			if rp.U != nil {
				u := *rp.U != "none"
				run.Underline = &u
			}
		}
		para.Runs = append(para.Runs, run)
	}
	return para
}

// spacingPoints returns an absolute spacing value. Percentage spacing has no
// point equivalent without the font size, so it is reported as absent.
func spacingPoints(s *spacingXML) *int {
	if s == nil || s.SpcPts == nil {
		return nil
	}
	v := s.SpcPts.Val
	return &v
}

// boolAttr parses an xsd:boolean attribute; anything unrecognized is absent.
func boolAttr(v *string) *bool {
	if v == nil {
		return nil
	}
	var b bool
	switch *v {
	case "1", "true":
		b = true
	case "0", "false":
		b = false
	default:
		return nil
	}
	return &b
}

// inheritGeometry copies a placeholder's position and size from the slide
// layout, then the slide master.
func (d *Document) inheritGeometry(layoutPart string, sh *Shape) {
	if layoutPart == "" {
		return
	}
	layout := d.placeholders(layoutPart)
	if layout == nil {
		return
	}
	if x, ok := layout.find(sh.Placeholder, false); ok {
		sh.setXfrm(x)
		return
	}
	if layout.parent == "" {
		return
	}
	if master := d.placeholders(layout.parent); master != nil {
		if x, ok := master.find(sh.Placeholder, true); ok {
			sh.setXfrm(x)
		}
	}
}

func (sh *Shape) setXfrm(x xfrmXML) {
	sh.X, sh.Y = x.Off.X, x.Off.Y
	sh.Width, sh.Height = x.Ext.Cx, x.Ext.Cy
}

// placeholders loads and caches the placeholder geometry of a layout or
// master part. Parse errors yield nil, leaving the shape at zero geometry.
func (d *Document) placeholders(part string) *placeholderSet {
	if set, ok := d.layouts[part]; ok {
		return set
	}
	d.layouts[part] = nil

	data, err := d.Part(part)
	if err != nil {
		return nil
	}
	var px partXML
	if err := xml.Unmarshal(data, &px); err != nil {
		return nil
	}

	set := &placeholderSet{}
	if rels, err := d.readRels(part); err == nil {
		for _, rel := range rels {
			if rel.Type == RelTypeSlideMaster {
				set.parent = rel.Target
			}
		}
	}
	for i := range px.CSld.SpTree.Shapes {
		sx := &px.CSld.SpTree.Shapes[i]
		nv := sx.nonVisual()
		x := sx.transform()
		if nv == nil || nv.NvPr.Ph == nil || x == nil {
			continue
		}
		set.shapes = append(set.shapes, placeholderGeom{typ: nv.NvPr.Ph.Type, idx: nv.NvPr.Ph.Idx, xfrm: *x})
	}
	d.layouts[part] = set
	return set
}

// find looks a placeholder up by idx, then by type. Master lookups match on
// the master's generic placeholder types.
func (s *placeholderSet) find(ph *Placeholder, master bool) (xfrmXML, bool) {
	if ph.Idx != nil && !master {
		for _, g := range s.shapes {
			if g.idx != nil && *g.idx == *ph.Idx {
				return g.xfrm, true
			}
		}
	}
	want := ph.Type
	if master {
		want = masterType(want)
	}
	for _, g := range s.shapes {
		typ := g.typ
		if master {
			typ = masterType(typ)
		}
		if typ == want {
			return g.xfrm, true
		}
	}
	return xfrmXML{}, false
}

func masterType(t string) string {
	switch t {
	case "ctrTitle", "title":
		return "title"
	case "", "obj", "body", "subTitle":
		return "body"
	}
	return t
}
