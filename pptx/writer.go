package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Writer builds a new presentation package. Every slide uses a blank layout
// with no placeholders.
type Writer struct {
	width, height int64
	slides        []*SlideWriter
	media         []packagePart
	defaults      map[string]string // extension -> content type
}

type packagePart struct {
	name string
	data []byte
}

// SlideWriter adds shapes to one slide of a Writer.
type SlideWriter struct {
	w          *Writer
	index      int
	shapes     []string
	rels       []Relationship // targets relative to the slide part
	nextID     int
	namespaces map[string]string
}

// standardNamespaces are always declared on written slides.
var standardNamespaces = map[string]string{
	"a": nsDrawingML,
	"r": nsRelationships,
	"p": nsPresentationML,
}

// NewWriter creates an empty presentation with the given slide size in EMUs.
func NewWriter(cx, cy int64) *Writer {
	return &Writer{
		width:    cx,
		height:   cy,
		defaults: make(map[string]string),
	}
}

// AddSlide appends a blank slide.
func (w *Writer) AddSlide() *SlideWriter {
	s := &SlideWriter{
		w:          w,
		index:      len(w.slides),
		nextID:     2,
		namespaces: make(map[string]string),
	}
	w.slides = append(w.slides, s)
	return s
}

// SlideCount returns the number of slides added so far.
func (w *Writer) SlideCount() int {
	return len(w.slides)
}

// ShapeCount returns the number of shapes added to the slide.
func (s *SlideWriter) ShapeCount() int {
	return len(s.shapes)
}

func (s *SlideWriter) id() int {
	id := s.nextID
	s.nextID++
	return id
}

// AddTextBox adds a text box at the given geometry in EMUs.
func (s *SlideWriter) AddTextBox(name string, x, y, cx, cy int64, body TextBody) {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, s.id(), escape(name))
	b.WriteString(`<p:spPr>`)
	writeXfrm(&b, x, y, cx, cy)
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)
	b.WriteString(`<p:txBody>`)
	writeBodyProps(&b, body.Props)
	b.WriteString(`<a:lstStyle/>`)
	if len(body.Paragraphs) == 0 {
		b.WriteString(`<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>`)
	}
	for _, p := range body.Paragraphs {
		writeParagraph(&b, p)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	s.shapes = append(s.shapes, b.String())
}

// AddPicture embeds data as a media part and adds a picture at the given
// geometry in EMUs.
func (s *SlideWriter) AddPicture(name string, x, y, cx, cy int64, data []byte, ext string) error {
	if len(data) == 0 {
		return errors.New("empty image data")
	}
	rid := s.EmbedPart(RelTypeImage, data, ext, "")

	var b strings.Builder
	fmt.Fprintf(&b, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`, s.id(), escape(name))
	fmt.Fprintf(&b, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, rid)
	b.WriteString(`<p:spPr>`)
	writeXfrm(&b, x, y, cx, cy)
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
	s.shapes = append(s.shapes, b.String())
	return nil
}

// EmbedPart stores data as a new media part and relates it to the slide.
// It returns the new relationship ID.
func (s *SlideWriter) EmbedPart(relType string, data []byte, ext, contentType string) string {
	name := s.w.addMedia(relType, data, ext, contentType)
	return s.addRel(relType, "../"+strings.TrimPrefix(name, "ppt/"), false)
}

// LinkExternal relates an external target to the slide and returns the new
// relationship ID.
func (s *SlideWriter) LinkExternal(relType, target string) string {
	return s.addRel(relType, target, true)
}

func (s *SlideWriter) addRel(relType, target string, external bool) string {
	id := fmt.Sprintf("rId%d", len(s.rels)+2) // rId1 is the layout
	s.rels = append(s.rels, Relationship{ID: id, Type: relType, Target: target, External: external})
	return id
}

// relAttr matches a prefixed attribute, e.g. r:embed="rId2".
var relAttr = regexp.MustCompile(`(\s)([A-Za-z_][\w.-]*):([A-Za-z]+)\s*=\s*("[^"]*"|'[^']*')`)

// AddRaw inserts a serialized shape element verbatim. namespaces are the
// prefix declarations in scope where raw was read; every attribute in the
// relationships namespace is rewritten through remap. Nothing is added to
// the slide if remap fails or a prefix conflicts with one already declared.
func (s *SlideWriter) AddRaw(raw []byte, namespaces map[string]string, remap func(id string) (string, error)) error {
	merged := make(map[string]string, len(s.namespaces)+len(namespaces))
	for k, v := range s.namespaces {
		merged[k] = v
	}
	relPrefixes := make(map[string]bool)
	for prefix, uri := range namespaces {
		if uri == nsRelationships {
			relPrefixes[prefix] = true
		}
		if std, ok := standardNamespaces[prefix]; ok {
			if std != uri {
				return fmt.Errorf("namespace prefix %q is bound to %s", prefix, uri)
			}
			continue
		}
		if cur, ok := merged[prefix]; ok && cur != uri {
			return fmt.Errorf("namespace prefix %q already bound to %s", prefix, cur)
		}
		merged[prefix] = uri
	}

	var remapErr error
	out := relAttr.ReplaceAllFunc(raw, func(m []byte) []byte {
		sub := relAttr.FindSubmatch(m)
		if remapErr != nil || !relPrefixes[string(sub[2])] {
			return m
		}
		id := string(sub[4][1 : len(sub[4])-1])
		if id == "" {
			return m
		}
		newID, err := remap(id)
		if err != nil {
			remapErr = err
			return m
		}
		return []byte(fmt.Sprintf(`%s%s:%s="%s"`, sub[1], sub[2], sub[3], escape(newID)))
	})
	if remapErr != nil {
		return remapErr
	}

	s.namespaces = merged
	s.shapes = append(s.shapes, string(out))
	return nil
}

func (w *Writer) addMedia(relType string, data []byte, ext, contentType string) string {
	ext = normalizeExt(ext)
	prefix := "media"
	if relType == RelTypeImage {
		prefix = "image"
	}
	name := fmt.Sprintf("ppt/media/%s%d.%s", prefix, len(w.media)+1, ext)
	w.media = append(w.media, packagePart{name: name, data: data})

	if _, ok := w.defaults[ext]; !ok {
		if contentType == "" {
			contentType = MediaType(ext)
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.defaults[ext] = contentType
	}
	return name
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func writeXfrm(b *strings.Builder, x, y, cx, cy int64) {
	fmt.Fprintf(b, `<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, x, y, cx, cy)
}

func writeBodyProps(b *strings.Builder, p BodyProps) {
	wrap := p.Wrap
	if wrap == "" {
		wrap = "square"
	}
	fmt.Fprintf(b, `<a:bodyPr wrap="%s"`, escape(wrap))
	for _, ins := range []struct {
		name string
		v    *int64
	}{{"lIns", p.LIns}, {"tIns", p.TIns}, {"rIns", p.RIns}, {"bIns", p.BIns}} {
		if ins.v != nil {
			fmt.Fprintf(b, ` %s="%d"`, ins.name, *ins.v)
		}
	}
	if p.Anchor != "" {
		fmt.Fprintf(b, ` anchor="%s"`, escape(p.Anchor))
	}
	b.WriteString(` rtlCol="0"><a:noAutofit/></a:bodyPr>`)
}

func writeParagraph(b *strings.Builder, p Paragraph) {
	b.WriteString(`<a:p>`)
	if p.Align != "" || p.LineSpacing != nil || p.SpaceBefore != nil || p.SpaceAfter != nil {
		b.WriteString(`<a:pPr`)
		if p.Align != "" {
			fmt.Fprintf(b, ` algn="%s"`, escape(p.Align))
		}
		b.WriteString(`>`)
		writeSpacing(b, "lnSpc", p.LineSpacing)
		writeSpacing(b, "spcBef", p.SpaceBefore)
		writeSpacing(b, "spcAft", p.SpaceAfter)
		b.WriteString(`</a:pPr>`)
	}
	for _, r := range p.Runs {
		writeRun(b, r)
	}
	b.WriteString(`</a:p>`)
}

func writeSpacing(b *strings.Builder, tag string, v *int) {
	if v != nil {
		fmt.Fprintf(b, `<a:%s><a:spcPts val="%d"/></a:%s>`, tag, *v, tag)
	}
}

// writeRun writes a run, turning embedded newlines into line breaks.
func writeRun(b *strings.Builder, r Run) {
	text := strings.ReplaceAll(r.Text, "\v", "\n")
	for i, piece := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(`<a:br>`)
			writeRunProps(b, r)
			b.WriteString(`</a:br>`)
		}
		if piece == "" {
			continue
		}
		b.WriteString(`<a:r>`)
		writeRunProps(b, r)
		fmt.Fprintf(b, `<a:t>%s</a:t></a:r>`, escape(piece))
	}
}

func writeRunProps(b *strings.Builder, r Run) {
	b.WriteString(`<a:rPr lang="en-US"`)
	if r.Size != nil {
		fmt.Fprintf(b, ` sz="%d"`, *r.Size)
	}
	if r.Bold != nil {
		fmt.Fprintf(b, ` b="%s"`, xsdBool(*r.Bold))
	}
	if r.Italic != nil {
		fmt.Fprintf(b, ` i="%s"`, xsdBool(*r.Italic))
	}
	if r.Underline != nil {
		u := "none"
		if *r.Underline {
			u = "sng"
		}
		fmt.Fprintf(b, ` u="%s"`, u)
	}
	b.WriteString(` dirty="0"`)
	if r.Typeface == nil {
		b.WriteString(`/>`)
		return
	}
	fmt.Fprintf(b, `><a:latin typeface="%s"/></a:rPr>`, escape(*r.Typeface))
}

func xsdBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// slideXML serializes the slide part.
func (s *SlideWriter) slideXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<p:sld xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentationML + `"`)
	prefixes := make([]string, 0, len(s.namespaces))
	for prefix := range s.namespaces {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		fmt.Fprintf(&b, ` xmlns:%s="%s"`, prefix, escape(s.namespaces[prefix]))
	}
	b.WriteString(`><p:cSld><p:spTree>`)
	b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	b.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)
	for _, sh := range s.shapes {
		b.WriteString(sh)
	}
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return b.Bytes()
}

func (s *SlideWriter) relsXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsPackageRels + `">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + RelTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>`)
	for _, rel := range s.rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"`, rel.ID, escape(rel.Type), escape(rel.Target))
		if rel.External {
			b.WriteString(` TargetMode="External"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func (w *Writer) presentationXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentationML + `" saveSubsetFonts="1">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if len(w.slides) > 0 {
		b.WriteString(`<p:sldIdLst>`)
		for i := range w.slides {
			fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+3)
		}
		b.WriteString(`</p:sldIdLst>`)
	}
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, w.width, w.height)
	b.WriteString(`</p:presentation>`)
	return b.Bytes()
}

func (w *Writer) presentationRelsXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsPackageRels + `">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + RelTypeSlideMaster + `" Target="slideMasters/slideMaster1.xml"/>`)
	b.WriteString(`<Relationship Id="rId2" Type="` + RelTypeTheme + `" Target="theme/theme1.xml"/>`)
	for i := range w.slides {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i+3, RelTypeSlide, i+1)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func (w *Writer) contentTypesXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="` + nsContentTypes + `">`)
	b.WriteString(`<Default Extension="rels" ContentType="` + ctRels + `"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	exts := make([]string, 0, len(w.defaults))
	for ext := range w.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, escape(ext), escape(w.defaults[ext]))
	}
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="` + ctPresentation + `"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="` + ctSlideMaster + `"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="` + ctSlideLayout + `"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="` + ctTheme + `"/>`)
	for i := range w.slides {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="%s"/>`, i+1, ctSlide)
	}
	b.WriteString(`</Types>`)
	return b.Bytes()
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the package as a zip archive.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	cw := &countingWriter{w: out}
	zw := zip.NewWriter(cw)

	write := func(name string, data []byte) error {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return nil
	}

	parts := []packagePart{
		{"[Content_Types].xml", w.contentTypesXML()},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"ppt/presentation.xml", w.presentationXML()},
		{"ppt/_rels/presentation.xml.rels", w.presentationRelsXML()},
		{"ppt/slideMasters/slideMaster1.xml", []byte(slideMasterXML)},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", []byte(slideMasterRelsXML)},
		{"ppt/slideLayouts/slideLayout1.xml", []byte(slideLayoutXML)},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", []byte(slideLayoutRelsXML)},
		{"ppt/theme/theme1.xml", []byte(themeXML)},
	}
	for _, s := range w.slides {
		parts = append(parts,
			packagePart{fmt.Sprintf("ppt/slides/slide%d.xml", s.index+1), s.slideXML()},
			packagePart{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.index+1), s.relsXML()},
		)
	}
	for _, m := range w.media {
		parts = append(parts, m)
	}

	for _, p := range parts {
		if err := write(p.name, p.data); err != nil {
			zw.Close()
			return cw.n, err
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Save writes the package to a file. Nothing is written if the package
// cannot be serialized.
func (w *Writer) Save(filename string) error {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}
