package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/slidekit/model"
)

// ============================================================================
// stext parsing
// ============================================================================

const stextSample = `warning: unknown cid font
<?xml version="1.0"?>
<document name="deck.pdf">
<page id="page1" width="612" height="792">
<block bbox="90 95 390 135">
<line bbox="100.25 100.5 200 110" wmode="0" dir="1 0">
<font name="Arial" size="12">
<char quad="100 100 106 100 100 110 106 110" x="100.25" y="108" color="#000000" c=" "/>
<char x="106" y="108" c="H"/><char x="112" y="108" c="i"/>
</font>
<font name="Arial-Bold" size="12">
<char x="118" y="108" c=" "/><char x="121" y="108" c="&amp;"/><char x="127" y="108" c=" "/>
</font>
</line>
<line bbox="100 112 180 122" wmode="0" dir="1 0">
<font name="Arial" size="12"><char x="100" y="120" c="&#xFB01;"/><char x="106" y="120" c="nal"/></font>
</line>
</block>
<image bbox="0 0 10 10" transform="10 0 0 10 0 0" width="10" height="10"/>
</page>
<page id="page2" width="720" height="540">
</page>
</document>
warning: trailing garbage ignored`

func TestParseSText(t *testing.T) {
	pages, err := ParseSText([]byte(stextSample))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	p := pages[0]
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 612.0, p.Width)
	assert.Equal(t, 792.0, p.Height)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "Hi &", p.Lines[0].Text)
	assert.Equal(t, model.Rect{X0: 100.25, Y0: 100.5, X1: 200, Y1: 110}, p.Lines[0].Box)
	assert.Equal(t, "final", p.Lines[1].Text)

	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, 720.0, pages[1].Width)
	assert.Empty(t, pages[1].Lines)
}

func TestParseSTextSpans(t *testing.T) {
	out := `<document><page width="10" height="10"><block><line bbox="1 2 3 4"><span><char c="o"/><char c="k"/></span></line></block></page></document>`
	pages, err := ParseSText([]byte(out))
	require.NoError(t, err)
	require.Len(t, pages[0].Lines, 1)
	assert.Equal(t, "ok", pages[0].Lines[0].Text)
}

func TestParseSTextBadBBox(t *testing.T) {
	out := `<document><page><block><line bbox="1 2 x 4"/></block></page></document>`
	_, err := ParseSText([]byte(out))
	assert.ErrorContains(t, err, "malformed bbox")
}

func TestParseSTextInvalid(t *testing.T) {
	_, err := ParseSText([]byte("warning: only warnings\n"))
	assert.Error(t, err)
}

func TestStripWarnings(t *testing.T) {
	got := string(stripWarnings([]byte("warning: a\n{\n  warning: b\n}\n")))
	assert.Equal(t, "{\n}\n", got)
}

func TestExecStdoutKeepsStderrApart(t *testing.T) {
	bin := fakeBinary(t, "printf '<document>'; echo 'warning: late glyph' >&2; printf '</document>'\n")
	out, err := execStdout(context.Background(), bin)
	require.NoError(t, err)
	assert.Equal(t, "<document></document>", string(out))

	bin = fakeBinary(t, "echo 'cannot open document' >&2; exit 1\n")
	_, err = execStdout(context.Background(), bin)
	assert.ErrorContains(t, err, "cannot open document")
}

// ============================================================================
// Enrich
// ============================================================================

func textShape(name string, x, y, w, h float64) *model.Shape {
	return model.NewTextShape(name, model.Position{X: x, Y: y}, model.Size{Width: w, Height: h})
}

// deck720 is a 720x540pt presentation.
func deck720(slides ...[]*model.Shape) *model.Presentation {
	pres := model.NewPresentation(9144000, 6858000)
	for _, shapes := range slides {
		s := pres.AddSlide()
		s.Shapes = append(s.Shapes, shapes...)
	}
	return pres
}

func line(text string, x0, y0, x1, y1 float64) Line {
	return Line{Text: text, Box: model.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestEnrichScalesLetterPage(t *testing.T) {
	// A line at [100,100,200,110] on a 612x792 page lands at
	// [117.6, 68.2, 235.3, 75.0] on a 720x540 slide.
	box := model.Rect{X0: 100, Y0: 100, X1: 200, Y1: 110}.Scale(720.0/612.0, 540.0/792.0)
	assert.InDelta(t, 117.6, box.X0, 0.05)
	assert.InDelta(t, 68.2, box.Y0, 0.05)
	assert.InDelta(t, 235.3, box.X1, 0.05)
	assert.InDelta(t, 75.0, box.Y1, 0.05)

	pres := deck720([]*model.Shape{
		textShape("Hit", 110, 60, 200, 50),
		textShape("Miss", 0, 0, 100, 50),
	})
	pages := []Page{{Number: 1, Width: 612, Height: 792, Lines: []Line{line("Hello", 100, 100, 200, 110)}}}

	out, rep := Enrich(pres, pages)
	assert.Equal(t, []string{"Hello"}, out.Slides[0].Shapes[0].RenderedLines)
	assert.Nil(t, out.Slides[0].Shapes[1].RenderedLines)
	assert.Equal(t, 1, rep.Attached)
	assert.Equal(t, 0, rep.Dropped)
	assert.Equal(t, 1, rep.Shapes)
	assert.Empty(t, rep.Warnings)

	// Input untouched.
	assert.Nil(t, pres.Slides[0].Shapes[0].RenderedLines)
}

func TestEnrichInclusiveBounds(t *testing.T) {
	pres := deck720([]*model.Shape{textShape("Box", 50, 50, 100, 20)})
	pages := []Page{{Number: 1, Width: 720, Height: 540, Lines: []Line{
		line("top-left", 50, 50, 60, 55),
		line("bottom-right", 150, 70, 160, 75),
		line("outside", 150.01, 70, 160, 75),
	}}}

	out, rep := Enrich(pres, pages)
	assert.Equal(t, []string{"top-left", "bottom-right"}, out.Slides[0].Shapes[0].RenderedLines)
	assert.Equal(t, 1, rep.Dropped)
}

func TestEnrichOverlappingShapesAndOrder(t *testing.T) {
	pres := deck720([]*model.Shape{
		textShape("Outer", 0, 0, 400, 400),
		textShape("Inner", 100, 100, 50, 50),
		model.NewImageShape("Pic", model.Position{}, model.Size{Width: 720, Height: 540}, model.ImageMetadata{}),
	})
	pages := []Page{{Number: 1, Width: 720, Height: 540, Lines: []Line{
		line("first", 10, 10, 20, 20),
		line("second", 110, 110, 120, 120),
		line("third", 20, 300, 30, 310),
	}}}

	out, rep := Enrich(pres, pages)
	shapes := out.Slides[0].Shapes
	assert.Equal(t, []string{"first", "second", "third"}, shapes[0].RenderedLines)
	assert.Equal(t, []string{"second"}, shapes[1].RenderedLines)
	assert.Nil(t, shapes[2].RenderedLines)
	assert.Equal(t, 4, rep.Attached)
	assert.Equal(t, 0, rep.Dropped)
}

func TestEnrichReplacesOnlyWhenGained(t *testing.T) {
	a := textShape("A", 0, 0, 100, 100)
	a.RenderedLines = []string{"stale"}
	b := textShape("B", 200, 200, 100, 100)
	b.RenderedLines = []string{"kept"}
	pres := deck720([]*model.Shape{a, b})

	pages := []Page{{Number: 1, Width: 720, Height: 540, Lines: []Line{line("fresh", 5, 5, 50, 15)}}}
	out, _ := Enrich(pres, pages)
	assert.Equal(t, []string{"fresh"}, out.Slides[0].Shapes[0].RenderedLines)
	assert.Equal(t, []string{"kept"}, out.Slides[0].Shapes[1].RenderedLines)
}

func TestEnrichPageSlideMismatch(t *testing.T) {
	pres := deck720(
		[]*model.Shape{textShape("One", 0, 0, 720, 540)},
		[]*model.Shape{textShape("Two", 0, 0, 720, 540)},
		[]*model.Shape{textShape("Three", 0, 0, 720, 540)},
	)
	pages := []Page{
		{Number: 1, Width: 720, Height: 540, Lines: []Line{line("p1", 1, 1, 2, 2)}},
		{Number: 2, Lines: []Line{line("no size", 1, 1, 2, 2)}},
		{Number: 4, Width: 720, Height: 540, Lines: []Line{line("p4", 1, 1, 2, 2)}},
	}

	out, rep := Enrich(pres, pages)
	assert.Equal(t, []string{"p1"}, out.Slides[0].Shapes[0].RenderedLines)
	assert.Nil(t, out.Slides[1].Shapes[0].RenderedLines)
	assert.Nil(t, out.Slides[2].Shapes[0].RenderedLines)
	assert.Equal(t, 2, rep.Dropped)

	text := model.FormatWarnings(rep.Warnings)
	assert.Contains(t, text, "enrich slide 2: page 2 has no usable size")
	assert.Contains(t, text, "enrich: page 4 has no matching slide")
	assert.Contains(t, text, "enrich slide 3: slide has no rendered page")
}

func TestEnrichMatchesSlideNumber(t *testing.T) {
	pres := deck720(
		[]*model.Shape{textShape("Second", 0, 0, 720, 540)},
		[]*model.Shape{textShape("Third", 0, 0, 720, 540)},
	)
	pres.Slides[0].Number = 2
	pres.Slides[1].Number = 3
	pages := []Page{
		{Number: 1, Width: 720, Height: 540, Lines: []Line{line("page one", 1, 1, 2, 2)}},
		{Number: 2, Width: 720, Height: 540, Lines: []Line{line("page two", 1, 1, 2, 2)}},
		{Number: 3, Width: 720, Height: 540, Lines: []Line{line("page three", 1, 1, 2, 2)}},
	}

	out, rep := Enrich(pres, pages)
	assert.Equal(t, []string{"page two"}, out.Slides[0].Shapes[0].RenderedLines)
	assert.Equal(t, []string{"page three"}, out.Slides[1].Shapes[0].RenderedLines)
	assert.Equal(t, 1, rep.Dropped)

	text := model.FormatWarnings(rep.Warnings)
	assert.Contains(t, text, "enrich: page 1 has no matching slide")
	assert.NotContains(t, text, "no rendered page")
}

// ============================================================================
// LibreOffice
// ============================================================================

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-soffice")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestLibreOfficeRender(t *testing.T) {
	// Arguments: -env:UserInstallation=URL --headless --convert-to pdf --outdir DIR FILE
	bin := fakeBinary(t, `f=$(basename "$7"); printf '%%PDF-1.4\n%%%%EOF\n' > "$6/${f%.*}.pdf"; `+
		`echo "$1" > "$6/profile"; test -d "${1#-env:UserInstallation=file://}" || exit 3`+"\n")
	outDir := filepath.Join(t.TempDir(), "out")

	r := &LibreOffice{Binary: bin, Timeout: 10 * time.Second}
	pdf, err := r.Render(context.Background(), "/decks/quarterly.report.pptx", outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "quarterly.report.pdf"), pdf)

	arg, err := os.ReadFile(filepath.Join(outDir, "profile"))
	require.NoError(t, err)
	profile := strings.TrimSpace(string(arg))
	require.True(t, strings.HasPrefix(profile, "-env:UserInstallation=file:///"), "profile arg %q", profile)
	_, err = os.Stat(strings.TrimPrefix(profile, "-env:UserInstallation=file://"))
	assert.True(t, os.IsNotExist(err), "profile directory should be removed after rendering")
}

func TestLibreOfficeProfilesAreDistinct(t *testing.T) {
	bin := fakeBinary(t, `f=$(basename "$7"); printf '%%PDF-1.4\n' > "$6/${f%.*}.pdf"; echo "$1" > "$6/${f%.*}.profile"`+"\n")
	outDir := t.TempDir()
	r := &LibreOffice{Binary: bin}
	for _, deck := range []string{"a.pptx", "b.pptx"} {
		_, err := r.Render(context.Background(), deck, outDir)
		require.NoError(t, err)
	}
	a, err := os.ReadFile(filepath.Join(outDir, "a.profile"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(outDir, "b.profile"))
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(b))
}

func TestLibreOfficeRenderFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"exit status", "echo 'source file could not be loaded' >&2; exit 1\n", "source file could not be loaded"},
		{"no output", "exit 0\n", "quarterly.pdf"},
		{"not a pdf", `f=$(basename "$7"); echo hello > "$6/${f%.*}.pdf"` + "\n", "expected PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &LibreOffice{Binary: fakeBinary(t, tt.script)}
			_, err := r.Render(context.Background(), "quarterly.pptx", t.TempDir())
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q lacks %q", err, tt.want)
		})
	}
}

func TestLibreOfficeTimeout(t *testing.T) {
	r := &LibreOffice{Binary: fakeBinary(t, "exec sleep 5\n"), Timeout: 50 * time.Millisecond}
	_, err := r.Render(context.Background(), "slow.pptx", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
