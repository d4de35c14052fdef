package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{G: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// ============================================================================
// Name Tests
// ============================================================================

func TestNameFormat(t *testing.T) {
	g := NewNameGenerator()
	name := g.Name(3, ".JPEG")

	slide, ext, ok := ParseName(name)
	if !ok {
		t.Fatalf("ParseName(%q) failed", name)
	}
	if slide != 3 || ext != "jpeg" {
		t.Errorf("ParseName(%q) = %d, %q", name, slide, ext)
	}
	if !strings.HasPrefix(name, "slide3_img_") || len(name) != len("slide3_img_01234567.jpeg") {
		t.Errorf("Name() = %q", name)
	}
}

func TestNameRetriesOnCollision(t *testing.T) {
	seq := []string{"aaaaaaaa", "aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	g := NewNameGenerator()
	g.random = func() string {
		v := seq[0]
		seq = seq[1:]
		return v
	}

	first := g.Name(1, "png")
	second := g.Name(1, "png")
	if first != "slide1_img_aaaaaaaa.png" || second != "slide1_img_bbbbbbbb.png" {
		t.Errorf("names = %q, %q", first, second)
	}
}

func TestNameScopedPerGenerator(t *testing.T) {
	g1, g2 := NewNameGenerator(), NewNameGenerator()
	g1.random = func() string { return "cafebabe" }
	g2.random = func() string { return "cafebabe" }

	// Same suffix is fine in two different archives.
	if g1.Name(1, "png") != g2.Name(1, "png") {
		t.Error("independent generators should not share state")
	}
}

func TestNamesAreUnique(t *testing.T) {
	g := NewNameGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		n := g.Name(1, "png")
		if seen[n] {
			t.Fatalf("duplicate name %q", n)
		}
		seen[n] = true
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"slide12_img_0a1b2c3d.png", true},
		{"slide1_img_0A1B2C3D.png", false},
		{"slide1_img_0a1b2c3.png", false},
		{"picture.png", false},
	}
	for _, tt := range tests {
		if _, _, ok := ParseName(tt.name); ok != tt.ok {
			t.Errorf("ParseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
	}
}

func TestIsImageName(t *testing.T) {
	tests := map[string]bool{
		"a.png": true, "a.JPG": true, "a.jpeg": true, "a.tiff": true, "a.emf": true, "a.svg": true,
		"a.webp": true, "a.json": false, "a": false, ".DS_Store": false, "a.png.txt": false,
	}
	for name, want := range tests {
		if got := IsImageName(name); got != want {
			t.Errorf("IsImageName(%q) = %v, want %v", name, got, want)
		}
	}
}

// ============================================================================
// Store and Zip Tests
// ============================================================================

func TestStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extracted_images")
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if !filepath.IsAbs(s.Dir()) {
		t.Errorf("Dir() = %q, want absolute", s.Dir())
	}
	if s.ZipPath() != s.Dir()+".zip" {
		t.Errorf("ZipPath() = %q", s.ZipPath())
	}

	data := testPNG(t, 2, 2)
	name, path, err := s.Put(2, "png", data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if filepath.Dir(path) != s.Dir() || filepath.Base(path) != name {
		t.Errorf("Put() = %q, %q", name, path)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("stored bytes mismatch: %v", err)
	}
}

func TestStorePutSkipsExistingFiles(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	// A file left by a previous run occupies the first candidate name.
	os.WriteFile(filepath.Join(s.Dir(), "slide1_img_11111111.png"), []byte("old"), 0o644)

	seq := []string{"11111111", "22222222"}
	s.names.random = func() string {
		v := seq[0]
		seq = seq[1:]
		return v
	}

	name, _, err := s.Put(1, "png", []byte("new"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if name != "slide1_img_22222222.png" {
		t.Errorf("Put() name = %q", name)
	}
	old, _ := os.ReadFile(filepath.Join(s.Dir(), "slide1_img_11111111.png"))
	if string(old) != "old" {
		t.Error("existing file was overwritten")
	}
}

func TestNewStoreReservesExistingNames(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "slide1_img_11111111.png"), []byte("old"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	seq := []string{"11111111", "22222222"}
	s.names.random = func() string {
		v := seq[0]
		seq = seq[1:]
		return v
	}
	if name := s.names.Name(1, "png"); name != "slide1_img_22222222.png" {
		t.Errorf("Name() = %q, want the existing name skipped", name)
	}
}

func TestPackAndOpenZip(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	n1, _, _ := s.Put(2, "png", []byte("two"))
	n2, _, _ := s.Put(1, "jpg", []byte("one"))
	os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("skip me"), 0o644)
	os.Mkdir(filepath.Join(s.Dir(), "nested.png"), 0o755)

	zipPath, err := s.Pack()
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	z, err := OpenZip(zipPath)
	if err != nil {
		t.Fatalf("OpenZip() error = %v", err)
	}
	defer z.Close()

	want := []string{n1, n2}
	if n2 < n1 {
		want = []string{n2, n1}
	}
	if !reflect.DeepEqual(z.Names(), want) {
		t.Errorf("Names() = %v, want %v", z.Names(), want)
	}
	data, err := z.ReadFile(n1)
	if err != nil || string(data) != "two" {
		t.Errorf("ReadFile(%s) = %q, %v", n1, data, err)
	}
	if _, err := z.ReadFile("slide9_img_deadbeef.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotFound", err)
	}
	if !z.Has(n2) || z.Has("notes.txt") {
		t.Error("Has() mismatch")
	}
}

func TestOpenZipBaseNameFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.zip")
	f, _ := os.Create(path)
	zw := zip.NewWriter(f)
	w, _ := zw.Create("extracted_images/slide1_img_00000000.png")
	w.Write([]byte("x"))
	zw.Close()
	f.Close()

	z, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip() error = %v", err)
	}
	defer z.Close()
	if !z.Has("slide1_img_00000000.png") {
		t.Error("entry in a directory should be reachable by base name")
	}
}

func TestOpenZipInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	os.WriteFile(path, []byte("nope"), 0o644)
	if _, err := OpenZip(path); err == nil {
		t.Error("OpenZip() expected error")
	}
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "slide1_img_12345678.png"), []byte("png"), 0o644)
	os.WriteFile(filepath.Join(filepath.Dir(root), "secret.png"), []byte("x"), 0o644)

	d, err := OpenDir(root)
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	data, err := d.ReadFile("slide1_img_12345678.png")
	if err != nil || string(data) != "png" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
	for _, name := range []string{"missing.png", "../secret.png", "a/b.png"} {
		if _, err := d.ReadFile(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("ReadFile(%q) error = %v, want ErrNotFound", name, err)
		}
	}
	if !d.Has("slide1_img_12345678.png") || d.Has("../secret.png") {
		t.Error("Has() mismatch")
	}

	if _, err := OpenDir(filepath.Join(root, "slide1_img_12345678.png")); err == nil {
		t.Error("OpenDir(file) expected error")
	}
}

// ============================================================================
// Probe Tests
// ============================================================================

func TestProbe(t *testing.T) {
	good := testPNG(t, 5, 7)
	corrupt := append([]byte(nil), good[:20]...)

	tests := []struct {
		name         string
		data         []byte
		ct, ext      string
		wantCT       string
		wantExt      string
		wantW, wantH int
		wantErr      bool
	}{
		{"declared png", good, "image/png", "png", "image/png", "png", 5, 7, false},
		{"sniffed png", good, "", "", "image/png", "png", 5, 7, false},
		{"declared ext only", good, "", "PNG", "image/png", "png", 5, 7, false},
		{"truncated png", corrupt, "image/png", "png", "", "", 0, 0, true},
		{"garbage with png ext", []byte("definitely not an image"), "", "png", "", "", 0, 0, true},
		{"empty", nil, "image/png", "png", "", "", 0, 0, true},
		{"vector passes through", []byte{0x01, 0x00, 0x00, 0x00, 0x6c, 0x00}, "image/x-emf", "emf", "image/x-emf", "emf", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Probe(tt.data, tt.ct, tt.ext)
			if tt.wantErr {
				if !errors.Is(err, ErrCorrupt) {
					t.Errorf("Probe() error = %v, want ErrCorrupt", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if info.ContentType != tt.wantCT || info.Ext != tt.wantExt || info.Width != tt.wantW || info.Height != tt.wantH {
				t.Errorf("Probe() = %+v", info)
			}
		})
	}
}
