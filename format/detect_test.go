package format

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PDF, "PDF"},
		{PPTX, "PPTX"},
		{JSON, "JSON"},
		{ZIP, "ZIP"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PDF, ".pdf"},
		{PPTX, ".pptx"},
		{JSON, ".json"},
		{ZIP, ".zip"},
		{Unknown, ""},
	}

	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.want {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"deck.pdf", PDF},
		{"deck.PDF", PDF},
		{"deck.pptx", PPTX},
		{"deck.Pptx", PPTX},
		{"output_data.json", JSON},
		{"extracted_images.zip", ZIP},
		{"deck.ppt", Unknown},
		{"deck", Unknown},
		{"", Unknown},
		{"/path/to/file.pptx", PPTX},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"PDF magic bytes", []byte("%PDF-1.4"), PDF},
		{"ZIP magic bytes", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00}, ZIP},
		{"JSON object", []byte(`{"slide_width_emu": 9144000, "slides": []}`), JSON},
		{"empty data", []byte{}, Unknown},
		{"short data", []byte{0x50, 0x4B}, Unknown},
		{"random data", []byte{0x01, 0x02, 0x03, 0x04, 0x05}, Unknown},
		{"text file", []byte("Hello, World!"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func zipBytes(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		w.Write([]byte("<x/>"))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFromReader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"PDF", []byte("%PDF-1.4\n%%EOF"), PDF},
		{"PPTX", zipBytes(t, "[Content_Types].xml", "ppt/presentation.xml"), PPTX},
		{"DOCX is not a presentation", zipBytes(t, "[Content_Types].xml", "word/document.xml"), Unknown},
		{"image archive", zipBytes(t, "slide1_img_0a1b2c3d.png"), ZIP},
		{"plain text", []byte("Hello, World! This is plain text."), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFromReader(bytes.NewReader(tt.data), int64(len(tt.data)))
			if err != nil {
				t.Fatalf("DetectFromReader() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFromReader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpect(t *testing.T) {
	dir := t.TempDir()
	pptx := filepath.Join(dir, "deck.pptx")
	os.WriteFile(pptx, zipBytes(t, "[Content_Types].xml", "ppt/presentation.xml"), 0o644)
	pdf := filepath.Join(dir, "deck.pdf")
	os.WriteFile(pdf, []byte("%PDF-1.7\n"), 0o644)

	if err := Expect(pptx, PPTX); err != nil {
		t.Errorf("Expect(pptx, PPTX) = %v", err)
	}
	if err := Expect(pdf, PDF); err != nil {
		t.Errorf("Expect(pdf, PDF) = %v", err)
	}
	err := Expect(pdf, PPTX)
	if err == nil || !strings.Contains(err.Error(), "expected PPTX, found PDF") {
		t.Errorf("Expect(pdf, PPTX) = %v", err)
	}
	if err := Expect(filepath.Join(dir, "missing.pptx"), PPTX); err == nil {
		t.Error("Expect(missing) expected error")
	}
}
