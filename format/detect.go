// Package format provides input format detection for the slidekit pipeline.
package format

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format represents a file format the pipeline reads or writes.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PDF indicates a fixed-layout rendition.
	PDF
	// PPTX indicates a Microsoft PowerPoint (.pptx) document.
	PPTX
	// JSON indicates the interchange representation.
	JSON
	// ZIP indicates a plain zip archive, such as an image archive.
	ZIP
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PDF:
		return "PDF"
	case PPTX:
		return "PPTX"
	case JSON:
		return "JSON"
	case ZIP:
		return "ZIP"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PDF:
		return ".pdf"
	case PPTX:
		return ".pptx"
	case JSON:
		return ".json"
	case ZIP:
		return ".zip"
	default:
		return ""
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return PDF
	case ".pptx":
		return PPTX
	case ".json":
		return JSON
	case ".zip":
		return ZIP
	default:
		return Unknown
	}
}

// DetectFromMagic sniffs the leading bytes of a file. Zip-based formats
// cannot be told apart from a header alone, so any zip is reported as ZIP;
// use DetectFromReader to distinguish PPTX.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}

	// PDF magic: %PDF
	if data[0] == '%' && data[1] == 'P' && data[2] == 'D' && data[3] == 'F' {
		return PDF
	}

	// ZIP magic: PK\x03\x04
	if data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04 {
		return ZIP
	}

	if mimetype.Detect(data).Is("application/json") {
		return JSON
	}
	return Unknown
}

// DetectFromReader inspects the content to determine format.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 3072)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}

	f := DetectFromMagic(magic[:n])
	if f == ZIP {
		return detectZIPFormat(r, size)
	}
	return f, nil
}

// detectZIPFormat inspects a ZIP archive to tell a presentation package
// from a plain archive.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	hasContentTypes := false
	for _, f := range zr.File {
		switch {
		case f.Name == "[Content_Types].xml":
			hasContentTypes = true
		case f.Name == "ppt/presentation.xml":
			return PPTX, nil
		}
	}
	if hasContentTypes {
		// Another Office Open XML package
		return Unknown, nil
	}
	return ZIP, nil
}

// DetectFile opens path and inspects its content.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Unknown, err
	}
	return DetectFromReader(f, info.Size())
}

// Expect returns an error unless the file at path has the wanted format.
func Expect(path string, want Format) error {
	got, err := DetectFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s: expected %s, found %s", path, want, got)
	}
	return nil
}
