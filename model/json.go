package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a presentation from JSON.
func Decode(r io.Reader) (*Presentation, error) {
	var p Presentation
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if p.Slides == nil {
		p.Slides = make([]*Slide, 0)
	}
	for i, s := range p.Slides {
		if s == nil {
			return nil, fmt.Errorf("%w: slide %d is null", ErrInvalidJSON, i+1)
		}
		if s.Shapes == nil {
			s.Shapes = make([]*Shape, 0)
		}
	}
	return &p, nil
}

// Encode writes the presentation as indented JSON. Non-ASCII text and markup
// characters are written as-is.
func Encode(w io.Writer, p *Presentation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(p)
}

// Load reads a presentation from a JSON file.
func Load(path string) (*Presentation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StageError{Stage: "load", Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, &StageError{Stage: "load", Path: path, Err: err}
	}
	return p, nil
}

// Save writes the presentation to a JSON file. The file is only replaced
// once the whole document has been encoded.
func Save(path string, p *Presentation) error {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return &StageError{Stage: "save", Path: path, Err: fmt.Errorf("%w: %v", ErrOutputWrite, err)}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &StageError{Stage: "save", Path: path, Err: fmt.Errorf("%w: %v", ErrOutputWrite, err)}
	}
	return nil
}
