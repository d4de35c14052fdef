// Package model provides the interchange representation of a slide deck.
//
// A [Presentation] owns an ordered list of [Slide] values; each slide owns an
// ordered list of [Shape] values. Shape is a closed union over text boxes
// ([ShapeText]) and pictures ([ShapeImage]); other shape kinds are not
// modelled.
//
// # Units
//
// The container stores lengths in EMU (12700 per point). The interchange form
// stores geometry, margins and spacing in points and only the two slide
// dimensions in EMU:
//
//	pt := model.ToPoints(914400) // 72
//	emu := model.ToEMU(72)       // 914400
//
// # Optional attributes
//
// Paragraph and run attributes are pointers. A nil pointer means "inherit the
// container default", which is not the same as an explicit false or zero.
//
// # Serialization
//
// [Load], [Save], [Decode] and [Encode] read and write the JSON schema shared
// by every pipeline stage:
//
//	p, err := model.Load("output_data.json")
//	if err != nil {
//	    // handle error
//	}
//	err = model.Save("copy.json", p)
//
// # Diagnostics
//
// [Warning] records recoverable problems (a picture whose bytes could not be
// read, a rendered page with no slide). [StageError] wraps the fatal kinds
// [ErrSourceUnreadable], [ErrInvalidJSON] and [ErrOutputWrite].
package model
