// Package slidekit provides a fluent API for round-tripping slide decks
// through a format-independent JSON representation.
//
// Basic usage:
//
//	res, err := slidekit.Open("deck.pptx").Extract()
//	if err != nil {
//	    // handle error
//	}
//	if len(res.Warnings) > 0 {
//	    log.Println("Warnings:", slidekit.FormatWarnings(res.Warnings))
//	}
//	model.Save("deck.json", res.Presentation)
//
// Text and pictures may come from different files, for example a blanked
// copy of a deck and the original:
//
//	res, err := slidekit.Open("deck_blank.pptx").
//	    ImagesFrom("deck.pptx").
//	    ArchiveDir("out/images").
//	    Extract()
//
// The whole chain, with line layout from a LibreOffice rendering:
//
//	cfg, _ := config.Load()
//	out, err := slidekit.Open("deck.pptx").Configure(cfg).Convert(ctx, "deck_rebuilt.pptx")
//
// For finer control the extract, render and rebuild packages can be used
// directly.
package slidekit

import "github.com/tsawler/slidekit/model"

// Warning is a recoverable problem reported by a pipeline stage.
type Warning = model.Warning

// FormatWarnings joins warnings one per line.
func FormatWarnings(warnings []Warning) string {
	return model.FormatWarnings(warnings)
}

// Open starts a pipeline for the given PPTX file. Nothing is read until a
// terminal operation such as Extract or Convert is called.
//
// Example:
//
//	res, err := slidekit.Open("deck.pptx").Extract()
func Open(filename string) *Pipeline {
	return &Pipeline{
		filename: filename,
		options:  defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	res := slidekit.Must(slidekit.Open("deck.pptx").Extract())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
