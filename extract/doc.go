// Package extract turns PPTX documents into the slidekit interchange model.
//
// Extract reads text from one document and pictures from another (usually
// the same file opened twice, or a blanked copy and the original) and joins
// them slide by slide. Picture bytes are written to an archive.Store and the
// store is packed into a zip once all slides are done.
//
// Blank and BlankRaw produce a layout-only copy of a deck, and MergeImages
// re-attaches the pictures of an original deck to a blank structure.
//
// Problems with individual shapes never abort a run. They are returned as
// model.Warning values and logged; only an unusable archive is fatal.
package extract
