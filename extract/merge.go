package extract

import (
	"fmt"

	"github.com/tsawler/slidekit/archive"
	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/pptx"
)

// MergeResult is the outcome of MergeImages.
type MergeResult struct {
	Result

	Purged   int // image shapes removed from the input structure
	Appended int // image shapes added from the document
	Matches  int // appended images whose geometry matched an earlier one
}

// MergeImages replaces the image shapes of pres with the pictures of doc.
// pres is typically a blank structure written by Blank. For each document
// slide that has a counterpart in pres, existing image shapes are removed
// and every picture is extracted into store and appended.
//
// Each new image is compared against the images already appended to its
// slide using model.Match. A match is only counted and logged; the image is
// appended either way. pres itself is not modified.
func MergeImages(pres *model.Presentation, doc *pptx.Document, store *archive.Store, opts Options) (*MergeResult, error) {
	r := &run{log: opts.logger(), store: store}
	tol := opts.tolerance()

	out := pres.Clone()
	res := &MergeResult{}

	for i, s := range doc.Slides() {
		// Source slides pair with structure slides by position.
		if i >= len(out.Slides) {
			r.warn(i+1, "", "slide not present in structure, skipped")
			continue
		}
		slide := out.Slides[i]
		res.Purged += slide.RemoveImages()
		added := 0

		for _, sh := range s.Shapes {
			if !sh.IsPicture() {
				continue
			}
			img := r.imageShape(doc, s, sh, slide.Number)
			for _, prev := range slide.Shapes[len(slide.Shapes)-added:] {
				if model.Match(prev.Position, prev.Size, img.Position, img.Size, tol) {
					res.Matches++
					r.log.Debug("image geometry matches an earlier image", "slide", slide.Number, "shape", img.Name, "other", prev.Name)
					break
				}
			}
			slide.Shapes = append(slide.Shapes, img)
			added++
		}
		res.Appended += added
	}

	res.Presentation = out
	res.Warnings = r.warnings
	zipPath, err := store.Pack()
	if err != nil {
		return res, &model.StageError{Stage: stage, Path: store.ZipPath(), Err: fmt.Errorf("%w: %v", model.ErrOutputWrite, err)}
	}
	res.ArchivePath = zipPath
	r.log.Info("images merged", "purged", res.Purged, "appended", res.Appended, "matches", res.Matches)
	return res, nil
}
