package rebuild

import (
	"fmt"
	"os"

	"github.com/tsawler/slidekit/archive"
	"github.com/tsawler/slidekit/model"
)

// BuildFile rebuilds the presentation stored at jsonPath and saves it to
// outPath. archivePath may name an image zip, an extracted image directory,
// or be empty. Only an unreadable JSON file, an unopenable archive or a
// failed write is an error; everything else is returned as warnings.
func BuildFile(jsonPath, archivePath, outPath string, opts Options) ([]model.Warning, error) {
	pres, err := model.Load(jsonPath)
	if err != nil {
		return nil, err
	}

	var images ImageSource
	if archivePath != "" {
		src, err := openImages(archivePath)
		if err != nil {
			return nil, &model.StageError{Stage: stage, Path: archivePath, Err: fmt.Errorf("%w: %v", model.ErrSourceUnreadable, err)}
		}
		defer src.Close()
		images = src
	}

	w, warnings := Build(pres, images, opts)
	if err := w.Save(outPath); err != nil {
		return warnings, &model.StageError{Stage: stage, Path: outPath, Err: fmt.Errorf("%w: %v", model.ErrOutputWrite, err)}
	}
	return warnings, nil
}

type imageCloser interface {
	ImageSource
	Close() error
}

func openImages(path string) (imageCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return archive.OpenDir(path)
	}
	return archive.OpenZip(path)
}
