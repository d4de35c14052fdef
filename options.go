package slidekit

import (
	"log/slog"

	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/render"
)

// pipelineOptions holds the configuration of a Pipeline.
type pipelineOptions struct {
	// Sources
	imagesFrom string // "" means the pipeline's own file

	// Outputs
	archiveDir string
	workDir    string // where rendered PDFs are kept; "" means a temporary directory

	// Stage settings
	matchTolerance float64
	inlineFallback bool

	// Collaborators
	logger   *slog.Logger
	renderer render.Renderer
	lines    render.LineSource
}

// defaultOptions returns the default pipeline options.
func defaultOptions() pipelineOptions {
	return pipelineOptions{
		archiveDir:     "extracted_images",
		matchTolerance: model.DefaultMatchTolerance,
	}
}

// clone creates a copy of pipelineOptions. Every field is a value or a
// shared, read-only collaborator, so a plain copy is deep enough.
func (o pipelineOptions) clone() pipelineOptions {
	return o
}
