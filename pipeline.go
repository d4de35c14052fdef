package slidekit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/slidekit/archive"
	"github.com/tsawler/slidekit/config"
	"github.com/tsawler/slidekit/extract"
	"github.com/tsawler/slidekit/format"
	"github.com/tsawler/slidekit/internal/logging"
	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/pptx"
	"github.com/tsawler/slidekit/rebuild"
	"github.com/tsawler/slidekit/render"
)

// Pipeline provides a fluent interface over the extraction, enrichment and
// rebuild stages. Each configuration method returns a new Pipeline, making
// it safe for concurrent use and allowing method chaining.
type Pipeline struct {
	filename string
	options  pipelineOptions
}

// clone creates a copy of the Pipeline with a copy of its options.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		filename: p.filename,
		options:  p.options.clone(),
	}
}

// ============================================================================
// Configuration Methods (return new Pipeline instance)
// ============================================================================

// ImagesFrom reads pictures from another PPTX file instead of the
// pipeline's own. Slides are paired by position.
//
// Example:
//
//	res, err := slidekit.Open("blank.pptx").ImagesFrom("original.pptx").Extract()
func (p *Pipeline) ImagesFrom(path string) *Pipeline {
	n := p.clone()
	n.options.imagesFrom = path
	return n
}

// ArchiveDir sets the directory extracted images are written to. The image
// zip is written next to it with a .zip suffix.
func (p *Pipeline) ArchiveDir(dir string) *Pipeline {
	n := p.clone()
	n.options.archiveDir = dir
	return n
}

// WorkDir keeps rendered PDFs in dir instead of a temporary directory.
func (p *Pipeline) WorkDir(dir string) *Pipeline {
	n := p.clone()
	n.options.workDir = dir
	return n
}

// MatchTolerance sets the per-component tolerance, in points, used when
// comparing image geometry during MergeInto.
func (p *Pipeline) MatchTolerance(pt float64) *Pipeline {
	n := p.clone()
	n.options.matchTolerance = pt
	return n
}

// InlineFallback lets the rebuild stage use inline base64 image copies when
// the archive lacks an entry.
func (p *Pipeline) InlineFallback() *Pipeline {
	n := p.clone()
	n.options.inlineFallback = true
	return n
}

// WithLogger sets the structured logger every stage logs to.
func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	n := p.clone()
	n.options.logger = l
	return n
}

// WithRenderer sets the tool that renders the deck to PDF for enrichment.
func (p *Pipeline) WithRenderer(r render.Renderer) *Pipeline {
	n := p.clone()
	n.options.renderer = r
	return n
}

// WithLineSource sets the tool that reads line layout from the rendered PDF.
func (p *Pipeline) WithLineSource(s render.LineSource) *Pipeline {
	n := p.clone()
	n.options.lines = s
	return n
}

// Configure applies loaded settings: archive directory, match tolerance,
// inline fallback, and LibreOffice and mutool collaborators built from the
// configured binaries. A logger set earlier is passed on to them.
func (p *Pipeline) Configure(c *config.Config) *Pipeline {
	n := p.clone()
	n.options.archiveDir = c.ArchiveDir
	n.options.matchTolerance = c.MatchTolerance
	n.options.inlineFallback = c.InlineFallback
	n.options.renderer = &render.LibreOffice{Binary: c.Soffice, Timeout: c.RenderTimeout, Logger: n.options.logger}
	n.options.lines = &render.Mutool{Binary: c.Mutool, Logger: n.options.logger}
	return n
}

// ============================================================================
// Terminal Operations
// ============================================================================

func (p *Pipeline) logger() *slog.Logger {
	return logging.OrDiscard(p.options.logger)
}

func (p *Pipeline) extractOptions() extract.Options {
	return extract.Options{Logger: p.options.logger, MatchTolerance: p.options.matchTolerance}
}

// openDeck opens a PPTX file, checking its content rather than trusting the
// extension.
func openDeck(path string) (*pptx.Document, error) {
	if path == "" {
		return nil, &model.StageError{Stage: "open", Err: fmt.Errorf("%w: no filename specified", model.ErrSourceUnreadable)}
	}
	if err := format.Expect(path, format.PPTX); err != nil {
		return nil, &model.StageError{Stage: "open", Path: path, Err: fmt.Errorf("%w: %v", model.ErrSourceUnreadable, err)}
	}
	doc, err := pptx.Open(path)
	if err != nil {
		return nil, &model.StageError{Stage: "open", Path: path, Err: fmt.Errorf("%w: %v", model.ErrSourceUnreadable, err)}
	}
	return doc, nil
}

func (p *Pipeline) newStore() (*archive.Store, error) {
	store, err := archive.NewStore(p.options.archiveDir)
	if err != nil {
		return nil, &model.StageError{Stage: "extract", Path: p.options.archiveDir, Err: fmt.Errorf("%w: %v", model.ErrOutputWrite, err)}
	}
	return store, nil
}

// Extract reads the deck into the interchange model and writes its images
// to the archive directory and zip.
//
// Example:
//
//	res, err := slidekit.Open("deck.pptx").Extract()
//	fmt.Println(res.ArchivePath, len(res.Presentation.Slides))
func (p *Pipeline) Extract() (*extract.Result, error) {
	textDoc, err := openDeck(p.filename)
	if err != nil {
		return nil, err
	}
	defer textDoc.Close()

	imageDoc := textDoc
	if p.options.imagesFrom != "" && p.options.imagesFrom != p.filename {
		imageDoc, err = openDeck(p.options.imagesFrom)
		if err != nil {
			return nil, err
		}
		defer imageDoc.Close()
	}

	store, err := p.newStore()
	if err != nil {
		return nil, err
	}
	return extract.Extract(textDoc, imageDoc, store, p.extractOptions())
}

// Blank returns a layout-only copy of the deck together with its blank
// structure. See extract.Blank.
func (p *Pipeline) Blank() (*pptx.Writer, *model.Presentation, error) {
	doc, err := openDeck(p.filename)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	w, structure := extract.Blank(doc, p.extractOptions())
	return w, structure, nil
}

// BlankRaw returns a copy of the deck with every top-level shape copied
// verbatim. See extract.BlankRaw.
func (p *Pipeline) BlankRaw() (*pptx.Writer, []Warning, error) {
	doc, err := openDeck(p.filename)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	w, warnings := extract.BlankRaw(doc, p.extractOptions())
	return w, warnings, nil
}

// MergeInto attaches the deck's pictures to structure, typically the blank
// structure returned by Blank. See extract.MergeImages.
func (p *Pipeline) MergeInto(structure *model.Presentation) (*extract.MergeResult, error) {
	doc, err := openDeck(p.filename)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	store, err := p.newStore()
	if err != nil {
		return nil, err
	}
	return extract.MergeImages(structure, doc, store, p.extractOptions())
}

// Layout renders the deck to PDF and reads its line layout. Both a
// renderer and a line source must be configured.
func (p *Pipeline) Layout(ctx context.Context) ([]render.Page, error) {
	if p.options.renderer == nil || p.options.lines == nil {
		return nil, fmt.Errorf("layout needs a renderer and a line source")
	}

	dir := p.options.workDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "slidekit-render-*")
		if err != nil {
			return nil, fmt.Errorf("creating work directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	pdfPath, err := p.options.renderer.Render(ctx, p.filename, dir)
	if err != nil {
		return nil, err
	}
	return p.options.lines.Pages(ctx, pdfPath)
}

// Enrich renders the deck and attaches its line layout to a copy of pres.
func (p *Pipeline) Enrich(ctx context.Context, pres *model.Presentation) (*model.Presentation, render.Report, error) {
	pages, err := p.Layout(ctx)
	if err != nil {
		return nil, render.Report{}, err
	}
	out, rep := render.Enrich(pres, pages)
	p.logger().Info("layout attached", "shapes", rep.Shapes, "lines", rep.Attached, "dropped", rep.Dropped)
	return out, rep, nil
}

// ConvertResult lists the artifacts written by Convert.
type ConvertResult struct {
	JSONPath    string
	ArchivePath string
	OutputPath  string
	Enriched    bool
	Warnings    []Warning
}

// Convert runs the whole chain: extraction, enrichment when a renderer and
// line source are configured, and a rebuild into outPath. The interchange
// JSON is saved next to outPath with a .json extension.
//
// Enrichment is best effort: if rendering fails the deck is rebuilt from
// its paragraphs and the failure is reported as a warning.
func (p *Pipeline) Convert(ctx context.Context, outPath string) (*ConvertResult, error) {
	log := p.logger()

	res, err := p.Extract()
	if err != nil {
		return nil, err
	}
	out := &ConvertResult{ArchivePath: res.ArchivePath, Warnings: res.Warnings}
	pres := res.Presentation

	if p.options.renderer != nil && p.options.lines != nil {
		enriched, rep, err := p.Enrich(ctx, pres)
		if err != nil {
			w := Warning{Stage: "enrich", Message: fmt.Sprintf("layout unavailable: %v", err)}
			out.Warnings = append(out.Warnings, w)
			log.Warn(w.Message)
		} else {
			pres = enriched
			out.Enriched = true
			out.Warnings = append(out.Warnings, rep.Warnings...)
		}
	}

	out.JSONPath = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".json"
	if err := model.Save(out.JSONPath, pres); err != nil {
		return out, err
	}

	zip, err := archive.OpenZip(res.ArchivePath)
	if err != nil {
		return out, &model.StageError{Stage: "rebuild", Path: res.ArchivePath, Err: fmt.Errorf("%w: %v", model.ErrSourceUnreadable, err)}
	}
	defer zip.Close()

	w, warnings := rebuild.Build(pres, zip, rebuild.Options{InlineFallback: p.options.inlineFallback, Logger: p.options.logger})
	out.Warnings = append(out.Warnings, warnings...)
	if err := w.Save(outPath); err != nil {
		return out, &model.StageError{Stage: "rebuild", Path: outPath, Err: fmt.Errorf("%w: %v", model.ErrOutputWrite, err)}
	}
	out.OutputPath = outPath
	log.Info("deck converted", "input", p.filename, "output", outPath, "warnings", len(out.Warnings))
	return out, nil
}
