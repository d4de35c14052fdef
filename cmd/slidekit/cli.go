package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	"github.com/tsawler/slidekit"
	"github.com/tsawler/slidekit/config"
	"github.com/tsawler/slidekit/format"
	"github.com/tsawler/slidekit/internal/logging"
	"github.com/tsawler/slidekit/model"
	"github.com/tsawler/slidekit/rebuild"
	"github.com/tsawler/slidekit/render"
)

// env carries what every command needs.
type env struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, stdout, stderr io.Writer) *cli.App {
	e := &env{cfg: *cfg, stdout: stdout, stderr: stderr}
	app := &cli.App{
		Name:      "slidekit",
		Usage:     "Round-trip slide decks through a JSON representation",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: cfg.LogLevel, Usage: "debug|info|warn|error"},
			&cli.StringFlag{Name: "log-format", Value: cfg.LogFormat, Usage: "text|json"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored status lines"},
		},
		Commands: []*cli.Command{
			extractCmd(e),
			blankCmd(e),
			mergeCmd(e),
			renderCmd(e),
			enrichCmd(e),
			rebuildCmd(e),
			convertCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (e *env) logger(c *cli.Context) *slog.Logger {
	return logging.New(logging.Config{
		Level:  c.String("log-level"),
		Format: c.String("log-format"),
		Output: e.stderr,
	})
}

func (e *env) status(c *cli.Context) *logging.Status {
	return logging.NewStatus(e.stdout, !c.Bool("no-color"))
}

// fail prints a failure line and returns err for the exit status.
func fail(st *logging.Status, what string, err error) error {
	st.Failure("%s failed: %v", what, err)
	return err
}

// report prints recoverable warnings below a success line.
func report(st *logging.Status, warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	st.Warn("%d warning(s)", len(warnings))
	for _, w := range warnings {
		st.Warn("  %s", w)
	}
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() < n {
		return fmt.Errorf("usage: slidekit %s %s", c.Command.Name, usage)
	}
	return nil
}

// withExt replaces the extension of path.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// pipeline opens path with the configured settings and logger.
func (e *env) pipeline(c *cli.Context, path string) *slidekit.Pipeline {
	cfg := e.cfg
	if c.IsSet("archive-dir") {
		cfg.ArchiveDir = c.String("archive-dir")
	}
	return slidekit.Open(path).WithLogger(e.logger(c)).Configure(&cfg)
}

// extractCmd creates the extract command.
func extractCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract a deck to JSON plus an image archive",
		ArgsUsage: "<deck.pptx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "images", Usage: "Read pictures from this deck instead"},
			&cli.StringFlag{Name: "archive-dir", Aliases: []string{"a"}, Value: e.cfg.ArchiveDir, Usage: "Image directory; the zip is written next to it"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "JSON output (default <deck>.json)"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 1, "<deck.pptx>"); err != nil {
				return fail(st, "extract", err)
			}
			deck := c.Args().First()
			out := c.String("out")
			if out == "" {
				out = withExt(deck, ".json")
			}

			p := e.pipeline(c, deck)
			if images := c.String("images"); images != "" {
				p = p.ImagesFrom(images)
			}
			res, err := p.Extract()
			if err != nil {
				return fail(st, "extract", err)
			}
			if err := model.Save(out, res.Presentation); err != nil {
				return fail(st, "extract", err)
			}
			st.Success("JSON saved to: %s", out)
			st.Success("Images zipped to: %s", res.ArchivePath)
			report(st, res.Warnings)
			return nil
		},
	}
}

// blankCmd creates the blank command.
func blankCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "blank",
		Usage:     "Write a layout-only copy of a deck and its blank structure",
		ArgsUsage: "<deck.pptx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Deck output (default <deck>_blank.pptx)"},
			&cli.StringFlag{Name: "structure", Aliases: []string{"s"}, Value: "blank_structure.json", Usage: "Blank structure JSON output"},
			&cli.BoolFlag{Name: "raw", Usage: "Copy shapes verbatim instead of writing placeholders"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 1, "<deck.pptx>"); err != nil {
				return fail(st, "blank", err)
			}
			deck := c.Args().First()
			out := c.String("out")
			if out == "" {
				out = withExt(deck, "_blank.pptx")
			}
			p := e.pipeline(c, deck)

			if c.Bool("raw") {
				w, warnings, err := p.BlankRaw()
				if err != nil {
					return fail(st, "blank", err)
				}
				if err := w.Save(out); err != nil {
					return fail(st, "blank", err)
				}
				st.Success("Copied presentation saved to: %s", out)
				report(st, warnings)
				return nil
			}

			w, structure, err := p.Blank()
			if err != nil {
				return fail(st, "blank", err)
			}
			if err := model.Save(c.String("structure"), structure); err != nil {
				return fail(st, "blank", err)
			}
			if err := w.Save(out); err != nil {
				return fail(st, "blank", err)
			}
			st.Success("JSON with shape layout saved to: %s", c.String("structure"))
			st.Success("Blank layout presentation saved to: %s", out)
			return nil
		},
	}
}

// mergeCmd creates the merge command.
func mergeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Attach the pictures of a deck to a blank structure",
		ArgsUsage: "<structure.json> <deck.pptx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "archive-dir", Aliases: []string{"a"}, Value: e.cfg.ArchiveDir, Usage: "Image directory; the zip is written next to it"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "output_data.json", Usage: "JSON output"},
			&cli.Float64Flag{Name: "tolerance", Value: e.cfg.MatchTolerance, Usage: "Geometry match tolerance in points"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 2, "<structure.json> <deck.pptx>"); err != nil {
				return fail(st, "merge", err)
			}
			structure, err := model.Load(c.Args().Get(0))
			if err != nil {
				return fail(st, "merge", err)
			}
			res, err := e.pipeline(c, c.Args().Get(1)).MatchTolerance(c.Float64("tolerance")).MergeInto(structure)
			if err != nil {
				return fail(st, "merge", err)
			}
			if err := model.Save(c.String("out"), res.Presentation); err != nil {
				return fail(st, "merge", err)
			}
			st.Success("Final JSON with image metadata saved to: %s", c.String("out"))
			st.Success("Zipped images saved to: %s", res.ArchivePath)
			report(st, res.Warnings)
			return nil
		},
	}
}

// renderCmd creates the render command.
func renderCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a deck to PDF with LibreOffice",
		ArgsUsage: "<deck.pptx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "outdir", Value: ".", Usage: "Directory for the PDF"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 1, "<deck.pptx>"); err != nil {
				return fail(st, "render", err)
			}
			r := &render.LibreOffice{Binary: e.cfg.Soffice, Timeout: e.cfg.RenderTimeout, Logger: e.logger(c)}
			pdf, err := r.Render(c.Context, c.Args().First(), c.String("outdir"))
			if err != nil {
				return fail(st, "render", err)
			}
			st.Success("PDF saved to: %s", pdf)
			return nil
		},
	}
}

// enrichCmd creates the enrich command.
func enrichCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "enrich",
		Usage:     "Attach rendered line layout to the text shapes of a JSON file",
		ArgsUsage: "<deck.json> <deck.pptx|deck.pdf>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "output_with_layout.json", Usage: "JSON output"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 2, "<deck.json> <deck.pptx|deck.pdf>"); err != nil {
				return fail(st, "enrich", err)
			}
			pres, err := model.Load(c.Args().Get(0))
			if err != nil {
				return fail(st, "enrich", err)
			}

			source := c.Args().Get(1)
			var out *model.Presentation
			var rep render.Report
			if format.Detect(source) == format.PDF {
				lines := &render.Mutool{Binary: e.cfg.Mutool, Logger: e.logger(c)}
				pages, err := lines.Pages(c.Context, source)
				if err != nil {
					return fail(st, "enrich", err)
				}
				out, rep = render.Enrich(pres, pages)
			} else {
				out, rep, err = e.pipeline(c, source).Enrich(c.Context, pres)
				if err != nil {
					return fail(st, "enrich", err)
				}
			}

			if err := model.Save(c.String("out"), out); err != nil {
				return fail(st, "enrich", err)
			}
			st.Success("Enhanced JSON with rendered layout saved to: %s (%d shapes, %d lines dropped)", c.String("out"), rep.Shapes, rep.Dropped)
			report(st, rep.Warnings)
			return nil
		},
	}
}

// rebuildCmd creates the rebuild command.
func rebuildCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "rebuild",
		Usage:     "Rebuild a deck from JSON and an image archive",
		ArgsUsage: "<deck.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "archive", Aliases: []string{"a"}, Value: e.cfg.ArchiveDir + ".zip", Usage: "Image zip or directory (empty for none)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "reconstructed_output.pptx", Usage: "Deck output"},
			&cli.BoolFlag{Name: "inline-fallback", Value: e.cfg.InlineFallback, Usage: "Use inline base64 images missing from the archive"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 1, "<deck.json>"); err != nil {
				return fail(st, "rebuild", err)
			}
			opts := rebuild.Options{InlineFallback: c.Bool("inline-fallback"), Logger: e.logger(c)}
			warnings, err := rebuild.BuildFile(c.Args().First(), c.String("archive"), c.String("out"), opts)
			if err != nil {
				return fail(st, "rebuild", err)
			}
			st.Success("Presentation reconstructed and saved as: %s", c.String("out"))
			report(st, warnings)
			return nil
		},
	}
}

// outputBases names the outputs of each input after its file name. Inputs
// sharing a name get a numeric suffix so no two decks write the same files.
func outputBases(inputs []string) []string {
	bases := make([]string, len(inputs))
	used := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		base := stem
		for n := 2; used[base]; n++ {
			base = fmt.Sprintf("%s_%d", stem, n)
		}
		used[base] = true
		bases[i] = base
	}
	return bases
}

// convertResult is the outcome of converting one deck.
type convertResult struct {
	input string
	res   *slidekit.ConvertResult
	err   error
}

// convertCmd creates the convert command.
func convertCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Extract, enrich and rebuild one or more decks",
		ArgsUsage: "<deck.pptx>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out-dir", Value: "converted", Usage: "Directory for all outputs"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Value: e.cfg.Workers, Usage: "Decks converted at once"},
			&cli.BoolFlag{Name: "no-layout", Usage: "Skip rendering; rebuild from paragraphs"},
		},
		Action: func(c *cli.Context) error {
			st := e.status(c)
			if err := requireArgs(c, 1, "<deck.pptx>..."); err != nil {
				return fail(st, "convert", err)
			}
			outDir := c.String("out-dir")
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fail(st, "convert", err)
			}
			workers := c.Int("workers")
			if workers < 1 {
				workers = 1
			}
			log := e.logger(c)

			inputs := c.Args().Slice()
			bases := outputBases(inputs)
			results := make([]convertResult, len(inputs))
			var mu sync.Mutex

			panicHandler := func(p interface{}) {
				log.Error("conversion panicked", "panic", p)
			}
			pool := pond.New(workers, len(inputs), pond.MinWorkers(workers), pond.PanicHandler(panicHandler))
			for i, input := range inputs {
				i, input, base := i, input, bases[i]
				results[i] = convertResult{input: input, err: errors.New("conversion did not finish")}
				pool.Submit(func() {
					cfg := e.cfg
					cfg.ArchiveDir = filepath.Join(outDir, base+"_images")
					p := slidekit.Open(input).WithLogger(log.With("deck", input)).Configure(&cfg)
					if c.Bool("no-layout") {
						p = p.WithRenderer(nil)
					} else {
						// soffice names the PDF after the input file.
						p = p.WorkDir(filepath.Join(outDir, base+"_render"))
					}
					res, err := p.Convert(c.Context, filepath.Join(outDir, base+"_rebuilt.pptx"))

					mu.Lock()
					results[i] = convertResult{input: input, res: res, err: err}
					mu.Unlock()
				})
			}
			pool.StopAndWait()

			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					st.Failure("%s: %v", r.input, r.err)
					continue
				}
				st.Success("%s -> %s (json %s, images %s)", r.input, r.res.OutputPath, r.res.JSONPath, r.res.ArchivePath)
				report(st, r.res.Warnings)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d decks failed", failed, len(inputs))
			}
			return nil
		},
	}
}
