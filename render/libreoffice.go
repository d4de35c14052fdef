package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsawler/slidekit/format"
	"github.com/tsawler/slidekit/internal/logging"
)

// Renderer converts a presentation file into a PDF.
type Renderer interface {
	// Render writes a PDF of pptxPath into outDir and returns its path.
	Render(ctx context.Context, pptxPath, outDir string) (string, error)
}

// LibreOffice renders through a headless soffice process.
type LibreOffice struct {
	Binary  string        // defaults to "soffice"
	Timeout time.Duration // zero means no limit beyond ctx
	Logger  *slog.Logger
}

// Render runs soffice --headless --convert-to pdf. The output keeps the
// input's base name with a .pdf extension. Each call gets its own user
// profile so concurrent renders do not hand off to one running instance.
func (l *LibreOffice) Render(ctx context.Context, pptxPath, outDir string) (string, error) {
	bin := l.Binary
	if bin == "" {
		bin = "soffice"
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	profile, err := os.MkdirTemp("", "slidekit-soffice-*")
	if err != nil {
		return "", fmt.Errorf("creating profile directory: %w", err)
	}
	defer os.RemoveAll(profile)

	log := logging.OrDiscard(l.Logger)
	start := time.Now()
	args := []string{profileArg(profile), "--headless", "--convert-to", "pdf", "--outdir", outDir, pptxPath}
	if _, err := execCmd(ctx, bin, args...); err != nil {
		return "", fmt.Errorf("rendering %s: %w", pptxPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(pptxPath), filepath.Ext(pptxPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if err := format.Expect(pdfPath, format.PDF); err != nil {
		return "", fmt.Errorf("rendering %s: %w", pptxPath, err)
	}
	log.Info("deck rendered", "input", pptxPath, "pdf", pdfPath, "elapsed", time.Since(start))
	return pdfPath, nil
}

// profileArg points soffice at a private user installation directory.
func profileArg(dir string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dir)}
	return "-env:UserInstallation=" + u.String()
}
