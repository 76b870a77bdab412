// Package report implements the Report Coordinator: it fans a ScanResult
// out to every configured renderer in parallel and collects the artifact
// paths they produce. A renderer failing is a warning, never a scan
// failure — the same non-fatal posture the teacher's notification
// dispatcher takes toward a channel send failing.
package report

import (
	"context"

	"github.com/dupeforge/dupeforge/models"
)

// Format names one of the renderer output shapes.
type Format string

const (
	FormatHTML      Format = "html"
	FormatMarkdown  Format = "markdown"
	FormatJSON      Format = "json"
	FormatSummary   Format = "summary"
)

// Renderer is implemented by each output format. Render writes its artifact
// under outDir and returns the path it wrote.
type Renderer interface {
	Format() Format
	Render(ctx context.Context, result models.ScanResult, outDir string) (path string, err error)
}

// Artifact is one renderer's successful output.
type Artifact struct {
	Format Format
	Path   string
}

// Warning records a renderer that failed; it never fails the scan.
type Warning struct {
	Format Format
	Err    error
}

func (w Warning) Error() string {
	return string(w.Format) + ": " + w.Err.Error()
}
