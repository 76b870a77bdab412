package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dupeforge/dupeforge/models"
)

// MarkdownRenderer writes a Markdown summary, suitable for pasting into a
// pull request description or a wiki page.
type MarkdownRenderer struct{}

func NewMarkdown() *MarkdownRenderer { return &MarkdownRenderer{} }

func (r *MarkdownRenderer) Format() Format { return FormatMarkdown }

func (r *MarkdownRenderer) Render(_ context.Context, result models.ScanResult, outDir string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Scan %s\n\n", result.ScanID)
	fmt.Fprintf(&b, "%s\n\n", result.ExecutiveSummary)
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Repositories | %d |\n", len(result.Repositories))
	fmt.Fprintf(&b, "| Duplicate groups | %d |\n", result.Metrics.TotalGroups)
	fmt.Fprintf(&b, "| Exact duplicates | %d |\n", result.Metrics.ExactDuplicates)
	fmt.Fprintf(&b, "| Suggestions | %d |\n", result.Metrics.Suggestions)
	fmt.Fprintf(&b, "| Quick wins | %d |\n", result.Metrics.QuickWins)
	fmt.Fprintf(&b, "| Duplication | %.1f%% |\n", result.Metrics.DuplicationPct)

	path := filepath.Join(outDir, result.ScanID+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
