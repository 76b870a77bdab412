package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dupeforge/dupeforge/models"
)

// SummaryRenderer writes a one-line-per-metric compact text summary, meant
// for a terminal or a chat notification body.
type SummaryRenderer struct{}

func NewSummary() *SummaryRenderer { return &SummaryRenderer{} }

func (r *SummaryRenderer) Format() Format { return FormatSummary }

func (r *SummaryRenderer) Render(_ context.Context, result models.ScanResult, outDir string) (string, error) {
	text := fmt.Sprintf(
		"scan %s: %d groups (%d exact) across %d repositories, %.1f%% duplication, %d quick wins\n",
		result.ScanID, result.Metrics.TotalGroups, result.Metrics.ExactDuplicates,
		len(result.Repositories), result.Metrics.DuplicationPct, result.Metrics.QuickWins,
	)
	path := filepath.Join(outDir, result.ScanID+".summary.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
