package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dupeforge/dupeforge/models"
)

type failingRenderer struct{}

func (failingRenderer) Format() Format { return "broken" }
func (failingRenderer) Render(context.Context, models.ScanResult, string) (string, error) {
	return "", errors.New("renderer unavailable")
}

func sampleResult() models.ScanResult {
	return models.ScanResult{
		ScanID:           "scan-1",
		Repositories:     []string{"/repo/a"},
		ExecutiveSummary: "2 duplicate groups found",
		Metrics: models.Metrics{
			TotalGroups:     2,
			ExactDuplicates: 1,
			Suggestions:     2,
			QuickWins:       1,
			DuplicationPct:  12.5,
		},
	}
}

func TestRenderWritesAllFormats(t *testing.T) {
	dir := t.TempDir()
	c := New(NewHTML(), NewMarkdown(), NewJSON(), NewSummary())

	artifacts, warnings := c.Render(context.Background(), sampleResult(), dir)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(artifacts) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(artifacts))
	}
	for _, a := range artifacts {
		if _, err := os.Stat(a.Path); err != nil {
			t.Fatalf("artifact %s not written: %v", a.Format, err)
		}
	}
}

func TestRenderFailureIsAWarningNotAFailure(t *testing.T) {
	dir := t.TempDir()
	c := New(NewJSON(), failingRenderer{})

	artifacts, warnings := c.Render(context.Background(), sampleResult(), dir)
	if len(artifacts) != 1 {
		t.Fatalf("expected the working renderer to still produce an artifact, got %d", len(artifacts))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for the broken renderer, got %d", len(warnings))
	}
	if warnings[0].Format != "broken" {
		t.Fatalf("unexpected warning format %s", warnings[0].Format)
	}
}

func TestHTMLRendererProducesValidPath(t *testing.T) {
	dir := t.TempDir()
	path, err := NewHTML().Render(context.Background(), sampleResult(), dir)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected artifact under %s, got %s", dir, path)
	}
}
