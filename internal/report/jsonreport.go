package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dupeforge/dupeforge/models"
)

// JSONRenderer writes the ScanResult verbatim, for machine consumers.
type JSONRenderer struct{}

func NewJSON() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Format() Format { return FormatJSON }

func (r *JSONRenderer) Render(_ context.Context, result models.ScanResult, outDir string) (string, error) {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, result.ScanID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
