package report

import (
	"context"
	"html/template"
	"os"
	"path/filepath"

	"github.com/dupeforge/dupeforge/models"
)

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>Scan {{.ScanID}}</title></head>
<body>
<h1>Scan {{.ScanID}}</h1>
<p>{{.ExecutiveSummary}}</p>
<ul>
<li>Repositories: {{len .Repositories}}</li>
<li>Duplicate groups: {{.Metrics.TotalGroups}}</li>
<li>Exact duplicates: {{.Metrics.ExactDuplicates}}</li>
<li>Suggestions: {{.Metrics.Suggestions}}</li>
<li>Quick wins: {{.Metrics.QuickWins}}</li>
<li>Duplication: {{printf "%.1f" .Metrics.DuplicationPct}}%</li>
</ul>
</body>
</html>
`))

// HTMLRenderer writes a minimal standalone HTML report.
type HTMLRenderer struct{}

func NewHTML() *HTMLRenderer { return &HTMLRenderer{} }

func (r *HTMLRenderer) Format() Format { return FormatHTML }

func (r *HTMLRenderer) Render(_ context.Context, result models.ScanResult, outDir string) (string, error) {
	path := filepath.Join(outDir, result.ScanID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := htmlReportTemplate.Execute(f, result); err != nil {
		return "", err
	}
	return path, nil
}
