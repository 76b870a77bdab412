package report

import (
	"context"
	"sync"

	"github.com/dupeforge/dupeforge/models"
)

// Coordinator fans a ScanResult out to every registered Renderer
// concurrently, grounded on the teacher's notify.Dispatcher fan-out shape
// (internal/notify/dispatcher.go's Notify loop), generalized from
// sequential channel sends to a parallel renderer fan-out since renderers
// here do local file I/O rather than a rate-limited external API.
type Coordinator struct {
	renderers []Renderer
}

func New(renderers ...Renderer) *Coordinator {
	return &Coordinator{renderers: renderers}
}

// Render runs every renderer concurrently and returns the artifacts that
// succeeded alongside the warnings for the ones that didn't; it never
// returns an error itself.
func (c *Coordinator) Render(ctx context.Context, result models.ScanResult, outDir string) ([]Artifact, []Warning) {
	type outcome struct {
		artifact *Artifact
		warning  *Warning
	}
	outcomes := make([]outcome, len(c.renderers))

	var wg sync.WaitGroup
	for i, r := range c.renderers {
		wg.Add(1)
		go func(i int, r Renderer) {
			defer wg.Done()
			path, err := r.Render(ctx, result, outDir)
			if err != nil {
				outcomes[i] = outcome{warning: &Warning{Format: r.Format(), Err: err}}
				return
			}
			outcomes[i] = outcome{artifact: &Artifact{Format: r.Format(), Path: path}}
		}(i, r)
	}
	wg.Wait()

	var artifacts []Artifact
	var warnings []Warning
	for _, o := range outcomes {
		if o.artifact != nil {
			artifacts = append(artifacts, *o.artifact)
		}
		if o.warning != nil {
			warnings = append(warnings, *o.warning)
		}
	}
	return artifacts, warnings
}
