package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/block"
	"github.com/dupeforge/dupeforge/internal/cache"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/internal/similarity"
	"github.com/dupeforge/dupeforge/internal/suggest"
	"github.com/dupeforge/dupeforge/models"
)

func newTestOrchestrator() (*Orchestrator, *eventbus.Bus) {
	bus := eventbus.New()
	gw := pattern.New("dupeforge-matcher-not-installed", "", 5*time.Second, 1<<20, 3)
	o := New(Options{
		Cache:        cache.New(cache.NewMemory()),
		CacheEnabled: true,
		Gateway:      gw,
		Extractor:    block.New(),
		Engine:       similarity.NewEngine(similarity.DefaultConfig()),
		Generator:    suggest.New(),
		Bus:          bus,
	})
	return o, bus
}

func TestRunCompletesForEmptyRepository(t *testing.T) {
	o, bus := newTestOrchestrator()
	sub := bus.Subscribe(eventbus.AllTopics)
	defer sub.Unsubscribe()

	job := &models.ScanJob{ID: "job-1", Target: t.TempDir(), Kind: models.JobKindIntra, State: models.JobQueued}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var sawCompleted bool
drain:
	for {
		select {
		case evt := <-sub.Events:
			if evt.Type == models.EventScanCompleted {
				sawCompleted = true
			}
		default:
			break drain
		}
	}
	if !sawCompleted {
		t.Fatalf("expected a scan:completed event")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &models.ScanJob{ID: "job-2", Target: t.TempDir(), Kind: models.JobKindIntra, State: models.JobQueued}
	err := o.Run(ctx, job)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
