package interproject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/block"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/internal/similarity"
	"github.com/dupeforge/dupeforge/internal/suggest"
	"github.com/dupeforge/dupeforge/models"
)

const registryDoc = `{
	"repositories": [
		{"name": "svc-a", "path": "%s", "priority": "medium", "scanFrequency": "daily", "enabled": true},
		{"name": "svc-b", "path": "%s", "priority": "medium", "scanFrequency": "daily", "enabled": true}
	],
	"repositoryGroups": [
		{"name": "fleet", "repositories": ["svc-a", "svc-b"], "scanType": "inter", "enabled": true}
	]
}`

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	repoA := filepath.Join(dir, "a")
	repoB := filepath.Join(dir, "b")
	if err := os.MkdirAll(repoA, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(repoB, 0o755); err != nil {
		t.Fatal(err)
	}

	docPath := filepath.Join(dir, "repositories.json")
	contents := []byte(fmt.Sprintf(registryDoc, repoA, repoB))
	if err := os.WriteFile(docPath, contents, 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(docPath)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return reg
}

func newTestCoordinator(t *testing.T) (*Coordinator, *eventbus.Bus, *registry.Registry) {
	reg := newTestRegistry(t)
	bus := eventbus.New()
	gw := pattern.New("dupeforge-matcher-not-installed", "", 5*time.Second, 1<<20, 3)
	c := New(Options{
		Registry:  reg,
		Gateway:   gw,
		Extractor: block.New(),
		Engine:    similarity.NewEngine(similarity.DefaultConfig()),
		Generator: suggest.New(),
		Bus:       bus,
	})
	return c, bus, reg
}

func TestRunRequiresRegistry(t *testing.T) {
	c := New(Options{
		Gateway:   pattern.New("dupeforge-matcher-not-installed", "", 5*time.Second, 1<<20, 3),
		Extractor: block.New(),
		Engine:    similarity.NewEngine(similarity.DefaultConfig()),
		Generator: suggest.New(),
	})
	job := &models.ScanJob{ID: "job-1", Target: "fleet", Kind: models.JobKindInter}
	if err := c.Run(context.Background(), job); err == nil {
		t.Fatalf("expected error without a configured registry")
	}
}

func TestRunCompletesForGroup(t *testing.T) {
	c, bus, _ := newTestCoordinator(t)
	sub := bus.Subscribe(eventbus.AllTopics)
	defer sub.Unsubscribe()

	job := &models.ScanJob{ID: "job-2", Target: "fleet", Kind: models.JobKindInter, State: models.JobQueued}
	if err := c.Run(context.Background(), job); err != nil {
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

func TestRunRejectsUnknownGroup(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	job := &models.ScanJob{ID: "job-3", Target: "no-such-group", Kind: models.JobKindInter}
	if err := c.Run(context.Background(), job); err == nil {
		t.Fatalf("expected error for an unknown group")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &models.ScanJob{ID: "job-4", Target: "fleet", Kind: models.JobKindInter}
	if err := c.Run(ctx, job); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestNeverDowngradeRaisesStrategy(t *testing.T) {
	blockByID := map[string]models.CodeBlock{
		"b1": {ID: "b1", RepositoryPath: "/repo/a", RelativePath: "a.js", LineCount: 10},
		"b2": {ID: "b2", RepositoryPath: "/repo/a", RelativePath: "a2.js", LineCount: 10},
		"b3": {ID: "b3", RepositoryPath: "/repo/a", RelativePath: "a3.js", LineCount: 10},
		"b4": {ID: "b4", RepositoryPath: "/repo/a", RelativePath: "a4.js", LineCount: 10},
		"b5": {ID: "b5", RepositoryPath: "/repo/a", RelativePath: "a5.js", LineCount: 10},
		"b6": {ID: "b6", RepositoryPath: "/repo/a", RelativePath: "a6.js", LineCount: 10},
		"b7": {ID: "b7", RepositoryPath: "/repo/a", RelativePath: "a7.js", LineCount: 10},
		"b8": {ID: "b8", RepositoryPath: "/repo/a", RelativePath: "a8.js", LineCount: 10},
		"b9": {ID: "b9", RepositoryPath: "/repo/a", RelativePath: "a9.js", LineCount: 10},
		"c1": {ID: "c1", RepositoryPath: "/repo/b", RelativePath: "b1.js", LineCount: 10},
	}
	group := models.DuplicateGroup{
		MemberBlockIDs:       []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7", "b8", "b9", "c1"},
		Category:             "utility",
		OccurrenceCount:      10,
		TotalLines:           100,
		AffectedFiles:        []string{"a.js", "a2.js", "a3.js", "a4.js", "a5.js", "a6.js", "a7.js", "a8.js", "a9.js", "b1.js"},
		AffectedRepositories: []string{"/repo/a", "/repo/b"},
		QualityScore:         0.9,
	}

	weak := models.ConsolidationSuggestion{Strategy: models.StrategyLocalUtil}
	raised := neverDowngrade(group, weak, blockByID)
	if raised.Strategy == models.StrategyLocalUtil {
		t.Fatalf("expected strategy to be raised past local_util, got %s", raised.Strategy)
	}
}
