package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/queue"
	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/internal/selector"
	"github.com/dupeforge/dupeforge/models"
)

const registryDoc = `{
	"repositories": [
		{"name": "svc-a", "path": "%s", "priority": "critical", "scanFrequency": "daily", "enabled": true},
		{"name": "svc-b", "path": "%s", "priority": "low", "scanFrequency": "on-demand", "enabled": true}
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

// spyRunner records which jobs it was asked to run and always succeeds
// immediately, so a Tick's enqueued jobs can be observed deterministically.
type spyRunner struct {
	mu   sync.Mutex
	kind models.JobKind
	jobs []*models.ScanJob
}

func (s *spyRunner) Run(_ context.Context, job *models.ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *spyRunner) targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.Target
	}
	return out
}

func newTestQueue(intra, inter *spyRunner) *queue.Queue {
	bus := eventbus.New()
	dispatcher := Dispatcher{Intra: intra, Inter: inter}
	return queue.New(dispatcher, bus, queue.Options{
		MaxConcurrentScans: 4,
		MaxAttempts:        1,
		RetryDelay:         time.Millisecond,
	})
}

func waitForJobs(t *testing.T, want int, runners ...*spyRunner) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		total := 0
		for _, r := range runners {
			total += len(r.targets())
		}
		if total >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d jobs", want)
}

func TestTickEnqueuesDueRepositoriesAndReadyGroups(t *testing.T) {
	reg := newTestRegistry(t)
	sel := selector.New(reg)
	intra, inter := &spyRunner{}, &spyRunner{}
	q := newTestQueue(intra, inter)

	s, err := New(sel, q, Options{Schedule: "@every 1h", MaxRepos: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Tick()
	waitForJobs(t, 2, intra, inter)

	intraTargets := intra.targets()
	if len(intraTargets) != 1 || intraTargets[0] != "svc-a" {
		t.Fatalf("expected svc-a enqueued as an intra job, got %v", intraTargets)
	}
	interTargets := inter.targets()
	if len(interTargets) != 1 || interTargets[0] != "fleet" {
		t.Fatalf("expected fleet enqueued as an inter job, got %v", interTargets)
	}
}

func TestNewRunsStartupTickWhenConfigured(t *testing.T) {
	reg := newTestRegistry(t)
	sel := selector.New(reg)
	intra, inter := &spyRunner{}, &spyRunner{}
	q := newTestQueue(intra, inter)

	if _, err := New(sel, q, Options{Schedule: "@every 1h", RunOnStartup: true, MaxRepos: 10}); err != nil {
		t.Fatalf("New: %v", err)
	}

	waitForJobs(t, 2, intra, inter)
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	reg := newTestRegistry(t)
	sel := selector.New(reg)
	intra, inter := &spyRunner{}, &spyRunner{}
	q := newTestQueue(intra, inter)

	if _, err := New(sel, q, Options{Schedule: "not-a-cron-expression"}); err == nil {
		t.Fatal("expected an error for an invalid cron schedule")
	}
}
