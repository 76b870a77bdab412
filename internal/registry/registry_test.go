package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(filepath.Join(t.TempDir(), "repositories.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func testRepo(name string) models.Repository {
	return models.Repository{
		Name:          name,
		Path:          "/repos/" + name,
		Priority:      models.PriorityMedium,
		ScanFrequency: models.FrequencyWeekly,
		Enabled:       true,
	}
}

func TestPutThenGet(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Put(testRepo("svc-a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := r.Get("svc-a")
	if !ok {
		t.Fatalf("expected svc-a to be found")
	}
	if got.Path != "/repos/svc-a" {
		t.Errorf("Path = %q", got.Path)
	}
}

func TestPutRejectsInvalidPriority(t *testing.T) {
	r := newTestRegistry(t)
	bad := testRepo("svc-a")
	bad.Priority = "urgent"
	if err := r.Put(bad); err == nil {
		t.Fatal("expected an error for an invalid priority")
	}
	if _, ok := r.Get("svc-a"); ok {
		t.Fatal("a rejected Put must not leave a partial record behind")
	}
}

func TestRemoveUnknownRepository(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Remove("ghost"); err == nil {
		t.Fatal("expected an error removing an unregistered repository")
	}
}

func TestRemoveDeletesRepository(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Put(testRepo("svc-a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Remove("svc-a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get("svc-a"); ok {
		t.Fatal("svc-a should no longer be registered")
	}
}

func TestRemoveRollsBackWhenGroupStillReferencesIt(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Put(testRepo("svc-a")); err != nil {
		t.Fatalf("Put svc-a: %v", err)
	}
	if err := r.Put(testRepo("svc-b")); err != nil {
		t.Fatalf("Put svc-b: %v", err)
	}
	r.mu.Lock()
	r.groups["suite"] = &models.RepositoryGroup{
		Name:         "suite",
		Repositories: []string{"svc-a", "svc-b"},
		ScanType:     models.ScanTypeInter,
		Enabled:      true,
	}
	r.mu.Unlock()

	if err := r.Remove("svc-a"); err == nil {
		t.Fatal("expected Remove to fail: svc-a is still referenced by group \"suite\"")
	}
	if _, ok := r.Get("svc-a"); !ok {
		t.Fatal("a rejected Remove must roll back and leave svc-a registered")
	}
}

func TestSetEnabledUnknownRepository(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.SetEnabled("ghost", false); err == nil {
		t.Fatal("expected an error toggling an unregistered repository")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := r.Put(testRepo("svc-a")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Get("svc-a"); !ok {
		t.Fatal("expected svc-a to survive a reload from disk")
	}
}

func TestUpdateLastScannedAndHistory(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Put(testRepo("svc-a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := r.UpdateLastScanned("svc-a", now); err != nil {
		t.Fatalf("UpdateLastScanned: %v", err)
	}
	if err := r.AppendHistory("svc-a", models.HistoryEntry{ScanID: "scan-1", ScannedAt: now, GroupCount: 3}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	got, _ := r.Get("svc-a")
	if got.LastScannedAt == nil || !got.LastScannedAt.Equal(now) {
		t.Errorf("LastScannedAt = %v, want %v", got.LastScannedAt, now)
	}
	if len(got.ScanHistory) != 1 || got.ScanHistory[0].GroupCount != 3 {
		t.Errorf("ScanHistory = %+v", got.ScanHistory)
	}
}
