package cache

import (
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/models"
)

func TestGetMissReturnsNil(t *testing.T) {
	c := New(NewMemory())
	result, err := c.Get("/repos/svc-a", "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != nil {
		t.Fatalf("expected a cache miss, got %+v", result)
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := New(NewMemory())
	want := models.ScanResult{ScanID: "scan-1", Repositories: []string{"svc-a"}}
	if err := c.Put("/repos/svc-a", "abc123", want, 3600); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get("/repos/svc-a", "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ScanID != "scan-1" {
		t.Fatalf("got = %+v, want ScanID scan-1", got)
	}
}

func TestGetMissesOnCommitChange(t *testing.T) {
	c := New(NewMemory())
	if err := c.Put("/repos/svc-a", "abc123", models.ScanResult{ScanID: "scan-1"}, 3600); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get("/repos/svc-a", "def456")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a miss after the commit changed, got %+v", got)
	}
}

func TestGetMissesOnExpiredEntry(t *testing.T) {
	store := NewMemory()
	entry := models.CacheEntry{
		Key:            Key("/repos/svc-a", "abc123"),
		RepositoryPath: "/repos/svc-a",
		CommitHash:     "abc123",
		StoredAt:       time.Now().Add(-2 * time.Hour),
		TTLSeconds:     3600,
		Result:         models.ScanResult{ScanID: "scan-1"},
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c := New(store)
	got, err := c.Get("/repos/svc-a", "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a miss for an expired entry, got %+v", got)
	}
}

func TestInvalidateDropsAllEntriesForPath(t *testing.T) {
	c := New(NewMemory())
	if err := c.Put("/repos/svc-a", "commit1", models.ScanResult{ScanID: "scan-1"}, 3600); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put("/repos/svc-a", "commit2", models.ScanResult{ScanID: "scan-2"}, 3600); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put("/repos/svc-b", "commit1", models.ScanResult{ScanID: "scan-3"}, 3600); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := c.Invalidate("/repos/svc-a"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if got, _ := c.Get("/repos/svc-a", "commit2"); got != nil {
		t.Fatalf("expected svc-a entries to be gone, got %+v", got)
	}
	if got, _ := c.Get("/repos/svc-b", "commit1"); got == nil {
		t.Fatal("expected svc-b's entry to survive svc-a's invalidation")
	}
}

func TestListRecentOrdersByStoredAtAscending(t *testing.T) {
	store := NewMemory()
	older := models.CacheEntry{
		Key: Key("/repos/svc-a", "c1"), RepositoryPath: "/repos/svc-a", CommitHash: "c1",
		StoredAt: time.Now().Add(-time.Hour), Result: models.ScanResult{ScanID: "scan-older"},
	}
	newer := models.CacheEntry{
		Key: Key("/repos/svc-a", "c2"), RepositoryPath: "/repos/svc-a", CommitHash: "c2",
		StoredAt: time.Now(), Result: models.ScanResult{ScanID: "scan-newer"},
	}
	if err := store.Put(newer); err != nil {
		t.Fatalf("Put newer: %v", err)
	}
	if err := store.Put(older); err != nil {
		t.Fatalf("Put older: %v", err)
	}

	c := New(store)
	entries, err := c.ListRecent("/repos/svc-a")
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Result.ScanID != "scan-older" || entries[1].Result.ScanID != "scan-newer" {
		t.Errorf("entries not ordered oldest-first: %+v", entries)
	}
}

func TestKeyIsStableAndPathSensitive(t *testing.T) {
	k1 := Key("/repos/svc-a", "abc123")
	k2 := Key("/repos/svc-a", "abc123")
	if k1 != k2 {
		t.Error("Key should be deterministic for the same inputs")
	}
	k3 := Key("/repos/svc-b", "abc123")
	if k1 == k3 {
		t.Error("Key should differ across repository paths")
	}
}
