package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/config"
	"github.com/dupeforge/dupeforge/internal/database"
	"github.com/dupeforge/dupeforge/internal/orchestrator"
	"github.com/dupeforge/dupeforge/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dupeforge.db")
	db, err := database.NewSQLite(config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return New(db)
}

func TestCacheEntryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	entry := models.CacheEntry{
		Key:            "abc|def",
		RepositoryPath: "/repo/a",
		CommitHash:     "def",
		StoredAt:       time.Now().UTC().Truncate(time.Second),
		TTLSeconds:     3600,
		Result:         models.ScanResult{ScanID: "scan-1", Repositories: []string{"/repo/a"}},
	}
	if err := s.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(entry.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected an entry, got nil")
	}
	if got.Result.ScanID != "scan-1" {
		t.Fatalf("unexpected result: %+v", got.Result)
	}

	if err := s.Delete(entry.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Get(entry.Key)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no entry after delete, got %+v", got)
	}
}

func TestGetMissingKeyReturnsNilNotError(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get("missing")
	if err != nil {
		t.Fatalf("expected no error for a missing key, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil entry, got %+v", got)
	}
}

func TestKeysFiltersByPrefix(t *testing.T) {
	s := newTestStore(t)
	for _, key := range []string{"repoA|commit1", "repoA|commit2", "repoB|commit1"} {
		entry := models.CacheEntry{Key: key, RepositoryPath: "x", CommitHash: "y", StoredAt: time.Now()}
		if err := s.Put(entry); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	keys, err := s.Keys("repoA|")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys under repoA, got %v", keys)
	}
}

func TestSaveAndLoadArtifacts(t *testing.T) {
	s := newTestStore(t)
	artifacts := orchestrator.Artifacts{
		Blocks: []models.CodeBlock{{ID: "blk-1"}},
	}
	if err := s.Save("scan-1", artifacts); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Artifacts("scan-1")
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].ID != "blk-1" {
		t.Fatalf("unexpected artifacts: %+v", got)
	}
}
