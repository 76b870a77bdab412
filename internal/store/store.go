// Package store adapts the generic database.DB interface into the two
// persistence roles the Scan Cache and the scan runners need: a durable
// cache.Store (survives process restarts, unlike the in-memory default) and
// an orchestrator.Store for completed scans' full artifacts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dupeforge/dupeforge/internal/database"
	"github.com/dupeforge/dupeforge/internal/orchestrator"
	"github.com/dupeforge/dupeforge/models"
)

// SQLStore persists cache entries and scan artifacts through a database.DB.
// It satisfies both cache.Store and orchestrator.Store (and, by the same
// Save method, interproject.Coordinator's Store dependency, which is
// typed as orchestrator.Store to avoid a duplicate interface).
type SQLStore struct {
	db database.DB
}

func New(db database.DB) *SQLStore {
	return &SQLStore{db: db}
}

type cacheRow struct {
	Key            string `db:"key"`
	RepositoryPath string `db:"repository_path"`
	CommitHash     string `db:"commit_hash"`
	StoredAt       string `db:"stored_at"`
	TTLSeconds     int64  `db:"ttl_seconds"`
	ResultJSON     string `db:"result_json"`
}

// Get implements cache.Store.
func (s *SQLStore) Get(key string) (*models.CacheEntry, error) {
	var row cacheRow
	err := s.db.Get(context.Background(), &row,
		`SELECT key, repository_path, commit_hash, stored_at, ttl_seconds, result_json FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store.Get: %w", err)
	}

	storedAt, err := time.Parse(time.RFC3339, row.StoredAt)
	if err != nil {
		return nil, fmt.Errorf("store.Get: parsing stored_at: %w", err)
	}
	var result models.ScanResult
	if err := json.Unmarshal([]byte(row.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("store.Get: unmarshaling result: %w", err)
	}

	return &models.CacheEntry{
		Key:            row.Key,
		RepositoryPath: row.RepositoryPath,
		CommitHash:     row.CommitHash,
		StoredAt:       storedAt,
		TTLSeconds:     row.TTLSeconds,
		Result:         result,
	}, nil
}

// Put implements cache.Store.
func (s *SQLStore) Put(entry models.CacheEntry) error {
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("store.Put: marshaling result: %w", err)
	}
	row := cacheRow{
		Key:            entry.Key,
		RepositoryPath: entry.RepositoryPath,
		CommitHash:     entry.CommitHash,
		StoredAt:       entry.StoredAt.UTC().Format(time.RFC3339),
		TTLSeconds:     entry.TTLSeconds,
		ResultJSON:     string(resultJSON),
	}
	if err := s.db.Upsert(context.Background(), "cache_entries", row, []string{"key"}); err != nil {
		return fmt.Errorf("store.Put: %w", err)
	}
	return nil
}

// Delete implements cache.Store.
func (s *SQLStore) Delete(key string) error {
	if err := s.db.Exec(context.Background(), `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}
	return nil
}

// Keys implements cache.Store, used by Cache.Invalidate to drop every entry
// for a repository regardless of commit hash.
func (s *SQLStore) Keys(prefix string) ([]string, error) {
	var rows []struct {
		Key string `db:"key"`
	}
	if err := s.db.Select(context.Background(), &rows, `SELECT key FROM cache_entries WHERE key LIKE ?`, prefix+"%"); err != nil {
		return nil, fmt.Errorf("store.Keys: %w", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out, nil
}

type artifactRow struct {
	ScanID        string `db:"scan_id"`
	ArtifactsJSON string `db:"artifacts_json"`
	CreatedAt     string `db:"created_at"`
}

// Save implements orchestrator.Store: it persists a scan's full blocks,
// groups, and suggestions, keyed by scan ID.
func (s *SQLStore) Save(scanID string, artifacts orchestrator.Artifacts) error {
	raw, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("store.Save: marshaling artifacts: %w", err)
	}
	row := artifactRow{
		ScanID:        scanID,
		ArtifactsJSON: string(raw),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.db.Upsert(context.Background(), "scan_artifacts", row, []string{"scan_id"}); err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	return nil
}

// Artifacts returns a previously saved scan's full artifacts.
func (s *SQLStore) Artifacts(scanID string) (orchestrator.Artifacts, error) {
	var row artifactRow
	err := s.db.Get(context.Background(), &row,
		`SELECT scan_id, artifacts_json, created_at FROM scan_artifacts WHERE scan_id = ?`, scanID)
	if err != nil {
		return orchestrator.Artifacts{}, fmt.Errorf("store.Artifacts: %w", err)
	}
	var artifacts orchestrator.Artifacts
	if err := json.Unmarshal([]byte(row.ArtifactsJSON), &artifacts); err != nil {
		return orchestrator.Artifacts{}, fmt.Errorf("store.Artifacts: unmarshaling: %w", err)
	}
	return artifacts, nil
}
