// Package cache implements the Scan Cache: a content-addressed store of
// prior ScanResults keyed by (repository path, commit hash), with TTL and
// commit-change invalidation. Ships both an in-memory backend and a Redis
// production backend behind the same Store interface.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/models"
)

// Store is the pluggable KV backend. Implementations: Memory (tests,
// single-process default) and Redis (production).
type Store interface {
	Get(key string) (*models.CacheEntry, error)
	Put(entry models.CacheEntry) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Key derives the cache key for a repository path and commit hash:
// sha256(canonicalRepoPath) || commitHash.
func Key(repoPath, commitHash string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return hex.EncodeToString(sum[:]) + "|" + commitHash
}

// pathPrefix returns the key prefix shared by all entries for repoPath,
// independent of commit hash, used by Invalidate.
func pathPrefix(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return hex.EncodeToString(sum[:]) + "|"
}

// Cache is the Scan Cache façade used by the Orchestrator.
type Cache struct {
	store Store
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

// Get returns the ScanResult iff a non-expired entry exists for
// (repoPath, commitHash). A store error is logged by the caller and treated
// as a miss: a cache failure never fails the surrounding scan.
func (c *Cache) Get(repoPath, commitHash string) (*models.ScanResult, error) {
	entry, err := c.store.Get(Key(repoPath, commitHash))
	if err != nil {
		return nil, errs.New(errs.KindCache, "cache.Get", err)
	}
	if entry == nil {
		return nil, nil
	}
	if entry.Expired(time.Now()) {
		return nil, nil
	}
	if entry.CommitHash != commitHash {
		return nil, nil
	}
	return &entry.Result, nil
}

// Put stores result under (repoPath, commitHash) with the given TTL.
func (c *Cache) Put(repoPath, commitHash string, result models.ScanResult, ttlSeconds int64) error {
	entry := models.CacheEntry{
		Key:            Key(repoPath, commitHash),
		RepositoryPath: repoPath,
		CommitHash:     commitHash,
		StoredAt:       time.Now(),
		TTLSeconds:     ttlSeconds,
		Result:         result,
	}
	if err := c.store.Put(entry); err != nil {
		return errs.New(errs.KindCache, "cache.Put", err)
	}
	return nil
}

// Invalidate drops every stored entry for repoPath, regardless of commit.
func (c *Cache) Invalidate(repoPath string) error {
	keys, err := c.store.Keys(pathPrefix(repoPath))
	if err != nil {
		return errs.New(errs.KindCache, "cache.Invalidate", err)
	}
	for _, k := range keys {
		if err := c.store.Delete(k); err != nil {
			return errs.New(errs.KindCache, "cache.Invalidate", err)
		}
	}
	return nil
}

// ListRecent returns stored entries for repoPath, most-recently-stored last.
func (c *Cache) ListRecent(repoPath string) ([]models.CacheEntry, error) {
	lister, ok := c.store.(interface {
		List(prefix string) ([]models.CacheEntry, error)
	})
	if !ok {
		return nil, nil
	}
	entries, err := lister.List(pathPrefix(repoPath))
	if err != nil {
		return nil, errs.New(errs.KindCache, "cache.ListRecent", err)
	}
	return entries, nil
}
