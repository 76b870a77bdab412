// Package registry implements a typed, validated store of Repository and
// RepositoryGroup records loaded from a single JSON document and mutated
// under a single writer lock.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dupeforge/dupeforge/internal/config"
	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/models"
)

// document is the on-disk shape of repositories.json.
type document struct {
	Repositories     []models.Repository      `json:"repositories"`
	RepositoryGroups []models.RepositoryGroup `json:"repositoryGroups"`
}

// Registry is the in-memory, mutation-serialized view of the document.
// Readers take the RLock and receive a deep-enough snapshot (slices are
// re-sliced, never mutated in place) to satisfy the "readers see a
// consistent snapshot" invariant.
type Registry struct {
	mu       sync.RWMutex
	path     string
	repos    map[string]*models.Repository
	groups   map[string]*models.RepositoryGroup
}

// ValidationError enumerates every offending field found while validating a
// document; the document is never partially applied.
type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("registry validation failed: %s", strings.Join(v.Problems, "; "))
}

// Load reads and validates the registry document at path. An invalid
// document never partially applies: Load returns nil and a *ValidationError
// (wrapped in errs.KindConfig) without installing any state.
func Load(path string) (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errs.New(errs.KindConfig, "registry.Load", err)
	}
	expanded := expandHome(path, home)

	raw, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{path: expanded, repos: map[string]*models.Repository{}, groups: map[string]*models.RepositoryGroup{}}, nil
		}
		return nil, errs.New(errs.KindConfig, "registry.Load", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.New(errs.KindConfig, "registry.Load", fmt.Errorf("parsing %s: %w", expanded, err))
	}

	for i := range doc.Repositories {
		doc.Repositories[i].Path = expandHome(doc.Repositories[i].Path, home)
	}

	if verr := validate(doc); verr != nil {
		return nil, errs.New(errs.KindConfig, "registry.Load", verr)
	}

	r := &Registry{
		path:   expanded,
		repos:  make(map[string]*models.Repository, len(doc.Repositories)),
		groups: make(map[string]*models.RepositoryGroup, len(doc.RepositoryGroups)),
	}
	for i := range doc.Repositories {
		rc := doc.Repositories[i]
		r.repos[rc.Name] = &rc
	}
	for i := range doc.RepositoryGroups {
		gc := doc.RepositoryGroups[i]
		r.groups[gc.Name] = &gc
	}
	return r, nil
}

// validate enforces the registry's invariants: unique names, enumerated
// priority and frequency, and every group member name resolves to a real
// repository.
func validate(doc document) *ValidationError {
	var problems []string
	seen := map[string]bool{}
	for _, r := range doc.Repositories {
		if r.Name == "" {
			problems = append(problems, "repository with empty name")
			continue
		}
		if seen[r.Name] {
			problems = append(problems, fmt.Sprintf("duplicate repository name %q", r.Name))
		}
		seen[r.Name] = true
		if !r.Priority.Valid() {
			problems = append(problems, fmt.Sprintf("repository %q: invalid priority %q", r.Name, r.Priority))
		}
		if !r.ScanFrequency.Valid() {
			problems = append(problems, fmt.Sprintf("repository %q: invalid scanFrequency %q", r.Name, r.ScanFrequency))
		}
	}
	for _, g := range doc.RepositoryGroups {
		if g.Name == "" {
			problems = append(problems, "repository group with empty name")
			continue
		}
		for _, member := range g.Repositories {
			if !seen[member] {
				problems = append(problems, fmt.Sprintf("group %q references unknown repository %q", g.Name, member))
			}
		}
		if g.ScanType == models.ScanTypeInter && len(g.Repositories) < 2 {
			problems = append(problems, fmt.Sprintf("group %q: inter-project scan requires >= 2 repositories", g.Name))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// GetEnabled returns all enabled repositories, snapshotted.
func (r *Registry) GetEnabled() []models.Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Repository
	for _, rc := range r.repos {
		if rc.Enabled {
			out = append(out, *rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByPriority returns enabled repositories matching a priority.
func (r *Registry) GetByPriority(p models.Priority) []models.Repository {
	var out []models.Repository
	for _, rc := range r.GetEnabled() {
		if rc.Priority == p {
			out = append(out, rc)
		}
	}
	return out
}

// GetByFrequency returns enabled repositories matching a scan frequency.
func (r *Registry) GetByFrequency(f models.ScanFrequency) []models.Repository {
	var out []models.Repository
	for _, rc := range r.GetEnabled() {
		if rc.ScanFrequency == f {
			out = append(out, rc)
		}
	}
	return out
}

// GetByTag returns enabled repositories carrying the given tag.
func (r *Registry) GetByTag(tag string) []models.Repository {
	var out []models.Repository
	for _, rc := range r.GetEnabled() {
		for _, t := range rc.Tags {
			if t == tag {
				out = append(out, rc)
				break
			}
		}
	}
	return out
}

// Get returns a single repository by name.
func (r *Registry) Get(name string) (models.Repository, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.repos[name]
	if !ok {
		return models.Repository{}, false
	}
	return *rc, true
}

// Groups returns all enabled repository groups, snapshotted.
func (r *Registry) Groups() []models.RepositoryGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.RepositoryGroup
	for _, g := range r.groups {
		if g.Enabled {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveGroup returns the full Repository records for a group's members.
func (r *Registry) ResolveGroup(groupName string) ([]models.Repository, error) {
	r.mu.RLock()
	g, ok := r.groups[groupName]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindConfig, "registry.ResolveGroup", fmt.Errorf("unknown group %q", groupName))
	}
	var out []models.Repository
	for _, name := range g.Repositories {
		rc, ok := r.Get(name)
		if !ok {
			return nil, errs.New(errs.KindConfig, "registry.ResolveGroup", fmt.Errorf("group %q references missing repository %q", groupName, name))
		}
		out = append(out, rc)
	}
	return out, nil
}

// UpdateLastScanned sets a repository's lastScannedAt and persists the
// document under the single-writer lock.
func (r *Registry) UpdateLastScanned(name string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.repos[name]
	if !ok {
		return errs.New(errs.KindConfig, "registry.UpdateLastScanned", fmt.Errorf("unknown repository %q", name))
	}
	rc.LastScannedAt = &ts
	return r.persistLocked()
}

// AppendHistory appends a HistoryEntry to a repository's ring buffer
// (capped at models.MaxHistoryEntries) and persists the document.
func (r *Registry) AppendHistory(name string, entry models.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.repos[name]
	if !ok {
		return errs.New(errs.KindConfig, "registry.AppendHistory", fmt.Errorf("unknown repository %q", name))
	}
	rc.AppendHistory(entry)
	return r.persistLocked()
}

// Put inserts or replaces a repository record, re-validating the whole
// document before committing.
func (r *Registry) Put(rc models.Repository) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.repos[rc.Name]
	r.repos[rc.Name] = &rc
	if verr := validate(r.snapshotLocked()); verr != nil {
		if prev != nil {
			r.repos[rc.Name] = prev
		} else {
			delete(r.repos, rc.Name)
		}
		return errs.New(errs.KindConfig, "registry.Put", verr)
	}
	return r.persistLocked()
}

// Remove deletes a repository record. Re-validates the whole document
// first so a repository still referenced by a group cannot be removed out
// from under it.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.repos[name]
	if !ok {
		return errs.New(errs.KindConfig, "registry.Remove", fmt.Errorf("unknown repository %q", name))
	}
	delete(r.repos, name)
	if verr := validate(r.snapshotLocked()); verr != nil {
		r.repos[name] = prev
		return errs.New(errs.KindConfig, "registry.Remove", verr)
	}
	return r.persistLocked()
}

// SetEnabled toggles a repository's enabled flag.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.repos[name]
	if !ok {
		return errs.New(errs.KindConfig, "registry.SetEnabled", fmt.Errorf("unknown repository %q", name))
	}
	rc.Enabled = enabled
	return r.persistLocked()
}

func (r *Registry) snapshotLocked() document {
	var doc document
	for _, rc := range r.repos {
		doc.Repositories = append(doc.Repositories, *rc)
	}
	for _, g := range r.groups {
		doc.RepositoryGroups = append(doc.RepositoryGroups, *g)
	}
	return doc
}

func (r *Registry) persistLocked() error {
	if r.path == "" {
		return nil
	}
	doc := r.snapshotLocked()
	sort.Slice(doc.Repositories, func(i, j int) bool { return doc.Repositories[i].Name < doc.Repositories[j].Name })
	sort.Slice(doc.RepositoryGroups, func(i, j int) bool { return doc.RepositoryGroups[i].Name < doc.RepositoryGroups[j].Name })
	if err := config.AtomicWriteJSON(r.path, doc); err != nil {
		return errs.New(errs.KindConfig, "registry.persist", err)
	}
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
