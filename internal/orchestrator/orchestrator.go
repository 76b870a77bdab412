// Package orchestrator runs the nine-step single-repository scan pipeline:
// resolve commit, check cache, invoke the pattern gateway, extract blocks,
// run the similarity engine, generate suggestions, assemble the result,
// write it back to cache, and update the registry.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dupeforge/dupeforge/internal/block"
	"github.com/dupeforge/dupeforge/internal/cache"
	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/gittracker"
	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/internal/similarity"
	"github.com/dupeforge/dupeforge/internal/suggest"
	"github.com/dupeforge/dupeforge/models"
)

// Artifacts is everything a single scan produced beyond the summary
// ScanResult: the full CodeBlocks, DuplicateGroups, and
// ConsolidationSuggestions the result's ID slices reference.
type Artifacts struct {
	Blocks      []models.CodeBlock
	Groups      []models.DuplicateGroup
	Suggestions []models.ConsolidationSuggestion
}

// Store persists a scan's full artifacts, keyed by scan ID, so a caller can
// look up the detail behind a ScanResult's ID lists after the fact.
type Store interface {
	Save(scanID string, artifacts Artifacts) error
}

// Orchestrator wires the per-repository pipeline components together. job.Target
// is a repository name as registered, resolved to a filesystem path via reg;
// if reg is nil or the name isn't registered, Target is used as a literal
// path (ad-hoc scans).
type Orchestrator struct {
	cache        *cache.Cache
	cacheEnabled bool
	gateway      *pattern.Gateway
	extractor    *block.Extractor
	engine       *similarity.Engine
	generator    *suggest.Generator
	bus          *eventbus.Bus
	reg          *registry.Registry
	store        Store

	mu      sync.RWMutex
	results map[string]models.ScanResult
}

type Options struct {
	Cache        *cache.Cache
	CacheEnabled bool
	Gateway      *pattern.Gateway
	Extractor    *block.Extractor
	Engine       *similarity.Engine
	Generator    *suggest.Generator
	Bus          *eventbus.Bus
	Registry     *registry.Registry
	Store        Store
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		cache:        opts.Cache,
		cacheEnabled: opts.CacheEnabled,
		gateway:      opts.Gateway,
		extractor:    opts.Extractor,
		engine:       opts.Engine,
		generator:    opts.Generator,
		bus:          opts.Bus,
		reg:          opts.Registry,
		store:        opts.Store,
		results:      make(map[string]models.ScanResult),
	}
}

// Result returns a previously recorded ScanResult by scan ID.
func (o *Orchestrator) Result(scanID string) (models.ScanResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.results[scanID]
	return r, ok
}

// Run implements queue.Runner: it scans the repository job.Target refers to
// and publishes progress events as it goes. Cancellation is checked between
// every stage; on cancel the function returns a KindCancel error without
// writing to cache or updating the registry.
func (o *Orchestrator) Run(ctx context.Context, job *models.ScanJob) error {
	repoPath, excludePatterns := o.resolveTarget(job.Target)
	start := time.Now()

	commitHash := o.resolveCommit(repoPath)

	if o.cacheEnabled && commitHash != "" {
		result, err := o.cache.Get(repoPath, commitHash)
		if err != nil {
			slog.Warn("orchestrator: cache lookup failed, treating as a miss", "repositoryPath", repoPath, "error", err)
		}
		if err == nil && result != nil {
			result.FromCache = true
			o.publish(models.EventCacheHit, job, "", map[string]any{"repositoryPath": repoPath})
			o.recordResult(result.ScanID, *result)
			o.publish(models.EventScanCompleted, job, result.ScanID, map[string]any{"fromCache": true})
			return nil
		}
		o.publish(models.EventCacheMiss, job, "", map[string]any{"repositoryPath": repoPath})
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	o.progress(job, "scanning", 10)

	gwResult, err := o.gateway.Scan(ctx, repoPath)
	if err != nil {
		return err
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	o.progress(job, "extracting", 40)

	blocks, err := o.extractor.Extract(repoPath, gwResult.Matches, excludePatterns)
	if err != nil {
		return errs.New(errs.KindValidation, "orchestrator.Run", err)
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	o.progress(job, "analyzing", 70)

	groups := o.engine.FindGroups(blocks)

	if err := stageCheck(ctx); err != nil {
		return err
	}
	o.progress(job, "suggesting", 90)

	suggestions := make([]models.ConsolidationSuggestion, 0, len(groups))
	for i := range groups {
		s := o.generator.Generate(groups[i])
		groups[i].ImpactScore = s.ROIScore
		suggestions = append(suggestions, s)
	}

	scanID := uuid.NewString()
	result := assembleResult(scanID, job, repoPath, start, blocks, groups, suggestions)

	if o.store != nil {
		if err := o.store.Save(scanID, Artifacts{Blocks: blocks, Groups: groups, Suggestions: suggestions}); err != nil {
			return errs.New(errs.KindValidation, "orchestrator.Run", err)
		}
	}

	if o.cacheEnabled && commitHash != "" {
		_ = o.cache.Put(repoPath, commitHash, result, models.DefaultCacheTTLSeconds)
	}

	if o.reg != nil {
		if _, ok := o.reg.Get(job.Target); ok {
			now := time.Now()
			_ = o.reg.UpdateLastScanned(job.Target, now)
			_ = o.reg.AppendHistory(job.Target, models.HistoryEntry{
				ScanID:     scanID,
				CommitHash: commitHash,
				ScannedAt:  now,
				GroupCount: len(groups),
			})
		}
	}

	o.recordResult(scanID, result)
	o.publish(models.EventScanCompleted, job, scanID, map[string]any{})
	return nil
}

// resolveTarget resolves a job target through the registry by name,
// returning both its filesystem path and its configured exclude globs; if
// the registry has no such entry (or isn't configured), target is treated as
// a literal filesystem path with no exclude patterns, supporting ad-hoc
// scans outside the registry.
func (o *Orchestrator) resolveTarget(target string) (path string, excludePatterns []string) {
	if o.reg != nil {
		if rc, ok := o.reg.Get(target); ok {
			return rc.Path, rc.ExcludePatterns
		}
	}
	return target, nil
}

// resolveCommit opens repoPath as a git worktree and returns its HEAD
// commit hash, or "" if the path isn't a git repository — a
// NotAGitRepository condition degrades the cache step rather than failing
// the scan.
func (o *Orchestrator) resolveCommit(repoPath string) string {
	tracker, err := gittracker.Open(repoPath)
	if err != nil {
		return ""
	}
	hash, err := tracker.HeadCommit()
	if err != nil {
		return ""
	}
	return hash
}

func stageCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.New(errs.KindCancel, "orchestrator.stageCheck", ctx.Err())
	default:
		return nil
	}
}

func (o *Orchestrator) progress(job *models.ScanJob, stage string, percent int) {
	o.publish(models.EventScanProgress, job, "", map[string]any{"stage": stage, "percent": percent})
}

func (o *Orchestrator) publish(t models.EventType, job *models.ScanJob, scanID string, payload map[string]any) {
	if o.bus == nil {
		return
	}
	evt := models.Event{Type: t, Timestamp: time.Now(), ScanID: scanID, Payload: payload}
	if job != nil {
		evt.JobID = job.ID
	}
	o.bus.Publish(evt)
}

func (o *Orchestrator) recordResult(scanID string, result models.ScanResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[scanID] = result
}

func assembleResult(scanID string, job *models.ScanJob, repoPath string, start time.Time, blocks []models.CodeBlock, groups []models.DuplicateGroup, suggestions []models.ConsolidationSuggestion) models.ScanResult {
	exact := 0
	for _, g := range groups {
		if g.SimilarityMethod == models.MethodExact {
			exact++
		}
	}
	quickWins := 0
	for _, s := range suggestions {
		if s.Strategy == models.StrategyLocalUtil {
			quickWins++
		}
	}

	blockIDs := make([]string, len(blocks))
	for i, b := range blocks {
		blockIDs[i] = b.ID
	}
	groupIDs := make([]string, len(groups))
	totalGroupedLines := 0
	for i, g := range groups {
		groupIDs[i] = g.ID
		totalGroupedLines += g.TotalLines
	}
	suggestionIDs := make([]string, len(suggestions))
	for i, s := range suggestions {
		suggestionIDs[i] = s.ID
	}

	var duplicationPct float64
	if total := totalLines(blocks); total > 0 {
		duplicationPct = float64(totalGroupedLines) / float64(total) * 100
	}

	kind := models.JobKindIntra
	if job != nil {
		kind = job.Kind
	}

	return models.ScanResult{
		ScanID:           scanID,
		Kind:             kind,
		StartedAt:        start,
		DurationSeconds:  time.Since(start).Seconds(),
		Repositories:     []string{repoPath},
		CodeBlockIDs:     blockIDs,
		GroupIDs:         groupIDs,
		SuggestionIDs:    suggestionIDs,
		Metrics: models.Metrics{
			TotalBlocks:     len(blocks),
			TotalGroups:     len(groups),
			ExactDuplicates: exact,
			Suggestions:     len(suggestions),
			QuickWins:       quickWins,
			DuplicationPct:  duplicationPct,
		},
		ExecutiveSummary: fmt.Sprintf("%d duplicate groups found across %d code blocks (%d exact)", len(groups), len(blocks), exact),
	}
}

func totalLines(blocks []models.CodeBlock) int {
	total := 0
	for _, b := range blocks {
		total += b.LineCount
	}
	return total
}
