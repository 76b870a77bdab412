// Package interproject implements the Inter-Project Coordinator: it scans
// every repository in a RepositoryGroup, unions their CodeBlocks, and looks
// for duplication crossing repository boundaries that a single-repository
// Orchestrator run never sees.
package interproject

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dupeforge/dupeforge/internal/block"
	"github.com/dupeforge/dupeforge/internal/errs"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/orchestrator"
	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/internal/similarity"
	"github.com/dupeforge/dupeforge/internal/suggest"
	"github.com/dupeforge/dupeforge/models"
)

// DefaultMaxWorkers bounds how many member repositories are scanned
// concurrently when no explicit worker count is configured.
const DefaultMaxWorkers = 3

// Coordinator implements queue.Runner for jobs whose target names a
// RepositoryGroup. job.Target is resolved through the registry; unlike the
// Orchestrator, a group scan has no ad-hoc fallback since group membership
// only exists in the registry.
type Coordinator struct {
	reg        *registry.Registry
	gateway    *pattern.Gateway
	extractor  *block.Extractor
	engine     *similarity.Engine
	generator  *suggest.Generator
	bus        *eventbus.Bus
	store      orchestrator.Store
	maxWorkers int

	mu      sync.RWMutex
	results map[string]models.ScanResult
}

type Options struct {
	Registry   *registry.Registry
	Gateway    *pattern.Gateway
	Extractor  *block.Extractor
	Engine     *similarity.Engine
	Generator  *suggest.Generator
	Bus        *eventbus.Bus
	Store      orchestrator.Store
	MaxWorkers int
}

func New(opts Options) *Coordinator {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	return &Coordinator{
		reg:        opts.Registry,
		gateway:    opts.Gateway,
		extractor:  opts.Extractor,
		engine:     opts.Engine,
		generator:  opts.Generator,
		bus:        opts.Bus,
		store:      opts.Store,
		maxWorkers: workers,
		results:    make(map[string]models.ScanResult),
	}
}

// Result returns a previously recorded ScanResult by scan ID.
func (c *Coordinator) Result(scanID string) (models.ScanResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[scanID]
	return r, ok
}

// repoScan is one member repository's contribution to the union; err is
// non-nil when that repository's scan failed and was skipped rather than
// aborting the whole group scan.
type repoScan struct {
	repo   models.Repository
	blocks []models.CodeBlock
	err    error
}

// Run implements queue.Runner. job.Target must name a RepositoryGroup with
// at least two member repositories.
func (c *Coordinator) Run(ctx context.Context, job *models.ScanJob) error {
	start := time.Now()

	if c.reg == nil {
		return errs.New(errs.KindValidation, "interproject.Run", fmt.Errorf("no registry configured for group scans"))
	}
	members, err := c.reg.ResolveGroup(job.Target)
	if err != nil {
		return errs.New(errs.KindValidation, "interproject.Run", err)
	}
	if len(members) < 2 {
		return errs.New(errs.KindValidation, "interproject.Run", fmt.Errorf("group %q needs at least two repositories", job.Target))
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	c.progress(job, "scanning", 10)

	scans := c.scanAll(ctx, members)

	if err := stageCheck(ctx); err != nil {
		return err
	}
	c.progress(job, "extracting", 40)

	var allBlocks []models.CodeBlock
	var scannedRepos []string
	blockByID := map[string]models.CodeBlock{}
	for _, s := range scans {
		if s.err != nil {
			c.publish(models.EventScanProgress, job, "", map[string]any{
				"stage":             "scanning",
				"repositorySkipped": s.repo.Name,
				"reason":            s.err.Error(),
			})
			continue
		}
		allBlocks = append(allBlocks, s.blocks...)
		scannedRepos = append(scannedRepos, s.repo.Path)
		for _, b := range s.blocks {
			blockByID[b.ID] = b
		}
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	c.progress(job, "analyzing", 70)

	// Layer 1/2/3 already operate over the full union regardless of which
	// repository a block came from; restricting to groups whose members
	// span at least two repositories is what turns "duplication" into
	// "cross-project duplication".
	groups := c.engine.FindGroups(allBlocks)
	crossRepo := make([]models.DuplicateGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.AffectedRepositories) >= 2 {
			crossRepo = append(crossRepo, g)
		}
	}

	if err := stageCheck(ctx); err != nil {
		return err
	}
	c.progress(job, "suggesting", 90)

	suggestions := make([]models.ConsolidationSuggestion, 0, len(crossRepo))
	for i := range crossRepo {
		s := c.generator.Generate(crossRepo[i])
		s = neverDowngrade(crossRepo[i], s, blockByID)
		crossRepo[i].ImpactScore = s.ROIScore
		suggestions = append(suggestions, s)
	}

	scanID := uuid.NewString()
	result := assembleResult(scanID, job, scannedRepos, start, allBlocks, crossRepo, suggestions)

	if c.store != nil {
		if err := c.store.Save(scanID, orchestrator.Artifacts{Blocks: allBlocks, Groups: crossRepo, Suggestions: suggestions}); err != nil {
			return errs.New(errs.KindValidation, "interproject.Run", err)
		}
	}

	c.recordResult(scanID, result)
	c.publish(models.EventScanCompleted, job, scanID, map[string]any{})
	return nil
}

// scanAll drains members through a bounded worker pool: each repository is
// scanned independently so one slow or broken checkout never blocks the
// others, capped at maxWorkers concurrent gateway invocations.
func (c *Coordinator) scanAll(ctx context.Context, members []models.Repository) []repoScan {
	sem := make(chan struct{}, c.maxWorkers)
	var wg sync.WaitGroup
	results := make([]repoScan, len(members))
	for i, repo := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, repo models.Repository) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.scanOne(ctx, repo)
		}(i, repo)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) scanOne(ctx context.Context, repo models.Repository) repoScan {
	gwResult, err := c.gateway.Scan(ctx, repo.Path)
	if err != nil {
		return repoScan{repo: repo, err: err}
	}
	blocks, err := c.extractor.Extract(repo.Path, gwResult.Matches, repo.ExcludePatterns)
	if err != nil {
		return repoScan{repo: repo, err: err}
	}
	return repoScan{repo: repo, blocks: blocks}
}

// neverDowngrade clamps a cross-repository suggestion's strategy to at
// least the strongest strategy any single member repository would have
// earned on its own slice of the group: a cross-project view must never
// recommend something less aggressive than what one repository alone
// already warranted.
func neverDowngrade(group models.DuplicateGroup, suggestion models.ConsolidationSuggestion, blockByID map[string]models.CodeBlock) models.ConsolidationSuggestion {
	best := suggestion.Strategy
	bestRank := suggest.StrategyRank(best)
	for _, repo := range group.AffectedRepositories {
		sub := perRepoSubgroup(group, blockByID, repo)
		if sub.OccurrenceCount == 0 {
			continue
		}
		s := suggest.StrategyForGroup(sub)
		if r := suggest.StrategyRank(s); r > bestRank {
			bestRank = r
			best = s
		}
	}
	if best != suggestion.Strategy {
		suggestion.Strategy = best
		suggestion.StrategyRationale = fmt.Sprintf("raised to %s: a single member repository's own occurrences already warranted it", best)
	}
	return suggestion
}

func perRepoSubgroup(group models.DuplicateGroup, blockByID map[string]models.CodeBlock, repoPath string) models.DuplicateGroup {
	var files []string
	occurrences := 0
	totalLines := 0
	for _, id := range group.MemberBlockIDs {
		b, ok := blockByID[id]
		if !ok || b.RepositoryPath != repoPath {
			continue
		}
		occurrences++
		files = append(files, b.RelativePath)
		totalLines += b.LineCount
	}
	return models.DuplicateGroup{
		Category:             group.Category,
		OccurrenceCount:      occurrences,
		TotalLines:           totalLines,
		AffectedFiles:        files,
		AffectedRepositories: []string{repoPath},
		QualityScore:         group.QualityScore,
	}
}

func stageCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.New(errs.KindCancel, "interproject.stageCheck", ctx.Err())
	default:
		return nil
	}
}

func (c *Coordinator) progress(job *models.ScanJob, stage string, percent int) {
	c.publish(models.EventScanProgress, job, "", map[string]any{"stage": stage, "percent": percent})
}

func (c *Coordinator) publish(t models.EventType, job *models.ScanJob, scanID string, payload map[string]any) {
	if c.bus == nil {
		return
	}
	evt := models.Event{Type: t, Timestamp: time.Now(), ScanID: scanID, Payload: payload}
	if job != nil {
		evt.JobID = job.ID
	}
	c.bus.Publish(evt)
}

func (c *Coordinator) recordResult(scanID string, result models.ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[scanID] = result
}

func assembleResult(scanID string, job *models.ScanJob, repos []string, start time.Time, blocks []models.CodeBlock, groups []models.DuplicateGroup, suggestions []models.ConsolidationSuggestion) models.ScanResult {
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

	kind := models.JobKindInter
	if job != nil {
		kind = job.Kind
	}

	return models.ScanResult{
		ScanID:          scanID,
		Kind:            kind,
		StartedAt:       start,
		DurationSeconds: time.Since(start).Seconds(),
		Repositories:    repos,
		CodeBlockIDs:    blockIDs,
		GroupIDs:        groupIDs,
		SuggestionIDs:   suggestionIDs,
		Metrics: models.Metrics{
			TotalBlocks:     len(blocks),
			TotalGroups:     len(groups),
			ExactDuplicates: exact,
			Suggestions:     len(suggestions),
			QuickWins:       quickWins,
			DuplicationPct:  duplicationPct,
		},
		ExecutiveSummary: fmt.Sprintf("%d cross-repository duplicate groups found across %d repositories", len(groups), len(repos)),
	}
}

func totalLines(blocks []models.CodeBlock) int {
	total := 0
	for _, b := range blocks {
		total += b.LineCount
	}
	return total
}
