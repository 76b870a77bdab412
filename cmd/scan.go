package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/repository"
	"github.com/dupeforge/dupeforge/models"
)

var (
	scanRepo     string
	scanGroup    string
	scanProvider string
	scanBranch   string
	scanTimeout  int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run an on-demand duplicate scan",
	Long: `Scans one repository or one registered repository group outside the
normal schedule, printing a summary of the duplicate groups and
consolidation suggestions found.

Examples:
  dupeforge scan --repo my-service
  dupeforge scan --repo acme/my-service --provider github
  dupeforge scan --group payments-suite`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRepo, "repo", "", "registered repository name, local path, or owner/name on a hosted provider")
	scanCmd.Flags().StringVar(&scanGroup, "group", "", "registered repository group name (inter-project scan)")
	scanCmd.Flags().StringVar(&scanProvider, "provider", "", "hosted provider to resolve --repo against when it isn't registered or a local path (github|gitlab|azure)")
	scanCmd.Flags().StringVar(&scanBranch, "branch", "", "branch to clone when --repo names a hosted owner/name")
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 600, "scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanRepo == "" && scanGroup == "" {
		return fmt.Errorf("one of --repo or --group is required")
	}
	if scanRepo != "" && scanGroup != "" {
		return fmt.Errorf("--repo and --group are mutually exclusive")
	}

	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(scanTimeout)*time.Second)
	defer cancel()

	sub := a.bus.Subscribe(eventbus.Topics(models.EventScanCompleted, models.EventScanFailed))
	defer sub.Unsubscribe()

	job := &models.ScanJob{
		ID:          uuid.NewString(),
		State:       models.JobRunning,
		Attempts:    1,
		MaxAttempts: 1,
		CreatedAt:   time.Now(),
	}

	var runErr error
	if scanGroup != "" {
		job.Kind = models.JobKindInter
		job.Target = scanGroup
		fmt.Printf("Scanning group %q across its registered repositories...\n", scanGroup)
		runErr = a.coord.Run(ctx, job)
	} else {
		job.Kind = models.JobKindIntra
		job.Target = scanRepo
		cleanup, target, err := resolveScanTarget(ctx, a, scanRepo, scanProvider, scanBranch)
		if err != nil {
			return err
		}
		defer cleanup()
		job.Target = target
		fmt.Printf("Scanning %s...\n", scanRepo)
		runErr = a.orch.Run(ctx, job)
	}
	if runErr != nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}

	var scanID string
	select {
	case evt := <-sub.Events:
		scanID = evt.ScanID
	default:
	}
	if scanID == "" {
		fmt.Println("Scan completed but no result event was captured.")
		return nil
	}

	var (
		result models.ScanResult
		found  bool
	)
	if scanGroup != "" {
		result, found = a.coord.Result(scanID)
	} else {
		result, found = a.orch.Result(scanID)
	}
	if !found {
		fmt.Println("Scan completed; result not found in memory.")
		return nil
	}
	printScanSummary(result)

	if artifacts, err := a.store.Artifacts(scanID); err == nil {
		printSuggestions(artifacts.Groups, artifacts.Suggestions)
	}
	return nil
}

// resolveScanTarget turns --repo into a filesystem path the Orchestrator can
// scan: a registered repository name or an existing local path is passed
// through unchanged, anything else is treated as an owner/name pair on a
// hosted provider and cloned to a temporary directory.
func resolveScanTarget(ctx context.Context, a *app, repo, provider, branch string) (cleanup func(), target string, err error) {
	noop := func() {}
	if _, ok := a.reg.Get(repo); ok {
		return noop, repo, nil
	}
	if info, statErr := os.Stat(repo); statErr == nil && info.IsDir() {
		return noop, repo, nil
	}

	owner, name, ok := splitOwnerName(repo)
	if !ok {
		return noop, "", fmt.Errorf("%q is not a registered repository, a local path, or an owner/name pair", repo)
	}

	detected := provider
	if detected == "" {
		detected, err = repository.DetectProvider(repo)
		if err != nil {
			return noop, "", fmt.Errorf("pass --provider: %w", err)
		}
	}
	resolver, err := repository.New(detected, a.cfg)
	if err != nil {
		return noop, "", err
	}
	cloneURL, token, err := resolver.Resolve(ctx, owner, name)
	if err != nil {
		return noop, "", fmt.Errorf("resolving %s/%s on %s: %w", owner, name, detected, err)
	}

	cm := repository.NewCloneManager("")
	result, err := cm.Clone(ctx, cloneURL, token, branch)
	if err != nil {
		return noop, "", fmt.Errorf("cloning %s: %w", cloneURL, err)
	}
	return func() { cm.Cleanup(result) }, result.LocalPath, nil
}

func splitOwnerName(s string) (owner, name string, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[:i], s[i+1:], s[:i] != "" && s[i+1:] != ""
		}
	}
	return "", "", false
}

func printScanSummary(result models.ScanResult) {
	fmt.Println("\n=== Scan Results ===")
	fmt.Printf("Scan ID: %s (%s)\n", result.ScanID, result.Kind)
	fmt.Printf("Duration: %.1fs | Repositories: %v\n", result.DurationSeconds, result.Repositories)
	if result.FromCache {
		fmt.Println("(served from cache)")
	}
	fmt.Println()
	fmt.Printf("Code blocks      : %d\n", result.Metrics.TotalBlocks)
	fmt.Printf("Duplicate groups : %d (%d exact)\n", result.Metrics.TotalGroups, result.Metrics.ExactDuplicates)
	fmt.Printf("Suggestions      : %d (%d quick wins)\n", result.Metrics.Suggestions, result.Metrics.QuickWins)
	fmt.Printf("Duplication      : %.1f%%\n", result.Metrics.DuplicationPct)
	fmt.Println()
	fmt.Println(result.ExecutiveSummary)
}

func printSuggestions(groups []models.DuplicateGroup, suggestions []models.ConsolidationSuggestion) {
	if len(suggestions) == 0 {
		return
	}
	byGroup := make(map[string]models.DuplicateGroup, len(groups))
	for _, g := range groups {
		byGroup[g.ID] = g
	}
	fmt.Println("\n--- Top consolidation suggestions ---")
	limit := len(suggestions)
	if limit > 10 {
		limit = 10
	}
	for _, s := range suggestions[:limit] {
		g := byGroup[s.GroupID]
		fmt.Printf("[%s] %d occurrences, %d lines — %s (roi %.2f, %s risk, %s complexity)\n",
			s.Strategy, g.OccurrenceCount, g.TotalLines, s.StrategyRationale, s.ROIScore, s.Risk, s.Complexity)
	}
}
