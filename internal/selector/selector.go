// Package selector implements the nightly candidate picker: it filters the
// registry to repositories due for a scan, orders them by priority and
// staleness, and truncates to the configured nightly budget.
package selector

import (
	"sort"
	"time"

	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/models"
)

// Selector picks nightly scan candidates from a Registry.
type Selector struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Selector {
	return &Selector{reg: reg}
}

// Pick returns up to maxRepos repositories due for a scan at "now", ordered
// by priority then by ascending lastScannedAt (never-scanned first).
func (s *Selector) Pick(now time.Time, maxRepos int) []models.Repository {
	var due []models.Repository
	for _, r := range s.reg.GetEnabled() {
		if isDue(r.ScanFrequency, r.LastScannedAt, now) {
			due = append(due, r)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		pi, pj := due[i].Priority.Rank(), due[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return lastScannedBefore(due[i].LastScannedAt, due[j].LastScannedAt)
	})
	if maxRepos > 0 && len(due) > maxRepos {
		due = due[:maxRepos]
	}
	return due
}

// PickGroups returns inter-project groups whose member repositories are all
// enabled, for the coordinator to run alongside the per-repository picks.
func (s *Selector) PickGroups() []models.RepositoryGroup {
	var out []models.RepositoryGroup
	for _, g := range s.reg.Groups() {
		if g.ScanType != models.ScanTypeInter {
			continue
		}
		complete := true
		for _, name := range g.Repositories {
			if r, ok := s.reg.Get(name); !ok || !r.Enabled {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, g)
		}
	}
	return out
}

func lastScannedBefore(a, b *time.Time) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil {
		return true // never-scanned sorts first
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

// isDue reports whether freq is due today: daily is always due, weekly is
// due on Sunday (a conventional nightly-batch cadence) or if it's gone
// stale, monthly on the first of the month or if it's gone stale, on-demand
// is never due via the selector.
func isDue(freq models.ScanFrequency, lastScanned *time.Time, now time.Time) bool {
	switch freq {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return now.Weekday() == time.Sunday || staleBy(lastScanned, now, 7*24*time.Hour)
	case models.FrequencyMonthly:
		return now.Day() == 1 || staleBy(lastScanned, now, 30*24*time.Hour)
	case models.FrequencyOnDemand:
		return false
	default:
		return false
	}
}

// staleBy treats a repository as due if it has never been scanned, or if
// more than window has elapsed — this keeps weekly/monthly repos from being
// permanently skipped when the process wasn't running on the exact
// configured day.
func staleBy(lastScanned *time.Time, now time.Time, window time.Duration) bool {
	if lastScanned == nil {
		return true
	}
	return now.Sub(*lastScanned) >= window
}
