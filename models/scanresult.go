package models

import "time"

// Metrics summarizes a ScanResult for dashboards and executive summaries.
type Metrics struct {
	TotalBlocks      int     `json:"totalBlocks"`
	TotalGroups      int     `json:"totalGroups"`
	ExactDuplicates  int     `json:"exactDuplicates"`
	Suggestions      int     `json:"suggestions"`
	QuickWins        int     `json:"quickWins"`
	DuplicationPct   float64 `json:"duplicationPct"`
}

// ScanResult is the top-level output of one scan (intra or inter).
type ScanResult struct {
	ScanID          string    `json:"scanId"`
	Kind            JobKind   `json:"kind"`
	StartedAt       time.Time `json:"startedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
	Repositories    []string  `json:"repositories"`
	CodeBlockIDs    []string  `json:"codeBlockIds"`
	GroupIDs        []string  `json:"groupIds"`
	SuggestionIDs   []string  `json:"suggestionIds"`
	Metrics         Metrics   `json:"metrics"`
	FromCache       bool      `json:"fromCache"`
	ExecutiveSummary string   `json:"executiveSummary"`
}

// CacheEntry is a stored ScanResult keyed by repository path and commit hash.
type CacheEntry struct {
	Key            string     `json:"key"`
	RepositoryPath string     `json:"repositoryPath"`
	CommitHash     string     `json:"commitHash"`
	StoredAt       time.Time  `json:"storedAt"`
	TTLSeconds     int64      `json:"ttlSeconds"`
	Result         ScanResult `json:"result"`
}

// Expired reports whether the entry has outlived its TTL as of now.
func (c *CacheEntry) Expired(now time.Time) bool {
	if c.TTLSeconds <= 0 {
		return false
	}
	return now.After(c.StoredAt.Add(time.Duration(c.TTLSeconds) * time.Second))
}

// DefaultCacheTTLSeconds is 30 days.
const DefaultCacheTTLSeconds = int64(30 * 24 * time.Hour / time.Second)
