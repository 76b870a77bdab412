package similarity

import (
	"strings"

	"github.com/dupeforge/dupeforge/models"
)

// eligible reports whether a block meets the minimum size a pair comparison
// should even consider: blocks below MinLineCount or with too few unique
// tokens are usually boilerplate (single-line returns, import groups) whose
// "duplication" carries no consolidation value.
func eligible(cfg Config, b models.CodeBlock) bool {
	if b.LineCount < cfg.MinLineCount {
		return false
	}
	return uniqueTokenCount(b.SourceCode) >= cfg.MinUniqueTokens
}

func uniqueTokenCount(source string) int {
	seen := map[string]bool{}
	for _, tok := range strings.Fields(source) {
		seen[tok] = true
	}
	return len(seen)
}

// candidatePair is a cheap pre-check run before the O(n^2) structural
// comparison: two blocks are only worth comparing at all if their line
// counts are within a loose band of each other. A 3-line block and a
// 200-line block cannot plausibly normalize to a near-identical string.
func candidatePair(a, b models.CodeBlock) bool {
	shorter, longer := a.LineCount, b.LineCount
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if shorter == 0 {
		return false
	}
	ratio := float64(longer) / float64(shorter)
	return ratio <= 3.0
}
