package similarity

import (
	"strings"

	"github.com/dupeforge/dupeforge/models"
)

// SemanticCompatible is the Layer 3 gate: even a high structural score never
// groups two blocks unless they came from the same pattern and category,
// aren't actually the same function recurring in the same file, and aren't
// wildly different in size — a 95%-similar comment-stripped string in a
// logging statement and one in a database query are not the same
// duplication risk.
func SemanticCompatible(cfg Config, a, b models.CodeBlock) bool {
	if !cfg.EnableSemanticLayer {
		return true
	}
	if a.PatternID != b.PatternID {
		return false
	}
	if a.Category != b.Category {
		return false
	}
	if fnA, ok := functionTag(a); ok {
		if fnB, ok := functionTag(b); ok && fnA == fnB && a.RelativePath == b.RelativePath {
			return false
		}
	}
	if !lineCountRatioOK(a.LineCount, b.LineCount) {
		return false
	}
	return true
}

// functionTag extracts the function name from a "function:X" tag, if any.
func functionTag(b models.CodeBlock) (string, bool) {
	for _, t := range b.Tags {
		if name, ok := strings.CutPrefix(t, "function:"); ok {
			return name, true
		}
	}
	return "", false
}

// lineCountRatioOK reports whether neither block is more than twice the
// other's line count.
func lineCountRatioOK(a, b int) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	return float64(min)/float64(max) >= 0.5
}

// tagOverlap returns the Jaccard similarity of two blocks' tag sets, used by
// the group quality score.
func tagOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := map[string]bool{}
	for _, t := range a {
		union[t] = true
	}
	for _, t := range b {
		union[t] = true
		if set[t] {
			inter++
		}
	}
	if len(union) == 0 {
		return 1
	}
	return float64(inter) / float64(len(union))
}
