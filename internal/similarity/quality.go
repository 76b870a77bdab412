package similarity

import (
	"sort"

	"github.com/dupeforge/dupeforge/models"
)

// qualityScore blends average pairwise similarity, group size (bigger
// clusters are more valuable to consolidate), line-count consistency across
// members, and tag overlap into a single score used to drop low-value groups
// before they ever reach a consolidation suggestion.
func qualityScore(cfg Config, blocks []models.CodeBlock, avgSimilarity float64) float64 {
	return cfg.QualityWeightSimilarity*avgSimilarity +
		cfg.QualityWeightSize*groupSizeScore(blocks) +
		cfg.QualityWeightConsistency*lineCountConsistency(blocks) +
		cfg.QualityWeightTagOverlap*averageTagOverlap(blocks)
}

// groupSizeScore rewards larger groups, capping out once a cluster reaches
// five members: a 5-occurrence duplicate is already worth consolidating, and
// rewarding larger ones further would bias quality toward occurrence count
// over actual similarity.
func groupSizeScore(blocks []models.CodeBlock) float64 {
	score := float64(len(blocks)) / 5
	if score > 1 {
		return 1
	}
	return score
}

// lineCountConsistency measures how far each member's line count strays from
// the group average, relative to that average: a group where every member is
// the same size scores 1, one with a wild outlier scores close to 0.
func lineCountConsistency(blocks []models.CodeBlock) float64 {
	if len(blocks) == 0 {
		return 1
	}
	var total int
	for _, b := range blocks {
		total += b.LineCount
	}
	avg := float64(total) / float64(len(blocks))
	if avg == 0 {
		return 1
	}
	var maxDeviation float64
	for _, b := range blocks {
		dev := float64(b.LineCount) - avg
		if dev < 0 {
			dev = -dev
		}
		if dev > maxDeviation {
			maxDeviation = dev
		}
	}
	consistency := 1 - maxDeviation/avg
	if consistency < 0 {
		return 0
	}
	return consistency
}

func averageTagOverlap(blocks []models.CodeBlock) float64 {
	if len(blocks) < 2 {
		return 1
	}
	var sum float64
	var n int
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			sum += tagOverlap(blocks[i].Tags, blocks[j].Tags)
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// selectCanonical picks the group's representative block: the one with the
// shortest source (the leanest version of the duplicated logic), breaking
// ties alphabetically by relative path then by the lowest starting line, so
// selection is deterministic across runs over the same input.
func selectCanonical(blocks []models.CodeBlock) models.CodeBlock {
	sorted := make([]models.CodeBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i].SourceCode) != len(sorted[j].SourceCode) {
			return len(sorted[i].SourceCode) < len(sorted[j].SourceCode)
		}
		if sorted[i].RelativePath != sorted[j].RelativePath {
			return sorted[i].RelativePath < sorted[j].RelativePath
		}
		return sorted[i].Location.LineStart < sorted[j].Location.LineStart
	})
	return sorted[0]
}
