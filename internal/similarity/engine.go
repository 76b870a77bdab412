package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dupeforge/dupeforge/models"
)

// Engine runs all four similarity layers over a set of code blocks and
// produces the duplicate groups surviving the quality filter.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// FindGroups clusters blocks into duplicate groups: exact matches first
// (Layer 1, cheap and always correct), then a structural pass (Layers 2-3)
// over everything exact matching didn't already claim, then the quality
// filter (Layer 4) that can drop a cluster entirely.
func (e *Engine) FindGroups(blocks []models.CodeBlock) []models.DuplicateGroup {
	var sizeEligible []models.CodeBlock
	for _, b := range blocks {
		if eligible(e.cfg, b) {
			sizeEligible = append(sizeEligible, b)
		}
	}

	exactGroups := ExactMatch(sizeEligible)

	claimed := map[string]bool{}
	var groups []models.DuplicateGroup
	for _, members := range exactGroups {
		groups = append(groups, e.buildGroup(members, 1.0, true, false, false))
		for _, m := range members {
			claimed[m.ID] = true
		}
	}

	var remaining []models.CodeBlock
	for _, b := range sizeEligible {
		if !claimed[b.ID] {
			remaining = append(remaining, b)
		}
	}

	normalized := make([]string, len(remaining))
	for i, b := range remaining {
		normalized[i] = Normalize(b.SourceCode, e.cfg.EnableSemanticOperators)
	}

	var pairs []pairResult
	for i := 0; i < len(remaining); i++ {
		for j := i + 1; j < len(remaining); j++ {
			a, b := remaining[i], remaining[j]
			if !candidatePair(a, b) {
				continue
			}
			if !SemanticCompatible(e.cfg, a, b) {
				continue
			}
			score := StructuralSimilarity(e.cfg, a.SourceCode, b.SourceCode, normalized[i], normalized[j], a.ASTHash, b.ASTHash)
			pairs = append(pairs, pairResult{i: i, j: j, score: score})
		}
	}

	clusters := clusterIndices(len(remaining), pairs, e.cfg.StructuralThreshold)
	for _, idx := range clusters {
		members := make([]models.CodeBlock, len(idx))
		for k, i := range idx {
			members[k] = remaining[i]
		}
		if !validateDuplicateGroup(e.cfg, members) {
			// A transitively-clustered member pair failed the semantic gate
			// when checked directly; drop the whole cluster rather than
			// emit a group some of whose members don't belong together.
			continue
		}
		avg := averageSimilarity(idx, pairs)
		demoted := clusterOppositeLogicDemoted(idx, pairs)
		astUplifted := false
		for a := range members {
			for b := a + 1; b < len(members); b++ {
				if members[a].ASTHash != "" && members[a].ASTHash == members[b].ASTHash {
					astUplifted = true
				}
			}
		}
		groups = append(groups, e.buildGroup(members, avg, false, astUplifted, demoted))
	}

	if !e.cfg.EnableQualityFiltering {
		return groups
	}

	filtered := make([]models.DuplicateGroup, 0, len(groups))
	for _, g := range groups {
		if g.QualityScore >= e.cfg.MinGroupQuality {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

func (e *Engine) buildGroup(members []models.CodeBlock, avgSimilarity float64, exact, astUplifted, oppositeLogicDemoted bool) models.DuplicateGroup {
	ids := make([]string, len(members))
	filesSeen := map[string]bool{}
	reposSeen := map[string]bool{}
	totalLines := 0
	for i, m := range members {
		ids[i] = m.ID
		filesSeen[m.RelativePath] = true
		reposSeen[m.RepositoryPath] = true
		totalLines += m.LineCount
	}

	var files, repos []string
	for f := range filesSeen {
		files = append(files, f)
	}
	for r := range reposSeen {
		repos = append(repos, r)
	}

	quality := qualityScore(e.cfg, members, avgSimilarity)

	canonical := selectCanonical(members)
	method := models.MethodExact
	if !exact {
		method = methodFor(members, astUplifted, oppositeLogicDemoted)
	}

	return models.DuplicateGroup{
		ID:                   groupID(ids),
		MemberBlockIDs:       ids,
		CanonicalBlockID:     canonical.ID,
		SimilarityScore:      avgSimilarity,
		SimilarityMethod:     method,
		Category:             members[0].Category,
		OccurrenceCount:      len(members),
		TotalLines:           totalLines,
		AffectedFiles:        files,
		AffectedRepositories: repos,
		QualityScore:         quality,
	}
}

func groupID(memberIDs []string) string {
	h := sha256.New()
	for _, id := range memberIDs {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("grp-%s", hex.EncodeToString(h.Sum(nil))[:12])
}
