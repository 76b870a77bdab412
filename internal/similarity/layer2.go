package similarity

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// httpStatusRe pulls literal HTTP status codes out of the *original*
// (un-normalized) source, since normalization abstracts numeric literals to
// NUM and would otherwise hide a real behavioral difference between e.g.
// status(200) and status(404).
var httpStatusRe = regexp.MustCompile(`\bstatus\s*\(\s*(\d{3})\s*\)`)

// comparisonOpRe extracts the comparison/negation operator set an
// opposite-logic check compares between two sides: ===, !==, ==, != tried in
// that order so Go's leftmost-first alternation never splits !== into != and
// a stray =, with a bare ! matched last so it only fires when the longer
// operators didn't.
var comparisonOpRe = regexp.MustCompile(`===|!==|==|!=|!`)

// comparisonTokenRe matches the binary comparison tokens (not the bare `!`)
// for stripping out of normalized source when deciding whether two opposite-
// logic blocks are otherwise identical.
var comparisonTokenRe = regexp.MustCompile(`===|!==|==|!=`)

// methodChainRe finds `.identifier(` call sites, used to measure method
// chain depth for the chain-validation term.
var methodChainRe = regexp.MustCompile(`\.[A-Za-z_$][\w$]*\s*\(`)

// StructuralScore is the Layer 2 result for one pair of code blocks.
type StructuralScore struct {
	TextSimilarity       float64
	ChainSimilarity      float64
	Combined             float64
	OppositeLogic        bool
	OppositeLogicDemoted bool
	HTTPStatusDiffers    bool
}

// StructuralSimilarity computes the normalized-text Levenshtein similarity
// and the method-chain-depth similarity, combines them per cfg's weights,
// and applies the opposite-logic and HTTP-status-mismatch penalties.
// astA/astB are each block's AST hash (empty if the matcher didn't report a
// node type); when both are non-empty and equal, Combined is lifted to 1.0
// since an identical AST hash is stronger evidence than any text metric.
func StructuralSimilarity(cfg Config, rawA, rawB, normA, normB, astA, astB string) StructuralScore {
	score := StructuralScore{}

	textSim := levenshteinSimilarity(normA, normB)
	score.TextSimilarity = textSim

	chainA := methodChainRe.FindAllString(rawA, -1)
	chainB := methodChainRe.FindAllString(rawB, -1)
	chainSim := chainSimilarity(chainA, chainB)
	score.ChainSimilarity = chainSim

	// The combined score defaults to Levenshtein alone; chain similarity only
	// enters the blend when the chains actually differ.
	combined := textSim
	if chainSim < 1.0 {
		combined = cfg.LevenshteinWeight*textSim + cfg.ChainWeight*chainSim
	}

	if cfg.EnableLogicalOperatorCheck && hasOppositeLogic(rawA, rawB) {
		score.OppositeLogic = true
		if stripComparisonOperators(normA) == stripComparisonOperators(normB) {
			score.OppositeLogicDemoted = true
			combined = 0.75
		} else {
			combined *= cfg.OppositeLogicPenalty
		}
	}

	if !score.OppositeLogicDemoted {
		statusA, okA := firstHTTPStatus(rawA)
		statusB, okB := firstHTTPStatus(rawB)
		if okA && okB && statusA != statusB {
			score.HTTPStatusDiffers = true
			combined *= cfg.HTTPStatusPenalty
		}

		if cfg.EnableMethodChainValidation && len(chainA) != len(chainB) && (len(chainA) == 0 || len(chainB) == 0) {
			// One side has no chained calls at all where the other does: this
			// usually means one block extends the other rather than duplicating
			// it, so don't let a high text score alone call it a match.
			combined *= 0.9
		}

		if astA != "" && astB != "" && astA == astB {
			combined = 1.0
		}
	}

	if combined > 1 {
		combined = 1
	}
	if combined < 0 {
		combined = 0
	}
	score.Combined = combined
	return score
}

func levenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func chainSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	na := normalizeChain(a)
	nb := normalizeChain(b)
	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func normalizeChain(chain []string) string {
	return strings.Join(chain, "")
}

// hasOppositeLogic flags pairs whose comparison-operator sets put them on
// opposite sides of the same check: one side uses === where the other uses
// !==, one uses == where the other uses !=, or exactly one side carries a
// bare negation (`!x`, as opposed to `!=`/`!==`) the other lacks. A
// structurally near-identical block guarding `x === 'production'` versus
// `x !== 'production'` implements opposite behavior and must never be
// grouped as a duplicate regardless of text similarity.
func hasOppositeLogic(rawA, rawB string) bool {
	opsA := operatorSet(rawA)
	opsB := operatorSet(rawB)

	if opsA["==="] && opsB["!=="] || opsA["!=="] && opsB["==="] {
		return true
	}
	if opsA["=="] && opsB["!="] || opsA["!="] && opsB["=="] {
		return true
	}
	return opsA["!"] != opsB["!"]
}

func operatorSet(raw string) map[string]bool {
	set := make(map[string]bool, 4)
	for _, op := range comparisonOpRe.FindAllString(raw, -1) {
		set[op] = true
	}
	return set
}

// stripComparisonOperators removes comparison and negation tokens from an
// already-normalized block so two opposite-logic blocks can be compared for
// being "otherwise identical" per the demotion rule.
func stripComparisonOperators(norm string) string {
	stripped := comparisonTokenRe.ReplaceAllString(norm, "")
	stripped = strings.ReplaceAll(stripped, "!", "")
	return strings.Join(strings.Fields(stripped), " ")
}

func firstHTTPStatus(raw string) (string, bool) {
	m := httpStatusRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}
