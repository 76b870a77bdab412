// Package suggest turns a validated DuplicateGroup into a
// ConsolidationSuggestion: a recommended strategy, an impact/ROI score, and
// an ordered migration plan.
package suggest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dupeforge/dupeforge/models"
)

// categoryBonus rewards categories whose consolidation has outsized payoff
// (a shared database query touches correctness directly; a shared log
// statement is low-stakes boilerplate).
var categoryBonus = map[string]float64{
	"api_handler":         10,
	"database_operation":  9,
	"async":               8,
	"configuration":       7,
	"auth":                9,
	"validation":          7,
	"logging":             6,
	"utility":             6,
}

func bonusFor(category string) float64 {
	if b, ok := categoryBonus[category]; ok {
		return b
	}
	return 6
}

// Generator produces a ConsolidationSuggestion for one group at a time.
type Generator struct{}

func New() *Generator { return &Generator{} }

// Generate applies the strategy decision cascade, computes impact/ROI, and
// fills in a strategy-keyed migration plan.
func (g *Generator) Generate(group models.DuplicateGroup) models.ConsolidationSuggestion {
	strategy, rationale := decideStrategy(group)
	complexity := estimateComplexity(group)
	risk := estimateRisk(group)

	impact := impactScore(group)
	roi := impact * models.ComplexityMultiplier(complexity) * models.RiskMultiplier(risk)
	if len(group.AffectedRepositories) >= 2 {
		roi *= 1.2
	}

	steps := migrationSteps(strategy, group)
	var effort float64
	for _, s := range steps {
		effort += s.EffortHours
	}
	effort += 0.25*float64(len(group.AffectedFiles)) + 0.5

	return models.ConsolidationSuggestion{
		ID:                   suggestionID(group.ID),
		GroupID:              group.ID,
		Strategy:             strategy,
		StrategyRationale:    rationale,
		Complexity:           complexity,
		Risk:                 risk,
		BreakingChanges:      len(group.AffectedRepositories) > 1 || complexity == models.ComplexityComplex || complexity == models.ComplexityVeryComplex,
		EstimatedEffortHours: effort,
		LOCReduction:         locReduction(group),
		Confidence:           group.QualityScore,
		MigrationSteps:       steps,
		ROIScore:             roi,
	}
}

// decideStrategy applies the five-step cascade: cheapest/most-conservative
// outcome wins as soon as its condition matches.
func decideStrategy(group models.DuplicateGroup) (models.Strategy, string) {
	singleRepo := len(group.AffectedRepositories) <= 1

	switch {
	case group.OccurrenceCount <= 3 && singleRepo:
		return models.StrategyLocalUtil, "few occurrences confined to one repository: a local shared helper is enough"
	case (group.OccurrenceCount >= 4 && group.OccurrenceCount <= 8) || (len(group.AffectedFiles) >= 2 && len(group.AffectedFiles) <= 3):
		return models.StrategySharedPackage, "moderate occurrence count or spread across a handful of files: extract a shared package"
	case group.OccurrenceCount >= 9 || group.Category == "api_handler" || group.Category == "database_operation":
		return models.StrategyMCPServer, "high occurrence count or a cross-cutting category: centralize behind a service boundary"
	case isCrossCuttingOrchestration(group):
		return models.StrategyAutonomousAgent, "spans many repositories with cross-cutting orchestration characteristics"
	default:
		return models.StrategyNoAction, "group does not clear the minimum consolidation value bar"
	}
}

// isCrossCuttingOrchestration flags groups whose breadth (many repositories,
// large member count) suggests the duplication is itself orchestration
// logic rather than a simple helper — the rarest and most invasive tier,
// reached only once the cheaper tiers have been ruled out.
func isCrossCuttingOrchestration(group models.DuplicateGroup) bool {
	return len(group.AffectedRepositories) >= 3 && group.OccurrenceCount >= 6
}

func estimateComplexity(group models.DuplicateGroup) models.Complexity {
	avgLines := 0
	if group.OccurrenceCount > 0 {
		avgLines = group.TotalLines / group.OccurrenceCount
	}
	switch {
	case avgLines <= 5 && len(group.AffectedFiles) <= 2:
		return models.ComplexityTrivial
	case avgLines <= 15 && len(group.AffectedFiles) <= 4:
		return models.ComplexitySimple
	case avgLines <= 30 && len(group.AffectedFiles) <= 8:
		return models.ComplexityModerate
	case avgLines <= 60:
		return models.ComplexityComplex
	default:
		return models.ComplexityVeryComplex
	}
}

func estimateRisk(group models.DuplicateGroup) models.Risk {
	switch {
	case len(group.AffectedRepositories) <= 1 && group.Category != "api_handler" && group.Category != "database_operation":
		return models.RiskMinimal
	case len(group.AffectedRepositories) <= 1:
		return models.RiskLow
	case len(group.AffectedRepositories) <= 2:
		return models.RiskMedium
	case len(group.AffectedRepositories) <= 4:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// impactScore combines occurrence count, repository spread, total lines
// removed, and a category-specific bonus into a single comparable score
// suggestions can be ranked by.
func impactScore(group models.DuplicateGroup) float64 {
	return float64(group.OccurrenceCount)*5 +
		float64(len(group.AffectedRepositories))*15 +
		float64(group.TotalLines)*0.5 +
		bonusFor(group.Category)
}

func locReduction(group models.DuplicateGroup) int {
	if group.OccurrenceCount <= 1 {
		return 0
	}
	avg := group.TotalLines / group.OccurrenceCount
	return avg * (group.OccurrenceCount - 1)
}

// migrationSteps builds the strategy-keyed template plan. Each step's
// effort is a coarse estimate; Generate adds the per-file and testing
// overhead on top of the sum returned here.
func migrationSteps(strategy models.Strategy, group models.DuplicateGroup) []models.MigrationStep {
	switch strategy {
	case models.StrategyLocalUtil:
		return []models.MigrationStep{
			{Description: "extract the duplicated block into a local helper function", Automatable: true, EffortHours: 0.5},
			{Description: "replace each occurrence with a call to the helper", Automatable: true, EffortHours: 0.5},
		}
	case models.StrategySharedPackage:
		return []models.MigrationStep{
			{Description: "create a shared package hosting the canonical implementation", Automatable: false, EffortHours: 1.5},
			{Description: "add the package as a dependency of each affected module", Automatable: true, EffortHours: 0.5},
			{Description: "replace each occurrence with an import of the shared package", Automatable: true, EffortHours: 1.0},
		}
	case models.StrategyMCPServer:
		return []models.MigrationStep{
			{Description: "stand up a service boundary exposing the canonical behavior", Automatable: false, EffortHours: 4.0},
			{Description: "migrate each caller to invoke the service instead of inlining the logic", Automatable: false, EffortHours: 2.0},
			{Description: "add contract tests covering every prior call site's behavior", Automatable: false, EffortHours: 2.0},
		}
	case models.StrategyAutonomousAgent:
		return []models.MigrationStep{
			{Description: "model the cross-cutting orchestration as a standalone coordinator", Automatable: false, EffortHours: 6.0},
			{Description: "migrate each repository's orchestration call sites incrementally", Automatable: false, EffortHours: 4.0},
			{Description: "stage the rollout behind a feature flag per repository", Automatable: false, EffortHours: 2.0},
		}
	default:
		return nil
	}
}

// StrategyForGroup exposes the cascade's chosen strategy alone, for callers
// that need to compare tiers without generating a full suggestion.
func StrategyForGroup(group models.DuplicateGroup) models.Strategy {
	s, _ := decideStrategy(group)
	return s
}

// StrategyRank orders strategies from least to most invasive, letting a
// caller decide whether recomputing a suggestion would downgrade it.
func StrategyRank(s models.Strategy) int {
	switch s {
	case models.StrategyNoAction:
		return 0
	case models.StrategyLocalUtil:
		return 1
	case models.StrategySharedPackage:
		return 2
	case models.StrategyMCPServer:
		return 3
	case models.StrategyAutonomousAgent:
		return 4
	default:
		return 0
	}
}

func suggestionID(groupID string) string {
	sum := sha256.Sum256([]byte("suggestion|" + groupID))
	return fmt.Sprintf("sug-%s", hex.EncodeToString(sum[:])[:12])
}
