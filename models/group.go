package models

// SimilarityMethod names which engine layer produced a DuplicateGroup's score.
type SimilarityMethod string

const (
	MethodExact                  SimilarityMethod = "exact"
	MethodStructural              SimilarityMethod = "structural"
	MethodStructuralOppositeLogic SimilarityMethod = "structural_opposite_logic"
	MethodSemantic                SimilarityMethod = "semantic"
	MethodHybrid                  SimilarityMethod = "hybrid"
)

// DuplicateGroup is a set of CodeBlocks the Similarity Engine considers
// equivalent, with one member designated canonical.
type DuplicateGroup struct {
	ID                  string           `json:"id"`
	MemberBlockIDs      []string         `json:"memberBlockIds"`
	CanonicalBlockID    string           `json:"canonicalBlockId"`
	SimilarityScore     float64          `json:"similarityScore"`
	SimilarityMethod    SimilarityMethod `json:"similarityMethod"`
	Category            string           `json:"category"`
	OccurrenceCount     int              `json:"occurrenceCount"`
	TotalLines          int              `json:"totalLines"`
	AffectedFiles       []string         `json:"affectedFiles"`
	AffectedRepositories []string        `json:"affectedRepositories"`
	QualityScore        float64          `json:"qualityScore"`
	ImpactScore         float64          `json:"impactScore"`
}
