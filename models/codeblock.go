package models

// SourceLocation pinpoints a span of source text.
type SourceLocation struct {
	FilePath    string `json:"filePath"`
	LineStart   int    `json:"lineStart"`
	LineEnd     int    `json:"lineEnd"`
	ColumnStart int    `json:"columnStart,omitempty"`
	ColumnEnd   int    `json:"columnEnd,omitempty"`
}

// Valid reports lineEnd >= lineStart >= 1.
func (l SourceLocation) Valid() bool {
	return l.LineStart >= 1 && l.LineEnd >= l.LineStart
}

// CodeBlock is a single extracted code span lifted from a pattern match.
type CodeBlock struct {
	ID             string   `json:"id"`
	PatternID      string   `json:"patternId"`
	Category       string   `json:"category"`
	Location       SourceLocation `json:"location"`
	RelativePath   string   `json:"relativePath"`
	SourceCode     string   `json:"sourceCode"`
	Language       string   `json:"language"`
	RepositoryPath string   `json:"repositoryPath"`
	LineCount      int      `json:"lineCount"`
	Tags           []string `json:"tags,omitempty"`
	ContentHash    string   `json:"contentHash"`
	ASTHash        string   `json:"astHash,omitempty"`
	ComplexityScore float64 `json:"complexityScore,omitempty"`
}

// HasTag reports whether the block carries the given tag verbatim.
func (b *CodeBlock) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
