// Package block lifts Pattern Gateway matches into typed CodeBlock records,
// finding the enclosing function name by a bounded backward scan and
// deduplicating by (repositoryPath, relativePath, functionName).
package block

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/models"
)

// MaxLookbackLines bounds the backward scan for an enclosing function
// declaration.
const MaxLookbackLines = 200

// funcDeclPattern recognizes common function-declaration shapes across the
// JS/TS-flavored source the AST matcher targets: named functions, class
// methods, and `const name = (...) => {` / `function` assignments.
var funcDeclPattern = regexp.MustCompile(`(?:function\s+([A-Za-z_$][\w$]*)\s*\()|(?:(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:function\s*)?\()|(?:^\s*([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*\{)`)

// categoryTable maps a ruleId to a coarse semantic category. Unknown rules
// fall back to "utility".
var categoryTable = map[string]string{
	"api-handler":        "api_handler",
	"db-query":           "database_operation",
	"async-pattern":       "async",
	"config-read":         "configuration",
	"log-statement":       "logging",
}

func categoryFor(ruleID string) string {
	if c, ok := categoryTable[ruleID]; ok {
		return c
	}
	return "utility"
}

// Extractor turns Pattern Gateway matches into CodeBlocks.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

// Extract reads each match's enclosing file once, extracts the source span,
// resolves the enclosing function name, computes the content hash, and
// deduplicates by (repositoryPath, relativePath, functionName), keeping only
// the earliest (lowest starting line) occurrence per key. Matches whose file
// path matches any of excludePatterns (doublestar globs, matched against the
// repository-relative path) are skipped before the file is even read.
func (e *Extractor) Extract(repoPath string, matches []pattern.Match, excludePatterns []string) ([]models.CodeBlock, error) {
	type keyed struct {
		block models.CodeBlock
		key   string
	}
	fileCache := map[string][]string{}
	var candidates []keyed

	for i, m := range matches {
		if matchesAnyGlob(excludePatterns, m.FilePath) {
			continue
		}
		absPath := filepath.Join(repoPath, m.FilePath)
		lines, ok := fileCache[absPath]
		if !ok {
			var err error
			lines, err = readLines(absPath)
			if err != nil {
				// A single unreadable file degrades that match only; the
				// scan as a whole still succeeds.
				continue
			}
			fileCache[absPath] = lines
		}

		source := sliceSource(lines, m.LineStart, m.LineEnd)
		fnName := enclosingFunctionName(lines, m.LineStart)
		tags := []string{}
		if fnName != "" {
			tags = append(tags, fmt.Sprintf("function:%s", fnName))
		}

		block := models.CodeBlock{
			ID:        fmt.Sprintf("blk-%s-%d-%s", repoTag(repoPath), i, contentHash(source)[:8]),
			PatternID: m.RuleID,
			Category:  categoryFor(m.RuleID),
			Location: models.SourceLocation{
				FilePath:  m.FilePath,
				LineStart: m.LineStart,
				LineEnd:   m.LineEnd,
			},
			RelativePath:   m.FilePath,
			SourceCode:     source,
			Language:       languageFor(m.FilePath),
			RepositoryPath: repoPath,
			LineCount:      m.LineEnd - m.LineStart + 1,
			Tags:           tags,
			ContentHash:    contentHash(source),
			ASTHash:        astHash(m.ASTNodeType, source),
		}

		key := fmt.Sprintf("%s|%s|%s", repoPath, m.FilePath, fnName)
		candidates = append(candidates, keyed{block: block, key: key})
	}

	earliest := map[string]models.CodeBlock{}
	for _, c := range candidates {
		existing, ok := earliest[c.key]
		if !ok || c.block.Location.LineStart < existing.Location.LineStart {
			earliest[c.key] = c.block
		}
	}

	out := make([]models.CodeBlock, 0, len(earliest))
	for _, b := range earliest {
		out = append(out, b)
	}
	return out, nil
}

// matchesAnyGlob reports whether relPath matches any of the doublestar
// exclude globs. An invalid glob never matches rather than failing the scan.
func matchesAnyGlob(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func sliceSource(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// enclosingFunctionName scans backward from startLine, bounded by
// MaxLookbackLines, for the nearest function declaration.
func enclosingFunctionName(lines []string, startLine int) string {
	from := startLine - 1
	if from >= len(lines) {
		from = len(lines) - 1
	}
	limit := from - MaxLookbackLines
	if limit < 0 {
		limit = 0
	}
	for i := from; i >= limit; i-- {
		if i < 0 || i >= len(lines) {
			continue
		}
		m := funcDeclPattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if g != "" {
				return g
			}
		}
	}
	return ""
}

// repoTag derives a short, stable disambiguator for a repository path so
// block IDs stay unique when blocks from several repositories are unioned
// (the Inter-Project Coordinator's case), without leaking the full path.
func repoTag(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return hex.EncodeToString(sum[:])[:8]
}

func contentHash(source string) string {
	normalized := strings.Join(strings.Fields(source), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// astHash produces an optional uplift hash when the matcher reported an AST
// node type; it is never fabricated when one isn't available.
func astHash(astNodeType, source string) string {
	if astNodeType == "" {
		return ""
	}
	normalized := strings.Join(strings.Fields(source), " ")
	sum := sha256.Sum256([]byte(astNodeType + "|" + normalized))
	return hex.EncodeToString(sum[:])[:16]
}

func languageFor(path string) string {
	switch filepath.Ext(path) {
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".py":
		return "python"
	case ".go":
		return "go"
	default:
		return "unknown"
	}
}
