package similarity

import (
	"regexp"
	"strings"
	"unicode"
)

// preservedIdentifiers is the whitelist of semantically-meaningful
// identifiers Normalize never abstracts into "var"/"CONST".
var preservedIdentifiers = buildPreservedSet(
	// math ops
	"max", "min", "abs", "floor", "ceil", "round",
	// string ops
	"trim", "toLowerCase", "toUpperCase", "replace",
	// HTTP response ops
	"status", "json", "send", "redirect",
	// array/object/async methods
	"map", "filter", "reduce", "forEach", "find", "some", "every", "slice",
	"splice", "push", "pop", "shift", "unshift", "join", "split", "includes",
	"indexOf", "get", "set", "has", "delete", "keys", "values", "entries",
	"then", "catch", "finally", "async", "await", "reverse", "sort", "concat",
	// global objects
	"Math", "Object", "Array", "String", "Number", "Boolean", "console",
	"process", "JSON", "Date", "Promise",
)

func buildPreservedSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

var (
	lineCommentRe    = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLiteralRe  = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|` + "`" + `(?:[^` + "`" + `\\]|\\.)*` + "`")
	numericLiteralRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	identifierRe     = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)
	operatorRe       = regexp.MustCompile(`(===|!==|==|!=|<=|>=|&&|\|\||=>|[-+*/%<>=!&|^~?:;,.(){}\[\]])`)
	whitespaceRe     = regexp.MustCompile(`\s+`)

	placeholderPrefix = " PRESERVE_"
	placeholderSuffix = " "
)

// Normalize strips comments, collapses whitespace, abstracts string/numeric
// literals, preserves a fixed identifier whitelist, abstracts remaining
// identifiers by case, and space-separates operators.
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(code string, preserveSemanticOperators bool) string {
	s := lineCommentRe.ReplaceAllString(code, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")

	s = stringLiteralRe.ReplaceAllString(s, "'STR'")
	s = numericLiteralRe.ReplaceAllString(s, "NUM")

	if preserveSemanticOperators {
		s = protectPreserved(s)
	}

	s = identifierRe.ReplaceAllStringFunc(s, func(ident string) string {
		if strings.HasPrefix(ident, "STR") || ident == "NUM" || (preserveSemanticOperators && strings.HasPrefix(ident, "PRESERVE_")) {
			return ident
		}
		if isAllUpper(ident) {
			return "CONST"
		}
		return "var"
	})

	if preserveSemanticOperators {
		s = restorePreserved(s)
	}

	s = operatorRe.ReplaceAllString(s, " $1 ")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// protectPreserved swaps whitelisted identifiers for a space-delimited
// PRESERVE_<name> placeholder, which the later identifier-abstraction pass
// leaves as it is, so restorePreserved can put the original name back.
func protectPreserved(s string) string {
	return identifierRe.ReplaceAllStringFunc(s, func(ident string) string {
		if preservedIdentifiers[ident] {
			return placeholderPrefix + ident + placeholderSuffix
		}
		return ident
	})
}

var placeholderRe = regexp.MustCompile(placeholderPrefix + `([A-Za-z0-9_$]+)` + placeholderSuffix)

func restorePreserved(s string) string {
	return placeholderRe.ReplaceAllString(s, "$1")
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
