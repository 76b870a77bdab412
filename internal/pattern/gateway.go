// Package pattern invokes the external AST matcher as a subprocess and
// normalizes its JSON output, wrapped in a circuit breaker (sony/gobreaker)
// guarding against a flapping matcher binary.
package pattern

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dupeforge/dupeforge/internal/errs"
)

// Match is a single AST-matcher finding, as emitted on stdout.
type Match struct {
	RuleID      string         `json:"ruleId"`
	FilePath    string         `json:"filePath"`
	LineStart   int            `json:"lineStart"`
	LineEnd     int            `json:"lineEnd"`
	MatchedText string         `json:"matchedText"`
	ASTNodeType string         `json:"astNodeType,omitempty"`
	MetaVars    map[string]any `json:"metaVars,omitempty"`
}

// Result is the Pattern Gateway's output for one repository scan.
type Result struct {
	Matches   []Match
	Truncated bool
}

// Gateway invokes the configured AST matcher binary.
type Gateway struct {
	matcherPath    string
	rulesDir       string
	timeout        time.Duration
	maxOutputBytes int
	breaker        *gobreaker.CircuitBreaker
}

// Option configures Gateway construction.
type Option func(*Gateway)

func New(matcherPath, rulesDir string, timeout time.Duration, maxOutputBytes int, breakerMaxFailures uint32) *Gateway {
	g := &Gateway{
		matcherPath:    matcherPath,
		rulesDir:       rulesDir,
		timeout:        timeout,
		maxOutputBytes: maxOutputBytes,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "pattern-gateway",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
	})
	return g
}

// Scan runs the matcher against repoPath. If the matcher binary is not
// installed, it degrades gracefully to an empty match set rather than
// failing the scan. Any other non-zero exit with empty stdout is a
// fatal PatternGatewayError (retryable per job policy).
func (g *Gateway) Scan(ctx context.Context, repoPath string) (*Result, error) {
	if _, err := exec.LookPath(g.matcherPath); err != nil {
		return &Result{}, nil
	}

	v, err := g.breaker.Execute(func() (any, error) {
		return g.invoke(ctx, repoPath)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, errs.New(errs.KindPatternGateway, "pattern.Scan", fmt.Errorf("matcher circuit open: %w", err))
		}
		return nil, err
	}
	return v.(*Result), nil
}

func (g *Gateway) invoke(ctx context.Context, repoPath string) (*Result, error) {
	timeout := g.timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec: arguments are passed as discrete argv entries, never
	// interpolated into a shell string.
	cmd := exec.CommandContext(cctx, g.matcherPath, "scan", "--json", "--rules", g.rulesDir, repoPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	truncated := false
	out := stdout.Bytes()
	if g.maxOutputBytes > 0 && len(out) > g.maxOutputBytes {
		out = out[:g.maxOutputBytes]
		truncated = true
	}

	if cctx.Err() == context.DeadlineExceeded {
		return nil, errs.New(errs.KindTimeout, "pattern.invoke", fmt.Errorf("matcher timed out after %s", timeout))
	}

	if runErr != nil && len(out) == 0 {
		return nil, errs.New(errs.KindPatternGateway, "pattern.invoke", fmt.Errorf("matcher failed: %w (stderr: %s)", runErr, stderr.String()))
	}

	var matches []Match
	if len(out) > 0 {
		if err := json.Unmarshal(out, &matches); err != nil {
			if !truncated {
				return nil, errs.New(errs.KindPatternGateway, "pattern.invoke", fmt.Errorf("decoding matcher output: %w", err))
			}
			// Truncated output legitimately may not parse as valid JSON;
			// treat as a soft failure returning whatever we could use.
			matches = nil
		}
	}

	return &Result{Matches: matches, Truncated: truncated}, nil
}
