package pattern

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/internal/errs"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matcher.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing fake matcher script: %v", err)
	}
	return path
}

func TestScanDegradesWhenMatcherNotInstalled(t *testing.T) {
	g := New("this-binary-does-not-exist-xyz", "/rules", time.Second, 0, 3)
	result, err := g.Scan(context.Background(), "/repos/svc-a")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("Matches = %v, want none", result.Matches)
	}
}

func TestScanParsesMatcherOutput(t *testing.T) {
	script := writeScript(t, `echo '[{"ruleId":"db-query","filePath":"a.js","lineStart":1,"lineEnd":2}]'`)
	g := New(script, "/rules", time.Second, 0, 3)
	result, err := g.Scan(context.Background(), "/repos/svc-a")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].RuleID != "db-query" {
		t.Errorf("Matches = %+v", result.Matches)
	}
}

func TestScanWrapsFailureWithEmptyOutput(t *testing.T) {
	script := writeScript(t, `exit 1`)
	g := New(script, "/rules", time.Second, 0, 3)
	_, err := g.Scan(context.Background(), "/repos/svc-a")
	if err == nil {
		t.Fatal("expected an error for a non-zero exit with no output")
	}
	if errs.KindOf(err) != errs.KindPatternGateway {
		t.Errorf("KindOf(err) = %v, want %v", errs.KindOf(err), errs.KindPatternGateway)
	}
}

func TestScanTruncatesOversizedOutput(t *testing.T) {
	script := writeScript(t, `printf '[{"ruleId":"x"}]'`)
	g := New(script, "/rules", time.Second, 4, 3)
	result, err := g.Scan(context.Background(), "/repos/svc-a")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Truncated {
		t.Error("expected Truncated to be true when output exceeds maxOutputBytes")
	}
}
