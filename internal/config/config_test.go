package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "{}")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.MaxConcurrentScans != 4 {
		t.Errorf("Scan.MaxConcurrentScans = %d, want 4", cfg.Scan.MaxConcurrentScans)
	}
	if cfg.Similarity.StructuralThreshold != 0.90 {
		t.Errorf("Similarity.StructuralThreshold = %v, want 0.90", cfg.Similarity.StructuralThreshold)
	}
	if cfg.PatternGateway.MatcherPath != "ast-matcher" {
		t.Errorf("PatternGateway.MatcherPath = %q, want ast-matcher", cfg.PatternGateway.MatcherPath)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should default true")
	}
}

func TestLoadHonorsFileValues(t *testing.T) {
	path := writeConfigFile(t, `{"scan": {"max_concurrent_scans": 9}, "similarity": {"structural_threshold": 0.85}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.MaxConcurrentScans != 9 {
		t.Errorf("Scan.MaxConcurrentScans = %d, want 9", cfg.Scan.MaxConcurrentScans)
	}
	if cfg.Similarity.StructuralThreshold != 0.85 {
		t.Errorf("Similarity.StructuralThreshold = %v, want 0.85", cfg.Similarity.StructuralThreshold)
	}
}

func TestLoadEnvOverridesTakePrecedence(t *testing.T) {
	path := writeConfigFile(t, `{"scan": {"max_concurrent_scans": 9}}`)
	t.Setenv("MAX_CONCURRENT_SCANS", "12")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.MaxConcurrentScans != 12 {
		t.Errorf("Scan.MaxConcurrentScans = %d, want 12 from env override", cfg.Scan.MaxConcurrentScans)
	}
}

func TestLoadExpandsHomeRelativePaths(t *testing.T) {
	path := writeConfigFile(t, `{"registry_path": "~/custom/repositories.json"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, _ := os.UserHomeDir()
	if !strings.HasPrefix(cfg.RegistryPath, home) {
		t.Errorf("RegistryPath = %q, want it expanded under %q", cfg.RegistryPath, home)
	}
	if strings.Contains(cfg.RegistryPath, "~") {
		t.Errorf("RegistryPath = %q, should not contain a literal ~", cfg.RegistryPath)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{
		RegistryPath: "/data/repositories.json",
		Scan:         ScanConfig{MaxConcurrentScans: 7, Schedule: "0 3 * * *"},
	}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Scan.MaxConcurrentScans != 7 {
		t.Errorf("Scan.MaxConcurrentScans = %d, want 7", reloaded.Scan.MaxConcurrentScans)
	}
	if reloaded.Scan.Schedule != "0 3 * * *" {
		t.Errorf("Scan.Schedule = %q, want %q", reloaded.Scan.Schedule, "0 3 * * *")
	}
}

func TestConfigPathReturnsOverrideVerbatim(t *testing.T) {
	got, err := ConfigPath("/custom/config.json")
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if got != "/custom/config.json" {
		t.Errorf("ConfigPath = %q, want /custom/config.json", got)
	}
}

func TestConfigPathDefaultsUnderHome(t *testing.T) {
	got, err := ConfigPath("")
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}
