// Package config loads and persists dupeforge's process configuration: the
// scan/cache/similarity/pattern-gateway/notify tree, via viper with a set of
// supported environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".dupeforge"
	DefaultConfigFile = "config.json"
	DefaultDBFile     = ".dupeforge/dupeforge.db"
	DefaultRegistryFile = ".dupeforge/repositories.json"
)

// Load reads the config file (applying defaults for anything absent) and
// returns a populated Config with environment overrides applied and
// home-relative paths expanded.
func Load(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(&cfg)
	expandPaths(&cfg, home)
	return &cfg, nil
}

// Save writes the config to disk as JSON, atomically (write-temp-then-rename),
// keyed by the same mapstructure names Load reads back.
func Save(cfg *Config, configPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}
	if configPath == "" {
		configPath = filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	}
	var toMap func(rv reflect.Value) any
	toMap = func(rv reflect.Value) any {
		if rv.Kind() != reflect.Struct {
			return rv.Interface()
		}
		m := make(map[string]any, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			m[rv.Type().Field(i).Tag.Get("mapstructure")] = toMap(rv.Field(i))
		}
		return m
	}
	return atomicWriteJSON(configPath, toMap(reflect.ValueOf(*cfg)))
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// EnsureDir creates ~/.dupeforge if it doesn't exist.
func EnsureDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("registry_path", filepath.Join(home, DefaultRegistryFile))
	v.SetDefault("database_path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(home, DefaultDBFile))

	v.SetDefault("scan.enabled", true)
	v.SetDefault("scan.schedule", "0 2 * * *")
	v.SetDefault("scan.run_on_startup", false)
	v.SetDefault("scan.max_repositories_per_night", 20)
	v.SetDefault("scan.max_concurrent_scans", 4)
	v.SetDefault("scan.scan_timeout_seconds", 600)
	v.SetDefault("scan.retry_attempts", 3)
	v.SetDefault("scan.retry_delay_ms", 5000)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 30*24*3600)
	v.SetDefault("cache.invalidate_on_change", true)
	v.SetDefault("cache.track_git_commits", true)
	v.SetDefault("cache.track_uncommitted_changes", true)

	v.SetDefault("similarity.structural_threshold", 0.90)
	v.SetDefault("similarity.levenshtein_weight", 0.7)
	v.SetDefault("similarity.chain_weight", 0.3)
	v.SetDefault("similarity.opposite_logic_penalty", 0.80)
	v.SetDefault("similarity.http_status_penalty", 0.70)
	v.SetDefault("similarity.min_line_count", 3)
	v.SetDefault("similarity.min_unique_tokens", 8)
	v.SetDefault("similarity.min_group_quality", 0.70)
	v.SetDefault("similarity.quality_weight_similarity", 0.40)
	v.SetDefault("similarity.quality_weight_size", 0.20)
	v.SetDefault("similarity.quality_weight_consistency", 0.20)
	v.SetDefault("similarity.quality_weight_tag_overlap", 0.20)
	v.SetDefault("similarity.enable_semantic_operators", true)
	v.SetDefault("similarity.enable_logical_operator_check", true)
	v.SetDefault("similarity.enable_method_chain_validation", true)
	v.SetDefault("similarity.enable_semantic_layer", true)
	v.SetDefault("similarity.enable_quality_filtering", true)

	v.SetDefault("pattern_gateway.matcher_path", "ast-matcher")
	v.SetDefault("pattern_gateway.rules_dir", filepath.Join(home, DefaultConfigDir, "rules"))
	v.SetDefault("pattern_gateway.timeout_seconds", 120)
	v.SetDefault("pattern_gateway.max_output_bytes", 32*1024*1024)
	v.SetDefault("pattern_gateway.breaker_max_failures", 5)
}

// applyEnvOverrides applies the environment variables that don't map cleanly
// onto viper's dotted-key replacement (boolean/string coercions with
// explicit semantics).
func applyEnvOverrides(cfg *Config) {
	if s, ok := os.LookupEnv("SCAN_CRON_SCHEDULE"); ok && s != "" {
		cfg.Scan.Schedule = s
	}
	if s, ok := os.LookupEnv("RUN_ON_STARTUP"); ok {
		cfg.Scan.RunOnStartup = strings.EqualFold(s, "true")
	}
	if s, ok := os.LookupEnv("MAX_CONCURRENT_SCANS"); ok {
		if n, err := parsePositiveInt(s); err == nil {
			cfg.Scan.MaxConcurrentScans = n
		}
	}
	if s, ok := os.LookupEnv("STRUCTURAL_THRESHOLD"); ok {
		if f, err := parseFloat(s); err == nil {
			cfg.Similarity.StructuralThreshold = f
		}
	}
	if s, ok := os.LookupEnv("OPPOSITE_LOGIC_PENALTY"); ok {
		if f, err := parseFloat(s); err == nil {
			cfg.Similarity.OppositeLogicPenalty = f
		}
	}
	if s, ok := os.LookupEnv("HTTP_STATUS_PENALTY"); ok {
		if f, err := parseFloat(s); err == nil {
			cfg.Similarity.HTTPStatusPenalty = f
		}
	}
	if s, ok := os.LookupEnv("MIN_GROUP_QUALITY"); ok {
		if f, err := parseFloat(s); err == nil {
			cfg.Similarity.MinGroupQuality = f
		}
	}
	applyFeatureFlagEnv("ENABLE_SEMANTIC_OPERATORS", &cfg.Similarity.EnableSemanticOperators)
	applyFeatureFlagEnv("ENABLE_LOGICAL_OPERATOR_CHECK", &cfg.Similarity.EnableLogicalOperatorCheck)
	applyFeatureFlagEnv("ENABLE_METHOD_CHAIN_VALIDATION", &cfg.Similarity.EnableMethodChainValidation)
	applyFeatureFlagEnv("ENABLE_SEMANTIC_LAYER", &cfg.Similarity.EnableSemanticLayer)
	applyFeatureFlagEnv("ENABLE_QUALITY_FILTERING", &cfg.Similarity.EnableQualityFiltering)

	if s, ok := os.LookupEnv("CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = strings.EqualFold(s, "true")
	}
	if s, ok := os.LookupEnv("CACHE_TTL"); ok {
		if n, err := parsePositiveInt(s); err == nil {
			cfg.Cache.TTLSeconds = int64(n)
		}
	}
}

func applyFeatureFlagEnv(name string, dst *bool) {
	if s, ok := os.LookupEnv(name); ok {
		*dst = strings.EqualFold(s, "true")
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %q must be positive", s)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

func expandPaths(cfg *Config, home string) {
	cfg.RegistryPath = expandHome(cfg.RegistryPath, home)
	cfg.DatabasePath = expandHome(cfg.DatabasePath, home)
	cfg.Database.Path = expandHome(cfg.Database.Path, home)
	cfg.PatternGateway.RulesDir = expandHome(cfg.PatternGateway.RulesDir, home)
}

// expandHome resolves a leading "~/" to the user's home directory.
func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
