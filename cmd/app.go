package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dupeforge/dupeforge/internal/block"
	"github.com/dupeforge/dupeforge/internal/cache"
	"github.com/dupeforge/dupeforge/internal/config"
	"github.com/dupeforge/dupeforge/internal/database"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/interproject"
	"github.com/dupeforge/dupeforge/internal/orchestrator"
	"github.com/dupeforge/dupeforge/internal/pattern"
	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/internal/similarity"
	"github.com/dupeforge/dupeforge/internal/store"
	"github.com/dupeforge/dupeforge/internal/suggest"
)

// app bundles every component a CLI command needs to drive a scan, built
// once from the loaded Config so scan/serve/ui don't each re-derive the
// dependency graph.
type app struct {
	cfg   *config.Config
	db    database.DB
	reg   *registry.Registry
	bus   *eventbus.Bus
	store *store.SQLStore
	orch  *orchestrator.Orchestrator
	coord *interproject.Coordinator
}

func newApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	bus := eventbus.New()
	sqlStore := store.New(db)

	var cacheStore cache.Store
	if cfg.Cache.RedisAddr != "" {
		cacheStore = cache.NewRedis(cfg.Cache.RedisAddr, 0)
	} else {
		cacheStore = sqlStore
	}

	gw := pattern.New(cfg.PatternGateway.MatcherPath, cfg.PatternGateway.RulesDir,
		secondsOrDefault(cfg.PatternGateway.TimeoutSeconds, 30), cfg.PatternGateway.MaxOutputBytes,
		cfg.PatternGateway.BreakerMaxFailures)
	extractor := block.New()
	engine := similarity.NewEngine(similarity.Config{
		StructuralThreshold:         cfg.Similarity.StructuralThreshold,
		LevenshteinWeight:           cfg.Similarity.LevenshteinWeight,
		ChainWeight:                 cfg.Similarity.ChainWeight,
		OppositeLogicPenalty:        cfg.Similarity.OppositeLogicPenalty,
		HTTPStatusPenalty:           cfg.Similarity.HTTPStatusPenalty,
		MinLineCount:                cfg.Similarity.MinLineCount,
		MinUniqueTokens:             cfg.Similarity.MinUniqueTokens,
		MinGroupQuality:             cfg.Similarity.MinGroupQuality,
		QualityWeightSimilarity:     cfg.Similarity.QualityWeightSimilarity,
		QualityWeightSize:           cfg.Similarity.QualityWeightSize,
		QualityWeightConsistency:    cfg.Similarity.QualityWeightConsistency,
		QualityWeightTagOverlap:     cfg.Similarity.QualityWeightTagOverlap,
		EnableSemanticOperators:     cfg.Similarity.EnableSemanticOperators,
		EnableLogicalOperatorCheck:  cfg.Similarity.EnableLogicalOperatorCheck,
		EnableMethodChainValidation: cfg.Similarity.EnableMethodChainValidation,
		EnableSemanticLayer:         cfg.Similarity.EnableSemanticLayer,
		EnableQualityFiltering:      cfg.Similarity.EnableQualityFiltering,
	})
	generator := suggest.New()

	orch := orchestrator.New(orchestrator.Options{
		Cache:        cache.New(cacheStore),
		CacheEnabled: cfg.Cache.Enabled,
		Gateway:      gw,
		Extractor:    extractor,
		Engine:       engine,
		Generator:    generator,
		Bus:          bus,
		Registry:     reg,
		Store:        sqlStore,
	})
	coord := interproject.New(interproject.Options{
		Registry:  reg,
		Gateway:   gw,
		Extractor: extractor,
		Engine:    engine,
		Generator: generator,
		Bus:       bus,
		Store:     sqlStore,
	})

	return &app{cfg: cfg, db: db, reg: reg, bus: bus, store: sqlStore, orch: orch, coord: coord}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
