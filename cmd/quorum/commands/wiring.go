package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/config"
	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/orchestrator"
	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/printer"
	"github.com/dyluth/quorum/internal/protocol"
	"github.com/dyluth/quorum/internal/registry"
	"github.com/dyluth/quorum/internal/router"
)

// loadConfig reads quorum.yml, translating the common failure modes into
// actionable CLI errors.
func loadConfig(path string) (*config.QuorumConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, printer.Error(
			fmt.Sprintf("could not load %s", path),
			fmt.Sprintf("Error: %v", err),
			[]string{
				"Create a minimal config:\n  version: \"1.0\"\n  models:\n    - id: my-model",
				"Or point at an existing one with --config path/to/quorum.yml",
			},
		)
	}
	return cfg, nil
}

// buildRegistry seeds the registry from config and, when a redis section is
// present, attaches the persistence store and restores learned profiles.
// The returned closer is nil when persistence is off.
func buildRegistry(ctx context.Context, cfg *config.QuorumConfig) (*registry.Registry, func() error, error) {
	if cfg.Redis == nil {
		return registry.New(cfg.Profiles(), nil), nil, nil
	}

	store, err := registry.NewStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.Instance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create profile store: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not reach Redis at %s: %v", cfg.Redis.Addr, err),
			[]string{
				"Check the redis section of quorum.yml",
				"Or remove it to run without profile persistence",
			},
		)
	}

	reg := registry.New(cfg.Profiles(), store)
	if restored := reg.RestoreFromStore(ctx); restored > 0 {
		printer.Info("Restored %d learned model profiles from Redis\n", restored)
	}
	return reg, store.Close, nil
}

// buildEngine wires the full pipeline. The scripted generator stands in
// for real providers; swap it here when wiring live model backends.
func buildEngine(cfg *config.QuorumConfig, reg *registry.Registry) *orchestrator.Engine {
	sink := capability.NewLogSink("quorum")
	rt := router.New(reg, capability.NewScripted(), sink, cfg.RouterConfig())
	table := protocol.Table(rt, cfg.ProtocolConfig())
	checker := factcheck.NewChecker(
		&factcheck.KeywordExtractor{},
		factcheck.HedgeVerifier{},
		cfg.VerificationThreshold(),
	)
	return orchestrator.New(planner.New(), rt, table, checker, sink, cfg.EngineConfig())
}
