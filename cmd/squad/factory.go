package main

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/squad/internal/aggregator"
	"github.com/ShayCichocki/squad/internal/composer"
	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/internal/engine"
	"github.com/ShayCichocki/squad/internal/router"
	"github.com/ShayCichocki/squad/internal/runtime"
	"github.com/ShayCichocki/squad/internal/scheduler"
	"github.com/ShayCichocki/squad/internal/store"
	"github.com/ShayCichocki/squad/internal/templates"
	"github.com/ShayCichocki/squad/pkg/models"
)

// buildEngine wires an Engine from configuration. The returned cleanup
// function closes the template watcher and the store.
func buildEngine(cfg *config.Config, readiness, offline bool) (*engine.Engine, func(), error) {
	registry := composer.DefaultRegistry()

	source, err := templates.NewSource(cfg.Templates.Dir, registry)
	if err != nil {
		return nil, nil, fmt.Errorf("open template source: %w", err)
	}

	rt, err := buildRuntime(cfg, offline)
	if err != nil {
		source.Close()
		return nil, nil, err
	}

	breakers := router.NewCircuitBreakerTable(router.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Window:           cfg.Breaker.Window,
		Cooldown:         cfg.Breaker.Cooldown,
		MaxCooldown:      cfg.Breaker.MaxCooldown,
	})
	tierRouter := router.New(map[models.Tier][]string{
		models.TierCheap:   cfg.Providers.Cheap,
		models.TierCapable: cfg.Providers.Capable,
		models.TierPremium: cfg.Providers.Premium,
	}, breakers)

	emitter := scheduler.NewEmitter(100)
	sched := scheduler.New(tierRouter, rt, scheduler.Config{
		WorkerLimit:      cfg.Scheduler.WorkerLimit,
		AttemptTimeout:   cfg.Scheduler.AttemptTimeout,
		TierTimeouts:     tierTimeouts(cfg.Scheduler.TierTimeouts),
		RefinementRounds: cfg.Scheduler.RefinementRounds,
	}, emitter)

	if cfg.LogPath != "" {
		if logger, err := scheduler.NewDebugLogger(cfg.LogPath); err == nil {
			scheduler.SetDebugLogger(logger)
		}
	}

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	db, err := store.Open(storePath)
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		source.Close()
		db.Close()
		return nil, nil, fmt.Errorf("migrate store: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Templates: source,
		Composer:  composer.New(registry),
		Scheduler: sched,
		Emitter:   emitter,
		Store:     db,
		Aggregation: aggregator.Options{
			Categories: cfg.Aggregation.Categories,
			Epsilon:    cfg.Aggregation.Epsilon,
			Readiness:  readiness,
		},
	})
	if err != nil {
		source.Close()
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		eng.Close()
		source.Close()
		db.Close()
	}
	return eng, cleanup, nil
}

// buildRuntime creates the LLM runtime over the configured providers, or
// the deterministic stub in offline mode.
func buildRuntime(cfg *config.Config, offline bool) (runtime.Runtime, error) {
	if offline {
		return runtime.NewStubRuntime(), nil
	}

	providers := make(map[string]*runtime.Client)

	anthropicClient, err := runtime.NewClient(runtime.ClientConfig{APIKey: cfg.Anthropic.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create anthropic client: %w", err)
	}
	providers["anthropic"] = anthropicClient

	if cfg.Bedrock.Enabled {
		bedrockClient, err := runtime.NewClient(runtime.ClientConfig{
			UseAWSBedrock: true,
			AWSRegion:     cfg.Bedrock.Region,
			AWSProfile:    cfg.Bedrock.Profile,
		})
		if err != nil {
			return nil, fmt.Errorf("create bedrock client: %w", err)
		}
		providers["bedrock"] = bedrockClient
	}

	return runtime.NewLLMRuntime(providers, runtime.DefaultModels(), tierPricing(cfg.Pricing)), nil
}

// tierTimeouts converts the config's name-keyed timeout overrides to the
// scheduler's tier-keyed map, dropping unknown tier names.
func tierTimeouts(m map[string]time.Duration) map[models.Tier]time.Duration {
	if len(m) == 0 {
		return nil
	}
	out := make(map[models.Tier]time.Duration, len(m))
	for name, d := range m {
		tier := models.Tier(name)
		if tier.Valid() && d > 0 {
			out[tier] = d
		}
	}
	return out
}

// tierPricing overlays configured cost rates onto the built-in rates.
// A nil return keeps the runtime on its defaults.
func tierPricing(p config.PricingConfig) map[models.Tier]runtime.TierPricing {
	if len(p) == 0 {
		return nil
	}
	rates := runtime.DefaultPricing()
	for name, r := range p {
		tier := models.Tier(name)
		if !tier.Valid() {
			continue
		}
		rates[tier] = runtime.TierPricing{
			InputPerMTok:  r.InputPerMTok,
			OutputPerMTok: r.OutputPerMTok,
		}
	}
	return rates
}
