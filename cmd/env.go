package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intent-engine/internal/api"
	"github.com/sells-group/intent-engine/internal/audience"
	"github.com/sells-group/intent-engine/internal/config"
	"github.com/sells-group/intent-engine/internal/export"
	"github.com/sells-group/intent-engine/internal/scorer"
	"github.com/sells-group/intent-engine/internal/store"
	"github.com/sells-group/intent-engine/pkg/serpapi"
	"github.com/sells-group/intent-engine/pkg/skiptrace"
)

// env bundles the store and services every command runs against.
type env struct {
	Store     store.Store
	Scorer    *scorer.Service
	Audiences *audience.Engine
	Exports   *export.Engine
	Enricher  *api.Enricher
	Search    serpapi.Client
}

func (e *env) Close() {
	_ = e.Store.Close()
}

// openStore connects to the backend selected by store.driver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	if err := scorer.ValidateConfig(cfg.Intent); err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	search := serpapi.NewClient(cfg.SerpAPI.Key,
		serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
		serpapi.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.SerpAPI.TimeoutSecs) * time.Second}),
		serpapi.WithRateLimit(cfg.SerpAPI.RatePerSec),
	)

	skip := skiptrace.NewClient(cfg.Skiptrace.Key, cfg.Skiptrace.URL,
		skiptrace.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Skiptrace.TimeoutSecs) * time.Second}),
	)

	return &env{
		Store:     st,
		Scorer:    scorer.NewService(st, cfg.Intent),
		Audiences: audience.NewEngine(st),
		Exports:   export.NewEngine(st, time.Duration(cfg.Export.WebhookTimeoutSecs)*time.Second),
		Enricher:  api.NewEnricher(st, skip),
		Search:    search,
	}, nil
}
