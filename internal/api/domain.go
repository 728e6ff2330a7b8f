package api

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/palette/internal/assets"
	"github.com/JaimeStill/palette/internal/credits"
	"github.com/JaimeStill/palette/internal/generation"
	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/internal/recipes"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Recipes    recipes.System
	Credits    credits.System
	Generation *generation.Service
	Assets     *assets.Store
	Pipeline   *pipeline.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config

	creditsSystem := credits.New(
		runtime.Database.Connection(),
		cfg.Credits,
		runtime.Logger,
		runtime.Pagination,
	)

	gen := generation.New(&cfg.Generation, nil, runtime.Logger)
	store := assets.New(&cfg.Assets, runtime.Storage, nil, runtime.Logger)

	rt := &pipeline.Runtime{
		Generator:               gen,
		Tools:                   gen,
		Analyzer:                gen,
		Ledger:                  creditsSystem,
		Pricer:                  gen,
		Registry:                cfg.Registry.Registry(),
		Prober:                  store,
		Logger:                  runtime.Logger,
		IntermediateAspectRatio: cfg.Generation.IntermediateAspectRatio,
	}
	if cfg.Assets.Enabled {
		rt.Assets = store
	}
	rt.Observer = progressLogger(runtime.Logger)

	recipesSystem := recipes.New(
		runtime.Database.Connection(),
		rt,
		recipes.Defaults{
			Model:        cfg.Generation.DefaultModel,
			AspectRatio:  cfg.Generation.DefaultAspectRatio,
			OutputFormat: cfg.Generation.DefaultOutputFormat,
		},
		store,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Recipes:    recipesSystem,
		Credits:    creditsSystem,
		Generation: gen,
		Assets:     store,
		Pipeline:   rt,
	}
}

// progressLogger reports stage transitions at debug level.
func progressLogger(logger *slog.Logger) pipeline.Observer {
	logger = logger.With("system", "pipeline")
	return func(e pipeline.Event) {
		attrs := []slog.Attr{
			slog.String("run_id", e.RunID),
			slog.Int("stage", e.Stage),
			slog.Int("total", e.Total),
			slog.String("kind", string(e.Kind)),
			slog.String("status", string(e.Status)),
		}
		if e.Err != nil {
			attrs = append(attrs, slog.String("error", e.Err.Error()))
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "stage transition", attrs...)
	}
}
