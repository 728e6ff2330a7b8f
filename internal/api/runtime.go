package api

import (
	"github.com/JaimeStill/palette/internal/config"
	"github.com/JaimeStill/palette/internal/infrastructure"
	"github.com/JaimeStill/palette/pkg/pagination"
)

// Runtime is the Infrastructure as the API module sees it: a module-scoped
// logger plus the configuration sections domain systems are built from.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Config     *config.Config
}

// NewRuntime shallow-copies infra so the scoped logger does not leak into
// other modules.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		Config:         cfg,
	}
}
