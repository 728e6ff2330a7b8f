// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/palette/internal/config"
	"github.com/JaimeStill/palette/internal/infrastructure"
	"github.com/JaimeStill/palette/pkg/middleware"
	"github.com/JaimeStill/palette/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	if err := module.ValidatePrefix(cfg.API.BasePath); err != nil {
		return nil, err
	}

	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.MaxBody(cfg.API.MaxBodySizeBytes()))
	m.Use(runtime.Auth.Middleware())

	return m, nil
}
