package main

import (
	"net/http"

	"github.com/JaimeStill/palette/internal/api"
	"github.com/JaimeStill/palette/internal/config"
	"github.com/JaimeStill/palette/internal/infrastructure"
	"github.com/JaimeStill/palette/pkg/handlers"
	"github.com/JaimeStill/palette/pkg/module"
)

type status struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// buildRouter mounts the API module and the unauthenticated probes.
func buildRouter(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Router, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := module.NewRouter()
	router.Mount(apiModule)

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ok", Version: cfg.Version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ready"})
	})

	return router, nil
}
