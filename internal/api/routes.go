package api

import (
	"net/http"

	"github.com/JaimeStill/palette/internal/config"
	"github.com/JaimeStill/palette/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	storage := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
	)

	models := newModelsHandler(domain.Generation.Catalog(), runtime.Logger)

	routes.Register(
		mux,
		domain.Recipes.Handler().Routes(),
		domain.Credits.Handler().Routes(),
		models.routes(),
		storage.routes(),
	)
}
