package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/palette/internal/generation"
	"github.com/JaimeStill/palette/pkg/handlers"
	"github.com/JaimeStill/palette/pkg/routes"
)

type modelsHandler struct {
	catalog *generation.Catalog
	logger  *slog.Logger
}

func newModelsHandler(catalog *generation.Catalog, logger *slog.Logger) *modelsHandler {
	return &modelsHandler{
		catalog: catalog,
		logger:  logger.With("handler", "models"),
	}
}

func (h *modelsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/models",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/{id}", Handler: h.find},
		},
	}
}

func (h *modelsHandler) list(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.catalog.List())
}

func (h *modelsHandler) find(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.Model(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, model)
}
