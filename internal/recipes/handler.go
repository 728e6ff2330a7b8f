package recipes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/pkg/auth"
	"github.com/JaimeStill/palette/pkg/handlers"
	"github.com/JaimeStill/palette/pkg/pagination"
	"github.com/JaimeStill/palette/pkg/routes"
	"github.com/JaimeStill/palette/recipe"
)

// Handler provides HTTP endpoints for recipe operations.
type Handler struct {
	sys        System
	registry   *recipe.Registry
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// RegistryResponse lists the tools and analyses recipes may reference.
type RegistryResponse struct {
	Tools    []recipe.ToolDef     `json:"tools"`
	Analyses []recipe.AnalysisDef `json:"analyses"`
}

// NewHandler creates a Handler.
func NewHandler(
	sys System,
	registry *recipe.Registry,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		registry:   registry,
		logger:     logger.With("handler", "recipes"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for recipe endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/recipes",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/lookup", Handler: h.Lookup},
			{Method: "GET", Pattern: "/registry", Handler: h.Registry},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/fields", Handler: h.Fields},
			{Method: "GET", Pattern: "/{id}/cost", Handler: h.Cost},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/parse", Handler: h.Parse},
			{Method: "POST", Pattern: "/execute", Handler: h.ExecuteTemplate},
			{Method: "POST", Pattern: "/{id}/validate", Handler: h.Validate},
			{Method: "POST", Pattern: "/{id}/prompts", Handler: h.Prompts},
			{Method: "POST", Pattern: "/{id}/execute", Handler: h.Execute},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of recipes with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, status, err := handlers.DecodeJSON[SearchRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Lookup finds a recipe by name, optionally within a category.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidName)
		return
	}

	rec, err := h.sys.FindByName(r.Context(), name, r.URL.Query().Get("category"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Registry returns the registered tools and analyses.
func (h *Handler) Registry(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, RegistryResponse{
		Tools:    h.registry.ToolList(),
		Analyses: h.registry.AnalysisList(),
	})
}

// Find returns a single recipe by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.find(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Fields returns the deduplicated form fields of a recipe.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.find(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, recipe.FormFields(rec.Stages))
}

// Cost estimates one run of a recipe. The model query parameter
// overrides the recipe's suggested model.
func (h *Handler) Cost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	cost, err := h.sys.Estimate(r.Context(), id, r.URL.Query().Get("model"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cost)
}

// Validate reports the required fields the given values leave empty.
// Variables produced by analysis stages are not required up front.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.find(w, r)
	if !ok {
		return
	}

	req, status, err := handlers.DecodeJSON[ValuesRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	deferred := h.registry.DeferredFields(rec.Stages)
	handlers.RespondJSON(w, http.StatusOK, recipe.ValidateDeferred(rec.Stages, req.FieldValues, deferred))
}

// Prompts builds each stage's prompt and static references without
// running anything.
func (h *Handler) Prompts(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.find(w, r)
	if !ok {
		return
	}

	req, status, err := handlers.DecodeJSON[ValuesRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pipeline.Preview(rec.Stages, req.FieldValues))
}

// Parse splits a template into stages and returns its form fields.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	req, status, err := handlers.DecodeJSON[ParseRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	if strings.TrimSpace(req.Template) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingTemplate)
		return
	}

	stages := recipe.ParseTemplate(req.Template, uuid.NewString)
	handlers.RespondJSON(w, http.StatusOK, ParseResult{
		Stages: stages,
		Fields: recipe.FormFields(stages),
	})
}

// Create processes a JSON body to create a recipe owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cmd, status, err := handlers.DecodeJSON[Command](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}
	cmd.CreatedBy = auth.Subject(r.Context())

	rec, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rec)
}

// Update replaces a recipe's definition.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	cmd, status, err := handlers.DecodeJSON[Command](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	rec, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Delete removes a recipe by its UUID path parameter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Execute runs a stored recipe for the caller.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	cmd, status, err := handlers.DecodeJSON[ExecuteCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}
	cmd.UserID = auth.Subject(r.Context())

	result, err := h.sys.Execute(r.Context(), id, cmd)
	h.respondRun(w, result, err)
}

// ExecuteTemplate runs an unsaved template for the caller.
func (h *Handler) ExecuteTemplate(w http.ResponseWriter, r *http.Request) {
	cmd, status, err := handlers.DecodeJSON[TemplateCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}
	cmd.UserID = auth.Subject(r.Context())

	result, err := h.sys.ExecuteTemplate(r.Context(), cmd)
	h.respondRun(w, result, err)
}

// respondRun writes a RunResponse. Runs that never started because the
// recipe was not found or the request was malformed get a plain error.
func (h *Handler) respondRun(w http.ResponseWriter, result *pipeline.Result, err error) {
	if err == nil {
		handlers.RespondJSON(w, http.StatusOK, NewRunResponse(result, nil))
		return
	}

	status := MapHTTPStatus(err)
	if result == nil && !runError(err) {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("run failed", "status", status, "error", err)
	} else {
		h.logger.Warn("run rejected", "status", status, "error", err)
	}
	handlers.RespondJSON(w, status, NewRunResponse(result, err))
}

// runError reports errors that belong in a RunResponse body.
func runError(err error) bool {
	return errors.Is(err, recipe.ErrValidation) ||
		errors.Is(err, pipeline.ErrInsufficientBalance) ||
		errors.Is(err, pipeline.ErrStageFailed)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) (*Recipe, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	rec, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return rec, true
}
