package credits

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/palette/pkg/auth"
	"github.com/JaimeStill/palette/pkg/handlers"
	"github.com/JaimeStill/palette/pkg/pagination"
	"github.com/JaimeStill/palette/pkg/routes"
)

// Handler exposes the caller's balance and ledger.
type Handler struct {
	sys         System
	allowGrants bool
	logger      *slog.Logger
	pagination  pagination.Config
}

// NewHandler creates a Handler.
func NewHandler(sys System, allowGrants bool, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:         sys,
		allowGrants: allowGrants,
		logger:      logger.With("handler", "credits"),
		pagination:  pagination,
	}
}

// Routes returns the credit endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/credits",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/balance", Handler: h.Balance},
			{Method: "GET", Pattern: "/ledger", Handler: h.Ledger},
			{Method: "POST", Pattern: "/grant", Handler: h.Grant},
		},
	}
}

// Balance returns the authenticated user's balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	user := auth.Subject(r.Context())

	balance, err := h.sys.Balance(r.Context(), user)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Balance{UserID: user, Balance: balance})
}

// Ledger returns a page of the authenticated user's ledger, newest first.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.History(r.Context(), auth.Subject(r.Context()), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Grant adds credits to a user. Disabled unless configured.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	if !h.allowGrants {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrGrantsDisabled), ErrGrantsDisabled)
		return
	}

	cmd, status, err := handlers.DecodeJSON[GrantCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}
	if cmd.UserID == "" {
		cmd.UserID = auth.Subject(r.Context())
	}

	balance, err := h.sys.Grant(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Balance{UserID: cmd.UserID, Balance: balance})
}
