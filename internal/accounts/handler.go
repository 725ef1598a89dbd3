package accounts

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/platform/httpx"
	"github.com/examforge/examforge/internal/shared"
)

// Handler wires HTTP endpoints for account and profile management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        permissions.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw permissions.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireSession)
		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.updateProfile)
		r.Get("/{id}", h.getAccount)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAdmin)
		r.Get("/", h.list)
		r.Patch("/{id}/active", h.setActive)
		r.Put("/{id}", h.updateAccount)
	})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	if sess.AccountID() != id && sess.Role() != RoleAdmin {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	acct, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if accts == nil {
		accts = []Account{}
	}
	httpx.JSON(w, http.StatusOK, accts)
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), sess.AccountID())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update ProfileUpdate
	if err := httpx.DecodeJSON(r, &update); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.UpdateProfile(r.Context(), sess.AccountID(), update); err != nil {
		h.logger.Error("update profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var update AccountUpdate
	if err := httpx.DecodeJSON(r, &update); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.service.UpdateAccountAndProfile(r.Context(), chi.URLParam(r, "id"), update); err != nil {
		h.logger.Error("update account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
