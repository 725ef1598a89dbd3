package permissions

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/examforge/examforge/internal/platform/httpx"
	"github.com/examforge/examforge/internal/shared"
)

// Handler wires HTTP endpoints for the permission registry.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	evaluator *Evaluator
	mw        Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, evaluator *Evaluator, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		evaluator: evaluator,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAdmin)
		r.Get("/", h.listPermissions)
		r.Post("/", h.createPermission)
		r.Delete("/{id}", h.deletePermission)
		r.Get("/grants/{accountID}", h.listGrants)
		r.Post("/grant", h.grant)
		r.Post("/revoke", h.revoke)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireSession)
		r.Get("/tools", h.myTools)
		// Per-tool probes let the client check access before opening a tool.
		for _, tool := range KnownTools() {
			r.With(h.mw.RequireTool(tool)).Get("/tools/"+tool, h.toolAccess)
		}
	})
}

func (h *Handler) toolAccess(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.registry.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if defs == nil {
		defs = []Definition{}
	}
	httpx.JSON(w, http.StatusOK, defs)
}

type createPermissionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Tool        string `json:"tool" validate:"required"`
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	id, err := h.registry.CreatePermission(r.Context(), req.Name, req.Description, req.Tool)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("create permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeletePermission(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.registry.ListGrants(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if grants == nil {
		grants = []Grant{}
	}
	httpx.JSON(w, http.StatusOK, grants)
}

type grantRequest struct {
	AccountID    string `json:"accountId" validate:"required"`
	PermissionID string `json:"permissionId" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.registry.GrantPermission(r.Context(), req.AccountID, req.PermissionID, sess.AccountID()); err != nil {
		h.logger.Error("grant permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.registry.RevokePermission(r.Context(), req.AccountID, req.PermissionID); err != nil {
		h.logger.Error("revoke permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// myTools recomputes the caller's effective tools and refreshes the
// session's cached copy.
func (h *Handler) myTools(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var tools []string
	var err error
	if sess.Role() == shared.RoleAdmin {
		tools = KnownTools()
	} else {
		tools, err = h.evaluator.EffectiveTools(r.Context(), sess.AccountID())
		if err != nil {
			h.logger.Error("effective tools", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}
	sess.SetTools(tools)
	httpx.JSON(w, http.StatusOK, map[string][]string{"tools": tools})
}
