package support

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/examforge/examforge/internal/accounts"
	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/platform/httpx"
	"github.com/examforge/examforge/internal/shared"
)

// Handler wires HTTP endpoints for the support panel.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	accounts  *accounts.Service
	mw        permissions.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, accountsSvc *accounts.Service, mw permissions.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		accounts:  accountsSvc,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers support routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireSession)
		r.Post("/tickets", h.createTicket)
		r.Get("/tickets", h.listMine)
		r.Get("/tickets/{id}/messages", h.getMessages)
		r.Post("/tickets/{id}/messages", h.sendMessage)
		r.Post("/tickets/{id}/read", h.markRead)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAdmin)
		r.Get("/tickets/all", h.listAll)
		r.Patch("/tickets/{id}/status", h.updateStatus)
	})
}

type createTicketRequest struct {
	Subject  string `json:"subject" validate:"required"`
	Priority string `json:"priority"`
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	acct, err := h.accounts.GetAccount(r.Context(), sess.AccountID())
	if err != nil {
		h.logger.Error("load requester account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateTicket(r.Context(), acct.ID, acct.Email, displayName(acct), req.Subject, req.Priority)
	if err != nil {
		if errors.Is(err, ErrInvalidPriority) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("create ticket", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type ticketListResponse struct {
	Tickets []Ticket `json:"tickets"`
	Unread  int      `json:"unread"`
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	tickets, err := h.service.ListByAccount(r.Context(), sess.AccountID())
	if err != nil {
		h.logger.Error("list tickets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	unread, err := h.service.UnreadForAccount(r.Context(), sess.AccountID())
	if err != nil {
		h.logger.Error("count unread", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if tickets == nil {
		tickets = []Ticket{}
	}
	httpx.JSON(w, http.StatusOK, ticketListResponse{Tickets: tickets, Unread: unread})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list all tickets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	unread, err := h.service.UnreadForAdmin(r.Context())
	if err != nil {
		h.logger.Error("count unread", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if tickets == nil {
		tickets = []Ticket{}
	}
	httpx.JSON(w, http.StatusOK, ticketListResponse{Tickets: tickets, Unread: unread})
}

func (h *Handler) getMessages(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	ticket, err := h.service.GetTicket(r.Context(), ticketID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !CanAccess(ticket, sess.AccountID(), sess.Role() == accounts.RoleAdmin) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	msgs, err := h.service.GetMessages(r.Context(), ticketID)
	if err != nil {
		h.logger.Error("get messages", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	httpx.JSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ticketID := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())
	isAdmin := sess.Role() == accounts.RoleAdmin

	ticket, err := h.service.GetTicket(r.Context(), ticketID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !CanAccess(ticket, sess.AccountID(), isAdmin) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), sess.AccountID())
	if err != nil {
		h.logger.Error("load sender account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	senderType := SenderUser
	if isAdmin {
		senderType = SenderAdmin
	}
	id, err := h.service.SendMessage(r.Context(), ticketID, acct.ID, displayName(acct), senderType, req.Message)
	if err != nil {
		h.logger.Error("send message", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	isAdmin := sess.Role() == accounts.RoleAdmin

	ticket, err := h.service.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !CanAccess(ticket, sess.AccountID(), isAdmin) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	if err := h.service.MarkRead(r.Context(), ticket.ID, isAdmin); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func displayName(acct *accounts.Account) string {
	name := strings.TrimSpace(acct.FirstName + " " + acct.LastName)
	if name == "" {
		return acct.Email
	}
	return name
}
