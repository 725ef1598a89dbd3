package exams

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/examforge/examforge/internal/accounts"
	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/platform/httpx"
	"github.com/examforge/examforge/internal/shared"
)

// Handler wires HTTP endpoints for exam results.
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

// MountRoutes registers exam result routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireSession)
		r.Post("/", h.save)
		r.Get("/", h.listMine)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAdmin)
		r.Get("/all", h.listAll)
	})
}

type saveResultRequest struct {
	ExamType            string         `json:"examType" validate:"required"`
	ExamDate            time.Time      `json:"examDate"`
	TotalQuestions      int            `json:"totalQuestions" validate:"gte=0"`
	CorrectAnswers      int            `json:"correctAnswers" validate:"gte=0"`
	WrongAnswers        int            `json:"wrongAnswers" validate:"gte=0"`
	UnansweredQuestions int            `json:"unansweredQuestions" validate:"gte=0"`
	TotalTime           int            `json:"totalTime" validate:"gte=0"`
	AverageTime         float64        `json:"averageTime" validate:"gte=0"`
	Score               int            `json:"score" validate:"gte=0,lte=100"`
	Evaluation          *Evaluation    `json:"evaluation"`
	Answers             map[int]string `json:"answers"`
	QuestionTimes       map[int]int    `json:"questionTimes"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveResultRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	result := Result{
		AccountID:           sess.AccountID(),
		ExamType:            req.ExamType,
		ExamDate:            req.ExamDate,
		TotalQuestions:      req.TotalQuestions,
		CorrectAnswers:      req.CorrectAnswers,
		WrongAnswers:        req.WrongAnswers,
		UnansweredQuestions: req.UnansweredQuestions,
		TotalTime:           req.TotalTime,
		AverageTime:         req.AverageTime,
		Score:               req.Score,
		Evaluation:          req.Evaluation,
		Answers:             req.Answers,
		QuestionTimes:       req.QuestionTimes,
	}
	id, err := h.service.Save(r.Context(), result)
	if err != nil {
		if errors.Is(err, ErrUnknownExamType) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("save exam result", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type resultListResponse struct {
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	results, err := h.service.ListByAccount(r.Context(), sess.AccountID())
	if err != nil {
		h.logger.Error("list exam results", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, results)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list all exam results", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, results)
}

func (h *Handler) respondList(w http.ResponseWriter, results []Result) {
	if results == nil {
		results = []Result{}
	}
	httpx.JSON(w, http.StatusOK, resultListResponse{Results: results, Stats: ComputeStats(results)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(r.Context(), callerFromSession(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), callerFromSession(r), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func callerFromSession(r *http.Request) *accounts.Account {
	sess := shared.SessionFromContext(r.Context())
	return &accounts.Account{ID: sess.AccountID(), Role: sess.Role()}
}
