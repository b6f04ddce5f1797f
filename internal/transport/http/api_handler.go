package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"eventqa-service/internal/app"
	"eventqa-service/internal/auth"
	"eventqa-service/internal/domain"
	"go.uber.org/zap"
)

// QuestionInvalidator drops cached question sets after generation writes a
// new batch. Nil when no cache is wired.
type QuestionInvalidator interface {
	Invalidate(eventID string)
}

// APIHandler exposes the engines over REST.
type APIHandler struct {
	events      *app.EventService
	answers     *app.AnswerService
	aggregates  *app.AggregateService
	exports     *app.ExportService
	generator   *app.GenerateService
	questions   app.QuestionRepository
	auth        *auth.Service
	limiter     app.RateLimiter
	invalidator QuestionInvalidator
	log         *zap.Logger
}

func NewAPIHandler(
	events *app.EventService,
	answers *app.AnswerService,
	aggregates *app.AggregateService,
	exports *app.ExportService,
	generator *app.GenerateService,
	questions app.QuestionRepository,
	authSvc *auth.Service,
	limiter app.RateLimiter,
	invalidator QuestionInvalidator,
	log *zap.Logger,
) *APIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{
		events:      events,
		answers:     answers,
		aggregates:  aggregates,
		exports:     exports,
		generator:   generator,
		questions:   questions,
		auth:        authSvc,
		limiter:     limiter,
		invalidator: invalidator,
		log:         log,
	}
}

// Register mounts all REST routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/events", h.withIPLimit(h.listEvents))
	mux.Handle("POST /api/events", h.withIPLimit(h.createEvent))
	mux.Handle("GET /api/events/{id}", h.withIPLimit(h.getEvent))
	mux.Handle("PATCH /api/events/{id}", h.withIPLimit(h.updateEvent))
	mux.Handle("GET /api/events/{id}/questions", h.withIPLimit(h.listQuestions))
	mux.Handle("POST /api/events/{id}/generate-questions", h.withIPLimit(h.generateQuestions))
	mux.Handle("GET /api/events/{id}/audits", h.withIPLimit(h.listAudits))
	mux.Handle("GET /api/events/{id}/aggregates", h.withIPLimit(h.userAggregates))
	mux.Handle("GET /api/events/{id}/stats", h.withIPLimit(h.eventStats))
	mux.Handle("GET /api/events/{id}/answers", h.withIPLimit(h.exportAnswers))
	mux.Handle("POST /api/events/{id}/answers", h.withIPLimit(h.submitAnswerBatch))
	mux.Handle("POST /api/questions/{id}/answers", h.withIPLimit(h.submitAnswer))
}

type apiResponse struct {
	Success     bool                `json:"success"`
	Data        any                 `json:"data,omitempty"`
	Error       string              `json:"error,omitempty"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

func (h *APIHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context(), !h.auth.IsAdmin())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, events)
}

func (h *APIHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	var input app.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.CreatedBy = h.auth.CurrentUser().ID
	event, err := h.events.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, event)
}

func (h *APIHandler) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, event)
}

func (h *APIHandler) updateEvent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	var input app.UpdateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event, err := h.events.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, event)
}

func (h *APIHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	questions, err := h.questions.QuestionsByEvent(r.Context(), event.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	public := make([]domain.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.Public())
	}
	h.writeData(w, http.StatusOK, public)
}

func (h *APIHandler) generateQuestions(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	adminID := h.auth.CurrentUser().ID
	if !h.allow(w, r, app.OpAIGeneration, adminID, "Rate limit exceeded. Maximum 5 generations per hour.") {
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.generator.Generate(r.Context(), event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(event.ID)
	}
	h.writeData(w, http.StatusCreated, result)
}

func (h *APIHandler) listAudits(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	audits, err := h.generator.Audits(r.Context(), event.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, audits)
}

type submitAnswerRequest struct {
	SelectedChoice string `json:"selected_choice"`
	UserID         string `json:"user_id"`
}

type submitAnswerResponse struct {
	AnswerID  string `json:"answer_id"`
	IsCorrect bool   `json:"is_correct"`
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID != "" {
		if !h.allow(w, r, app.OpAnswerSubmission, req.UserID, "Rate limit exceeded. Please try again later.") {
			return
		}
	}
	answer, err := h.answers.SubmitAnswer(r.Context(), r.PathValue("id"), req.UserID, req.SelectedChoice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, submitAnswerResponse{
		AnswerID:  answer.ID,
		IsCorrect: answer.IsCorrect,
	})
}

type submitBatchRequest struct {
	UserID  string            `json:"user_id"`
	Answers map[string]string `json:"answers"`
}

func (h *APIHandler) submitAnswerBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID != "" {
		if !h.allow(w, r, app.OpAnswerSubmission, req.UserID, "Rate limit exceeded. Please try again later.") {
			return
		}
	}
	result, err := h.answers.SubmitAnswerBatch(r.Context(), r.PathValue("id"), req.UserID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, result)
}

type aggregatesResponse struct {
	Event      domain.Event           `json:"event"`
	Aggregates []domain.UserAggregate `json:"aggregates"`
}

func (h *APIHandler) userAggregates(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	aggregates, err := h.aggregates.UserAggregates(r.Context(), event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, aggregatesResponse{Event: event, Aggregates: aggregates})
}

func (h *APIHandler) eventStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	stats, err := h.aggregates.EventStats(r.Context(), event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}

func (h *APIHandler) exportAnswers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	event, err := h.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = app.FormatCSV
	}
	anonymized := r.URL.Query().Get("anonymized") == "true"

	csv, err := h.exports.ExportAnswers(r.Context(), event, format, anonymized)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "event-"+event.ID+"-answers.csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))
}

// withIPLimit applies the general per-IP API quota before the route handler.
func (h *APIHandler) withIPLimit(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil {
			result, err := h.limiter.Allow(r.Context(), app.OpAPICall, clientIP(r))
			if err != nil {
				h.log.Warn("rate limit check failed", zap.Error(err))
			} else if !result.Allowed {
				h.writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}
		}
		next(w, r)
	})
}

// allow checks a per-actor quota; it writes the 429 itself and reports
// whether the request may proceed.
func (h *APIHandler) allow(w http.ResponseWriter, r *http.Request, op app.Operation, actor, message string) bool {
	if h.limiter == nil {
		return true
	}
	result, err := h.limiter.Allow(r.Context(), op, actor)
	if err != nil {
		// A broken limiter backend must not take submissions down with it.
		h.log.Warn("rate limit check failed", zap.String("op", string(op)), zap.Error(err))
		return true
	}
	if !result.Allowed {
		h.writeMessage(w, http.StatusTooManyRequests, message)
		return false
	}
	return true
}

func (h *APIHandler) requireAdmin(w http.ResponseWriter) bool {
	if h.auth.IsAdmin() {
		return true
	}
	h.writeMessage(w, http.StatusForbidden, "Unauthorized")
	return false
}

func (h *APIHandler) writeData(w http.ResponseWriter, status int, data any) {
	h.writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func (h *APIHandler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, apiResponse{Success: false, Error: message})
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, apiResponse{
			Success:     false,
			Error:       verr.Error(),
			FieldErrors: verr.Fields,
		})
		return
	}
	var incomplete *domain.IncompleteSubmissionError
	if errors.As(err, &incomplete) {
		h.writeMessage(w, http.StatusBadRequest, incomplete.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNoQuestions):
		h.writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateSubmission):
		h.writeMessage(w, http.StatusConflict, "You have already answered this question")
	case errors.Is(err, domain.ErrQuestionsExist):
		h.writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		h.writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		h.writeMessage(w, http.StatusBadRequest, "Only CSV format is supported")
	case errors.Is(err, domain.ErrForbidden):
		h.writeMessage(w, http.StatusForbidden, "Unauthorized")
	default:
		h.log.Error("internal error", zap.Error(err))
		h.writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
