package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventqa-service/internal/app"
	"eventqa-service/internal/auth"
	"eventqa-service/internal/domain"
	"eventqa-service/internal/infra/memory"
)

var handlerBaseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func seedHandlerCollection[T any](t *testing.T, store app.RecordStore, collection string, items []T) {
	t.Helper()
	records := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			t.Fatalf("marshal seed item: %v", err)
		}
		records = append(records, raw)
	}
	if err := store.WriteAll(context.Background(), collection, records); err != nil {
		t.Fatalf("seed %s: %v", collection, err)
	}
}

func newTestMux(t *testing.T, role domain.Role, limiter app.RateLimiter) (*http.ServeMux, *memory.RecordStore) {
	t.Helper()
	store := memory.NewRecordStore()
	seedHandlerCollection(t, store, app.CollectionEvents, []domain.Event{{
		ID:          "evt-1",
		Title:       "Launch Party",
		Description: "Trivia for the launch",
		Status:      domain.EventPublished,
		CreatedAt:   handlerBaseTime,
	}})
	seedHandlerCollection(t, store, app.CollectionQuestions, []domain.Question{{
		ID:      "q1",
		EventID: "evt-1",
		Text:    "Pick the right answer",
		Choices: []domain.Choice{
			{ID: "A", Text: "Right"},
			{ID: "B", Text: "Wrong"},
		},
		CorrectChoice: "A",
		CreatedAt:     handlerBaseTime,
	}})
	seedHandlerCollection(t, store, app.CollectionUsers, []domain.User{
		{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser, CreatedAt: handlerBaseTime},
	})

	questions := app.NewStoreQuestions(store)
	authSvc := auth.NewService(&domain.User{ID: "actor-1", Name: "Actor", Role: role})
	handler := NewAPIHandler(
		app.NewEventService(store),
		app.NewAnswerService(store, questions, nil, nil),
		app.NewAggregateService(store, questions),
		app.NewExportService(store, questions),
		app.NewGenerateService(store, questions),
		questions,
		authSvc,
		limiter,
		nil,
		nil,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestSubmitAnswerEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"u1","selected_choice":"A"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	if data["is_correct"] != true {
		t.Fatalf("expected correct answer, got %v", data)
	}
	if data["answer_id"] == "" {
		t.Fatalf("expected answer id in response")
	}
}

func TestSubmitAnswerEndpointDuplicate(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	first := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"u1","selected_choice":"A"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first submit: %d", first.Code)
	}
	second := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"u1","selected_choice":"B"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", second.Code, second.Body.String())
	}
}

func TestSubmitAnswerEndpointValidation(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"","selected_choice":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	fields, ok := body["field_errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected field_errors, got %s", rec.Body.String())
	}
	if _, ok := fields["user_id"]; !ok {
		t.Fatalf("expected user_id field error, got %v", fields)
	}
}

func TestSubmitAnswerEndpointUnknownQuestion(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/questions/q-missing/answers",
		`{"user_id":"u1","selected_choice":"A"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitAnswerEndpointRateLimited(t *testing.T) {
	limiter := memory.NewRateLimiter(map[app.Operation]app.Limit{
		app.OpAnswerSubmission: {Requests: 1, Window: time.Minute},
	})
	mux, _ := newTestMux(t, domain.RoleUser, limiter)

	first := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"u1","selected_choice":"A"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first submit: %d", first.Code)
	}
	second := doJSON(t, mux, http.MethodPost, "/api/questions/q1/answers",
		`{"user_id":"u1","selected_choice":"A"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", second.Code, second.Body.String())
	}
}

func TestIPLimitAppliesToAllRoutes(t *testing.T) {
	limiter := memory.NewRateLimiter(map[app.Operation]app.Limit{
		app.OpAPICall: {Requests: 2, Window: time.Minute},
	})
	mux, _ := newTestMux(t, domain.RoleUser, limiter)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, mux, http.MethodGet, "/api/events", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := doJSON(t, mux, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after quota, got %d", rec.Code)
	}
}

func TestListEventsFiltersForNonAdmins(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleUser, nil)
	seedHandlerCollection(t, store, app.CollectionEvents, []domain.Event{
		{ID: "evt-1", Title: "Published", Status: domain.EventPublished},
		{ID: "evt-2", Title: "Draft", Status: domain.EventDraft},
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	events := body["data"].([]any)
	if len(events) != 1 {
		t.Fatalf("expected drafts hidden from users, got %d events", len(events))
	}
}

func TestCreateEventRequiresAdmin(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/events",
		`{"title":"New Event","description":"desc"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreateEventAsAdmin(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleAdmin, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/events",
		`{"title":"New Event","description":"desc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	if data["status"] != "draft" {
		t.Fatalf("expected draft status, got %v", data["status"])
	}
	if data["created_by"] != "actor-1" {
		t.Fatalf("expected creator recorded, got %v", data["created_by"])
	}
}

func TestGetEventNotFound(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListQuestionsOmitsCorrectChoice(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/questions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_choice") {
		t.Fatalf("question listing must not expose the answer key:\n%s", rec.Body.String())
	}
}

func TestEventStatsEndpoint(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleAdmin, nil)
	seedHandlerCollection(t, store, app.CollectionAnswers, []domain.Answer{
		{ID: "a1", QuestionID: "q1", UserID: "u1", SelectedChoice: "A", IsCorrect: true, CreatedAt: handlerBaseTime},
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	if data["total_respondents"] != float64(1) {
		t.Fatalf("expected 1 respondent, got %v", data["total_respondents"])
	}
}

func TestEventStatsRequiresAdmin(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/stats", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUserAggregatesEndpoint(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleAdmin, nil)
	seedHandlerCollection(t, store, app.CollectionAnswers, []domain.Answer{
		{ID: "a1", QuestionID: "q1", UserID: "u1", SelectedChoice: "A", IsCorrect: true, CreatedAt: handlerBaseTime},
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/aggregates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	if _, ok := data["event"]; !ok {
		t.Fatalf("expected event in aggregates payload, got %v", data)
	}
	aggregates := data["aggregates"].([]any)
	if len(aggregates) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggregates))
	}
}

func TestExportEndpoint(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleAdmin, nil)
	seedHandlerCollection(t, store, app.CollectionAnswers, []domain.Answer{
		{ID: "a1", QuestionID: "q1", UserID: "u1", SelectedChoice: "A", IsCorrect: true, CreatedAt: handlerBaseTime},
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/answers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Answer ID,") {
		t.Fatalf("expected csv body, got %q", rec.Body.String())
	}
}

func TestExportEndpointRejectsUnknownFormat(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleAdmin, nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/events/evt-1/answers?format=xml", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != "Only CSV format is supported" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestGenerateEndpoint(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleAdmin, nil)
	// evt-2 has no questions yet.
	seedHandlerCollection(t, store, app.CollectionEvents, []domain.Event{
		{ID: "evt-2", Title: "Fresh", Status: domain.EventDraft},
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/events/evt-2/generate-questions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	questions := data["questions"].([]any)
	if len(questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(questions))
	}

	// Re-running against the same event conflicts.
	again := doJSON(t, mux, http.MethodPost, "/api/events/evt-2/generate-questions", "")
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", again.Code)
	}
}

func TestBatchSubmitEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, domain.RoleUser, nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/events/evt-1/answers",
		`{"user_id":"u1","answers":{"q1":"A"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]any)
	if data["total_correct"] != float64(1) {
		t.Fatalf("expected 1 correct, got %v", data)
	}
}

func TestBatchSubmitEndpointIncomplete(t *testing.T) {
	mux, store := newTestMux(t, domain.RoleUser, nil)
	seedHandlerCollection(t, store, app.CollectionQuestions, []domain.Question{
		{ID: "q1", EventID: "evt-1", Text: "First", Choices: []domain.Choice{{ID: "A", Text: "Right"}}, CorrectChoice: "A"},
		{ID: "q2", EventID: "evt-1", Text: "Second", Choices: []domain.Choice{{ID: "A", Text: "Right"}}, CorrectChoice: "A"},
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/events/evt-1/answers",
		`{"user_id":"u1","answers":{"q1":"A"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClientIPResolution(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.RemoteAddr = "192.0.2.10:4242"
	if got := clientIP(req); got != "192.0.2.10" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-IP", "203.0.113.5")
	if got := clientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := clientIP(req); got != "198.51.100.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
