package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"eventqa-service/internal/app"
	"eventqa-service/internal/domain"
	"eventqa-service/internal/infra/memory"
)

// Shared fixtures for the engine tests: one event with one two-choice
// question, plus helpers to seed arbitrary collections.

var baseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func seedCollection[T any](t *testing.T, store app.RecordStore, collection string, items []T) {
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

func sampleEvent() domain.Event {
	return domain.Event{
		ID:          "evt-1",
		Title:       "Launch Party",
		Description: "Trivia for the launch",
		Status:      domain.EventPublished,
		CreatedBy:   "admin-001",
		CreatedAt:   baseTime,
	}
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:      "q1",
		EventID: "evt-1",
		Text:    "Pick the right answer",
		Choices: []domain.Choice{
			{ID: "A", Text: "Right"},
			{ID: "B", Text: "Wrong"},
		},
		CorrectChoice: "A",
		CreatedAt:     baseTime,
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser, CreatedAt: baseTime},
		{ID: "u2", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser, CreatedAt: baseTime},
		{ID: "u3", Name: "Carol", Email: "carol@example.com", Role: domain.RoleUser, CreatedAt: baseTime},
	}
}

func newSeededStore(t *testing.T) *memory.RecordStore {
	t.Helper()
	store := memory.NewRecordStore()
	seedCollection(t, store, app.CollectionEvents, []domain.Event{sampleEvent()})
	seedCollection(t, store, app.CollectionQuestions, []domain.Question{sampleQuestion()})
	seedCollection(t, store, app.CollectionUsers, sampleUsers())
	return store
}

func readAnswers(t *testing.T, store app.RecordStore) []domain.Answer {
	t.Helper()
	raw, err := store.ReadAll(context.Background(), app.CollectionAnswers)
	if err != nil {
		t.Fatalf("read answers: %v", err)
	}
	answers := make([]domain.Answer, 0, len(raw))
	for _, record := range raw {
		var answer domain.Answer
		if err := json.Unmarshal(record, &answer); err != nil {
			t.Fatalf("unmarshal answer: %v", err)
		}
		answers = append(answers, answer)
	}
	return answers
}
