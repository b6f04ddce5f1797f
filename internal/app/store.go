package app

import (
	"context"
	"encoding/json"

	"eventqa-service/internal/domain"
)

// Collection names used by the engines. Each maps to one JSON file, one
// jsonb row, or one in-memory slice depending on the store implementation.
const (
	CollectionEvents    = "events"
	CollectionQuestions = "questions"
	CollectionAnswers   = "answers"
	CollectionUsers     = "users"
	CollectionAiAudits  = "ai_audit"
)

// RecordStore abstracts persistence keyed by collection name. ReadAll
// returns an empty list for a missing or unreadable collection; it never
// fails for absence. WriteAll replaces the whole collection, so callers own
// the read-modify-write cycle and implementations must serialize concurrent
// writers to the same collection.
type RecordStore interface {
	ReadAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	WriteAll(ctx context.Context, collection string, records []json.RawMessage) error
}

func readCollection[T any](ctx context.Context, store RecordStore, collection string) ([]T, error) {
	raw, err := store.ReadAll(ctx, collection)
	if err != nil {
		return nil, &domain.StoreError{Op: "read " + collection, Err: err}
	}
	items := make([]T, 0, len(raw))
	for _, record := range raw {
		var item T
		if err := json.Unmarshal(record, &item); err != nil {
			// Skip records that no longer match the schema rather than
			// failing the whole read; the contract treats corrupt data
			// as absent.
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func writeCollection[T any](ctx context.Context, store RecordStore, collection string, items []T) error {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		record, err := json.Marshal(item)
		if err != nil {
			return &domain.StoreError{Op: "encode " + collection, Err: err}
		}
		raw = append(raw, record)
	}
	if err := store.WriteAll(ctx, collection, raw); err != nil {
		return &domain.StoreError{Op: "write " + collection, Err: err}
	}
	return nil
}

// QuestionRepository resolves stored questions, correct choice included.
// Implementations may cache; StoreQuestions is the uncached store-backed one.
type QuestionRepository interface {
	QuestionByID(ctx context.Context, questionID string) (domain.Question, error)
	QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error)
}

// StoreQuestions reads questions straight from the record store.
type StoreQuestions struct {
	store RecordStore
}

func NewStoreQuestions(store RecordStore) *StoreQuestions {
	return &StoreQuestions{store: store}
}

func (s *StoreQuestions) QuestionByID(ctx context.Context, questionID string) (domain.Question, error) {
	questions, err := readCollection[domain.Question](ctx, s.store, CollectionQuestions)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *StoreQuestions) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	questions, err := readCollection[domain.Question](ctx, s.store, CollectionQuestions)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.EventID == eventID {
			matched = append(matched, q)
		}
	}
	return matched, nil
}
