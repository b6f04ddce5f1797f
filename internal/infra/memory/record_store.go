package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// RecordStore is an in-memory implementation of app.RecordStore, used in
// tests and demo mode. The mutex is held across the whole write so
// concurrent read-modify-write cycles on a collection cannot lose updates.
type RecordStore struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		collections: make(map[string][]json.RawMessage),
	}
}

func (s *RecordStore) ReadAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.collections[collection]
	out := make([]json.RawMessage, len(records))
	copy(out, records)
	return out, nil
}

func (s *RecordStore) WriteAll(_ context.Context, collection string, records []json.RawMessage) error {
	stored := make([]json.RawMessage, len(records))
	copy(stored, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = stored
	return nil
}
