// Package jsonstore persists collections as JSON files, one per collection,
// under a data directory. It is the reference persistence for this service,
// standing in for a database.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store implements app.RecordStore on the filesystem. A missing or corrupt
// file reads as an empty collection; writes replace the whole file. Each
// collection has its own lock so concurrent read-modify-write cycles are
// serialized per collection, not globally.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) ReadAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()
	return s.readLocked(collection)
}

func (s *Store) WriteAll(_ context.Context, collection string, records []json.RawMessage) error {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}

	// Write-then-rename so readers never observe a half-written file.
	path := s.path(collection)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace collection %s: %w", collection, err)
	}
	return nil
}

func (s *Store) readLocked(collection string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		// Corrupt files read as empty per the store contract.
		return []json.RawMessage{}, nil
	}
	return records, nil
}

func (s *Store) collectionLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[collection] = lock
	}
	return lock
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}
