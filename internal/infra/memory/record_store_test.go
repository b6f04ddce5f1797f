package memory

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRecordStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	records := []json.RawMessage{
		json.RawMessage(`{"id":"a"}`),
		json.RawMessage(`{"id":"b"}`),
	}
	if err := store.WriteAll(ctx, "events", records); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.ReadAll(ctx, "events")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || string(got[0]) != `{"id":"a"}` {
		t.Fatalf("unexpected records: %v", got)
	}
}

func TestRecordStoreMissingCollectionIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	got, err := store.ReadAll(ctx, "never-written")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(got))
	}
}

func TestRecordStoreCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	records := []json.RawMessage{json.RawMessage(`{"id":"a"}`)}
	if err := store.WriteAll(ctx, "events", records); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Mutating the caller's slice must not reach the store.
	records[0] = json.RawMessage(`{"id":"mutated"}`)

	got, err := store.ReadAll(ctx, "events")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got[0]) != `{"id":"a"}` {
		t.Fatalf("store shares backing slice with caller: %s", got[0])
	}

	// Same on the read side.
	got[0] = json.RawMessage(`{"id":"mutated"}`)
	again, err := store.ReadAll(ctx, "events")
	if err != nil {
		t.Fatalf("read again: %v", err)
	}
	if string(again[0]) != `{"id":"a"}` {
		t.Fatalf("read returned shared backing slice: %s", again[0])
	}
}

func TestRecordStoreWriteReplacesCollection(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	if err := store.WriteAll(ctx, "events", []json.RawMessage{json.RawMessage(`{"id":"a"}`)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.WriteAll(ctx, "events", []json.RawMessage{json.RawMessage(`{"id":"b"}`)}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := store.ReadAll(ctx, "events")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || string(got[0]) != `{"id":"b"}` {
		t.Fatalf("write must replace the whole collection, got %v", got)
	}
}
