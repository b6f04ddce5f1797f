package app

import (
	"context"
	"sync"

	"eventqa-service/internal/domain"
)

// SnapshotFunc computes the current stats snapshot for an event. The hub
// stays decoupled from the aggregate and event services through it.
type SnapshotFunc func(ctx context.Context, eventID string) (domain.EventStats, error)

// ResultsHub fans out per-event stats snapshots to live subscribers. A
// snapshot is pushed on subscribe and after every accepted submission.
type ResultsHub struct {
	snapshot SnapshotFunc

	mu   sync.Mutex
	subs map[string]map[chan domain.EventStats]struct{}
}

func NewResultsHub(snapshot SnapshotFunc) *ResultsHub {
	return &ResultsHub{
		snapshot: snapshot,
		subs:     make(map[string]map[chan domain.EventStats]struct{}),
	}
}

// Subscribe registers a listener for an event's stats updates and delivers
// the current snapshot immediately. The caller must invoke the returned
// cancel function to avoid leaks.
func (h *ResultsHub) Subscribe(ctx context.Context, eventID string) (<-chan domain.EventStats, func(), error) {
	initial, err := h.snapshot(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.EventStats, 8)

	h.mu.Lock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[chan domain.EventStats]struct{})
	}
	h.subs[eventID][ch] = struct{}{}
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		listeners, ok := h.subs[eventID]
		if !ok {
			return
		}
		if _, ok := listeners[ch]; ok {
			delete(listeners, ch)
			close(ch)
		}
		if len(listeners) == 0 {
			delete(h.subs, eventID)
		}
	}
	return ch, cancel, nil
}

// Publish recomputes the event's snapshot and broadcasts it. Slow listeners
// have their stale snapshot dropped so a single stuck client cannot block
// the broadcast.
func (h *ResultsHub) Publish(ctx context.Context, eventID string) error {
	h.mu.Lock()
	empty := len(h.subs[eventID]) == 0
	h.mu.Unlock()
	if empty {
		return nil
	}

	stats, err := h.snapshot(ctx, eventID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[eventID] {
		select {
		case ch <- stats:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
	return nil
}
