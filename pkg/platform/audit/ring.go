package audit

import (
	"context"
	"sync"
)

// DefaultRingCapacity bounds the in-process audit buffer.
const DefaultRingCapacity = 1024

// Ring keeps the most recent events in a fixed-size buffer, overwriting the
// oldest when full. It satisfies the ratelimit AuditPublisher port.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{events: make([]Event, capacity)}
}

func (r *Ring) Emit(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 means all.
func (r *Ring) Recent(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Event, 0, limit)
	for i := range limit {
		idx := (r.next - 1 - i + len(r.events)) % len(r.events)
		out = append(out, r.events[idx])
	}
	return out
}
