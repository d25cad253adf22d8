package memory

import (
	"context"
	"sync"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
)

// DefaultCapacity is the number of events kept when none is configured.
const DefaultCapacity = 500

// EventRepo is a bounded in-memory ring of connection events.
type EventRepo struct {
	mu     sync.RWMutex
	events []*domain.ConnectionEvent
	next   int
	full   bool
}

func NewEventRepo(capacity int) *EventRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventRepo{events: make([]*domain.ConnectionEvent, capacity)}
}

func (r *EventRepo) Save(ctx context.Context, ev *domain.ConnectionEvent) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}
	cp := *ev

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = &cp
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

func (r *EventRepo) Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]*domain.ConnectionEvent, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.next - 1 - i + len(r.events)) % len(r.events)
		cp := *r.events[idx]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *EventRepo) Close() error { return nil }
