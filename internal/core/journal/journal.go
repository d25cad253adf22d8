// Package journal records connection lifecycle events without blocking the
// caller. Events are queued and written to the configured repository by a
// single background writer.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
	"github.com/smashingtags/homelabarr-containers/internal/metrics"
)

const (
	DefaultQueueSize = 256
	flushTimeout     = 5 * time.Second
)

type Journal struct {
	repo  storage.EventRepository
	queue chan *domain.ConnectionEvent
	now   func() time.Time
	newID func() string
}

func New(repo storage.EventRepository, queueSize int) *Journal {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Journal{
		repo:  repo,
		queue: make(chan *domain.ConnectionEvent, queueSize),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record enqueues an event, assigning its ID and timestamp when unset.
// A full queue drops the event.
func (j *Journal) Record(ev domain.ConnectionEvent) {
	if ev.ID == "" {
		ev.ID = j.newID()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = j.now()
	}

	select {
	case j.queue <- &ev:
	default:
		metrics.JournalDroppedTotal.Inc()
		slog.Warn("Connection journal queue full, dropping event", "type", ev.Type)
	}
}

// Run writes queued events until ctx is cancelled, then flushes what is left.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			j.flush()
			return nil
		case ev := <-j.queue:
			j.write(ctx, ev)
		}
	}
}

func (j *Journal) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case ev := <-j.queue:
			j.write(ctx, ev)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, ev *domain.ConnectionEvent) {
	if err := j.repo.Save(ctx, ev); err != nil {
		slog.Error("Failed to persist connection event", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

// Recent returns persisted events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error) {
	return j.repo.Recent(ctx, limit)
}

// Close releases the repository.
func (j *Journal) Close() error {
	return j.repo.Close()
}
