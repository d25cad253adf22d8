package storage

import (
	"context"
	"errors"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

var (
	// ErrInvalidEvent is returned when an event is missing its ID or type
	ErrInvalidEvent = errors.New("invalid connection event")
)

// EventRepository persists connection lifecycle events
type EventRepository interface {
	// Save appends an event
	Save(ctx context.Context, ev *domain.ConnectionEvent) error

	// Recent returns up to limit events, newest first
	Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error)

	// Close releases the underlying connection
	Close() error
}

// Validate checks the fields every repository requires.
func Validate(ev *domain.ConnectionEvent) error {
	if ev == nil || ev.ID == "" || ev.Type == "" {
		return ErrInvalidEvent
	}
	return nil
}

// Pruner is implemented by repositories whose growth is not bounded by the
// store itself.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
