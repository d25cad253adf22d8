package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
)

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL connection event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// eventRow is the flattened table shape; diagnosis columns are NULL when the
// event carries no diagnosis.
type eventRow struct {
	ID          string         `db:"id"`
	EventType   string         `db:"event_type"`
	Source      string         `db:"source"`
	RetryCount  int64          `db:"retry_count"`
	Breaker     string         `db:"breaker"`
	DelayMs     int64          `db:"delay_ms"`
	Kind        sql.NullString `db:"kind"`
	Code        sql.NullString `db:"code"`
	Recoverable sql.NullBool   `db:"recoverable"`
	Severity    sql.NullString `db:"severity"`
	Message     sql.NullString `db:"message"`
	UserMessage sql.NullString `db:"user_message"`
	Transport   sql.NullString `db:"transport"`
	DiagnosisAt sql.NullTime   `db:"diagnosis_at"`
	OccurredAt  time.Time      `db:"occurred_at"`
}

func toRow(ev *domain.ConnectionEvent) eventRow {
	row := eventRow{
		ID:         ev.ID,
		EventType:  string(ev.Type),
		Source:     ev.Source,
		RetryCount: int64(ev.RetryCount),
		Breaker:    ev.Breaker,
		DelayMs:    ev.Delay,
		OccurredAt: ev.OccurredAt,
	}
	if d := ev.Diagnosis; d != nil {
		row.Kind = sql.NullString{String: string(d.Kind), Valid: true}
		row.Code = sql.NullString{String: d.Code, Valid: true}
		row.Recoverable = sql.NullBool{Bool: d.Recoverable, Valid: true}
		row.Severity = sql.NullString{String: string(d.Severity), Valid: true}
		row.Message = sql.NullString{String: d.Message, Valid: true}
		row.UserMessage = sql.NullString{String: d.UserMessage, Valid: true}
		row.Transport = sql.NullString{String: string(d.Transport), Valid: true}
		row.DiagnosisAt = sql.NullTime{Time: d.OccurredAt, Valid: !d.OccurredAt.IsZero()}
	}
	return row
}

func (row eventRow) toDomain() *domain.ConnectionEvent {
	ev := &domain.ConnectionEvent{
		ID:         row.ID,
		Type:       domain.EventType(row.EventType),
		Source:     row.Source,
		RetryCount: uint(row.RetryCount),
		Breaker:    row.Breaker,
		Delay:      row.DelayMs,
		OccurredAt: row.OccurredAt,
	}
	if row.Kind.Valid {
		// Rows written before diagnosis_at existed fall back to the event time.
		diagnosedAt := row.OccurredAt
		if row.DiagnosisAt.Valid {
			diagnosedAt = row.DiagnosisAt.Time
		}
		ev.Diagnosis = &domain.Diagnosis{
			Kind:        domain.Kind(row.Kind.String),
			Code:        row.Code.String,
			Recoverable: row.Recoverable.Bool,
			Severity:    domain.Severity(row.Severity.String),
			Message:     row.Message.String,
			UserMessage: row.UserMessage.String,
			Transport:   domain.Transport(row.Transport.String),
			OccurredAt:  diagnosedAt,
		}
	}
	return ev
}

// Save inserts an event.
func (r *EventRepo) Save(ctx context.Context, ev *domain.ConnectionEvent) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}

	query := `
		INSERT INTO connection_events (
			id, event_type, source, retry_count, breaker, delay_ms,
			kind, code, recoverable, severity, message, user_message, transport, diagnosis_at, occurred_at
		) VALUES (
			:id, :event_type, :source, :retry_count, :breaker, :delay_ms,
			:kind, :code, :recoverable, :severity, :message, :user_message, :transport, :diagnosis_at, :occurred_at
		)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, toRow(ev)); err != nil {
		return fmt.Errorf("failed to save connection event: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, event_type, source, retry_count, breaker, delay_ms,
		       kind, code, recoverable, severity, message, user_message, transport, diagnosis_at, occurred_at
		FROM connection_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list connection events: %w", err)
	}

	out := make([]*domain.ConnectionEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// DeleteOlderThan removes events recorded before the given time.
func (r *EventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connection_events WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune connection events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned events: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (r *EventRepo) Close() error {
	return r.db.Close()
}
