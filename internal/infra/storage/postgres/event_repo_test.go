package postgres

import (
	"testing"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

func TestEventRow_RoundTripWithDiagnosis(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	diagnosedAt := at.Add(-3 * time.Second)
	ev := &domain.ConnectionEvent{
		ID:         "3f1c2b9e-0000-4000-8000-000000000001",
		Type:       domain.EventDisconnected,
		Source:     "health",
		RetryCount: 2,
		Breaker:    "CLOSED",
		OccurredAt: at,
		Diagnosis: &domain.Diagnosis{
			Kind:        domain.KindTimeout,
			Code:        "ETIMEDOUT",
			Recoverable: true,
			Severity:    domain.SeverityLow,
			Transport:   domain.TransportSocket,
			OccurredAt:  diagnosedAt,
		},
	}

	row := toRow(ev)
	if !row.Kind.Valid || row.Kind.String != "timeout" {
		t.Fatalf("expected kind column to be set, got %+v", row.Kind)
	}

	got := row.toDomain()
	if got.Diagnosis == nil || got.Diagnosis.Kind != domain.KindTimeout || !got.Diagnosis.Recoverable {
		t.Errorf("diagnosis lost in conversion: %+v", got.Diagnosis)
	}
	if !got.Diagnosis.OccurredAt.Equal(diagnosedAt) || !got.OccurredAt.Equal(at) {
		t.Errorf("timestamps not preserved: event=%v diagnosis=%v", got.OccurredAt, got.Diagnosis.OccurredAt)
	}
	if got.RetryCount != 2 || got.Source != "health" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestEventRow_NullDiagnosis(t *testing.T) {
	row := toRow(&domain.ConnectionEvent{ID: "x", Type: domain.EventConnected})
	if row.Kind.Valid || row.Recoverable.Valid {
		t.Error("diagnosis columns should be NULL for events without a diagnosis")
	}
	if row.toDomain().Diagnosis != nil {
		t.Error("expected nil diagnosis")
	}
}

func TestEventRow_LegacyRowWithoutDiagnosisTime(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	row := toRow(&domain.ConnectionEvent{
		ID: "y", Type: domain.EventDisconnected, OccurredAt: at,
		Diagnosis: &domain.Diagnosis{Kind: domain.KindTimeout},
	})
	if row.DiagnosisAt.Valid {
		t.Fatal("zero diagnosis time should be stored as NULL")
	}
	if got := row.toDomain(); !got.Diagnosis.OccurredAt.Equal(at) {
		t.Errorf("expected fallback to event time, got %v", got.Diagnosis.OccurredAt)
	}
}
