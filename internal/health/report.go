package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/classify"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/supervisor"
)

const recentEventLimit = 20

// EventSource returns recent connection events.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error)
}

// Reporter builds health reports from the supervisor.
type Reporter struct {
	sup    *supervisor.Supervisor
	events EventSource
	now    func() time.Time
}

// NewReporter creates a reporter. events may be nil.
func NewReporter(sup *supervisor.Supervisor, events EventSource) *Reporter {
	return &Reporter{sup: sup, events: events, now: time.Now}
}

// Check builds the /health report. A connected supervisor is verified with
// a live round-trip first, and the report is read from the supervisor after
// the round-trip so a failed check is reflected in every field.
func (r *Reporter) Check(ctx context.Context) Report {
	var (
		version  *docker.VersionInfo
		checkErr error
	)
	if r.sup.IsConnected() {
		version, checkErr = r.liveCheck(ctx)
	}

	rep := r.snapshot()
	rep.Docker = version

	switch rep.Service {
	case domain.ServiceAvailable:
		rep.Status = StatusOK
	case domain.ServiceDegraded:
		rep.Status = StatusDegraded
	default:
		rep.Status = StatusError
	}

	if checkErr != nil {
		d, ok := supervisor.DiagnosisOf(checkErr)
		if ok {
			rep.CheckError = &d
		}
		// The supervisor still considers the connection healthy, so the
		// failure was a rejected request rather than a lost daemon.
		if rep.Status == StatusOK {
			rep.Status = StatusError
			rep.Message = checkErr.Error()
			if ok {
				rep.Message = d.UserMessage
				rep.Reason = d.UserMessage
			}
		}
	}
	return rep
}

func (r *Reporter) snapshot() Report {
	service := r.sup.ServiceStatus()
	state := r.sup.ConnectionState()
	stats := r.sup.ConnectionStats()

	rep := Report{
		Service:        service.Status,
		Message:        service.Message,
		Connection:     state,
		CircuitBreaker: r.sup.BreakerSnapshot(),
		Timestamp:      r.now(),
	}
	if state.Retrying || state.RetryCount > 0 {
		rep.Retry = &RetryInfo{
			Retrying:    state.Retrying,
			Attempt:     state.RetryCount,
			MaxAttempts: stats.Config.ReconnectAttempts,
			NextRetryAt: state.NextRetryAt,
		}
	}
	if d := state.LastError; d != nil && !state.Connected {
		rep.Reason = d.UserMessage
		if !d.Recoverable {
			rep.Resolution = classify.Resolution(d.Kind)
		}
	}
	return rep
}

func (r *Reporter) liveCheck(ctx context.Context) (*docker.VersionInfo, error) {
	_, err := supervisor.Execute(ctx, r.sup, "health check",
		func(ctx context.Context, api docker.API) (struct{}, error) {
			return struct{}{}, api.Probe(ctx)
		},
		supervisor.Options[struct{}]{},
	)
	if err != nil {
		return nil, err
	}

	v, _ := supervisor.Execute(ctx, r.sup, "docker version",
		func(ctx context.Context, api docker.API) (*docker.VersionInfo, error) {
			return api.Version(ctx)
		},
		supervisor.Options[*docker.VersionInfo]{AllowDegraded: true},
	)
	return v, nil
}

// Detailed builds the /health/detailed report.
func (r *Reporter) Detailed(ctx context.Context) DetailedReport {
	rep := DetailedReport{Report: r.Check(ctx)}
	if rep.Status == StatusOK {
		rep.Daemon, _ = supervisor.Execute(ctx, r.sup, "docker info",
			func(ctx context.Context, api docker.API) (*docker.SystemInfo, error) {
				return api.Info(ctx)
			},
			supervisor.Options[*docker.SystemInfo]{AllowDegraded: true},
		)
	}
	rep.Stats = r.sup.ConnectionStats()
	if d := rep.Connection.LastError; d != nil {
		t := classify.Troubleshoot(*d)
		rep.Troubleshooting = &t
	}
	if r.events != nil {
		events, err := r.events.Recent(ctx, recentEventLimit)
		if err != nil {
			slog.Warn("Failed to load recent connection events", "error", err)
		} else {
			rep.RecentEvents = events
		}
	}
	return rep
}
