package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
	"github.com/smashingtags/homelabarr-containers/internal/metrics"
)

// DefaultOperationRetries is the retry count used by idempotent reads.
const DefaultOperationRetries = 2

// Options controls a single resilient operation.
type Options[T any] struct {
	// AllowDegraded returns Fallback instead of an error when the daemon is
	// unavailable or the operation ultimately fails.
	AllowDegraded bool
	Fallback      T

	// MaxOperationRetries is the number of extra invocations after the
	// first. Use 0 for operations that are not idempotent.
	MaxOperationRetries uint
}

// Execute runs op against the daemon client with retry and fallback.
func Execute[T any](
	ctx context.Context,
	s *Supervisor,
	name string,
	op func(ctx context.Context, api docker.API) (T, error),
	opts Options[T],
) (T, error) {
	start := time.Now()
	defer func() {
		metrics.OperationLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	if !s.IsConnected() {
		report := s.ServiceStatus()
		if opts.AllowDegraded {
			s.log.Warn("Operation skipped, Docker unavailable",
				"operation", name,
				"status", report.Status,
				"fallback", true,
			)
			metrics.OperationsTotal.WithLabelValues(name, "fallback").Inc()
			return opts.Fallback, nil
		}
		metrics.OperationsTotal.WithLabelValues(name, "unavailable").Inc()
		var zero T
		return zero, &UnavailableError{Op: name, Status: report, LastError: s.lastError()}
	}

	var (
		result  T
		lastErr *DaemonError
		attempt uint
	)
	b := retry.WithMaxRetries(uint64(opts.MaxOperationRetries), retry.NewConstant(s.operationBackoff()))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := s.withTimeout(ctx)
		v, err := op(callCtx, s.client)
		cancel()
		if err == nil {
			result = v
			return nil
		}

		d := s.classifier.Classify(err, s.cfg.Endpoint.Transport)
		lastErr = &DaemonError{Op: name, Diagnosis: d, Err: err}
		s.log.Warn("Operation attempt failed",
			"operation", name,
			"attempt", attempt,
			"max_attempts", opts.MaxOperationRetries+1,
			"kind", d.Kind,
			"recoverable", d.Recoverable,
			"error", err,
		)

		if d.Kind.IsConnectionCategory() {
			s.operationConnectionFailure(err, name)
		}
		if !d.Recoverable {
			return lastErr
		}
		return retry.RetryableError(lastErr)
	})
	if err == nil {
		metrics.OperationsTotal.WithLabelValues(name, "success").Inc()
		if attempt > 1 {
			s.log.Debug("Operation succeeded after retry", "operation", name, "attempt", attempt)
		}
		return result, nil
	}

	if lastErr == nil || !errors.Is(err, lastErr) {
		// Context cancelled between attempts.
		var zero T
		metrics.OperationsTotal.WithLabelValues(name, "failure").Inc()
		return zero, err
	}

	if opts.AllowDegraded {
		s.log.Warn("Operation failed after retries, using fallback",
			"operation", name,
			"attempts", attempt,
			"kind", lastErr.Diagnosis.Kind,
		)
		metrics.OperationsTotal.WithLabelValues(name, "fallback").Inc()
		return opts.Fallback, nil
	}

	s.log.Error("Operation failed",
		"operation", name,
		"attempts", attempt,
		"kind", lastErr.Diagnosis.Kind,
		"code", lastErr.Diagnosis.Code,
		"recoverable", lastErr.Diagnosis.Recoverable,
	)
	metrics.OperationsTotal.WithLabelValues(name, "failure").Inc()
	var zero T
	return zero, lastErr
}

// ExecuteWithResilience is Execute for callers that do not need a typed result.
func (s *Supervisor) ExecuteWithResilience(
	ctx context.Context,
	name string,
	op func(ctx context.Context, api docker.API) (any, error),
	opts Options[any],
) (any, error) {
	return Execute(ctx, s, name, op, opts)
}

// operationConnectionFailure routes a connection-category operation error
// through the common failure path, once per lost connection.
func (s *Supervisor) operationConnectionFailure(err error, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.state.Connected {
		return
	}
	s.log.Info("Connection error during operation, triggering reconnection", "operation", name)
	s.handleFailureLocked(err, "operation")
}

func (s *Supervisor) operationBackoff() time.Duration {
	if s.cfg.OperationBackoff > 0 {
		return s.cfg.OperationBackoff
	}
	return time.Second
}
