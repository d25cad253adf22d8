// Package supervisor owns the daemon connection state. It composes the
// classifier, circuit breaker and retry scheduler, runs the periodic health
// check, and executes daemon operations with retry and fallback.
//
// Every state mutation happens under a single mutex. Timer callbacks go
// through the same methods as ad-hoc callers, and at most one connection
// attempt is in flight at any time.
package supervisor

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/clock"
	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
	"github.com/smashingtags/homelabarr-containers/internal/metrics"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/backoff"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/breaker"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/classify"
)

// Config is the resilience configuration. It is not modified after New.
type Config struct {
	Endpoint            docker.Endpoint
	Timeout             time.Duration
	ReconnectAttempts   uint
	RetryDelay          time.Duration
	MaxRetryDelay       time.Duration
	HealthCheckInterval time.Duration
	BreakerThreshold    uint
	BreakerTimeout      time.Duration
	InitialDelay        time.Duration
	OperationBackoff    time.Duration
}

// DefaultConfig returns the stock settings for ep.
func DefaultConfig(ep docker.Endpoint) Config {
	return Config{
		Endpoint:            ep,
		Timeout:             30 * time.Second,
		ReconnectAttempts:   5,
		RetryDelay:          time.Second,
		MaxRetryDelay:       30 * time.Second,
		HealthCheckInterval: 30 * time.Second,
		BreakerThreshold:    3,
		BreakerTimeout:      60 * time.Second,
		InitialDelay:        2 * time.Second,
		OperationBackoff:    time.Second,
	}
}

// Recorder receives connection lifecycle events. Implementations must not block.
type Recorder interface {
	Record(ev domain.ConnectionEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.ConnectionEvent) {}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithClock replaces the wall clock. Used by tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Supervisor) { s.clock = clk }
}

// WithRecorder sends lifecycle events to r.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.events = r
		}
	}
}

// WithJitter overrides the random source used for retry jitter.
func WithJitter(rnd func() float64) Option {
	return func(s *Supervisor) { s.jitter = rnd }
}

// Supervisor is the single owner of the daemon connection state.
type Supervisor struct {
	cfg        Config
	client     docker.API
	clock      clock.Clock
	classifier classify.Classifier
	breaker    *breaker.Breaker
	sched      *backoff.Scheduler
	events     Recorder
	jitter     func() float64
	log        *slog.Logger
	startedAt  time.Time

	mu           sync.Mutex
	state        domain.ConnectionState
	connecting   bool
	started      bool
	closed       bool
	initialTimer clock.Timer
	healthTimer  clock.Timer
}

// New creates a supervisor for client. Call Start to begin connecting.
func New(cfg Config, client docker.API, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		client: client,
		clock:  clock.Real,
		events: nopRecorder{},
		log:    slog.Default().With("component", "supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.classifier = classify.Classifier{Now: s.clock.Now}
	s.breaker = breaker.New(breaker.Config{
		Threshold:    cfg.BreakerThreshold,
		OpenDuration: cfg.BreakerTimeout,
	}, s.clock)
	s.breaker.SetStateChangeCallback(s.onBreakerChange)
	s.sched = backoff.NewScheduler(backoff.Policy{
		BaseDelay: cfg.RetryDelay,
		MaxDelay:  cfg.MaxRetryDelay,
		Jitter:    backoff.DefaultJitter,
		Rand:      s.jitter,
	}, s.clock)
	s.startedAt = s.clock.Now()

	metrics.DaemonConnected.Set(0)
	metrics.BreakerState.Set(float64(breaker.StateClosed))
	return s
}

// Start schedules the initial connection after the configured delay and
// starts the health monitor. It is a no-op after the first call.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	s.log.Info("Starting Docker connection supervisor",
		"endpoint", s.cfg.Endpoint.String(),
		"initial_delay", s.cfg.InitialDelay,
		"health_check_interval", s.cfg.HealthCheckInterval,
	)

	s.initialTimer = s.clock.AfterFunc(s.cfg.InitialDelay, func() {
		if err := s.connect(context.Background(), "initial"); err != nil {
			s.log.Warn("Initial Docker connection failed, will retry automatically", "error", err)
		}
	})
	if s.cfg.HealthCheckInterval > 0 {
		s.healthTimer = s.clock.AfterFunc(s.cfg.HealthCheckInterval, s.healthTick)
	}
}

// Connect makes an immediate connection attempt.
func (s *Supervisor) Connect(ctx context.Context) error {
	return s.connect(ctx, "manual")
}

// Shutdown cancels every timer. In-flight daemon calls finish or time out.
// It is safe to call more than once.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.sched.Cancel()
	s.state.Retrying = false
	s.state.NextRetryAt = nil
	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
	if s.healthTimer != nil {
		s.healthTimer.Stop()
	}
	s.mu.Unlock()

	s.breaker.Stop()
	s.log.Info("Docker connection supervisor stopped")
}

func (s *Supervisor) connect(ctx context.Context, source string) error {
	s.mu.Lock()
	if err := s.beginAttemptLocked(source); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.runAttempt(ctx, source)
}

// beginAttemptLocked claims the in-flight slot if the breaker allows it.
func (s *Supervisor) beginAttemptLocked(source string) error {
	switch {
	case s.closed:
		return ErrShutdown
	case s.connecting:
		return ErrAttemptInFlight
	case !s.breaker.CanAttempt():
		snap := s.breaker.Snapshot()
		s.log.Warn("Connection attempt blocked by circuit breaker",
			"source", source,
			"breaker", snap.State.String(),
			"next_attempt_at", snap.NextAttemptAt,
		)
		metrics.ConnectionAttemptsTotal.WithLabelValues(source, "blocked").Inc()
		return ErrBreakerOpen
	}
	s.connecting = true
	return nil
}

// runAttempt probes the daemon and records the outcome. The caller must hold
// the in-flight slot.
func (s *Supervisor) runAttempt(ctx context.Context, source string) error {
	s.log.Debug("Attempting Docker connection", "source", source, "retry_count", s.retryCount())

	probeCtx, cancel := s.withTimeout(ctx)
	err := s.client.Probe(probeCtx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
	if s.closed {
		return ErrShutdown
	}

	if err != nil {
		metrics.ConnectionAttemptsTotal.WithLabelValues(source, "failure").Inc()
		d := s.handleFailureLocked(err, source)
		return &DaemonError{Op: "connect", Diagnosis: d, Err: err}
	}

	metrics.ConnectionAttemptsTotal.WithLabelValues(source, "success").Inc()
	s.markConnectedLocked(source)
	return nil
}

func (s *Supervisor) markConnectedLocked(source string) {
	now := s.clock.Now()
	wasConnected := s.state.Connected
	previousRetries := s.state.RetryCount

	s.sched.Cancel()
	s.state = domain.ConnectionState{
		Connected:     true,
		LastSuccessAt: &now,
	}
	s.breaker.OnSuccess()

	metrics.DaemonConnected.Set(1)
	metrics.RetryCount.Set(0)

	if !wasConnected {
		s.log.Info("Docker connection established",
			"source", source,
			"endpoint", s.cfg.Endpoint.String(),
			"retries_used", previousRetries,
		)
		s.events.Record(domain.ConnectionEvent{
			Type:       domain.EventConnected,
			Source:     source,
			RetryCount: previousRetries,
			Breaker:    s.breaker.State().String(),
		})
	}
}

// handleFailureLocked is the common failure path for connection attempts,
// health probes and connection-category operation errors.
func (s *Supervisor) handleFailureLocked(err error, source string) domain.Diagnosis {
	d := s.classifier.Classify(err, s.cfg.Endpoint.Transport)

	s.state.Connected = false
	s.state.LastError = &d
	s.breaker.OnFailure()

	if c, ok := s.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}

	metrics.DaemonConnected.Set(0)
	metrics.ConnectionFailuresTotal.WithLabelValues(string(d.Kind), strconv.FormatBool(d.Recoverable)).Inc()

	bs := s.breaker.State()
	s.log.Warn("Docker connection failed",
		"source", source,
		"kind", d.Kind,
		"code", d.Code,
		"recoverable", d.Recoverable,
		"retry_count", s.state.RetryCount,
		"breaker", bs.String(),
		"error", err,
	)
	s.events.Record(domain.ConnectionEvent{
		Type:       domain.EventDisconnected,
		Source:     source,
		RetryCount: s.state.RetryCount,
		Breaker:    bs.String(),
		Diagnosis:  &d,
	})

	switch {
	case bs == breaker.StateOpen:
		s.stopRetryingLocked()
		s.log.Warn("Reconnection paused while circuit breaker is open",
			"next_attempt_at", s.breaker.Snapshot().NextAttemptAt)
	case !d.Recoverable:
		s.stopRetryingLocked()
		s.log.Error("Docker connection failed with a non-recoverable error",
			"kind", d.Kind,
			"user_message", d.UserMessage,
			"resolution", classify.Resolution(d.Kind),
		)
	case s.state.RetryCount >= s.cfg.ReconnectAttempts:
		s.stopRetryingLocked()
		s.log.Error("Reconnection attempts exhausted",
			"retry_count", s.state.RetryCount,
			"max_retries", s.cfg.ReconnectAttempts,
			"kind", d.Kind,
		)
		s.events.Record(domain.ConnectionEvent{
			Type:       domain.EventRetryExhausted,
			Source:     source,
			RetryCount: s.state.RetryCount,
			Breaker:    bs.String(),
			Diagnosis:  &d,
		})
	default:
		s.scheduleRetryLocked(source)
	}
	return d
}

func (s *Supervisor) stopRetryingLocked() {
	s.sched.Cancel()
	s.state.Retrying = false
	s.state.NextRetryAt = nil
}

func (s *Supervisor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Supervisor) retryCount() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RetryCount
}

// onBreakerChange runs outside the breaker lock, possibly while s.mu is
// held, so it must not touch supervisor state.
func (s *Supervisor) onBreakerChange(from, to breaker.State) {
	metrics.BreakerState.Set(float64(to))
	metrics.BreakerTransitionsTotal.WithLabelValues(to.String()).Inc()

	var typ domain.EventType
	switch to {
	case breaker.StateOpen:
		typ = domain.EventBreakerOpened
	case breaker.StateHalfOpen:
		typ = domain.EventBreakerHalfOpen
	default:
		typ = domain.EventBreakerClosed
	}
	s.events.Record(domain.ConnectionEvent{
		Type:    typ,
		Source:  "breaker",
		Breaker: to.String(),
	})
}
