package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smashingtags/homelabarr-containers/internal/core/config"
	"github.com/smashingtags/homelabarr-containers/internal/core/journal"
	"github.com/smashingtags/homelabarr-containers/internal/core/worker"
	"github.com/smashingtags/homelabarr-containers/internal/health"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/supervisor"
)

// App wires the daemon supervisor, the event journal and the health server.
type App struct {
	cfg          Config
	client       *docker.Client
	sup          *supervisor.Supervisor
	journal      *journal.Journal
	pruner       *worker.Pruner
	healthServer *health.Server
	log          *slog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Config holds the application configuration.
type Config struct {
	Port    int
	Daemon  config.DaemonConfig
	Journal config.JournalConfig
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	log := slog.Default().With("component", "app")

	supCfg, err := SupervisorConfig(cfg.Daemon)
	if err != nil {
		return nil, err
	}

	var opts []docker.Option
	if cfg.Daemon.APIVersion != "" {
		opts = append(opts, docker.WithAPIVersion(cfg.Daemon.APIVersion))
	}
	client, err := docker.NewClient(supCfg.Endpoint, supCfg.Timeout, opts...)
	if err != nil {
		return nil, err
	}

	repo, pruneRepo, err := OpenRepository(ctx, cfg.Journal)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	j := journal.New(repo, cfg.Journal.QueueSize)

	sup := supervisor.New(supCfg, client, supervisor.WithRecorder(j))
	reporter := health.NewReporter(sup, j)

	app := &App{
		cfg:          cfg,
		client:       client,
		sup:          sup,
		journal:      j,
		healthServer: health.NewServer(reporter, cfg.Port),
		log:          log,
	}
	if pruneRepo != nil {
		app.pruner = worker.NewPruner(cfg.Journal.Retention, pruneRepo)
	}

	log.Info("Application initialized",
		"endpoint", supCfg.Endpoint.String(),
		"journal", cfg.Journal.Driver,
		"port", cfg.Port,
	)
	return app, nil
}

// SupervisorConfig converts the daemon section into supervisor settings.
func SupervisorConfig(d config.DaemonConfig) (supervisor.Config, error) {
	ep, err := docker.ParseEndpoint(d.Endpoint)
	if err != nil {
		return supervisor.Config{}, fmt.Errorf("invalid daemon endpoint: %w", err)
	}
	if err := ep.CheckPlatform(); err != nil {
		return supervisor.Config{}, fmt.Errorf("invalid daemon endpoint: %w", err)
	}
	return supervisor.Config{
		Endpoint:            ep,
		Timeout:             d.Timeout,
		ReconnectAttempts:   d.ReconnectAttempts,
		RetryDelay:          d.RetryDelay,
		MaxRetryDelay:       d.MaxRetryDelay,
		HealthCheckInterval: d.HealthCheckInterval,
		BreakerThreshold:    d.BreakerThreshold,
		BreakerTimeout:      d.BreakerTimeout,
		InitialDelay:        d.InitialDelay,
		OperationBackoff:    d.OperationBackoff,
	}, nil
}

// Supervisor returns the connection supervisor for consumers.
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Start starts all components. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.group = g

	// Start Health Server
	g.Go(func() error {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error { return a.journal.Run(gctx) })

	if a.pruner != nil {
		g.Go(func() error {
			a.pruner.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.runStatsLogger(gctx)
		return nil
	})

	a.sup.Start()
	return nil
}

// Stop stops the app and waits for background tasks.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping application...")

	a.sup.Shutdown()
	a.client.CloseIdleConnections()

	stopErr := a.healthServer.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
	}

	if a.group != nil {
		done := make(chan error, 1)
		go func() { done <- a.group.Wait() }()
		select {
		case err := <-done:
			stopErr = errors.Join(stopErr, err)
		case <-ctx.Done():
			stopErr = errors.Join(stopErr, ctx.Err())
		}
	}

	if err := a.journal.Close(); err != nil {
		a.log.Warn("Failed to close journal", "error", err)
	}
	if err := a.client.Close(); err != nil {
		a.log.Warn("Failed to close docker client", "error", err)
	}
	return stopErr
}

func (a *App) runStatsLogger(ctx context.Context) {
	interval := a.cfg.Daemon.StatsInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sup.LogStats()
		}
	}
}
