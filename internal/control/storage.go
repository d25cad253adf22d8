package control

import (
	"context"
	"fmt"

	"github.com/smashingtags/homelabarr-containers/internal/core/config"
	redisclient "github.com/smashingtags/homelabarr-containers/internal/infra/redis"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage/memory"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage/postgres"
)

// OpenRepository opens the event store selected by cfg.Driver. The pruner is
// nil for stores that bound their own size.
func OpenRepository(ctx context.Context, cfg config.JournalConfig) (storage.EventRepository, storage.Pruner, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.NewEventRepo(cfg.Capacity), nil, nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres journal: %w", err)
		}
		repo := postgres.NewEventRepo(db)
		return repo, repo, nil

	case config.DriverRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis journal: %w", err)
		}
		return client, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
