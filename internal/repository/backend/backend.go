// Package backend opens the configured credential store.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/numberadder/numberadder/internal/config"
	"github.com/numberadder/numberadder/internal/repository"
	"github.com/numberadder/numberadder/internal/repository/postgres"
	"github.com/numberadder/numberadder/internal/repository/sqlite"
)

// Open connects to the store named by driver and brings its schema up to date.
func Open(ctx context.Context, driver, databaseURL string, logger *slog.Logger) (repository.Store, error) {
	switch driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		applied, err := store.Migrate(ctx)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied", "count", applied)
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
