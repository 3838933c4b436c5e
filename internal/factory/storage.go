package factory

import (
	"database/sql"
	"fmt"

	"followup-tracker/internal/config"
	"followup-tracker/internal/repository"
	"followup-tracker/internal/repository/bolt"
	"followup-tracker/internal/repository/memory"
	"followup-tracker/internal/repository/postgres"
)

// Storage bundles the repositories chosen for a driver. Close releases the
// underlying handle and is always safe to call.
type Storage struct {
	Driver    string
	Snapshots repository.SnapshotRepository
	Accounts  repository.AccountRepository
	Close     func() error
}

// NewStorage selects the storage adapters based on the resolved driver.
// Only postgres persists accounts; the other drivers keep them in memory.
func NewStorage(cfg *config.Config) (*Storage, error) {
	driver := cfg.ResolvedStorageDriver()
	switch driver {
	case config.DriverMemory:
		return &Storage{
			Driver:    driver,
			Snapshots: memory.NewInMemorySnapshotRepository(),
			Accounts:  memory.NewInMemoryAccountRepository(),
			Close:     func() error { return nil },
		}, nil
	case config.DriverBolt:
		repo, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Driver:    driver,
			Snapshots: repo,
			Accounts:  memory.NewInMemoryAccountRepository(),
			Close:     repo.Close,
		}, nil
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.InitializeDatabase(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return &Storage{
			Driver:    driver,
			Snapshots: postgres.NewPostgresSnapshotRepository(db),
			Accounts:  postgres.NewPostgresAccountRepository(db),
			Close:     db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER: %s", cfg.StorageDriver)
	}
}
