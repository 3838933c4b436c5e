package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"

	_ "github.com/lib/pq"
)

type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

func (r *PostgresSnapshotRepository) Load(ctx context.Context) (*model.TrackedState, error) {
	query := `SELECT data FROM snapshots WHERE key = $1`
	row := r.db.QueryRowContext(ctx, query, repository.SnapshotKey)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, err
	}
	return model.UnmarshalSnapshot([]byte(data))
}

func (r *PostgresSnapshotRepository) Save(ctx context.Context, state *model.TrackedState) error {
	data, err := model.MarshalSnapshot(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query, repository.SnapshotKey, string(data))
	return err
}

func (r *PostgresSnapshotRepository) Delete(ctx context.Context) error {
	query := `DELETE FROM snapshots WHERE key = $1`
	_, err := r.db.ExecContext(ctx, query, repository.SnapshotKey)
	return err
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			key VARCHAR(255) PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(255) PRIMARY KEY,
			provider_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255),
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
