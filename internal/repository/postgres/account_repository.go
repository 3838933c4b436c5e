package postgres

import (
	"context"
	"database/sql"
	"errors"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Save(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, provider_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.ProviderID, account.Email, account.Name,
		account.AccessToken, account.RefreshToken, account.TokenExpiry,
		account.CreatedAt, account.UpdatedAt)
	return err
}

func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresAccountRepository) FindByProviderID(ctx context.Context, providerID string) (*model.Account, error) {
	return r.findOne(ctx, `WHERE provider_id = $1`, providerID)
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, where string, arg string) (*model.Account, error) {
	query := `SELECT id, provider_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at FROM accounts ` + where
	row := r.db.QueryRowContext(ctx, query, arg)

	account := &model.Account{}
	err := row.Scan(
		&account.ID, &account.ProviderID, &account.Email, &account.Name,
		&account.AccessToken, &account.RefreshToken, &account.TokenExpiry,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}
