// Package balances provides the PostgreSQL repository for account token
// balances stored in user_tokens.
package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, accountID string) (int64, error) {
	query := `
		SELECT token_balance
		FROM user_tokens
		WHERE account_id = $1
	`
	return r.scanBalance(ctx, query, accountID)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, accountID string) (int64, error) {
	query := `
		SELECT token_balance
		FROM user_tokens
		WHERE account_id = $1
		FOR UPDATE
	`
	return r.scanBalance(ctx, query, accountID)
}

// Subtract relies on the table CHECK constraint as the last line of defence;
// callers are expected to validate the amount under GetForUpdate first.
func (r *PostgresRepository) Subtract(ctx context.Context, accountID string, amount int64) (int64, error) {
	query := `
		UPDATE user_tokens
		SET token_balance = token_balance - $2, updated_at = now()
		WHERE account_id = $1
		RETURNING token_balance
	`
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, accountID, amount).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) scanBalance(ctx context.Context, query string, accountID string) (int64, error) {
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}
