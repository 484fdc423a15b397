// Package socialaccounts stores Facebook and Instagram connections.
package socialaccounts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

type Repository interface {
	// Upsert connects the account, refreshing the token of an existing
	// (account, platform, external id) row. ID and CreatedAt are filled in.
	Upsert(ctx context.Context, a *models.SocialAccount) error
	List(ctx context.Context, accountID string, connectedOnly bool) ([]*models.SocialAccount, error)
	// Disconnect returns common.ErrorNotFound when id does not belong to the account.
	Disconnect(ctx context.Context, accountID, id string) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, a *models.SocialAccount) error {
	query := `
		INSERT INTO social_media_accounts (id, account_id, platform, external_id, access_token, is_connected)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (account_id, platform, external_id)
		DO UPDATE SET access_token = EXCLUDED.access_token, is_connected = TRUE
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, a.ID, a.AccountID, a.Platform, a.ExternalID, a.AccessToken).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	a.IsConnected = true
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, accountID string, connectedOnly bool) ([]*models.SocialAccount, error) {
	query := `
		SELECT id, account_id, platform, external_id, access_token, is_connected, created_at
		FROM social_media_accounts
		WHERE account_id = $1 AND (is_connected OR NOT $2)
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, connectedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to select social accounts: %w", err)
	}
	defer rows.Close()

	var result []*models.SocialAccount
	for rows.Next() {
		var a models.SocialAccount
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Platform, &a.ExternalID, &a.AccessToken, &a.IsConnected, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Disconnect(ctx context.Context, accountID, id string) error {
	query := `
		UPDATE social_media_accounts
		SET is_connected = FALSE
		WHERE id = $1 AND account_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
