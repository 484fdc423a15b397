// Package preferences stores per-account posting preferences.
package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, accountID string) (*models.PostingPreferences, error)
	Upsert(ctx context.Context, p *models.PostingPreferences) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, accountID string) (*models.PostingPreferences, error) {
	query := `
		SELECT auto_publish, default_time, facebook, instagram
		FROM posting_preferences
		WHERE account_id = $1
	`
	p := &models.PostingPreferences{AccountID: accountID}
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&p.AutoPublish, &p.DefaultTime, &p.Facebook, &p.Instagram); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.PostingPreferences) error {
	query := `
		INSERT INTO posting_preferences (account_id, auto_publish, default_time, facebook, instagram)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id)
		DO UPDATE SET
			auto_publish = EXCLUDED.auto_publish,
			default_time = EXCLUDED.default_time,
			facebook = EXCLUDED.facebook,
			instagram = EXCLUDED.instagram
	`
	if _, err := r.db.ExecContext(ctx, query, p.AccountID, p.AutoPublish, p.DefaultTime, p.Facebook, p.Instagram); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
