// Package profiles stores account brand profiles with their metadata as JSONB.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the profile or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, accountID string) (*models.Profile, error) {
	query := `
		SELECT email, metadata
		FROM profiles
		WHERE account_id = $1
	`
	p := &models.Profile{AccountID: accountID}
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&p.Email, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode profile metadata: %w", err)
		}
	}
	return p, nil
}

// Upsert creates or replaces the profile. An empty email keeps the stored one.
func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) error {
	raw, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode profile metadata: %w", err)
	}
	query := `
		INSERT INTO profiles (account_id, email, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id)
		DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			metadata = EXCLUDED.metadata
	`
	if _, err := r.db.ExecContext(ctx, query, p.AccountID, p.Email, raw); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
