package profiles

import (
	"context"

	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, accountID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
}
