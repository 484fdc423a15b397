package posts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

// Repository persists posts. Dates are calendar days in UTC.
type Repository interface {
	// FindByDate returns the account's post for day or common.ErrorNotFound.
	FindByDate(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	// Create inserts p. p.ID must be set by the caller.
	Create(ctx context.Context, p *models.Post) error
	// Update overwrites content and image of an existing post, keeping its id.
	Update(ctx context.Context, p *models.Post) error
	// ListRange returns posts with from <= date <= to ordered by date.
	ListRange(ctx context.Context, accountID string, from, to time.Time) ([]*models.Post, error)
	MarkPublished(ctx context.Context, accountID, id string, at time.Time) error
	Stats(ctx context.Context, accountID string) (*models.Stats, error)
	// ListDue returns unpublished posts of auto-publishing accounts that are
	// due at now: earlier days, or today once the preferred time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	// RecordDelivery remembers that post reached a social account. Recording
	// the same pair twice keeps the first remote id.
	RecordDelivery(ctx context.Context, postID, socialAccountID, remoteID string, at time.Time) error
	// Deliveries maps social account ids the post already reached to remote ids.
	Deliveries(ctx context.Context, postID string) (map[string]string, error)
}
