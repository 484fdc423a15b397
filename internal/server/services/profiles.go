package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
)

// DefaultPostingTime is used until the account picks its own.
const DefaultPostingTime = "09:00"

// DefaultPreferences are the posting preferences of an account that never
// saved any: manual publishing to every connected platform.
func DefaultPreferences(accountID string) *models.PostingPreferences {
	return &models.PostingPreferences{
		AccountID:   accountID,
		DefaultTime: DefaultPostingTime,
		Facebook:    true,
		Instagram:   true,
	}
}

// ProfileService manages profile metadata and posting preferences.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m}
}

func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.db).Get(ctx, accountID)
}

// UpdateProfile stores the metadata. An empty email keeps the stored one.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID, email string, meta models.ProfileMetadata) (*models.Profile, error) {
	p := &models.Profile{AccountID: accountID, Email: strings.TrimSpace(email), Metadata: meta}
	if err := s.repomanager.Profiles(s.db).Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return s.repomanager.Profiles(s.db).Get(ctx, accountID)
}

// GetPreferences falls back to DefaultPreferences when nothing is stored.
func (s *ProfileService) GetPreferences(ctx context.Context, accountID string) (*models.PostingPreferences, error) {
	p, err := s.repomanager.Preferences(s.db).Get(ctx, accountID)
	if errors.Is(err, common.ErrorNotFound) {
		return DefaultPreferences(accountID), nil
	}
	return p, err
}

func (s *ProfileService) UpdatePreferences(ctx context.Context, p *models.PostingPreferences) (*models.PostingPreferences, error) {
	if p.DefaultTime == "" {
		p.DefaultTime = DefaultPostingTime
	}
	t, err := time.Parse("15:04", p.DefaultTime)
	if err != nil {
		return nil, fmt.Errorf("default time %q is not HH:MM: %w", p.DefaultTime, common.ErrInvalidArgument)
	}
	p.DefaultTime = t.Format("15:04")

	if err := s.repomanager.Preferences(s.db).Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}
