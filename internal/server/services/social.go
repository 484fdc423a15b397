package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenCipher protects platform access tokens at rest; *cryptox.Sealer
// implements it.
type TokenCipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SocialService manages Facebook and Instagram connections.
type SocialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenCipher
	newID       func() string
}

func NewSocialService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenCipher) *SocialService {
	return &SocialService{db: db, repomanager: m, tokens: tokens, newID: uuid.NewString}
}

// Connect stores a connection, refreshing the access token when the same
// platform account is already known.
func (s *SocialService) Connect(ctx context.Context, accountID, platform, externalID, accessToken string) (*models.SocialAccount, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform != models.PlatformFacebook && platform != models.PlatformInstagram {
		return nil, fmt.Errorf("unsupported platform %q: %w", platform, common.ErrInvalidArgument)
	}
	if externalID == "" || accessToken == "" {
		return nil, fmt.Errorf("external id and access token are required: %w", common.ErrInvalidArgument)
	}

	sealed, err := s.tokens.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	acc := &models.SocialAccount{
		ID:          s.newID(),
		AccountID:   accountID,
		Platform:    platform,
		ExternalID:  externalID,
		AccessToken: sealed,
		IsConnected: true,
	}
	if err := s.repomanager.SocialAccounts(s.db).Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("connect %s: %w", platform, err)
	}
	return acc, nil
}

func (s *SocialService) List(ctx context.Context, accountID string) ([]*models.SocialAccount, error) {
	return s.repomanager.SocialAccounts(s.db).List(ctx, accountID, false)
}

func (s *SocialService) Disconnect(ctx context.Context, accountID, id string) error {
	return s.repomanager.SocialAccounts(s.db).Disconnect(ctx, accountID, id)
}
