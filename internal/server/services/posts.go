package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/events"
	"github.com/dmitrijs2005/socialmaster/internal/server/ledger"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialmaster/internal/textgen"
)

// ContentGenerator produces single pieces of content outside a batch;
// *generation.Orchestrator implements it.
type ContentGenerator interface {
	GenerateText(ctx context.Context, meta models.ProfileMetadata, day time.Time) (string, error)
	GenerateImage(ctx context.Context, accountID, content string, meta models.ProfileMetadata) (string, error)
}

// SocialPublisher posts to one connected platform account; *social.GraphClient
// implements it.
type SocialPublisher interface {
	Publish(ctx context.Context, acc *models.SocialAccount, p *models.Post) (string, error)
}

// PostService edits, regenerates and publishes individual posts.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	content     ContentGenerator
	publisher   SocialPublisher
	tokens      TokenCipher
	balances    ledger.Store
	events      events.Publisher
	log         logging.Logger
	now         func() time.Time
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, content ContentGenerator, publisher SocialPublisher,
	tokens TokenCipher, balances ledger.Store, pub events.Publisher, log logging.Logger) *PostService {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &PostService{
		db:          db,
		repomanager: m,
		content:     content,
		publisher:   publisher,
		tokens:      tokens,
		balances:    balances,
		events:      pub,
		log:         log.With("module", "post_service"),
		now:         time.Now,
	}
}

// ListPosts returns the account's posts dated from..to inclusive, oldest first.
func (s *PostService) ListPosts(ctx context.Context, accountID string, from, to time.Time) ([]*models.Post, error) {
	from, to = common.DateOnly(from), common.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s before start %s: %w",
			common.FormatDate(to), common.FormatDate(from), common.ErrInvalidArgument)
	}
	return s.repomanager.Posts(s.db).ListRange(ctx, accountID, from, to)
}

// GetPost returns the post for day or common.ErrorNotFound.
func (s *PostService) GetPost(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	return s.repomanager.Posts(s.db).FindByDate(ctx, accountID, common.DateOnly(day))
}

// UpdateContent replaces the post text. Manual edits are free.
func (s *PostService) UpdateContent(ctx context.Context, accountID string, day time.Time, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty: %w", common.ErrInvalidArgument)
	}

	repo := s.repomanager.Posts(s.db)
	post, err := repo.FindByDate(ctx, accountID, common.DateOnly(day))
	if err != nil {
		return nil, err
	}
	post.Content = content
	if err := repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// RegenerateImage replaces the post image using its current text and bills
// one image.
func (s *PostService) RegenerateImage(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	return s.regenerate(ctx, accountID, day, ledger.KindImage, func(post *models.Post, meta models.ProfileMetadata) error {
		body, _ := textgen.SplitHashtags(post.Content)
		url, err := s.content.GenerateImage(ctx, accountID, body, meta)
		if err != nil {
			return err
		}
		post.ImageURL = url
		return nil
	})
}

// RegenerateContent replaces the post text and bills one description.
func (s *PostService) RegenerateContent(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	return s.regenerate(ctx, accountID, day, ledger.KindDescription, func(post *models.Post, meta models.ProfileMetadata) error {
		text, err := s.content.GenerateText(ctx, meta, post.Date)
		if err != nil {
			return err
		}
		post.Content = text
		return nil
	})
}

func (s *PostService) regenerate(ctx context.Context, accountID string, day time.Time, kind ledger.Kind,
	apply func(*models.Post, models.ProfileMetadata) error) (*models.Post, error) {
	repo := s.repomanager.Posts(s.db)

	post, err := repo.FindByDate(ctx, accountID, common.DateOnly(day))
	if err != nil {
		return nil, err
	}
	profile, err := s.repomanager.Profiles(s.db).Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrProfileIncomplete
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	lg := newLedger(s.balances, accountID, s.events, s.log, s.now)
	balance, err := lg.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	if !lg.CanAfford(kind, 1) {
		return nil, fmt.Errorf("%s costs %d tokens, balance is %d: %w",
			kind, ledger.Price(kind), balance, common.ErrInsufficientBalance)
	}

	if err := apply(post, profile.Metadata); err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	// The post keeps the new content even when billing fails.
	if _, err := lg.Debit(ctx, kind); err != nil {
		return post, err
	}
	return post, nil
}

// Publish sends the post for day to every connected social account enabled
// in the posting preferences and marks it published.
func (s *PostService) Publish(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).FindByDate(ctx, accountID, common.DateOnly(day))
	if err != nil {
		return nil, err
	}
	if err := s.PublishPost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// PublishPost publishes an already loaded post. Accounts the post already
// reached on an earlier partial attempt are skipped.
func (s *PostService) PublishPost(ctx context.Context, post *models.Post) error {
	accounts, err := s.targets(ctx, post.AccountID)
	if err != nil {
		return err
	}

	repo := s.repomanager.Posts(s.db)
	delivered, err := repo.Deliveries(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("load deliveries: %w", err)
	}

	platforms := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		if _, ok := delivered[acc.ID]; ok {
			platforms = append(platforms, acc.Platform)
			continue
		}

		token, err := s.tokens.Open(acc.AccessToken)
		if err != nil {
			return fmt.Errorf("%s %s: reconnect the account: %w: %v", acc.Platform, acc.ExternalID, common.ErrAuthorization, err)
		}
		target := *acc
		target.AccessToken = token

		id, err := s.publisher.Publish(ctx, &target, post)
		if err != nil {
			return fmt.Errorf("publish to %s %s: %w", acc.Platform, acc.ExternalID, err)
		}
		s.log.Info(ctx, "post published",
			"account_id", post.AccountID, "post_id", post.ID, "platform", acc.Platform, "remote_id", id)
		if err := repo.RecordDelivery(ctx, post.ID, acc.ID, id, s.now().UTC()); err != nil {
			return fmt.Errorf("record delivery to %s %s: %w", acc.Platform, acc.ExternalID, err)
		}
		platforms = append(platforms, acc.Platform)
	}

	at := s.now().UTC()
	if err := repo.MarkPublished(ctx, post.AccountID, post.ID, at); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	post.Published = true
	post.PublishedAt = &at

	events.Emit(ctx, s.events, s.log, events.KeyPostPublished, events.PostPublished{
		AccountID: post.AccountID,
		PostID:    post.ID,
		Date:      common.FormatDate(post.Date),
		Platforms: platforms,
		At:        at,
	})
	return nil
}

// ListDue returns unpublished posts whose auto-publish time has passed.
func (s *PostService) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	return s.repomanager.Posts(s.db).ListDue(ctx, now)
}

// Stats counts the account's posts. Scheduled is everything not yet published.
func (s *PostService) Stats(ctx context.Context, accountID string) (*models.Stats, error) {
	return s.repomanager.Posts(s.db).Stats(ctx, accountID)
}

func (s *PostService) targets(ctx context.Context, accountID string) ([]*models.SocialAccount, error) {
	accounts, err := s.repomanager.SocialAccounts(s.db).List(ctx, accountID, true)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}

	prefs, err := s.repomanager.Preferences(s.db).Get(ctx, accountID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		prefs = DefaultPreferences(accountID)
	case err != nil:
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	out := accounts[:0]
	for _, acc := range accounts {
		if (acc.Platform == models.PlatformFacebook && prefs.Facebook) ||
			(acc.Platform == models.PlatformInstagram && prefs.Instagram) {
			out = append(out, acc)
		}
	}
	if len(out) == 0 {
		return nil, common.ErrNoConnectedAccounts
	}
	return out, nil
}
