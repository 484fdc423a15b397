// Package generation runs multi-day content generation batches: one post per
// calendar day, generated, persisted and billed strictly in date order.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/ledger"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/dmitrijs2005/socialmaster/internal/textgen"
	"github.com/google/uuid"
)

type TextGenerator interface {
	Generate(ctx context.Context, meta models.ProfileMetadata, day time.Time) (string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, content string, meta models.ProfileMetadata) (string, error)
}

// AssetStore moves a provider-hosted image into durable storage.
type AssetStore interface {
	Relocate(ctx context.Context, accountID, sourceURL string) (string, error)
}

// PostStore is the part of the posts repository the batch needs.
type PostStore interface {
	FindByDate(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
}

type Debiter interface {
	Debit(ctx context.Context, kind ledger.Kind) (int64, error)
}

type State string

const (
	StatePending    State = "pending"
	StateGenerating State = "generating"
	StatePersisted  State = "persisted"
	StateComplete   State = "complete"
	StateAborted    State = "aborted"
)

// Progress is reported after every state change of a batch.
type Progress struct {
	State     State
	Date      time.Time
	Completed int
	Total     int
	Fraction  float64
}

type Request struct {
	AccountID string
	Profile   models.ProfileMetadata
	Start     time.Time
	Days      int
	Ledger    Debiter
}

// Result lists the posts written by a batch. On abort it holds the days
// persisted before the failure and Err names the failing date.
type Result struct {
	Posts []*models.Post
	State State
	Err   error
}

// DayError is the failure of one date in a batch.
type DayError struct {
	Date time.Time
	Err  error
}

func (e *DayError) Error() string {
	return fmt.Sprintf("generation for %s: %v", common.FormatDate(e.Date), e.Err)
}

func (e *DayError) Unwrap() error { return e.Err }

type Orchestrator struct {
	text   TextGenerator
	image  ImageGenerator
	assets AssetStore
	posts  PostStore
	log    logging.Logger
	newID  func() string
}

func NewOrchestrator(text TextGenerator, image ImageGenerator, assets AssetStore, posts PostStore, log logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Orchestrator{
		text:   text,
		image:  image,
		assets: assets,
		posts:  posts,
		log:    log.With("module", "generation"),
		newID:  uuid.NewString,
	}
}

// Run generates req.Days posts starting at req.Start. Dates are processed one
// at a time; a day's remote calls never start before the previous day has
// been persisted and billed. progress may be nil.
func (o *Orchestrator) Run(ctx context.Context, req Request, progress func(Progress)) (*Result, error) {
	if req.Days < 1 {
		return nil, fmt.Errorf("days must be at least 1, got %d: %w", req.Days, common.ErrInvalidArgument)
	}
	if req.Ledger == nil {
		return nil, fmt.Errorf("ledger is required: %w", common.ErrInvalidArgument)
	}

	start := common.DateOnly(req.Start)
	res := &Result{State: StatePending}
	report := func(state State, day time.Time) {
		res.State = state
		if progress == nil {
			return
		}
		done := len(res.Posts)
		progress(Progress{
			State:     state,
			Date:      day,
			Completed: done,
			Total:     req.Days,
			Fraction:  float64(done) / float64(req.Days),
		})
	}
	abort := func(day time.Time, err error) (*Result, error) {
		derr := &DayError{Date: day, Err: err}
		res.Err = derr
		report(StateAborted, day)
		o.log.Warn(ctx, "batch aborted",
			"account_id", req.AccountID, "date", common.FormatDate(day), "persisted", len(res.Posts), "error", err)
		return res, derr
	}

	log := o.log.With("account_id", req.AccountID)
	log.Info(ctx, "batch started", "start", common.FormatDate(start), "days", req.Days)
	report(StatePending, start)

	for i := 0; i < req.Days; i++ {
		day := start.AddDate(0, 0, i)
		if err := ctx.Err(); err != nil {
			return abort(day, err)
		}
		report(StateGenerating, day)

		post, err := o.generateDay(ctx, req, day)
		if err != nil {
			return abort(day, err)
		}
		res.Posts = append(res.Posts, post)

		if _, err := req.Ledger.Debit(ctx, ledger.KindImage); err != nil {
			return abort(day, err)
		}
		if _, err := req.Ledger.Debit(ctx, ledger.KindDescription); err != nil {
			return abort(day, err)
		}
		report(StatePersisted, day)
		log.Debug(ctx, "day persisted", "date", common.FormatDate(day), "post_id", post.ID)
	}

	report(StateComplete, start.AddDate(0, 0, req.Days-1))
	log.Info(ctx, "batch complete", "days", req.Days)
	return res, nil
}

func (o *Orchestrator) generateDay(ctx context.Context, req Request, day time.Time) (*models.Post, error) {
	existing, err := o.posts.FindByDate(ctx, req.AccountID, day)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup post: %w", err)
	}

	text, err := o.text.Generate(ctx, req.Profile, day)
	if err != nil {
		return nil, err
	}

	body, _ := textgen.SplitHashtags(text)
	imageURL, err := o.GenerateImage(ctx, req.AccountID, body, req.Profile)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Content = text
		existing.ImageURL = imageURL
		if err := o.posts.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update post: %w", err)
		}
		return existing, nil
	}

	post := &models.Post{
		ID:        o.newID(),
		AccountID: req.AccountID,
		Date:      day,
		Content:   text,
		ImageURL:  imageURL,
	}
	if err := o.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// GenerateText produces post text for a single day.
func (o *Orchestrator) GenerateText(ctx context.Context, meta models.ProfileMetadata, day time.Time) (string, error) {
	return o.text.Generate(ctx, meta, day)
}

// GenerateImage produces an image for content and relocates it into the
// account's storage, returning the durable URL.
func (o *Orchestrator) GenerateImage(ctx context.Context, accountID, content string, meta models.ProfileMetadata) (string, error) {
	src, err := o.image.Generate(ctx, content, meta)
	if err != nil {
		return "", err
	}
	url, err := o.assets.Relocate(ctx, accountID, src)
	if err != nil {
		return "", fmt.Errorf("relocate image: %w", err)
	}
	return url, nil
}
