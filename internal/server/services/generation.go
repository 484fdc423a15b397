package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/events"
	"github.com/dmitrijs2005/socialmaster/internal/server/generation"
	"github.com/dmitrijs2005/socialmaster/internal/server/ledger"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
)

// BatchRunner runs a generation batch; *generation.Orchestrator implements it.
type BatchRunner interface {
	Run(ctx context.Context, req generation.Request, progress func(generation.Progress)) (*generation.Result, error)
}

// ErrProfileIncomplete is returned when generation is requested for an
// account that has no profile yet.
var ErrProfileIncomplete = fmt.Errorf("complete your profile before generating content: %w", common.ErrorNotFound)

// GenerationService gates batches on the account's balance and admits one
// batch per account at a time.
type GenerationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	runner      BatchRunner
	guard       generation.Guard
	balances    ledger.Store
	events      events.Publisher
	log         logging.Logger
	maxDays     int
	now         func() time.Time
}

func NewGenerationService(db *sql.DB, m repomanager.RepositoryManager, runner BatchRunner, guard generation.Guard,
	balances ledger.Store, pub events.Publisher, log logging.Logger, maxDays int) *GenerationService {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &GenerationService{
		db:          db,
		repomanager: m,
		runner:      runner,
		guard:       guard,
		balances:    balances,
		events:      pub,
		log:         log.With("module", "generation_service"),
		maxDays:     maxDays,
		now:         time.Now,
	}
}

// Balance returns the account's current token balance.
func (s *GenerationService) Balance(ctx context.Context, accountID string) (int64, error) {
	return newLedger(s.balances, accountID, s.events, s.log, s.now).GetBalance(ctx)
}

// Generate produces days posts starting at start. The balance must cover
// every requested day before any remote call is made. On abort the returned
// result still lists the days that were persisted.
func (s *GenerationService) Generate(ctx context.Context, accountID string, start time.Time, days int,
	progress func(generation.Progress)) (*generation.Result, error) {
	if days < 1 || (s.maxDays > 0 && days > s.maxDays) {
		return nil, fmt.Errorf("days must be between 1 and %d, got %d: %w", s.maxDays, days, common.ErrInvalidArgument)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("start date is required: %w", common.ErrInvalidArgument)
	}

	release, err := s.guard.Acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

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
	if !lg.CanAffordDays(days) {
		return nil, fmt.Errorf("%d days cost %d tokens, balance is %d: %w",
			days, ledger.DayPrice*int64(days), balance, common.ErrInsufficientBalance)
	}

	res, runErr := s.runner.Run(ctx, generation.Request{
		AccountID: accountID,
		Profile:   profile.Metadata,
		Start:     start,
		Days:      days,
		Ledger:    lg,
	}, progress)

	if res != nil {
		// A cancelled batch still reports the days it persisted.
		emitCtx := context.WithoutCancel(ctx)
		for _, p := range res.Posts {
			events.Emit(emitCtx, s.events, s.log, events.KeyPostGenerated, events.PostGenerated{
				AccountID: accountID,
				PostID:    p.ID,
				Date:      common.FormatDate(p.Date),
				At:        s.now(),
			})
		}
	}
	return res, runErr
}
