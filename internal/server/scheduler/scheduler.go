// Package scheduler publishes due posts for accounts with auto-publishing
// enabled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "*/15 * * * *"

// DuePublisher lists and publishes due posts; *services.PostService
// implements it.
type DuePublisher interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	PublishPost(ctx context.Context, post *models.Post) error
}

type Scheduler struct {
	cron      *cron.Cron
	publisher DuePublisher
	log       logging.Logger
	now       func() time.Time
	timeout   time.Duration
}

// New registers the auto-publish job on schedule (standard five-field cron,
// evaluated in UTC). Each run is bounded by timeout when it is positive.
func New(schedule string, publisher DuePublisher, log logging.Logger, timeout time.Duration) (*Scheduler, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Scheduler{
		publisher: publisher,
		log:       log.With("module", "scheduler"),
		now:       time.Now,
		timeout:   timeout,
	}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid auto-publish schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info(context.Background(), "scheduler started")
}

// Stop stops the cron and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce publishes every due post. Failures are logged and do not stop the
// remaining posts. Accounts without a connected platform are skipped for the
// rest of the run. It returns the number of posts published.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now().UTC()
	due, err := s.publisher.ListDue(ctx, now)
	if err != nil {
		s.log.Error(ctx, "failed to list due posts", "error", err)
		return 0
	}

	published := 0
	unreachable := make(map[string]bool)
	for i, p := range due {
		if err := ctx.Err(); err != nil {
			s.log.Warn(ctx, "auto-publish run interrupted", "remaining", len(due)-i, "error", err)
			break
		}
		if unreachable[p.AccountID] {
			continue
		}
		err := s.publisher.PublishPost(ctx, p)
		switch {
		case errors.Is(err, common.ErrNoConnectedAccounts):
			// The post stays due until the owner connects a platform.
			unreachable[p.AccountID] = true
			s.log.Debug(ctx, "auto-publish skipped, no connected accounts",
				"account_id", p.AccountID, "post_id", p.ID)
			continue
		case err != nil:
			s.log.Warn(ctx, "auto-publish failed",
				"account_id", p.AccountID, "post_id", p.ID, "error", err)
			continue
		}
		published++
	}
	if len(due) > 0 {
		s.log.Info(ctx, "auto-publish run finished", "due", len(due), "published", published)
	}
	return published
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
