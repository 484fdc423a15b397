package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	due       []*models.Post
	listErr   error
	failIDs   map[string]bool
	noAccount map[string]bool
	attempts  []string
	published []string
	listedAt  time.Time
}

func (f *fakePublisher) ListDue(_ context.Context, now time.Time) ([]*models.Post, error) {
	f.listedAt = now
	return f.due, f.listErr
}

func (f *fakePublisher) PublishPost(_ context.Context, p *models.Post) error {
	f.attempts = append(f.attempts, p.ID)
	if f.noAccount[p.AccountID] {
		return common.ErrNoConnectedAccounts
	}
	if f.failIDs[p.ID] {
		return errors.New("graph api down")
	}
	f.published = append(f.published, p.ID)
	return nil
}

func TestRunOnce_ContinuesAfterFailure(t *testing.T) {
	pub := &fakePublisher{
		due:     []*models.Post{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		failIDs: map[string]bool{"b": true},
	}
	s, err := New("", pub, nil, time.Minute)
	require.NoError(t, err)
	fixed := time.Date(2025, 5, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	s.now = func() time.Time { return fixed }

	n := s.RunOnce(context.Background())
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, pub.published)
	assert.Equal(t, time.UTC, pub.listedAt.Location())
	assert.True(t, pub.listedAt.Equal(fixed))
}

func TestRunOnce_ListError(t *testing.T) {
	pub := &fakePublisher{listErr: errors.New("db down")}
	s, err := New(DefaultSchedule, pub, nil, 0)
	require.NoError(t, err)

	assert.Zero(t, s.RunOnce(context.Background()))
}

func TestRunOnce_StopsWhenCancelled(t *testing.T) {
	pub := &fakePublisher{due: []*models.Post{{ID: "a"}}}
	s, err := New(DefaultSchedule, pub, nil, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, s.RunOnce(ctx))
	assert.Empty(t, pub.published)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every now and then", &fakePublisher{}, nil, 0)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New("@every 1h", &fakePublisher{}, nil, 0)
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRunOnce_NoConnectedAccountsIsQuiet(t *testing.T) {
	pub := &fakePublisher{
		due: []*models.Post{
			{ID: "a1", AccountID: "lonely"},
			{ID: "b1", AccountID: "busy"},
			{ID: "a2", AccountID: "lonely"},
		},
		noAccount: map[string]bool{"lonely": true},
	}
	var buf bytes.Buffer
	s, err := New(DefaultSchedule, pub, logging.NewJSONLogger(&buf, slog.LevelInfo), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"a1", "b1"}, pub.attempts)
	assert.Equal(t, []string{"b1"}, pub.published)
	assert.NotContains(t, buf.String(), "auto-publish failed")
	assert.NotContains(t, buf.String(), "lonely")
}
