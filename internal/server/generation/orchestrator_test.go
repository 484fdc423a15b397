package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/ledger"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the order of every external call.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

type fakeText struct {
	rec    *recorder
	failOn string
	err    error
	hook   func(day time.Time)
}

func (f *fakeText) Generate(ctx context.Context, meta models.ProfileMetadata, day time.Time) (string, error) {
	d := common.FormatDate(day)
	f.rec.add("text %s", d)
	if f.hook != nil {
		f.hook(day)
	}
	if d == f.failOn {
		return "", f.err
	}
	return "post for " + d + "\n#tag", nil
}

type fakeImage struct {
	rec    *recorder
	failOn string
	err    error
}

func (f *fakeImage) Generate(ctx context.Context, content string, meta models.ProfileMetadata) (string, error) {
	f.rec.add("image %s", content)
	if f.failOn != "" && strings.Contains(content, f.failOn) {
		return "", f.err
	}
	return "https://provider/" + strings.ReplaceAll(content, " ", "_"), nil
}

type fakeAssets struct{ rec *recorder }

func (f *fakeAssets) Relocate(ctx context.Context, accountID, sourceURL string) (string, error) {
	f.rec.add("relocate")
	return "https://bucket/" + accountID + "/x.jpg", nil
}

type memPosts struct {
	rec  *recorder
	mu   sync.Mutex
	byID map[string]*models.Post
}

func newMemPosts(rec *recorder) *memPosts {
	return &memPosts{rec: rec, byID: map[string]*models.Post{}}
}

func (m *memPosts) FindByDate(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.AccountID == accountID && p.Date.Equal(day) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memPosts) Create(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.add("create %s", common.FormatDate(p.Date))
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPosts) Update(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.add("update %s", common.FormatDate(p.Date))
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

type fakeLedger struct {
	rec     *recorder
	balance int64
}

func (l *fakeLedger) Debit(ctx context.Context, kind ledger.Kind) (int64, error) {
	l.rec.add("debit %s", kind)
	price := ledger.Price(kind)
	if l.balance < price {
		return l.balance, common.ErrInsufficientBalance
	}
	l.balance -= price
	return l.balance, nil
}

type fixture struct {
	rec    *recorder
	text   *fakeText
	image  *fakeImage
	posts  *memPosts
	ledger *fakeLedger
	orch   *Orchestrator
}

func newFixture(balance int64) *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:    rec,
		text:   &fakeText{rec: rec},
		image:  &fakeImage{rec: rec},
		posts:  newMemPosts(rec),
		ledger: &fakeLedger{rec: rec, balance: balance},
	}
	f.orch = NewOrchestrator(f.text, f.image, &fakeAssets{rec: rec}, f.posts, nil)
	return f
}

func (f *fixture) request(start string, days int) Request {
	d, _ := common.ParseDate(start)
	return Request{AccountID: "acc1", Start: d, Days: days, Ledger: f.ledger}
}

func TestRun_ThreeDaysInOrder(t *testing.T) {
	f := newFixture(100)

	var progress []Progress
	res, err := f.orch.Run(context.Background(), f.request("2024-05-01", 3), func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, StateComplete, res.State)
	require.Len(t, res.Posts, 3)
	for i, want := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		assert.Equal(t, want, common.FormatDate(res.Posts[i].Date))
	}

	var day1 []string
	for _, c := range f.rec.calls[:6] {
		day1 = append(day1, strings.Fields(c)[0])
	}
	assert.Equal(t, []string{"text", "image", "relocate", "create", "debit", "debit"}, day1)
	assert.Equal(t, "debit image", f.rec.calls[4])
	assert.Equal(t, "debit description", f.rec.calls[5])
	assert.Equal(t, "text 2024-05-02", f.rec.calls[6])
	assert.Equal(t, int64(100-27), f.ledger.balance)

	last := progress[len(progress)-1]
	assert.Equal(t, StateComplete, last.State)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, 1.0, last.Fraction)

	var persisted []float64
	for _, p := range progress {
		if p.State == StatePersisted {
			persisted = append(persisted, p.Fraction)
		}
	}
	assert.InDeltaSlice(t, []float64{1.0 / 3, 2.0 / 3, 1.0}, persisted, 1e-9)
}

func TestRun_FailureOnDayTwoKeepsDayOne(t *testing.T) {
	f := newFixture(100)
	f.text.failOn = "2024-05-02"
	f.text.err = fmt.Errorf("rate limited: %w", common.ErrTransientRemote)

	var last Progress
	res, err := f.orch.Run(context.Background(), f.request("2024-05-01", 3), func(p Progress) { last = p })
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransientRemote)

	var derr *DayError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "2024-05-02", common.FormatDate(derr.Date))

	assert.Equal(t, StateAborted, res.State)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "2024-05-01", common.FormatDate(res.Posts[0].Date))
	assert.Len(t, f.posts.byID, 1)
	assert.Equal(t, int64(91), f.ledger.balance, "only day one is billed")
	assert.NotContains(t, f.rec.calls, "text 2024-05-03")
	assert.Equal(t, StateAborted, last.State)
	assert.Equal(t, 1, last.Completed)
}

func TestRun_ImageFailureDoesNotPersistOrBill(t *testing.T) {
	f := newFixture(100)
	f.image.failOn = "2024-05-01"
	f.image.err = fmt.Errorf("missing url: %w", common.ErrMalformedResponse)

	res, err := f.orch.Run(context.Background(), f.request("2024-05-01", 1), nil)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
	assert.Empty(t, res.Posts)
	assert.Empty(t, f.posts.byID)
	assert.Equal(t, int64(100), f.ledger.balance)
}

func TestRun_RegenerateKeepsID(t *testing.T) {
	f := newFixture(100)
	d, _ := common.ParseDate("2024-05-01")
	f.posts.byID["existing-id"] = &models.Post{ID: "existing-id", AccountID: "acc1", Date: d, Content: "old", ImageURL: "old.jpg"}

	res, err := f.orch.Run(context.Background(), f.request("2024-05-01", 1), nil)
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "existing-id", res.Posts[0].ID)
	assert.Len(t, f.posts.byID, 1)
	assert.Equal(t, "post for 2024-05-01\n#tag", f.posts.byID["existing-id"].Content)
	assert.Contains(t, f.rec.calls, "update 2024-05-01")
}

func TestRun_DebitFailureKeepsPostAndStops(t *testing.T) {
	f := newFixture(8)

	res, err := f.orch.Run(context.Background(), f.request("2024-05-01", 2), nil)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	require.Len(t, res.Posts, 1)
	assert.Len(t, f.posts.byID, 1)
	assert.Equal(t, int64(0), f.ledger.balance)
	assert.NotContains(t, f.rec.calls, "text 2024-05-02")
}

func TestRun_CancelledBetweenDays(t *testing.T) {
	f := newFixture(100)
	ctx, cancel := context.WithCancel(context.Background())
	f.text.hook = func(day time.Time) {
		if common.FormatDate(day) == "2024-05-02" {
			cancel()
		}
	}

	res, err := f.orch.Run(ctx, f.request("2024-05-01", 5), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAborted, res.State)
	// Day two's own calls may still finish; day three never starts.
	assert.NotContains(t, f.rec.calls, "text 2024-05-03")
	assert.LessOrEqual(t, len(res.Posts), 2)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	f := newFixture(100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orch.Run(ctx, f.request("2024-05-01", 3), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Posts)
	assert.Empty(t, f.rec.calls)
}

func TestRun_InvalidDays(t *testing.T) {
	f := newFixture(100)
	_, err := f.orch.Run(context.Background(), f.request("2024-05-01", 0), nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.Empty(t, f.rec.calls)
}

func TestRun_CrossesMonthBoundary(t *testing.T) {
	f := newFixture(100)
	res, err := f.orch.Run(context.Background(), f.request("2024-02-28", 3), nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", common.FormatDate(res.Posts[2].Date))
}
