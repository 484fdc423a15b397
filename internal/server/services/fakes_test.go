package services

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/cryptox"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/balances"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/posts"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/socialaccounts"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeRM struct {
	repomanager.RepositoryManager
	posts    *fakePostsRepo
	profiles *fakeProfilesRepo
	prefs    *fakePrefsRepo
	social   *fakeSocialRepo
}

func newFakeRM() *fakeRM {
	return &fakeRM{
		posts:    &fakePostsRepo{byDate: map[string]*models.Post{}, delivered: map[string]map[string]string{}},
		profiles: &fakeProfilesRepo{},
		prefs:    &fakePrefsRepo{},
		social:   &fakeSocialRepo{},
	}
}

func (f *fakeRM) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (f *fakeRM) Balances(dbx.DBTX) balances.Repository             { return nil }
func (f *fakeRM) Posts(dbx.DBTX) posts.Repository                   { return f.posts }
func (f *fakeRM) Profiles(dbx.DBTX) profiles.Repository             { return f.profiles }
func (f *fakeRM) Preferences(dbx.DBTX) preferences.Repository       { return f.prefs }
func (f *fakeRM) SocialAccounts(dbx.DBTX) socialaccounts.Repository { return f.social }

type fakePostsRepo struct {
	posts.Repository
	byDate    map[string]*models.Post
	updated   int
	published []string
	markErr   error
	due       []*models.Post
	delivered map[string]map[string]string
}

func (f *fakePostsRepo) put(p *models.Post) {
	f.byDate[p.AccountID+"|"+common.FormatDate(p.Date)] = p
}

func (f *fakePostsRepo) FindByDate(_ context.Context, accountID string, day time.Time) (*models.Post, error) {
	p, ok := f.byDate[accountID+"|"+common.FormatDate(day)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakePostsRepo) Update(_ context.Context, p *models.Post) error {
	f.updated++
	f.put(p)
	return nil
}

func (f *fakePostsRepo) ListRange(_ context.Context, accountID string, from, to time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if p, ok := f.byDate[accountID+"|"+common.FormatDate(d)]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostsRepo) MarkPublished(_ context.Context, accountID, id string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakePostsRepo) ListDue(context.Context, time.Time) ([]*models.Post, error) {
	return f.due, nil
}

func (f *fakePostsRepo) RecordDelivery(_ context.Context, postID, socialAccountID, remoteID string, _ time.Time) error {
	if f.delivered[postID] == nil {
		f.delivered[postID] = map[string]string{}
	}
	if _, ok := f.delivered[postID][socialAccountID]; !ok {
		f.delivered[postID][socialAccountID] = remoteID
	}
	return nil
}

func (f *fakePostsRepo) Deliveries(_ context.Context, postID string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range f.delivered[postID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakePostsRepo) Stats(context.Context, string) (*models.Stats, error) {
	var s models.Stats
	for _, p := range f.byDate {
		s.Total++
		if p.Published {
			s.Published++
		}
	}
	s.Scheduled = s.Total - s.Published
	return &s, nil
}

type fakeProfilesRepo struct {
	profiles.Repository
	profile *models.Profile
	saved   *models.Profile
}

func (f *fakeProfilesRepo) Get(context.Context, string) (*models.Profile, error) {
	if f.profile == nil {
		return nil, common.ErrorNotFound
	}
	return f.profile, nil
}

func (f *fakeProfilesRepo) Upsert(_ context.Context, p *models.Profile) error {
	f.saved = p
	f.profile = p
	return nil
}

type fakePrefsRepo struct {
	preferences.Repository
	prefs *models.PostingPreferences
	saved *models.PostingPreferences
}

func (f *fakePrefsRepo) Get(context.Context, string) (*models.PostingPreferences, error) {
	if f.prefs == nil {
		return nil, common.ErrorNotFound
	}
	return f.prefs, nil
}

func (f *fakePrefsRepo) Upsert(_ context.Context, p *models.PostingPreferences) error {
	f.saved = p
	return nil
}

type fakeSocialRepo struct {
	socialaccounts.Repository
	accounts      []*models.SocialAccount
	upserted      []*models.SocialAccount
	connectedOnly bool
	disconnectErr error
}

func (f *fakeSocialRepo) Upsert(_ context.Context, a *models.SocialAccount) error {
	a.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.upserted = append(f.upserted, a)
	return nil
}

func (f *fakeSocialRepo) List(_ context.Context, _ string, connectedOnly bool) ([]*models.SocialAccount, error) {
	f.connectedOnly = connectedOnly
	out := make([]*models.SocialAccount, len(f.accounts))
	copy(out, f.accounts)
	return out, nil
}

func (f *fakeSocialRepo) Disconnect(context.Context, string, string) error {
	return f.disconnectErr
}

// fakeBalances is an in-memory ledger.Store.
type fakeBalances struct {
	mu      sync.Mutex
	balance int64
	readErr error
	debits  []int64
}

func (f *fakeBalances) Read(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.balance, nil
}

func (f *fakeBalances) Decrement(_ context.Context, _ string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < amount {
		return 0, common.ErrInsufficientBalance
	}
	f.balance -= amount
	f.debits = append(f.debits, amount)
	return f.balance, nil
}

type fakeContent struct {
	text      string
	image     string
	err       error
	textCalls int
	imgCalls  int
	imgInput  string
}

func (f *fakeContent) GenerateText(context.Context, models.ProfileMetadata, time.Time) (string, error) {
	f.textCalls++
	return f.text, f.err
}

func (f *fakeContent) GenerateImage(_ context.Context, _ string, content string, _ models.ProfileMetadata) (string, error) {
	f.imgCalls++
	f.imgInput = content
	return f.image, f.err
}

func testSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

type fakeSocialPublisher struct {
	calls  []string
	tokens []string
	err    error
	failOn map[string]error
}

func (f *fakeSocialPublisher) Publish(_ context.Context, acc *models.SocialAccount, _ *models.Post) (string, error) {
	f.calls = append(f.calls, acc.Platform)
	f.tokens = append(f.tokens, acc.AccessToken)
	if f.err != nil {
		return "", f.err
	}
	if err := f.failOn[acc.Platform]; err != nil {
		return "", err
	}
	return "remote-" + acc.Platform, nil
}

type publishedEvent struct {
	key  string
	body any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(_ context.Context, key string, body any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{key: key, body: body})
	return nil
}

func (r *recordingPublisher) Close() {}

func (r *recordingPublisher) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.key)
	}
	return out
}
