package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/auth"
	"github.com/dmitrijs2005/socialmaster/internal/server/generation"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "test-secret"

// -------- fakes --------

type fakeGeneration struct {
	balance     int64
	balanceErr  error
	gotAccount  string
	gotStart    time.Time
	gotDays     int
	progress    []generation.Progress
	result      *generation.Result
	generateErr error
}

func (f *fakeGeneration) Balance(_ context.Context, accountID string) (int64, error) {
	f.gotAccount = accountID
	return f.balance, f.balanceErr
}

func (f *fakeGeneration) Generate(_ context.Context, accountID string, start time.Time, days int, progress func(generation.Progress)) (*generation.Result, error) {
	f.gotAccount, f.gotStart, f.gotDays = accountID, start, days
	for _, p := range f.progress {
		progress(p)
	}
	return f.result, f.generateErr
}

type fakePosts struct {
	PostService
	post       *models.Post
	err        error
	gotDay     time.Time
	gotContent string
}

func (f *fakePosts) GetPost(_ context.Context, _ string, day time.Time) (*models.Post, error) {
	f.gotDay = day
	return f.post, f.err
}

func (f *fakePosts) Publish(_ context.Context, _ string, day time.Time) (*models.Post, error) {
	f.gotDay = day
	return f.post, f.err
}

func (f *fakePosts) UpdateContent(_ context.Context, _ string, day time.Time, content string) (*models.Post, error) {
	f.gotDay, f.gotContent = day, content
	if f.err != nil {
		return nil, f.err
	}
	p := *f.post
	p.Content = content
	return &p, nil
}

func (f *fakePosts) ListPosts(context.Context, string, time.Time, time.Time) ([]*models.Post, error) {
	return []*models.Post{f.post}, f.err
}

func (f *fakePosts) Stats(context.Context, string) (*models.Stats, error) {
	return &models.Stats{Total: 3, Published: 1, Scheduled: 2}, nil
}

type fakeProfiles struct {
	ProfileService
	saved *models.PostingPreferences
}

func (f *fakeProfiles) UpdatePreferences(_ context.Context, p *models.PostingPreferences) (*models.PostingPreferences, error) {
	f.saved = p
	return p, nil
}

type fakeSocial struct {
	SocialService
	accounts []*models.SocialAccount
}

func (f *fakeSocial) List(context.Context, string) ([]*models.SocialAccount, error) {
	return f.accounts, nil
}

// -------- harness --------

type harness struct {
	conn    *grpc.ClientConn
	gen     *fakeGeneration
	posts   *fakePosts
	profile *fakeProfiles
	social  *fakeSocial
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gen:     &fakeGeneration{},
		posts:   &fakePosts{post: &models.Post{ID: "p1", Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Content: "hello"}},
		profile: &fakeProfiles{},
		social:  &fakeSocial{},
	}
	s := NewGRPCServer("bufnet", logging.NopLogger{}, Services{
		Generation: h.gen,
		Posts:      h.posts,
		Profiles:   h.profile,
		Social:     h.social,
	}, testSecret)

	lis := bufconn.Listen(1 << 20)
	srv := s.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	return h
}

func authed(t *testing.T, accountID string, validity time.Duration) context.Context {
	t.Helper()
	tok, err := auth.GenerateToken(accountID, []byte(testSecret), validity)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
}

func (h *harness) call(ctx context.Context, method string, req, resp any) error {
	in, err := api.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := h.conn.Invoke(ctx, api.FullMethod(method), in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return api.FromStruct(out, resp)
}

// -------- tests --------

func TestPing_NoTokenRequired(t *testing.T) {
	h := newHarness(t)

	var resp api.PingResponse
	require.NoError(t, h.call(context.Background(), api.MethodPing, api.Empty{}, &resp))
	assert.Equal(t, "OK", resp.Status)
}

func TestAuth(t *testing.T) {
	h := newHarness(t)

	err := h.call(context.Background(), api.MethodGetBalance, api.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	err = h.call(bad, api.MethodGetBalance, api.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = h.call(authed(t, "acc", -time.Minute), api.MethodGetBalance, api.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrTokenExpired.Error(), status.Convert(err).Message())
}

func TestGetBalance(t *testing.T) {
	h := newHarness(t)
	h.gen.balance = 27

	var resp api.BalanceResponse
	require.NoError(t, h.call(authed(t, "acc-1", time.Hour), api.MethodGetBalance, api.Empty{}, &resp))
	assert.Equal(t, int64(27), resp.Balance)
	assert.Equal(t, "acc-1", h.gen.gotAccount)
}

func TestGetBalance_Unavailable(t *testing.T) {
	h := newHarness(t)
	h.gen.balanceErr = common.ErrBalanceFetch

	err := h.call(authed(t, "acc", time.Hour), api.MethodGetBalance, api.Empty{}, nil)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestGetPost(t *testing.T) {
	h := newHarness(t)

	var resp api.PostResponse
	require.NoError(t, h.call(authed(t, "acc", time.Hour), api.MethodGetPost, api.DateRequest{Date: "2025-04-02"}, &resp))
	assert.Equal(t, "p1", resp.Post.ID)
	assert.Equal(t, "2025-04-02", resp.Post.Date)
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), h.posts.gotDay)

	err := h.call(authed(t, "acc", time.Hour), api.MethodGetPost, api.DateRequest{Date: "02.04.2025"}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestUpdatePostContent(t *testing.T) {
	h := newHarness(t)

	var resp api.PostResponse
	require.NoError(t, h.call(authed(t, "acc", time.Hour), api.MethodUpdatePostContent,
		api.UpdatePostContentRequest{Date: "2025-04-02", Content: "edited"}, &resp))
	assert.Equal(t, "edited", resp.Post.Content)
	assert.Equal(t, "edited", h.posts.gotContent)
}

func TestPublishPost_NoAccounts(t *testing.T) {
	h := newHarness(t)
	h.posts.err = common.ErrNoConnectedAccounts

	err := h.call(authed(t, "acc", time.Hour), api.MethodPublishPost, api.DateRequest{Date: "2025-04-02"}, nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestListPostsAndStats(t *testing.T) {
	h := newHarness(t)
	ctx := authed(t, "acc", time.Hour)

	var posts api.PostsResponse
	require.NoError(t, h.call(ctx, api.MethodListPosts, api.ListPostsRequest{From: "2025-04-01", To: "2025-04-30"}, &posts))
	require.Len(t, posts.Posts, 1)

	var st api.StatsResponse
	require.NoError(t, h.call(ctx, api.MethodGetStats, api.Empty{}, &st))
	assert.Equal(t, api.StatsResponse{Total: 3, Published: 1, Scheduled: 2}, st)
}

func TestUpdatePreferences(t *testing.T) {
	h := newHarness(t)

	var resp api.Preferences
	require.NoError(t, h.call(authed(t, "acc-9", time.Hour), api.MethodUpdatePreferences,
		api.Preferences{AutoPublish: true, DefaultTime: "08:30", Facebook: true}, &resp))
	assert.True(t, resp.AutoPublish)
	require.NotNil(t, h.profile.saved)
	assert.Equal(t, "acc-9", h.profile.saved.AccountID)
}

func TestListSocialAccounts_HidesTokens(t *testing.T) {
	h := newHarness(t)
	h.social.accounts = []*models.SocialAccount{{ID: "s1", Platform: "facebook", ExternalID: "page", AccessToken: "secret", IsConnected: true}}

	in, err := api.ToStruct(api.Empty{})
	require.NoError(t, err)
	out := new(structpb.Struct)
	require.NoError(t, h.conn.Invoke(authed(t, "acc", time.Hour), api.FullMethod(api.MethodListSocialAccounts), in, out))

	raw := out.Fields["accounts"].GetListValue().GetValues()[0].GetStructValue()
	assert.Equal(t, "s1", raw.Fields["id"].GetStringValue())
	_, hasToken := raw.Fields["access_token"]
	assert.False(t, hasToken)
}

func openBatch(t *testing.T, h *harness, ctx context.Context, req api.GenerateBatchRequest) grpc.ClientStream {
	t.Helper()
	stream, err := h.conn.NewStream(ctx, &api.ServiceDesc.Streams[0], api.FullMethod(api.MethodGenerateBatch))
	require.NoError(t, err)
	in, err := api.ToStruct(req)
	require.NoError(t, err)
	// A rejected stream reports io.EOF here; the status surfaces on RecvMsg.
	if err := stream.SendMsg(in); !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	require.NoError(t, stream.CloseSend())
	return stream
}

func drain(stream grpc.ClientStream) ([]api.BatchEvent, error) {
	var events []api.BatchEvent
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		var ev api.BatchEvent
		if err := api.FromStruct(msg, &ev); err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func TestGenerateBatch_Complete(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	h.gen.progress = []generation.Progress{
		{State: generation.StatePending, Date: day, Total: 1},
		{State: generation.StateGenerating, Date: day, Total: 1},
		{State: generation.StatePersisted, Date: day, Completed: 1, Total: 1, Fraction: 1},
		{State: generation.StateComplete, Date: day, Completed: 1, Total: 1, Fraction: 1},
	}
	h.gen.result = &generation.Result{State: generation.StateComplete, Posts: []*models.Post{{ID: "p1", Date: day}}}

	events, err := drain(openBatch(t, h, authed(t, "acc", time.Hour), api.GenerateBatchRequest{Start: "2025-04-01", Days: 1}))
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "generating", events[1].State)
	assert.Equal(t, "2025-04-01", events[1].Date)
	last := events[3]
	assert.Equal(t, "complete", last.State)
	assert.Equal(t, 1, last.Completed)
	require.Len(t, last.Posts, 1)
	assert.Equal(t, "p1", last.Posts[0].ID)

	assert.Equal(t, day, h.gen.gotStart)
	assert.Equal(t, 1, h.gen.gotDays)
}

func TestGenerateBatch_AbortKeepsPersistedPosts(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	h.gen.result = &generation.Result{State: generation.StateAborted, Posts: []*models.Post{{ID: "p1", Date: day}}}
	h.gen.generateErr = &generation.DayError{Date: day.AddDate(0, 0, 1), Err: common.ErrTransientRemote}

	events, err := drain(openBatch(t, h, authed(t, "acc", time.Hour), api.GenerateBatchRequest{Start: "2025-04-01", Days: 3}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	require.Len(t, events, 1)
	assert.Equal(t, "aborted", events[0].State)
	assert.Contains(t, events[0].Error, "2025-04-02")
	assert.Len(t, events[0].Posts, 1)
}

func TestGenerateBatch_Rejected(t *testing.T) {
	h := newHarness(t)
	h.gen.generateErr = common.ErrInsufficientBalance

	_, err := drain(openBatch(t, h, authed(t, "acc", time.Hour), api.GenerateBatchRequest{Start: "2025-04-01", Days: 3}))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestGenerateBatch_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := drain(openBatch(t, h, context.Background(), api.GenerateBatchRequest{Start: "2025-04-01", Days: 1}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.NopLogger{}, Services{}, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.NopLogger{}, Services{}, "secret")
	assert.Error(t, srv.Run(context.Background()))
}
