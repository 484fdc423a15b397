package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// NewGRPCClient connects to endpointURL. Extra dial options are appended to
// the defaults (insecure transport and the token interceptors).
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.accessTokenStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	in, err := api.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, api.FullMethod(method), in, out); err != nil {
		return s.mapError(err)
	}
	if resp == nil {
		return nil
	}
	return api.FromStruct(out, resp)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp api.PingResponse
	if err := s.call(ctx, api.MethodPing, api.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Balance(ctx context.Context) (int64, error) {
	var resp api.BalanceResponse
	err := s.call(ctx, api.MethodGetBalance, api.Empty{}, &resp)
	return resp.Balance, err
}

func (s *GRPCClient) ListPosts(ctx context.Context, from, to string) ([]api.Post, error) {
	var resp api.PostsResponse
	err := s.call(ctx, api.MethodListPosts, api.ListPostsRequest{From: from, To: to}, &resp)
	return resp.Posts, err
}

func (s *GRPCClient) postCall(ctx context.Context, method string, req any) (api.Post, error) {
	var resp api.PostResponse
	err := s.call(ctx, method, req, &resp)
	return resp.Post, err
}

func (s *GRPCClient) GetPost(ctx context.Context, date string) (api.Post, error) {
	return s.postCall(ctx, api.MethodGetPost, api.DateRequest{Date: date})
}

func (s *GRPCClient) UpdatePostContent(ctx context.Context, date, content string) (api.Post, error) {
	return s.postCall(ctx, api.MethodUpdatePostContent, api.UpdatePostContentRequest{Date: date, Content: content})
}

func (s *GRPCClient) RegenerateImage(ctx context.Context, date string) (api.Post, error) {
	return s.postCall(ctx, api.MethodRegenerateImage, api.DateRequest{Date: date})
}

func (s *GRPCClient) RegenerateContent(ctx context.Context, date string) (api.Post, error) {
	return s.postCall(ctx, api.MethodRegenerateContent, api.DateRequest{Date: date})
}

func (s *GRPCClient) PublishPost(ctx context.Context, date string) (api.Post, error) {
	return s.postCall(ctx, api.MethodPublishPost, api.DateRequest{Date: date})
}

func (s *GRPCClient) Stats(ctx context.Context) (api.StatsResponse, error) {
	var resp api.StatsResponse
	err := s.call(ctx, api.MethodGetStats, api.Empty{}, &resp)
	return resp, err
}

func (s *GRPCClient) GetProfile(ctx context.Context) (api.Profile, error) {
	var resp api.Profile
	err := s.call(ctx, api.MethodGetProfile, api.Empty{}, &resp)
	return resp, err
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, p api.Profile) (api.Profile, error) {
	var resp api.Profile
	err := s.call(ctx, api.MethodUpdateProfile, p, &resp)
	return resp, err
}

func (s *GRPCClient) GetPreferences(ctx context.Context) (api.Preferences, error) {
	var resp api.Preferences
	err := s.call(ctx, api.MethodGetPreferences, api.Empty{}, &resp)
	return resp, err
}

func (s *GRPCClient) UpdatePreferences(ctx context.Context, p api.Preferences) (api.Preferences, error) {
	var resp api.Preferences
	err := s.call(ctx, api.MethodUpdatePreferences, p, &resp)
	return resp, err
}

func (s *GRPCClient) ConnectSocialAccount(ctx context.Context, req api.ConnectSocialAccountRequest) (api.SocialAccount, error) {
	var resp api.SocialAccountResponse
	err := s.call(ctx, api.MethodConnectSocialAccount, req, &resp)
	return resp.Account, err
}

func (s *GRPCClient) ListSocialAccounts(ctx context.Context) ([]api.SocialAccount, error) {
	var resp api.SocialAccountsResponse
	err := s.call(ctx, api.MethodListSocialAccounts, api.Empty{}, &resp)
	return resp.Accounts, err
}

func (s *GRPCClient) DisconnectSocialAccount(ctx context.Context, id string) error {
	return s.call(ctx, api.MethodDisconnectSocialAccount, api.IDRequest{ID: id}, nil)
}

// GenerateBatch runs a batch and calls onEvent for every streamed event. It
// returns the last event received, which for a failed batch is the
// "aborted" event listing the posts that were kept.
func (s *GRPCClient) GenerateBatch(ctx context.Context, start string, days int, onEvent func(api.BatchEvent)) (api.BatchEvent, error) {
	var last api.BatchEvent

	stream, err := s.conn.NewStream(ctx, &api.ServiceDesc.Streams[0], api.FullMethod(api.MethodGenerateBatch))
	if err != nil {
		return last, s.mapError(err)
	}
	in, err := api.ToStruct(api.GenerateBatchRequest{Start: start, Days: days})
	if err != nil {
		return last, err
	}
	if err := stream.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
		return last, s.mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return last, s.mapError(err)
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return last, nil
			}
			return last, s.mapError(err)
		}
		var ev api.BatchEvent
		if err := api.FromStruct(msg, &ev); err != nil {
			return last, err
		}
		last = ev
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	var target error
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		target = ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		target = ErrUnavailable
	case codes.ResourceExhausted:
		target = common.ErrInsufficientBalance
	case codes.Aborted:
		target = common.ErrBatchInFlight
	case codes.NotFound:
		target = common.ErrorNotFound
	case codes.InvalidArgument:
		target = common.ErrInvalidArgument
	case codes.Canceled:
		target = context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return fmt.Errorf("%w: %s", target, st.Message())
}
