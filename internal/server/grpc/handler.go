package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/generation"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	} else {
		s.logger.Debug(ctx, "request rejected", "method", method, "error", err)
	}
	return st
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encode(api.PingResponse{Status: "OK"})
}

func (s *GRPCServer) GetBalance(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.services.Generation.Balance(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, api.MethodGetBalance, err)
	}
	return encode(api.BalanceResponse{Balance: b})
}

func (s *GRPCServer) ListPosts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.ListPostsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		return nil, err
	}

	posts, err := s.services.Posts.ListPosts(ctx, accountID, from, to)
	if err != nil {
		return nil, s.fail(ctx, api.MethodListPosts, err)
	}
	return encode(api.PostsResponse{Posts: toPosts(posts)})
}

// postByDate serves the unary methods that address one post by its date.
func (s *GRPCServer) postByDate(ctx context.Context, method string, in *structpb.Struct,
	call func(ctx context.Context, accountID string, day time.Time) (*models.Post, error)) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.DateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	p, err := call(ctx, accountID, day)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}
	return encode(api.PostResponse{Post: toPost(p)})
}

func (s *GRPCServer) GetPost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.postByDate(ctx, api.MethodGetPost, in, func(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
		return s.services.Posts.GetPost(ctx, accountID, day)
	})
}

func (s *GRPCServer) RegenerateImage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.postByDate(ctx, api.MethodRegenerateImage, in, func(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
		return s.services.Posts.RegenerateImage(ctx, accountID, day)
	})
}

func (s *GRPCServer) RegenerateContent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.postByDate(ctx, api.MethodRegenerateContent, in, func(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
		return s.services.Posts.RegenerateContent(ctx, accountID, day)
	})
}

func (s *GRPCServer) PublishPost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.postByDate(ctx, api.MethodPublishPost, in, func(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
		return s.services.Posts.Publish(ctx, accountID, day)
	})
}

func (s *GRPCServer) UpdatePostContent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.UpdatePostContentRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Posts.UpdateContent(ctx, accountID, day, req.Content)
	if err != nil {
		return nil, s.fail(ctx, api.MethodUpdatePostContent, err)
	}
	return encode(api.PostResponse{Post: toPost(p)})
}

func (s *GRPCServer) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.services.Posts.Stats(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, api.MethodGetStats, err)
	}
	return encode(api.StatsResponse{Total: st.Total, Published: st.Published, Scheduled: st.Scheduled})
}

func (s *GRPCServer) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.services.Profiles.GetProfile(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, api.MethodGetProfile, err)
	}
	return encode(api.Profile{Email: p.Email, Metadata: p.Metadata})
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.Profile
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	p, err := s.services.Profiles.UpdateProfile(ctx, accountID, req.Email, req.Metadata)
	if err != nil {
		return nil, s.fail(ctx, api.MethodUpdateProfile, err)
	}
	return encode(api.Profile{Email: p.Email, Metadata: p.Metadata})
}

func (s *GRPCServer) GetPreferences(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.services.Profiles.GetPreferences(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, api.MethodGetPreferences, err)
	}
	return encode(toPreferences(p))
}

func (s *GRPCServer) UpdatePreferences(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.Preferences
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	p, err := s.services.Profiles.UpdatePreferences(ctx, &models.PostingPreferences{
		AccountID:   accountID,
		AutoPublish: req.AutoPublish,
		DefaultTime: req.DefaultTime,
		Facebook:    req.Facebook,
		Instagram:   req.Instagram,
	})
	if err != nil {
		return nil, s.fail(ctx, api.MethodUpdatePreferences, err)
	}
	return encode(toPreferences(p))
}

func (s *GRPCServer) ConnectSocialAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.ConnectSocialAccountRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	a, err := s.services.Social.Connect(ctx, accountID, req.Platform, req.ExternalID, req.AccessToken)
	if err != nil {
		return nil, s.fail(ctx, api.MethodConnectSocialAccount, err)
	}
	return encode(api.SocialAccountResponse{Account: toSocialAccount(a)})
}

func (s *GRPCServer) ListSocialAccounts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.services.Social.List(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, api.MethodListSocialAccounts, err)
	}
	out := make([]api.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toSocialAccount(a))
	}
	return encode(api.SocialAccountsResponse{Accounts: out})
}

func (s *GRPCServer) DisconnectSocialAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var req api.IDRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := s.services.Social.Disconnect(ctx, accountID, req.ID); err != nil {
		return nil, s.fail(ctx, api.MethodDisconnectSocialAccount, err)
	}
	return encode(api.Empty{})
}

// GenerateBatch streams one event per progress report. A failed batch ends
// with an "aborted" event followed by the mapped status error.
func (s *GRPCServer) GenerateBatch(in *structpb.Struct, stream api.GenerateBatchServer) error {
	ctx := stream.Context()
	accountID, err := accountIDFromContext(ctx)
	if err != nil {
		return err
	}
	var req api.GenerateBatchRequest
	if err := decode(in, &req); err != nil {
		return err
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		return err
	}

	var sendErr error
	send := func(ev api.BatchEvent) {
		if sendErr != nil {
			return
		}
		msg, err := encode(ev)
		if err != nil {
			sendErr = err
			return
		}
		sendErr = stream.Send(msg)
	}

	progress := func(p generation.Progress) {
		// Terminal states are sent below together with the posts.
		if p.State == generation.StateComplete || p.State == generation.StateAborted {
			return
		}
		send(api.BatchEvent{
			State:     string(p.State),
			Date:      common.FormatDate(p.Date),
			Completed: p.Completed,
			Total:     p.Total,
			Fraction:  p.Fraction,
		})
	}

	s.logger.Info(ctx, "batch requested", "account_id", accountID, "start", req.Start, "days", req.Days)
	res, runErr := s.services.Generation.Generate(ctx, accountID, start, req.Days, progress)
	if res == nil {
		return s.fail(ctx, api.MethodGenerateBatch, runErr)
	}

	final := api.BatchEvent{
		State:     string(res.State),
		Completed: len(res.Posts),
		Total:     req.Days,
		Fraction:  float64(len(res.Posts)) / float64(req.Days),
		Posts:     toPosts(res.Posts),
	}
	if runErr != nil {
		final.State = string(generation.StateAborted)
		final.Error = runErr.Error()
	}
	send(final)

	if runErr != nil {
		return s.fail(ctx, api.MethodGenerateBatch, runErr)
	}
	return sendErr
}
