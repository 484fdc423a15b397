// Package grpc serves socialmaster.v1.ContentService.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/generation"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"google.golang.org/grpc"
)

type GenerationService interface {
	Generate(ctx context.Context, accountID string, start time.Time, days int, progress func(generation.Progress)) (*generation.Result, error)
	Balance(ctx context.Context, accountID string) (int64, error)
}

type PostService interface {
	ListPosts(ctx context.Context, accountID string, from, to time.Time) ([]*models.Post, error)
	GetPost(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	UpdateContent(ctx context.Context, accountID string, day time.Time, content string) (*models.Post, error)
	RegenerateImage(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	RegenerateContent(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	Publish(ctx context.Context, accountID string, day time.Time) (*models.Post, error)
	Stats(ctx context.Context, accountID string) (*models.Stats, error)
}

type ProfileService interface {
	GetProfile(ctx context.Context, accountID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, accountID, email string, meta models.ProfileMetadata) (*models.Profile, error)
	GetPreferences(ctx context.Context, accountID string) (*models.PostingPreferences, error)
	UpdatePreferences(ctx context.Context, p *models.PostingPreferences) (*models.PostingPreferences, error)
}

type SocialService interface {
	Connect(ctx context.Context, accountID, platform, externalID, accessToken string) (*models.SocialAccount, error)
	List(ctx context.Context, accountID string) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, accountID, id string) error
}

// Services bundles the business services behind the API.
type Services struct {
	Generation GenerationService
	Posts      PostService
	Profiles   ProfileService
	Social     SocialService
}

type GRPCServer struct {
	address   string
	services  Services
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, s Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		services:  s,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer returns a grpc.Server with the auth interceptors and the
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	srv := grpc.NewServer(opts...)
	api.RegisterContentServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
