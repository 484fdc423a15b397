package client

import (
	"context"

	"github.com/dmitrijs2005/socialmaster/internal/api"
)

// Client is the API surface used by the CLI.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Balance(ctx context.Context) (int64, error)
	ListPosts(ctx context.Context, from, to string) ([]api.Post, error)
	GetPost(ctx context.Context, date string) (api.Post, error)
	UpdatePostContent(ctx context.Context, date, content string) (api.Post, error)
	RegenerateImage(ctx context.Context, date string) (api.Post, error)
	RegenerateContent(ctx context.Context, date string) (api.Post, error)
	PublishPost(ctx context.Context, date string) (api.Post, error)
	Stats(ctx context.Context) (api.StatsResponse, error)
	GetProfile(ctx context.Context) (api.Profile, error)
	UpdateProfile(ctx context.Context, p api.Profile) (api.Profile, error)
	GetPreferences(ctx context.Context) (api.Preferences, error)
	UpdatePreferences(ctx context.Context, p api.Preferences) (api.Preferences, error)
	ConnectSocialAccount(ctx context.Context, req api.ConnectSocialAccountRequest) (api.SocialAccount, error)
	ListSocialAccounts(ctx context.Context) ([]api.SocialAccount, error)
	DisconnectSocialAccount(ctx context.Context, id string) error
	GenerateBatch(ctx context.Context, start string, days int, onEvent func(api.BatchEvent)) (api.BatchEvent, error)
}
