package grpc

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func decode(in *structpb.Struct, v any) error {
	if err := api.FromStruct(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := common.ParseDate(value)
	if err != nil {
		return time.Time{}, status.Error(codes.InvalidArgument, fmt.Sprintf("%s: expected YYYY-MM-DD, got %q", field, value))
	}
	return d, nil
}

func toPost(p *models.Post) api.Post {
	out := api.Post{
		ID:        p.ID,
		Date:      common.FormatDate(p.Date),
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Published: p.Published,
	}
	if p.PublishedAt != nil {
		out.PublishedAt = p.PublishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toPosts(posts []*models.Post) []api.Post {
	out := make([]api.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPost(p))
	}
	return out
}

func toSocialAccount(a *models.SocialAccount) api.SocialAccount {
	out := api.SocialAccount{
		ID:          a.ID,
		Platform:    a.Platform,
		ExternalID:  a.ExternalID,
		IsConnected: a.IsConnected,
	}
	if !a.CreatedAt.IsZero() {
		out.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toPreferences(p *models.PostingPreferences) api.Preferences {
	return api.Preferences{
		AutoPublish: p.AutoPublish,
		DefaultTime: p.DefaultTime,
		Facebook:    p.Facebook,
		Instagram:   p.Instagram,
	}
}
