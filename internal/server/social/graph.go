// Package social publishes posts to Facebook pages and Instagram business
// accounts through the Graph API.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/netx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// GraphClient is not retried: publish calls are not idempotent.
type GraphClient struct {
	baseURL string
	http    *http.Client
}

func NewGraphClient(baseURL string, httpClient *http.Client) *GraphClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = netx.NewClient(60 * time.Second)
	}
	return &GraphClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Publish posts p to acc and returns the platform's post id.
func (c *GraphClient) Publish(ctx context.Context, acc *models.SocialAccount, p *models.Post) (string, error) {
	switch acc.Platform {
	case models.PlatformFacebook:
		return c.publishFacebook(ctx, acc, p)
	case models.PlatformInstagram:
		return c.publishInstagram(ctx, acc, p)
	default:
		return "", fmt.Errorf("unsupported platform %q: %w", acc.Platform, common.ErrInvalidArgument)
	}
}

func (c *GraphClient) publishFacebook(ctx context.Context, acc *models.SocialAccount, p *models.Post) (string, error) {
	form := url.Values{"access_token": {acc.AccessToken}}
	edge := "feed"
	if p.ImageURL != "" {
		edge = "photos"
		form.Set("url", p.ImageURL)
		form.Set("caption", p.Content)
	} else {
		form.Set("message", p.Content)
	}
	return c.post(ctx, acc.ExternalID+"/"+edge, form)
}

func (c *GraphClient) publishInstagram(ctx context.Context, acc *models.SocialAccount, p *models.Post) (string, error) {
	if p.ImageURL == "" {
		return "", fmt.Errorf("instagram posts need an image: %w", common.ErrInvalidArgument)
	}
	containerID, err := c.post(ctx, acc.ExternalID+"/media", url.Values{
		"access_token": {acc.AccessToken},
		"image_url":    {p.ImageURL},
		"caption":      {p.Content},
	})
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	return c.post(ctx, acc.ExternalID+"/media_publish", url.Values{
		"access_token": {acc.AccessToken},
		"creation_id":  {containerID},
	})
}

func (c *GraphClient) post(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", netx.TransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("graph %s: %w", path, err)
	}

	var payload struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode graph response: %v: %w", err, common.ErrMalformedResponse)
	}
	if payload.PostID != "" {
		return payload.PostID, nil
	}
	if payload.ID == "" {
		return "", fmt.Errorf("graph response has no id: %w", common.ErrMalformedResponse)
	}
	return payload.ID, nil
}
