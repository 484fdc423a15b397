// Package imagegen generates post images through the Ideogram API.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/netx"
	"github.com/dmitrijs2005/socialmaster/internal/retryx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

const DefaultBaseURL = "https://api.ideogram.ai"

var (
	// ErrUnexpectedStatus wraps a non-2xx response; it also matches the
	// taxonomy error for the status code.
	ErrUnexpectedStatus = errors.New("unexpected image api status")
	// ErrUnexpectedContentType means the API answered with something other than JSON.
	ErrUnexpectedContentType = errors.New("unexpected image api content type")
	// ErrMissingImageURL means the response carried no data[0].url.
	ErrMissingImageURL = errors.New("image api response has no image url")
)

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retryx.Policy
	// StripDiacriticsLangs lists post languages whose prompts are ASCII-folded.
	StripDiacriticsLangs []string
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = netx.NewClient(60 * time.Second)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retryx.DefaultPolicy
	}
	if cfg.StripDiacriticsLangs == nil {
		cfg.StripDiacriticsLangs = []string{"pl"}
	}
	return &Client{cfg: cfg}
}

type imageRequest struct {
	Prompt            string `json:"prompt"`
	AspectRatio       string `json:"aspect_ratio"`
	Model             string `json:"model"`
	MagicPromptOption string `json:"magic_prompt_option"`
}

type generateRequest struct {
	ImageRequest imageRequest `json:"image_request"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate asks for an image illustrating content and returns the
// provider-hosted URL. The URL is short-lived; callers relocate the asset.
func (c *Client) Generate(ctx context.Context, content string, meta models.ProfileMetadata) (string, error) {
	body, err := json.Marshal(generateRequest{ImageRequest: imageRequest{
		Prompt:            BuildPrompt(content, meta, c.cfg.StripDiacriticsLangs),
		AspectRatio:       "ASPECT_1_1",
		Model:             "V_2",
		MagicPromptOption: "AUTO",
	}})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	var url string
	err = retryx.Do(ctx, c.cfg.Retry, func(ctx context.Context) error {
		u, err := c.do(ctx, body)
		if err != nil {
			return err
		}
		url = u
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	return url, nil
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", netx.TransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnexpectedStatus, err)
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
		return "", fmt.Errorf("%w %q: %w", ErrUnexpectedContentType, ct, common.ErrMalformedResponse)
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode image response: %v: %w", err, common.ErrMalformedResponse)
	}
	if len(payload.Data) == 0 || strings.TrimSpace(payload.Data[0].URL) == "" {
		return "", fmt.Errorf("%w: %w", ErrMissingImageURL, common.ErrMalformedResponse)
	}
	return payload.Data[0].URL, nil
}
