// Package netx holds the HTTP plumbing shared by the upstream API clients:
// status classification into the common error taxonomy and a bounded
// download helper used for asset relocation.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
)

// MaxErrorBody caps how much of an error response body ends up in errors.
const MaxErrorBody = 4096

// MaxDownload caps downloaded assets.
const MaxDownload = 20 << 20

// downloadLimit is MaxDownload; tests lower it.
var downloadLimit int64 = MaxDownload

// ErrTooLarge is returned by Fetch for bodies over the download limit.
var ErrTooLarge = fmt.Errorf("download exceeds %d bytes: %w", MaxDownload, common.ErrMalformedResponse)

// NewClient returns an HTTP client with the given overall request timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }

// ClassifyStatus maps an HTTP status code to the error taxonomy:
// 401/403 are authorization failures, 408/429/5xx are transient and
// everything else is treated as a malformed exchange.
func ClassifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return common.ErrAuthorization
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return common.ErrTransientRemote
	default:
		return common.ErrMalformedResponse
	}
}

// CheckResponse returns nil for 2xx responses and a *StatusError otherwise.
// It reads at most MaxErrorBody bytes of the body.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
		kind:       ClassifyStatus(resp.StatusCode),
	}
}

// TransportError classifies an error returned by http.Client.Do. Context
// cancellation is passed through untouched; anything else is transient.
func TransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrTransientRemote, err)
}

// Fetch downloads url and returns the body and its Content-Type.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", TransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.ContentLength > downloadLimit {
		return nil, "", fmt.Errorf("fetch %s: %d bytes: %w", url, resp.ContentLength, ErrTooLarge)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, downloadLimit+1))
	if err != nil {
		return nil, "", TransportError(ctx, err)
	}
	if int64(len(b)) > downloadLimit {
		return nil, "", fmt.Errorf("fetch %s: %w", url, ErrTooLarge)
	}
	return b, resp.Header.Get("Content-Type"), nil
}
