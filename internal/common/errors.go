// Package common defines shared constants and sentinel errors used across
// the server, its API clients and the CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Token balance errors.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceFetch        = errors.New("balance unavailable")

	// Upstream (text, image, storage, graph API) errors.
	ErrTransientRemote   = errors.New("transient remote error")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrAuthorization     = errors.New("upstream authorization failed")

	// Generation and publishing flow errors.
	ErrBatchInFlight       = errors.New("generation batch already in progress")
	ErrNoConnectedAccounts = errors.New("no connected social media accounts")
)
