// Package client is the gRPC client of socialmaster.v1.ContentService.
//
// GRPCClient attaches the access token to every call and maps gRPC status
// codes back to the sentinel errors in internal/common (plus ErrUnavailable
// and ErrUnauthorized), so callers can match them with errors.Is.
package client
