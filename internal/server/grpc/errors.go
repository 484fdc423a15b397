package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC status codes. Unknown errors are
// reported as Internal without their text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, common.ErrInsufficientBalance):
		code = codes.ResourceExhausted
	case errors.Is(err, common.ErrBatchInFlight):
		code = codes.Aborted
	case errors.Is(err, common.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrNoConnectedAccounts), errors.Is(err, common.ErrAuthorization):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrTransientRemote), errors.Is(err, common.ErrBalanceFetch):
		code = codes.Unavailable
	case errors.Is(err, common.ErrMalformedResponse):
		code = codes.Internal
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrorUnauthorized):
		code = codes.Unauthenticated
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return status.Error(code, err.Error())
}
