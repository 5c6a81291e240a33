package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/formatkeeper/internal/core/db"
)

// Error mapping:
// Auth errors are mapped in the auth package interceptor.
// Store errors map to UNAVAILABLE, missing runs to NOT_FOUND.
// Validation errors map to INVALID_ARGUMENT.
// Context cancellation and timeouts keep their context codes.
func toStatus(ctx context.Context, err error, msg string) error {
	switch {
	case ctx.Err() != nil:
		return status.FromContextError(ctx.Err()).Err()
	case errors.Is(err, db.ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Unavailable, "%s: %v", msg, err)
	}
}
