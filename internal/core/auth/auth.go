// Package auth provides HMAC-based API key authentication for the check
// service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/formatkeeper/internal/core/db"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const keyNameKey = contextKey("api_key_name")

// KeyStore is the slice of the history store authentication needs.
// *db.Store satisfies it.
type KeyStore interface {
	GetAPIKeyByHash(ctx context.Context, keyHash []byte) (*db.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
type Authenticator struct {
	secrets map[string][]byte
	keys    KeyStore
	log     *slog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and a key store.
func NewAuthenticator(secrets map[string][]byte, keys KeyStore, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		secrets: secrets,
		keys:    keys,
		log:     log,
		now:     time.Now,
	}
}

// Authenticate validates an API key and returns its name.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	key, err := a.keys.GetAPIKeyByHash(ctx, ComputeHMAC(secret, apiKey))
	if errors.Is(err, db.ErrAPIKeyNotFound) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if key.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Throttled to one write a minute per key.
	now := a.now()
	if !key.LastUsedAt.Valid || now.Sub(key.LastUsedAt.Time) > time.Minute {
		if err := a.keys.TouchAPIKey(ctx, key.ID, now); err != nil {
			a.log.Warn("failed to update key last_used_at", "key", key.Name, "error", err)
		}
	}

	return key.Name, nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		name, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, ErrStoreUnavailable):
				a.log.Error("authentication failed", "method", info.FullMethod, "error", err)
				return nil, status.Error(codes.Unavailable, ErrStoreUnavailable.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(context.WithValue(ctx, keyNameKey, name), req)
	}
}

// KeyNameFromContext returns the name of the authenticated key, or "".
func KeyNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(keyNameKey).(string); ok {
		return name
	}
	return ""
}
