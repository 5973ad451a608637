// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"wallet-ledger/internal/util"

	"github.com/google/uuid"
)

type contextKey struct{}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware requires an active identity on every request it wraps.
func Middleware(provider Provider, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := provider.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			if !identity.IsActive {
				onError(w, r, util.Unauthorized("account is disabled"))
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only identities holding role. It must run after
// Middleware.
func RequireRole(role string, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				onError(w, r, util.Unauthorized("missing identity"))
				return
			}
			if identity.Role != role {
				onError(w, r, util.Forbidden("requires the "+role+" role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	return identity, ok
}

// AccountIDFromContext returns the caller's account id.
func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return identity.AccountID, true
}
