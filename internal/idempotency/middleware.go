// internal/idempotency/middleware.go
package idempotency

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"wallet-ledger/internal/util"
)

// HeaderKey is the request header carrying the client's key.
const HeaderKey = "Idempotency-Key"

// inFlightTTL bounds how long a crashed request can hold its key.
const inFlightTTL = time.Minute

// Scope returns the caller-specific part of a key, such as the account id,
// so that two callers can never replay each other's responses.
type Scope func(r *http.Request) string

// ErrorWriter renders a rejected request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware replays the recorded response when a request repeats an
// Idempotency-Key. A repeat that arrives while the first request is still
// running is rejected with a conflict. Server errors are not recorded, so
// they can be retried.
func Middleware(store Store, ttl time.Duration, scope Scope, onError ErrorWriter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := scope(r) + ":" + r.Method + ":" + r.URL.Path + ":" + clientKey

			cached, found, err := store.Get(r.Context(), key)
			if err != nil {
				logger.Warn("Idempotency lookup failed, serving request", "key", clientKey, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				replay(w, r, cached, clientKey, onError, logger)
				return
			}

			claimed, err := store.Claim(r.Context(), key, inFlightTTL)
			if err != nil {
				logger.Warn("Idempotency claim failed, serving request", "key", clientKey, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				onError(w, r, inProgress())
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			// The request context may already be cancelled by a timeout.
			ctx := context.WithoutCancel(r.Context())
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					logger.Error("Failed to release idempotency key", "key", clientKey, "error", err)
				}
				return
			}
			resp := &Response{Status: status, ContentType: ww.Header().Get("Content-Type"), Body: body.Bytes()}
			if err := store.Save(ctx, key, resp, ttl); err != nil {
				logger.Error("Failed to save idempotency key", "key", clientKey, "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, cached *Response, clientKey string, onError ErrorWriter, logger *slog.Logger) {
	if cached.InFlight {
		onError(w, r, inProgress())
		return
	}
	logger.Info("Idempotency hit, returning recorded response", "key", clientKey)
	w.Header().Set("X-Idempotency-Hit", "true")
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}

func inProgress() error {
	err := util.Conflict(HeaderKey)
	err.Message = "a request with this idempotency key is still in progress"
	return err
}
