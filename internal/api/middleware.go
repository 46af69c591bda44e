package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mpruett/studiohub/internal/auth"
	"github.com/mpruett/studiohub/internal/types"
)

type contextKey string

const userKey contextKey = "user"

// WithUser attaches the verified identity to the request context.
func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the identity attached by the auth middleware.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(userKey).(types.User)
	return user, ok
}

func (s *StudioApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware verifies the bearer credential on the request and attaches
// the derived identity. It runs before the websocket upgrade, so no event
// handler is reachable without a verified identity.
func (s *StudioApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := auth.CredentialFromRequest(r)
		if credential == "" {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := auth.VerifyCredential(credential, s.signingKey)
		if err != nil {
			s.log.Printf("failed to verify credential: %v", err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUser(r.Context(), user)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
