package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// Authenticator resolves a session token to its learner.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// RequireAuth rejects requests without a valid session and stores the
// user in the request context. A rejected token also clears the cookie;
// secure sets its Secure flag.
func RequireAuth(v Authenticator, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			user, err := v.Authenticate(r.Context(), token)
			if err != nil {
				slog.Debug("session rejected", "error", err, "request_id", chimw.GetReqID(r.Context()))
				http.SetCookie(w, auth.ClearCookie(secure))
				fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
