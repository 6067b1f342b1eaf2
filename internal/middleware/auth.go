package middleware

import (
	"context"
	"net/http"

	"github.com/mediagate/uploader/internal/auth"
	"github.com/mediagate/uploader/internal/response"
	"github.com/mediagate/uploader/internal/user"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// userKey is the context key for the authenticated user.
const userKey contextKey = "user"

// RequireAuth returns middleware that checks the Bearer credential against
// the user table and injects the user into the request context.
func RequireAuth(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := auth.ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				response.Unauthorized(w)
				return
			}

			u, err := v.Authenticate(credential)
			if err != nil {
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the user injected by RequireAuth.
func UserFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(userKey).(user.User)
	return u, ok
}
