package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/getsentry/sentry-go"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// AuthValidator resolves a bearer token to the principal that presented it.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

type toggledValidator interface {
	Enabled() bool
}

// APIKeyAuth requires a valid bearer key. A nil validator, or one reporting
// Enabled() == false, lets every request through.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				next.ServeHTTP(w, r)
				return
			}
			if tv, ok := validator.(toggledValidator); ok && !tv.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			principal, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.Scope().SetTag("caller", principal)
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipal(ctx context.Context) string {
	principal, _ := ctx.Value(PrincipalKey).(string)
	return principal
}
