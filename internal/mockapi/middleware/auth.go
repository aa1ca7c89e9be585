package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nkiryanov/miniappauth/internal/mockapi/render"
	"github.com/nkiryanov/miniappauth/internal/mockapi/userctx"
)

type authenticator interface {
	// Return id of the user the access token belongs to
	Authenticate(ctx context.Context, access string) (userID string, err error)
}

// Auth accepts 'Authorization: Bearer <access>' only
func Auth(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := bearer(r)
			if !ok {
				render.ServiceError(w, "Authorization header is missing", http.StatusUnauthorized)
				return
			}

			userID, err := a.Authenticate(r.Context(), access)
			if err != nil {
				render.ServiceError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), userID)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
