package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/mockapi/userctx"
)

// Allow to use a function as authenticator
type authFunc func(ctx context.Context, access string) (string, error)

func (f authFunc) Authenticate(ctx context.Context, access string) (string, error) {
	return f(ctx, access)
}

func TestAuth(t *testing.T) {
	// Writes user id from context to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		require.True(t, ok, "middleware has to put user id to context")

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(userID))
		require.NoError(t, err)
	})

	a := authFunc(func(_ context.Context, access string) (string, error) {
		if access == "good-token" {
			return "user-1", nil
		}
		return "", errors.New("bad token")
	})

	srv := httptest.NewServer(Auth(a)(handler))
	defer srv.Close()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"auth ok", "Bearer good-token", http.StatusOK, "user-1"},
		{"scheme is case insensitive", "bearer good-token", http.StatusOK, "user-1"},
		{"bad token", "Bearer bad-token", http.StatusUnauthorized, ""},
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic dXNlcjpwd2Q=", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/test", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() // nolint:errcheck

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}
