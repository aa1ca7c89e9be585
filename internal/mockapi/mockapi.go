// Package mockapi is a development backend serving the endpoints the client consumes.
//
// It keeps users and refresh tokens in memory and trusts Telegram init data
// without checking its signature. Never expose it to real users.
package mockapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/mockapi/middleware"
	"github.com/nkiryanov/miniappauth/internal/mockapi/tokenmanager"
)

// Routes are served under this prefix, so base URL looks like http://localhost:8090/api
const PathPrefix = "/api"

type Config struct {
	// Secret key to sign access tokens
	// Required to be set
	SecretKey string

	// Token lifetimes, token manager defaults if not set
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

type Server struct {
	users   *userRepo
	handler http.Handler
}

func New(cfg Config, l logger.Logger) (*Server, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	tokens, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  cfg.SecretKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Now:        cfg.Now,
	}, tokenmanager.NewMemoryRepo())
	if err != nil {
		return nil, err
	}

	users := newUserRepo()
	svc := &service{users: users, tokens: tokens, now: cfg.Now}
	h := &handlers{service: svc, logger: l}

	return &Server{
		users:   users,
		handler: newRouter(h, svc, l),
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Number of registered users
func (s *Server) UsersCount() int {
	return s.users.Count()
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func newRouter(h *handlers, svc *service, l logger.Logger) http.Handler {
	withAuth := middleware.Auth(svc)

	api := http.NewServeMux()
	api.HandleFunc("POST /auth/telegram", h.telegramAuth)
	api.HandleFunc("POST /auth/refresh", h.refresh)
	api.HandleFunc("POST /auth/logout", h.logout)
	api.Handle("POST /auth/logout-all", withAuth(http.HandlerFunc(h.logoutAll)))
	api.Handle("GET /users/me", withAuth(http.HandlerFunc(h.me)))
	api.Handle("DELETE /users/me", withAuth(http.HandlerFunc(h.deleteMe)))

	root := http.NewServeMux()
	root.Handle(PathPrefix+"/", http.StripPrefix(PathPrefix, api))

	return chain(root,
		middleware.Logger(l),
	)
}
