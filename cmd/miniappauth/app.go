package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/auth"
	"github.com/nkiryanov/miniappauth/internal/authapi"
	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/session"
	"github.com/nkiryanov/miniappauth/internal/sessionstore"
	"github.com/nkiryanov/miniappauth/internal/transport"
)

const usage = `usage: miniappauth [flags] <command>

commands:
  login <initData>   log in with Telegram init data
  me                 show current user
  refresh            refresh tokens
  logout             log out
  logout-all         log out from all devices
  delete             delete account and log out
  status             show session state`

var errUsage = errors.New(usage)

type App struct {
	manager *auth.Manager
	store   sessionstore.Store
	logger  logger.Logger
	out     io.Writer
}

func NewApp(ctx context.Context, c *Config, out io.Writer) (*App, error) {
	l, err := logger.New(c.Environment, c.LogLevel, logger.WithFile(c.LogFile))
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	store, err := sessionstore.Open(ctx, c.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("error while opening session storage. Err: %w", err)
	}

	s, err := session.New(ctx, store, l.WithGroup("session"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error while loading session. Err: %w", err)
	}

	client, err := transport.New(transport.Config{
		BaseURL:   c.APIURL,
		Timeout:   c.RequestTimeout,
		RateLimit: c.RateLimit,
	}, s, l.WithGroup("transport"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error while creating api client. Err: %w", err)
	}

	manager, err := auth.New(authapi.New(client), s, l.WithGroup("auth"), auth.WithObserver(func(from, to auth.State) {
		l.Debug("State changed", "from", from, "to", to)
	}))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error while creating auth manager. Err: %w", err)
	}
	client.SetRefresher(manager)

	return &App{
		manager: manager,
		store:   store,
		logger:  l,
		out:     out,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Run executes one command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		if len(args) != 1 {
			return errUsage
		}
		return a.login(ctx, args[0])
	case "me":
		return a.me(ctx)
	case "refresh":
		if err := a.manager.RefreshTokens(ctx); err != nil {
			return err
		}
		return a.println("Tokens refreshed")
	case "logout":
		if err := a.manager.Logout(ctx); err != nil {
			return err
		}
		return a.println("Logged out")
	case "logout-all":
		if err := a.manager.LogoutAll(ctx); err != nil {
			return err
		}
		return a.println("Logged out from all devices")
	case "delete":
		if err := a.manager.DeleteAccount(ctx); err != nil {
			return err
		}
		return a.println("Account deleted")
	case "status":
		return a.status()
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (a *App) login(ctx context.Context, initData string) error {
	if err := a.manager.LoginWithTelegram(ctx, initData); err != nil {
		return err
	}

	user, ok := a.manager.User()
	if !ok {
		return a.println("Logged in, user not loaded: " + a.manager.LastError())
	}
	return a.println(fmt.Sprintf("Logged in as %s (telegram id %d)", user.DisplayName(), user.TelegramID))
}

func (a *App) me(ctx context.Context) error {
	if a.manager.State() != auth.StateAuthenticated {
		return apperrors.ErrNotAuthenticated
	}
	if err := a.manager.FetchCurrentUser(ctx); err != nil {
		return err
	}

	user, ok := a.manager.User()
	if !ok {
		return apperrors.ErrNotAuthenticated
	}
	return a.printJSON(user)
}

func (a *App) status() error {
	type Status struct {
		State           auth.State `json:"state"`
		IsAuthenticated bool       `json:"is_authenticated"`
		HasRefreshToken bool       `json:"has_refresh_token"`
		AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
		LastError       string     `json:"last_error,omitempty"`
	}

	snap := a.manager.Session()
	st := Status{
		State:           a.manager.State(),
		IsAuthenticated: snap.IsAuthenticated,
		HasRefreshToken: snap.RefreshToken != "",
		LastError:       a.manager.LastError(),
	}
	if !snap.AccessExpiresAt.IsZero() {
		st.AccessExpiresAt = &snap.AccessExpiresAt
	}

	return a.printJSON(st)
}

func (a *App) println(msg string) error {
	_, err := fmt.Fprintln(a.out, msg)
	return err
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
