package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultExpirySkew = 10 * time.Second

	// Original request plus one replay after refresh
	maxAttempts = 2

	maxErrorBodyBytes = 1 << 20

	HeaderRequestID = "X-Request-ID"
)

// Credentials of the current session
type TokenSource interface {
	AccessToken() string

	// True only if the token expiry is known and it is (almost) reached
	AccessExpired(skew time.Duration) bool
}

// Refresher mints a new token pair
// It has to clear the session itself if refresh is rejected
type Refresher interface {
	RefreshTokens(ctx context.Context) error
}

type Config struct {
	// Backend base URL like http://localhost:8090/api
	// Required to be set
	BaseURL string

	// Timeout for a single HTTP exchange
	// If not set than default is used
	Timeout time.Duration

	// Requests per second, zero means unlimited
	RateLimit float64
	Burst     int

	// Access token is refreshed before sending when it expires within the skew
	// If not set than default is used
	ExpirySkew time.Duration

	// Custom HTTP client, mostly for tests
	HTTPClient *http.Client
}

type Request struct {
	Method string
	Path   string

	// Encoded as JSON if not nil
	Body any

	// Public requests go without bearer credentials and never trigger refresh
	Public bool

	// Do not refresh and replay on 401, the caller handles it
	NoRefresh bool
}

type Client struct {
	baseURL string
	timeout time.Duration
	skew    time.Duration

	client    *http.Client
	limiter   *rate.Limiter
	validate  *validator.Validate
	tokens    TokenSource
	refresher Refresher
	logger    logger.Logger
}

func New(cfg Config, tokens TokenSource, l logger.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url. Err: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if tokens == nil {
		return nil, errors.New("token source must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.Timeout, defaultTimeout)
	setDefaultDuration(&cfg.ExpirySkew, defaultExpirySkew)

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit)*2)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout,
		skew:     cfg.ExpirySkew,
		client:   cfg.HTTPClient,
		limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tokens:   tokens,
		logger:   l,
	}, nil
}

// SetRefresher enables refresh-and-replay on 401
// Without it the client returns 401 errors as is
func (c *Client) SetRefresher(r Refresher) {
	c.refresher = r
}

// Do sends request and decodes JSON response into out (if not nil)
//
// Protected requests that got 401 are replayed once after a successful refresh.
// If the refresh fails the original error is returned.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	var payload []byte
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	canRefresh := c.refresher != nil && !r.Public && !r.NoRefresh
	refreshed := false

	// Expired token would be rejected anyway, refresh it before the first attempt
	if canRefresh && c.tokens.AccessExpired(c.skew) {
		refreshed = true
		c.logger.Debug("Access token expired, refresh before request", "method", r.Method, "path", r.Path)
		if err := c.refresher.RefreshTokens(ctx); err != nil {
			return fmt.Errorf("access token expired and refresh failed: %w", err)
		}
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.send(ctx, r, payload, out)
		if err == nil {
			return nil
		}

		if !canRefresh || refreshed || !errors.Is(err, apperrors.ErrUnauthorized) {
			return err
		}

		refreshed = true
		if refreshErr := c.refresher.RefreshTokens(ctx); refreshErr != nil {
			c.logger.Warn("Refresh after 401 failed", "method", r.Method, "path", r.Path, "error", refreshErr)
			return err
		}
		c.logger.Debug("Tokens refreshed, replay request", "method", r.Method, "path", r.Path)
	}

	return err
}

func (c *Client) send(ctx context.Context, r Request, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{Kind: KindNetwork, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.Public {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Request failed", "request_id", requestID, "method", r.Method, "path", r.Path, "error", err)
		return &APIError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	c.logger.Debug(
		"Got API response",
		"request_id", requestID,
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.processError(resp)
	}

	return c.processSuccess(resp, out)
}

func (c *Client) processSuccess(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			Kind:        KindServer,
			Status:      resp.StatusCode,
			Description: "Invalid response from server",
			Err:         fmt.Errorf("failed to decode response: %w", err),
		}
	}

	if isStruct(out) {
		if err := c.validate.Struct(out); err != nil {
			return &APIError{
				Kind:        KindServer,
				Status:      resp.StatusCode,
				Description: "Incomplete response from server",
				Err:         fmt.Errorf("response validation failed: %w", err),
			}
		}
	}

	return nil
}

func (c *Client) processError(resp *http.Response) error {
	var payload struct {
		Error       string              `json:"error"`
		Description string              `json:"description"`
		Message     string              `json:"message"`
		Errors      map[string][]string `json:"errors"`
	}

	// Error bodies are optional, ignore what can't be decoded
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&payload)

	description := payload.Description
	if description == "" {
		description = payload.Message
	}

	return &APIError{
		Kind:        kindOf(resp.StatusCode),
		Status:      resp.StatusCode,
		Code:        payload.Error,
		Description: description,
		Fields:      payload.Errors,
	}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
