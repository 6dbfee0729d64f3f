// Package api is the authenticated REST surface of the backend: a guarded
// HTTP client that injects the bearer token and coordinates 401 recovery
// with the session core, plus one thin typed service per resource. The
// services carry no business logic; they bind one-to-one to endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/liimonx/ispadmin/apperrors"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// TokenSource supplies the bearer token and the coordinated refresh.
// Implemented by session.Manager; the manager coalesces concurrent Refresh
// calls, so the client keeps no refresh bookkeeping of its own.
type TokenSource interface {
	CurrentAccessToken() string
	Refresh(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
	userAgent  string
	logger     zerolog.Logger

	Customers     *CustomersService
	Plans         *PlansService
	Subscriptions *SubscriptionsService
	Routers       *RoutersService
	Billing       *BillingService
}

type ClientOptions func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOptions {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the per-request timeout. Zero disables it and leaves
// deadlines entirely to the caller's context.
func WithTimeout(timeout time.Duration) ClientOptions {
	return func(c *Client) { c.timeout = timeout }
}

func WithUserAgent(userAgent string) ClientOptions {
	return func(c *Client) { c.userAgent = userAgent }
}

func WithLogger(logger zerolog.Logger) ClientOptions {
	return func(c *Client) { c.logger = logger }
}

// New returns a guarded client for the backend at baseURL. tokens is
// consulted on every request; all resource services share the one client.
func New(baseURL string, tokens TokenSource, options ...ClientOptions) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		timeout:    defaultTimeout,
		userAgent:  "ispadmin",
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.Customers = &CustomersService{client: c}
	c.Plans = &PlansService{client: c}
	c.Subscriptions = &SubscriptionsService{client: c}
	c.Routers = &RoutersService{client: c}
	c.Billing = &BillingService{client: c}
	return c
}

// do performs one authenticated request. On a 401 it asks the token source
// for a single refresh and retries the original request at most once; if the
// refresh fails, the original authentication error is returned unchanged.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	err := c.doOnce(ctx, method, path, query, in, out)
	if !needsTokenRefresh(err) {
		return err
	}

	if refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
		c.logger.Debug().Err(refreshErr).Msg("refresh after 401 failed")
		return err
	}
	return c.doOnce(ctx, method, path, query, in, out)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var requestBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "json.Marshal")
		}
		requestBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, requestBody)
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken := c.tokens.CurrentAccessToken(); accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Network(err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperrors.Network(err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		return apperrors.FromResponse(resp.StatusCode, resp.Header, responseBody)
	}
	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return apperrors.Wrap(err, apperrors.KindServer, "malformed response body")
		}
	}
	return nil
}

// needsTokenRefresh is true only for a 401. A 403 means the token was valid
// but the operator lacks permission; refreshing would not change that.
func needsTokenRefresh(err error) bool {
	var appErr *apperrors.Error
	if !apperrors.As(err, &appErr) {
		return false
	}
	return appErr.StatusCode == http.StatusUnauthorized
}
