// Package gateway is the HTTP client for the backend's auth endpoints: the
// three lifecycle calls (login, refresh, logout) plus the bearer profile
// read and update. Every failure is classified into the apperrors taxonomy.
// The gateway never retries; retry policy belongs to its callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/liimonx/ispadmin/apperrors"
	"github.com/liimonx/ispadmin/token"
	"github.com/liimonx/ispadmin/users"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/token/refresh"
	mePath      = "/auth/me"
	logoutPath  = "/auth/logout"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     zerolog.Logger
}

type ClientOptions func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOptions {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the per-operation timeout. Zero disables it and leaves
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

// New returns a gateway client for the backend at baseURL, which carries any
// path prefix the deployment uses (for example "https://isp.example.com/api").
func New(baseURL string, options ...ClientOptions) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		userAgent:  "ispadmin",
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// LoginResult is the full outcome of a successful login: the credential pair
// and the operator profile the backend returns alongside it.
type LoginResult struct {
	Credential token.Credential
	User       users.User
}

// Login exchanges username and password for a credential pair and profile.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	request := map[string]string{"username": username, "password": password}
	var response struct {
		Access  string     `json:"access"`
		Refresh string     `json:"refresh"`
		User    users.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, loginPath, "", request, &response); err != nil {
		return LoginResult{}, errors.Wrap(err, "[Login] c.do")
	}
	if response.Access == "" || response.Refresh == "" {
		return LoginResult{}, apperrors.New(apperrors.KindServer, "login response missing tokens")
	}
	return LoginResult{
		Credential: token.Credential{AccessToken: response.Access, RefreshToken: response.Refresh},
		User:       response.User,
	}, nil
}

// Refresh exchanges the refresh token for a new access token. Servers running
// with rotation return a new refresh token as well; when the response omits
// one, the token passed in is carried forward unchanged.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (token.Credential, error) {
	request := map[string]string{"refresh": refreshToken}
	var response struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.do(ctx, http.MethodPost, refreshPath, "", request, &response); err != nil {
		return token.Credential{}, errors.Wrap(err, "[Refresh] c.do")
	}
	if response.Access == "" {
		return token.Credential{}, apperrors.New(apperrors.KindServer, "refresh response missing access token")
	}
	credential := token.Credential{AccessToken: response.Access, RefreshToken: response.Refresh}
	if credential.RefreshToken == "" {
		credential.RefreshToken = refreshToken
	}
	return credential, nil
}

// Me fetches the operator profile for the given access token.
func (c *Client) Me(ctx context.Context, accessToken string) (users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodGet, mePath, accessToken, nil, &user); err != nil {
		return users.User{}, errors.Wrap(err, "[Me] c.do")
	}
	return user, nil
}

// UpdateMe applies a partial profile update and returns the updated profile.
func (c *Client) UpdateMe(ctx context.Context, accessToken string, patch users.ProfilePatch) (users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodPatch, mePath, accessToken, patch, &user); err != nil {
		return users.User{}, errors.Wrap(err, "[UpdateMe] c.do")
	}
	return user, nil
}

// Logout asks the backend to revoke the refresh token. Callers treat the
// call as best effort and discard local state regardless of the outcome.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	request := map[string]string{"refresh": refreshToken}
	if err := c.do(ctx, http.MethodPost, logoutPath, accessToken, request, nil); err != nil {
		return errors.Wrap(err, "[Logout] c.do")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var requestBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "json.Marshal")
		}
		requestBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, requestBody)
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
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
		Msg("auth request")

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
