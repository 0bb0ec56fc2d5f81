// Package client is the Go SDK for the Zenly API. It wraps outbound HTTP
// calls with bearer credentials, transparently refreshes an expired access
// token (once per request, shared across concurrent callers), and keeps
// local engagement state in sync with the server's realtime channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CodeTokenExpired is the server's distinguishing code for an expired
// access token. Only this 401 variant is worth a refresh attempt.
const CodeTokenExpired = "TOKEN_EXPIRED"

// ErrNoRefreshToken is returned when a refresh is needed but no refresh
// token is stored. The session is cleared and OnSessionExpired fires.
var ErrNoRefreshToken = errors.New("client: no refresh token stored")

// Credentials is the access/refresh token pair. The refresh token is only
// ever sent to the refresh endpoint.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialStore persists the credential pair across requests. The
// browser analog is local storage.
type CredentialStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// APIError carries the server-provided error body for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Errors  []string
	Code    string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the Zenly backend.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	store            CredentialStore
	logger           zerolog.Logger
	onSessionExpired func()

	// Concurrent requests hitting the same expiry share one refresh call
	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionExpiredHook registers the callback invoked when the session
// cannot be refreshed. UIs typically redirect to the login page here.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	skipAuth bool
}

type RequestOption func(*requestOptions)

// SkipAuth issues the request without a bearer credential. Used for the
// public auth and resource-list endpoints.
func SkipAuth() RequestOption {
	return func(ro *requestOptions) { ro.skipAuth = true }
}

// Do issues a JSON request against the API. The stored access token is
// attached unless SkipAuth is set. A 401 carrying TOKEN_EXPIRED triggers
// exactly one silent refresh-and-retry before the error is surfaced.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) error {
	ro := requestOptions{}
	for _, opt := range opts {
		opt(&ro)
	}

	token := ""
	if !ro.skipAuth {
		creds, err := c.store.Load()
		if err != nil {
			return err
		}
		token = creds.AccessToken
	}

	err := c.roundTrip(ctx, method, path, body, out, token)
	if ro.skipAuth {
		return err
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Code != CodeTokenExpired {
		return err
	}

	c.logger.Debug().Str("path", path).Msg("access token expired, refreshing")

	newToken, refreshErr := c.refreshAccessToken(ctx)
	if refreshErr != nil {
		return refreshErr
	}

	return c.roundTrip(ctx, method, path, body, out, newToken)
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers collapse onto a single network call and all
// receive its result. On failure the stored credentials are cleared and
// the session-expired hook fires.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	v, err, shared := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		creds, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		if creds.RefreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		var resp struct {
			Token string `json:"token"`
		}
		err = c.roundTrip(ctx, http.MethodPost, "/api/auth/refresh",
			map[string]string{"refreshToken": creds.RefreshToken}, &resp, "")
		if err != nil {
			return nil, err
		}

		// New access token, same refresh token
		creds.AccessToken = resp.Token
		if err := c.store.Save(creds); err != nil {
			return nil, err
		}
		return resp.Token, nil
	})

	if err != nil {
		c.logger.Warn().Err(err).Msg("token refresh failed, clearing session")
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("failed to clear credential store")
		}
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return "", err
	}

	if shared {
		c.logger.Debug().Msg("reused in-flight token refresh")
	}
	return v.(string), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out interface{}, token string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var errBody struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
		Code   string   `json:"code"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
		apiErr.Message = errBody.Error
		apiErr.Errors = errBody.Errors
		apiErr.Code = errBody.Code
	}
	return apiErr
}
