// Package auth obtains and refreshes P21 API access tokens.
//
// Two grant styles are supported:
//   - user credentials (username/password)
//   - consumer key (application key for service accounts)
//
// Each can go through the V1 endpoint (credentials in headers, legacy but
// widely deployed) or the V2 endpoint (credentials in the JSON body).
package auth

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ifpusa/p21-tools/internal/config"
)

// Token is the vendor token response.
type Token struct {
	AccessToken      string `json:"AccessToken"`
	RefreshToken     string `json:"RefreshToken"`
	ExpiresInSeconds int64  `json:"ExpiresInSeconds"`
	TokenType        string `json:"TokenType"`
}

// Authenticator fetches tokens from a P21 server.
type Authenticator struct {
	cfg        config.P21Config
	httpClient *http.Client
	logger     *slog.Logger
	useV2      bool
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithV2Endpoint routes token requests to the V2 endpoint.
func WithV2Endpoint() Option {
	return func(a *Authenticator) {
		a.useV2 = true
	}
}

// New creates an Authenticator for the given server.
func New(cfg config.P21Config, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.Timeout, cfg.VerifySSL),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// newHTTPClient builds a client that tolerates the self-signed certificates
// common on P21 installs unless verification is requested.
func newHTTPClient(timeout time.Duration, verifySSL bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !verifySSL}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Fetch obtains a new access token.
func (a *Authenticator) Fetch(ctx context.Context) (*Token, error) {
	if a.useV2 {
		return a.fetchV2(ctx)
	}
	return a.fetchV1(ctx)
}

// fetchV1 posts to the V1 endpoint with credentials in headers and an
// empty body.
func (a *Authenticator) fetchV1(ctx context.Context) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if a.cfg.ConsumerKey != "" {
		req.Header.Set("appkey", a.cfg.ConsumerKey)
		if a.cfg.Username != "" {
			req.Header.Set("username", a.cfg.Username)
		}
	} else {
		req.Header.Set("username", a.cfg.Username)
		req.Header.Set("password", a.cfg.Password)
	}

	return a.send(req)
}

// fetchV2 posts to the V2 endpoint with credentials in the JSON body.
func (a *Authenticator) fetchV2(ctx context.Context) (*Token, error) {
	body := map[string]string{}
	if a.cfg.ConsumerKey != "" {
		body["ClientSecret"] = a.cfg.ConsumerKey
		body["GrantType"] = "client_credentials"
		if a.cfg.Username != "" {
			body["username"] = a.cfg.Username
		}
	} else {
		body["username"] = a.cfg.Username
		body["password"] = a.cfg.Password
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenV2URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return a.send(req)
}

func (a *Authenticator) send(req *http.Request) (*Token, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing AccessToken")
	}

	a.logger.Debug("token obtained",
		"token_type", token.TokenType,
		"expires_in", token.ExpiresInSeconds,
	)

	return &token, nil
}

// UIServerURL discovers the uiserver base URL required by the Transaction
// and Interactive APIs. It differs per install (load-balanced instances).
func (a *Authenticator) UIServerURL(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.RouterURL(), nil)
	if err != nil {
		return "", fmt.Errorf("create router request: %w", err)
	}

	for k, v := range Headers(accessToken) {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("router request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read router response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("router request failed: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var router struct {
		URL string `json:"Url"`
	}
	if err := json.Unmarshal(body, &router); err != nil {
		return "", fmt.Errorf("unmarshal router response: %w", err)
	}
	if router.URL == "" {
		return "", fmt.Errorf("router response missing Url")
	}

	return strings.TrimRight(router.URL, "/"), nil
}

// Headers builds the authorization headers for API requests.
func Headers(accessToken string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
