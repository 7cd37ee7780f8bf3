package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshMargin is how far before expiry a token is renewed.
const DefaultRefreshMargin = 60 * time.Second

// TokenSource caches a token and refreshes it ahead of expiry.
// It is safe for concurrent use; concurrent callers share one refresh.
type TokenSource struct {
	auth   *Authenticator
	margin time.Duration
	now    func() time.Time

	mu        sync.Mutex
	token     *Token
	expiresAt time.Time
}

// NewTokenSource creates a TokenSource with the default refresh margin.
func NewTokenSource(a *Authenticator) *TokenSource {
	return &TokenSource{
		auth:   a,
		margin: DefaultRefreshMargin,
		now:    time.Now,
	}
}

// Token returns a valid access token, fetching a new one if the cached
// token is missing or close to expiry.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.now().Before(s.expiresAt.Add(-s.margin)) {
		return s.token.AccessToken, nil
	}

	token, err := s.auth.Fetch(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expiresAt = s.computeExpiry(token)

	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}

// computeExpiry prefers the vendor's ExpiresInSeconds and falls back to the
// exp claim inside the JWT access token.
func (s *TokenSource) computeExpiry(token *Token) time.Time {
	if token.ExpiresInSeconds > 0 {
		return s.now().Add(time.Duration(token.ExpiresInSeconds) * time.Second)
	}
	if exp, ok := tokenExpiry(token.AccessToken); ok {
		return exp
	}
	// No expiry information; keep the token briefly and re-fetch often.
	return s.now().Add(5 * time.Minute)
}

// tokenExpiry decodes the exp claim without verifying the signature.
// The signing key belongs to the vendor, so verification is not possible
// client-side; the claim is only used for refresh scheduling.
func tokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
