package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"

	// expirySkew refreshes a token slightly before its exp claim.
	expirySkew = 30 * time.Second
)

// KV is the persistent key/value storage behind TokenStore. The metadata
// repository satisfies it. Get returns nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RefreshFunc exchanges a refresh token for a new credential pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// TokenStore holds the bearer credential used by the clients.
//
// The access token is treated as opaque; when it parses as a JWT its exp
// claim is honored so an expired token is refreshed before it is sent.
// Refreshes are serialized so concurrent callers share one exchange.
type TokenStore struct {
	kv  KV
	now func() time.Time

	mu sync.Mutex
}

func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv, now: time.Now}
}

// Load returns the stored pair; empty strings mean "not logged in".
func (s *TokenStore) Load(ctx context.Context) (Tokens, error) {
	access, err := s.kv.Get(ctx, accessTokenKey)
	if err != nil {
		return Tokens{}, fmt.Errorf("load access token: %w", err)
	}
	refresh, err := s.kv.Get(ctx, refreshTokenKey)
	if err != nil {
		return Tokens{}, fmt.Errorf("load refresh token: %w", err)
	}
	return Tokens{AccessToken: string(access), RefreshToken: string(refresh)}, nil
}

// Save stores a new pair. An empty refresh token keeps the stored one.
func (s *TokenStore) Save(ctx context.Context, t Tokens) error {
	if err := s.kv.Set(ctx, accessTokenKey, []byte(t.AccessToken)); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if t.RefreshToken == "" {
		return nil
	}
	if err := s.kv.Set(ctx, refreshTokenKey, []byte(t.RefreshToken)); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Clear forgets the credential.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, accessTokenKey); err != nil {
		return fmt.Errorf("clear access token: %w", err)
	}
	if err := s.kv.Delete(ctx, refreshTokenKey); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// AccessToken returns the token to attach to the next call, refreshing it
// first when its exp claim has passed. It returns "" when no credential is
// stored.
func (s *TokenStore) AccessToken(ctx context.Context, refresh RefreshFunc) (string, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if t.AccessToken == "" || !s.expired(t.AccessToken) {
		return t.AccessToken, nil
	}
	if t.RefreshToken == "" {
		return t.AccessToken, nil
	}
	return s.Refresh(ctx, t.AccessToken, refresh)
}

// Refresh exchanges the refresh token for a new pair. stale is the access
// token the caller saw rejected; when another caller already replaced it the
// new token is returned without a second exchange. A failed exchange clears
// the stored credential.
func (s *TokenStore) Refresh(ctx context.Context, stale string, refresh RefreshFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if t.AccessToken != "" && t.AccessToken != stale {
		return t.AccessToken, nil
	}
	if t.RefreshToken == "" {
		return "", common.ErrNoCredentials
	}

	fresh, err := refresh(ctx, t.RefreshToken)
	if err != nil && IsRetryable(err) {
		return "", err
	}
	if err != nil {
		if cerr := s.Clear(ctx); cerr != nil {
			return "", fmt.Errorf("refresh failed: %w (clear: %v)", err, cerr)
		}
		return "", fmt.Errorf("%w: %w", common.ErrRefreshTokenExpired, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.RefreshToken
	}
	if err := s.Save(ctx, fresh); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

func (s *TokenStore) expired(token string) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !s.now().Add(expirySkew).Before(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying it. ok is false
// for opaque tokens and tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
