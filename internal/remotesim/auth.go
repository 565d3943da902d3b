package remotesim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user id next to the standard claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Issuer mints and checks credentials.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshToken
}

type refreshToken struct {
	userID    string
	expiresAt time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		refresh:    map[string]refreshToken{},
	}
}

// GenerateToken signs an access token for userID.
func (i *Issuer) GenerateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(i.now().Add(i.accessTTL)),
		},
		UserID: userID,
	})
	return token.SignedString(i.secret)
}

// UserID verifies tokenString and returns its user.
func (i *Issuer) UserID(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}

// Login issues a fresh pair for userID.
func (i *Issuer) Login(userID string) (remote.Tokens, error) {
	access, err := i.GenerateToken(userID)
	if err != nil {
		return remote.Tokens{}, err
	}
	rt, err := common.MakeRandHexString(32)
	if err != nil {
		return remote.Tokens{}, err
	}

	i.mu.Lock()
	i.refresh[rt] = refreshToken{userID: userID, expiresAt: i.now().Add(i.refreshTTL)}
	i.mu.Unlock()

	return remote.Tokens{AccessToken: access, RefreshToken: rt}, nil
}

// Refresh rotates a refresh token: the old one stops working.
func (i *Issuer) Refresh(token string) (remote.Tokens, error) {
	i.mu.Lock()
	rt, ok := i.refresh[token]
	delete(i.refresh, token)
	i.mu.Unlock()

	if !ok {
		return remote.Tokens{}, fmt.Errorf("%w: unknown refresh token", common.ErrUnauthorized)
	}
	if i.now().After(rt.expiresAt) {
		return remote.Tokens{}, common.ErrRefreshTokenExpired
	}
	return i.Login(rt.userID)
}
