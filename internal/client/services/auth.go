package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/common"
)

// AuthStatus describes the stored credential.
type AuthStatus struct {
	LoggedIn   bool
	HasRefresh bool
	// ExpiresAt is zero for opaque tokens.
	ExpiresAt time.Time
}

func (s AuthStatus) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuthService manages the bearer credential handed over by the sign-in
// flow. The credential exchange itself happens outside this module.
type AuthService interface {
	Login(ctx context.Context, t remote.Tokens) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (AuthStatus, error)
	Ping(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type authService struct {
	tokens *remote.TokenStore
	pinger Pinger
}

func NewAuthService(tokens *remote.TokenStore, pinger Pinger) AuthService {
	return &authService{tokens: tokens, pinger: pinger}
}

func (a *authService) Login(ctx context.Context, t remote.Tokens) error {
	t.AccessToken = strings.TrimSpace(t.AccessToken)
	t.RefreshToken = strings.TrimSpace(t.RefreshToken)
	if t.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", common.ErrValidation)
	}
	if err := a.tokens.Clear(ctx); err != nil {
		return err
	}
	return a.tokens.Save(ctx, t)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.tokens.Clear(ctx)
}

func (a *authService) Status(ctx context.Context) (AuthStatus, error) {
	t, err := a.tokens.Load(ctx)
	if err != nil {
		return AuthStatus{}, err
	}
	st := AuthStatus{LoggedIn: t.AccessToken != "", HasRefresh: t.RefreshToken != ""}
	if exp, ok := remote.TokenExpiry(t.AccessToken); ok {
		st.ExpiresAt = exp
	}
	return st, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.pinger.Ping(ctx)
}
