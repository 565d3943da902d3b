package remotesim

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_GenerateAndParse(t *testing.T) {
	t.Parallel()

	i := NewIssuer("super-secret", time.Hour, time.Hour)
	tok, err := i.GenerateToken("user-123")
	require.NoError(t, err)

	got, err := i.UserID(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestIssuer_Expired(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", -time.Second, time.Hour)
	tok, err := i.GenerateToken("u1")
	require.NoError(t, err)

	_, err = i.UserID(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer("right-secret", time.Hour, time.Hour).GenerateToken("u2")
	require.NoError(t, err)

	_, err = NewIssuer("wrong-secret", time.Hour, time.Hour).UserID(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("k", time.Hour, time.Hour).UserID("not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_RefreshRotates(t *testing.T) {
	t.Parallel()

	i := NewIssuer("k", time.Hour, time.Hour)
	first, err := i.Login("u3")
	require.NoError(t, err)

	second, err := i.Refresh(first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	user, err := i.UserID(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u3", user)

	_, err = i.Refresh(first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestIssuer_RefreshExpired(t *testing.T) {
	t.Parallel()

	i := NewIssuer("k", time.Hour, time.Minute)
	pair, err := i.Login("u4")
	require.NoError(t, err)

	i.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = i.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}
