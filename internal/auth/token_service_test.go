package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "token: secret must be provided")
}

func TestNewTokenServiceAppliesDefaults(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.accessTTL)
	require.Equal(t, DefaultRefreshTokenTTL, svc.refreshTTL)
}

func TestIssuePairAndVerify(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		Secret:          "super-secret",
		Issuer:          "portfolio-backend",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Clock:           now,
	})
	require.NoError(t, err)

	pair, err := svc.IssuePair("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, 1800, pair.ExpiresIn)

	access, err := svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-123", access.UserID)
	require.Equal(t, TokenTypeAccess, access.TokenType)
	require.Equal(t, "portfolio-backend", access.Issuer)
	require.True(t, access.ExpiresAt.Time.Equal(current.Add(30*time.Minute)))

	refresh, err := svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, TokenTypeRefresh, refresh.TokenType)
	require.True(t, refresh.ExpiresAt.Time.Equal(current.Add(7*24*time.Hour)))
}

func TestVerifyRejectsWrongType(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	pair, err := svc.IssuePair("user-123")
	require.NoError(t, err)

	_, err = svc.Verify(pair.RefreshToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenWrongType)

	_, err = svc.Verify(pair.AccessToken, TokenTypeRefresh)
	require.ErrorIs(t, err, ErrTokenWrongType)
}

func TestVerifyRejectsInvalidSignature(t *testing.T) {
	issuer, err := NewTokenService(TokenConfig{Secret: "issuer-secret"})
	require.NoError(t, err)

	pair, err := issuer.IssuePair("user-123")
	require.NoError(t, err)

	verifier, err := NewTokenService(TokenConfig{Secret: "other-secret"})
	require.NoError(t, err)

	_, err = verifier.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyRejectsExpired(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	pair, err := svc.IssuePair("user-123")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.Verify("", TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = svc.Verify("not.a.jwt", TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewTokenService(TokenConfig{Secret: "secret", Issuer: "other-app"})
	require.NoError(t, err)

	pair, err := issuer.IssuePair("user-123")
	require.NoError(t, err)

	verifier, err := NewTokenService(TokenConfig{Secret: "secret", Issuer: "portfolio-backend"})
	require.NoError(t, err)

	_, err = verifier.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}
