package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/config"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 24 * time.Hour,
	}
	return NewAuthService(newTestDB(t), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "hiker@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user", resp.User.Role)
	assert.Zero(t, resp.User.TrustScore)

	// The access token carries the user's ID and role.
	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, "user", claims["role"])

	_, err = svc.Register(&dto.RegisterRequest{Email: "hiker@example.com", Password: "correct-horse"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Register(&dto.RegisterRequest{Email: "short@example.com", Password: "short"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Login(&dto.LoginRequest{Email: "hiker@example.com", Password: "correct-horse"})
	assert.NoError(t, err)

	_, err = svc.Login(&dto.LoginRequest{Email: "hiker@example.com", Password: "wrong"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRefreshRotation(t *testing.T) {
	svc := newAuthService(t)

	registered, err := svc.Register(&dto.RegisterRequest{Email: "hiker@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The presented token was revoked by the rotation.
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: registered.RefreshToken})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "hiker@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(&dto.LogoutRequest{RefreshToken: resp.RefreshToken}))

	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
