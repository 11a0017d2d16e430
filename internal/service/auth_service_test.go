package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

func TestAuthServiceValidatesSignedToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "nexalink"})
	token, err := svc.SignAccessToken(models.Principal{UserID: "user-1", Role: models.RoleFaculty, ProfileID: "fac-1"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	principal := claims.Principal()
	assert.Equal(t, "user-1", principal.UserID)
	assert.Equal(t, models.RoleFaculty, principal.Role)
	assert.Equal(t, "fac-1", principal.ProfileID)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other"})
	token, err := issuer.SignAccessToken(models.Principal{UserID: "user-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret"}).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret"})
	token, err := svc.SignAccessToken(models.Principal{UserID: "user-1", Role: models.RoleStudent}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestAuthServiceRejectsForeignIssuer(t *testing.T) {
	foreign := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
	token, err := foreign.SignAccessToken(models.Principal{UserID: "user-1", Role: models.RoleStudent}, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "nexalink"}).ValidateToken(token)
	require.Error(t, err)
}

func TestAuthServiceRejectsTokenWithoutSubject(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret"}).ValidateToken(token)
	require.Error(t, err)
}
