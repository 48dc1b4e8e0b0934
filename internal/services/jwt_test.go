package services_test

import (
	"testing"
	"time"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService(t *testing.T) {
	svc := services.NewJWTService(&config.Config{AdminJWTSecret: "operator-secret"})
	require.True(t, svc.Enabled())

	token, err := svc.GenerateToken("ops", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, services.RoleAdmin, claims.Role)

	other := services.NewJWTService(&config.Config{AdminJWTSecret: "different"})
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "token signed with another secret must fail")

	expired, err := svc.GenerateToken("ops", -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.Error(t, err)
}

func TestJWTServiceDisabled(t *testing.T) {
	svc := services.NewJWTService(&config.Config{})
	assert.False(t, svc.Enabled())

	_, err := svc.GenerateToken("ops", time.Hour)
	assert.ErrorIs(t, err, services.ErrAdminDisabled)

	_, err = svc.ValidateToken("anything")
	assert.ErrorIs(t, err, services.ErrAdminDisabled)
}
