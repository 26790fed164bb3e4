package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fundgate/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-key", "fundgate", "fundgate-api")
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "admin", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("test-key", "fundgate", "fundgate-api")

	token, err := svc.GenerateAccessToken(uuid.New(), "user", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateWrongKey(t *testing.T) {
	svc := NewJWTService("test-key", "fundgate", "fundgate-api")
	other := NewJWTService("other-key", "fundgate", "fundgate-api")

	token, err := svc.GenerateAccessToken(uuid.New(), "user", time.Minute)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
