package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunewave-backend/internal/models"
)

func TestCreateAndParseToken(t *testing.T) {
	now := time.Now()
	pair, err := CreateToken("mod-1", models.RoleModerator, "s3cret", time.Hour, 24*time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(pair.AccessToken, "s3cret", TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "mod-1", claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)
	assert.True(t, claims.IsStaff())

	_, err = ParseToken(pair.RefreshToken, "s3cret", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(pair.AccessToken, "other", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, err := ParseToken(pair.RefreshToken, "s3cret", TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "mod-1", refresh.UserID)
}

func TestExpiredToken(t *testing.T) {
	pair, err := CreateToken("u", models.RoleUser, "k", time.Minute, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseToken(pair.AccessToken, "k", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
