package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJWTSecret_RequiresValue(t *testing.T) {
	assert.Error(t, InitJWTSecret(""))
}

func TestGenerateAndVerify(t *testing.T) {
	require.NoError(t, InitJWTSecret("test-secret"))

	token, err := GenerateJWT(42, "ada@example.com")
	require.NoError(t, err)

	userID, err := UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerify_RejectsForeignSecret(t *testing.T) {
	require.NoError(t, InitJWTSecret("one"))
	token, err := GenerateJWT(1, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, InitJWTSecret("two"))
	_, err = UserIDFromToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsExpired(t *testing.T) {
	require.NoError(t, InitJWTSecret("test-secret"))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = UserIDFromToken(signed)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsMissingUserID(t *testing.T) {
	require.NoError(t, InitJWTSecret("test-secret"))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = UserIDFromToken(signed)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}
