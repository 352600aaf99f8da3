package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	assert.True(t, CheckPassword("secret", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("secret", ""))
	assert.False(t, CheckPassword("secret", "not-a-bcrypt-hash"))
}

func TestGenerateToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		token, expires, err := GenerateToken("testsecret", "admin", now)

		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, now.Add(12*time.Hour), expires, time.Second)
	})

	t.Run("NoSecret", func(t *testing.T) {
		_, _, err := GenerateToken("", "admin", time.Now())
		assert.ErrorIs(t, err, ErrSecretNotSet)
	})
}

func TestParseToken(t *testing.T) {
	tokenStr, _, err := GenerateToken("testsecret", "admin", time.Now())
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		claims, err := ParseToken("testsecret", tokenStr)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		_, err := ParseToken("testsecret", "invalid-token-string")
		assert.Error(t, err)
	})

	t.Run("NoSecret", func(t *testing.T) {
		_, err := ParseToken("", tokenStr)
		assert.ErrorIs(t, err, ErrSecretNotSet)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := ParseToken("other", tokenStr)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		old, _, err := GenerateToken("testsecret", "admin", time.Now().Add(-13*time.Hour))
		require.NoError(t, err)

		_, err = ParseToken("testsecret", old)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("WrongRole", func(t *testing.T) {
		claims := Claims{
			Username: "bob",
			Role:     "customer",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "nextaz-be",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("testsecret"))
		require.NoError(t, err)

		_, err = ParseToken("testsecret", signed)
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("NoneAlgorithmRejected", func(t *testing.T) {
		claims := Claims{Username: "x", Role: RoleAdmin}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ParseToken("testsecret", unsigned)
		assert.Error(t, err)
	})
}
