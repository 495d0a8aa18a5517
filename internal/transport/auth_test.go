package transport

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestStaticTokenSource(t *testing.T) {
	src := NewStaticTokenSource("opaque-token")
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)

	src.Clear()
	_, err = src.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestJWTExpiryIsCheckedLocally(t *testing.T) {
	src := NewStaticTokenSource(signToken(t, time.Hour))
	_, err := src.Token()
	assert.NoError(t, err)

	src.Set(signToken(t, -time.Minute))
	_, err = src.Token()
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestOpaqueTokensHaveNoExpiry(t *testing.T) {
	_, ok := jwtExpiry("not-a-jwt")
	assert.False(t, ok)
}
