package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crra-tempo/tempo-client/internal/session"
)

func TestPeekClaims(t *testing.T) {
	t.Run("DecodesWithoutVerifying", func(t *testing.T) {
		expiry := time.Now().Add(2 * time.Hour)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"id":   "id0001",
			"role": "chercheur",
			"exp":  expiry.Unix(),
		})
		signed, err := token.SignedString([]byte("some-other-secret"))
		require.NoError(t, err)

		claims, err := session.PeekClaims(signed)
		require.NoError(t, err)
		assert.Equal(t, "id0001", claims.UserID)
		assert.Equal(t, "chercheur", claims.Role)

		remaining := claims.ExpiresIn(time.Now())
		assert.Greater(t, remaining, time.Hour)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := session.PeekClaims("not-a-token")
		assert.ErrorIs(t, err, session.ErrMalformedToken)
	})

	t.Run("NoExpiryClaim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "x"})
		signed, err := token.SignedString([]byte("k"))
		require.NoError(t, err)

		claims, err := session.PeekClaims(signed)
		require.NoError(t, err)
		assert.Zero(t, claims.ExpiresIn(time.Now()))
	})
}
