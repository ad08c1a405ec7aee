package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitq/orbitq/internal/identity"
)

const testSecret = "test-secret"

func TestJWT_Resolve(t *testing.T) {
	p := identity.NewJWT(identity.Config{Secret: testSecret})

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "player-1",
		"name": "Ada",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	player, err := p.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", player.PlayerID)
	assert.Equal(t, "Ada", player.DisplayName)
}

func TestJWT_ResolveRejectsBadTokens(t *testing.T) {
	p := identity.NewJWT(identity.Config{Secret: testSecret})

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": signToken(t, "other-secret", jwt.MapClaims{"sub": "player-1"}),
		"expired": signToken(t, testSecret, jwt.MapClaims{
			"sub": "player-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"missing subject": signToken(t, testSecret, jwt.MapClaims{"name": "Ada"}),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Resolve(context.Background(), token)
			require.Error(t, err)
		})
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}
