package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
)

// Provider resolves an external identity token to a stable player. The core
// never verifies tokens itself; it only trusts the resolved player.
type Provider interface {
	Resolve(ctx context.Context, token string) (domain.Player, error)
}

type Config struct {
	// Secret is the HMAC key shared with the token issuer.
	Secret string
}

// JWT resolves HS256 bearer tokens issued by the auth frontend. Claims carry
// the player id in sub and the display name in name.
type JWT struct {
	secret []byte
}

func NewJWT(c Config) *JWT {
	return &JWT{secret: []byte(c.Secret)}
}

type claims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

func (j *JWT) Resolve(_ context.Context, token string) (domain.Player, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("unexpected signing method %v", t.Header["alg"]))
		}
		return j.secret, nil
	})
	if err != nil {
		return domain.Player{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token"),
			errors.WithCause(err))
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return domain.Player{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token claims"))
	}

	return domain.Player{
		PlayerID:    c.Subject,
		DisplayName: c.DisplayName,
	}, nil
}
