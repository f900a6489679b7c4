// Package refresh implements the credential that authenticates regeneration
// requests. A regeneration triggered by the revalidation queue carries a
// sealed, short-lived grant for a specific cache key; only a valid grant
// makes the render path bypass the cache read. Anything else fails closed
// and is treated as a normal cacheable request.
package refresh

import (
	cryptorand "crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header carries the sealed grant on regeneration requests.
const Header = "X-Regen-Refresh"

const validityDuration = 5 * time.Minute

type Sealer struct {
	key []byte
}

// Grant authorizes one forced regeneration of a single cache key.
type Grant struct {
	Key string `json:"key,omitempty"`
}

type claims struct {
	Grant

	jwt.RegisteredClaims
}

// NewSealer derives the sealing key from the configured secret. With an
// empty secret a random per-process key is generated, which is sufficient
// for single-process deployments where the queue and the render path share
// the same Sealer.
func NewSealer(secret string) (*Sealer, error) {
	var key []byte

	if secret != "" {
		key = []byte(secret)
	} else {
		key = make([]byte, 32)

		if _, err := cryptorand.Read(key); err != nil {
			return nil, err
		}
	}

	return &Sealer{
		key: key,
	}, nil
}

func (sealer *Sealer) Seal(grant Grant) (string, error) {
	now := time.Now()

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Grant: grant,
		RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now.Add(-validityDuration)),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	return jwtToken.SignedString(sealer.key)
}

func (sealer *Sealer) Unseal(sealedGrant string) (Grant, error) {
	var claims claims

	validMethods := []string{
		jwt.SigningMethodHS256.Alg(),
	}

	_, err := jwt.ParseWithClaims(sealedGrant, &claims, sealer.keyFunc, jwt.WithValidMethods(validMethods))
	if err != nil {
		return Grant{}, err
	}

	return claims.Grant, nil
}

func (sealer *Sealer) keyFunc(_ *jwt.Token) (interface{}, error) {
	return sealer.key, nil
}
