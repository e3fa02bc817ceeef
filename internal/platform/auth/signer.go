package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints HS512 tokens that JWTMiddleware configured with the same
// JWTConfig accepts.
type Signer struct {
	cfg JWTConfig
	now func() time.Time
}

func NewSigner(cfg JWTConfig) *Signer {
	return &Signer{cfg: cfg, now: time.Now}
}

// Sign returns a token carrying scopes and metadata that expires after
// lifetime.
func (s *Signer) Sign(scopes []string, metadata map[string]any, lifetime time.Duration) (string, error) {
	if len(s.cfg.SigningKey) == 0 {
		return "", errNoSigningKey
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(s.now().Add(lifetime)),
		},
		Scope:    strings.Join(scopes, " "),
		Metadata: metadata,
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.cfg.SigningKey)
}
