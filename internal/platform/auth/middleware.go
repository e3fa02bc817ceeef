package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClaimsKey   contextKey = "jwt_claims"
	SystemIDKey contextKey = "system_id"
)

// Claims is the platform token layout. Identity lives in metadata: system
// tokens carry system_id, clinician tokens clinician_id.
type Claims struct {
	jwt.RegisteredClaims
	Scope    string         `json:"scope,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SystemID returns metadata.system_id, or "" when absent.
func (c *Claims) SystemID() string {
	id, _ := c.Metadata["system_id"].(string)
	return id
}

// Scopes splits the space separated scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the shared HS512 secret.
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// IssuerFor returns the issuer used for tokens addressed to proxyURL.
func IssuerFor(proxyURL string) string {
	return strings.TrimRight(proxyURL, "/") + "/"
}

var errNoSigningKey = errors.New("no signing key configured")

// Parse validates tokenStr against cfg and returns its claims.
func (cfg JWTConfig) Parse(tokenStr string) (*Claims, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errNoSigningKey
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// JWTMiddleware requires a valid bearer token and stores its claims on the
// request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			if id := claims.SystemID(); id != "" {
				ctx = context.WithValue(ctx, SystemIDKey, id)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireSystem rejects requests whose token has no metadata.system_id. It
// must run after JWTMiddleware.
func RequireSystem() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if SystemIDFromContext(c.Request().Context()) == "" {
				return echo.NewHTTPError(http.StatusForbidden, "system token required")
			}
			return next(c)
		}
	}
}

// DevAuthMiddleware marks every request as coming from a local system
// caller. Only wired when AUTH_DISABLED is set in development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), SystemIDKey, "dev-system")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

func SystemIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SystemIDKey).(string)
	return id
}
