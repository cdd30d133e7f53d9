// Package middleware provides the Fiber middleware of the grants API:
// session token verification, request ids, tracing, request logging,
// security headers and per-user rate limiting.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// Context locals set by AuthRequired.
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
)

// SessionClaims are the claims the auth provider puts in an access token.
// The user id is the subject.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired verifies the caller's session token and rejects the request
// with a 401 envelope when it is missing or invalid.
//
// The token is read from "Authorization: Bearer <token>" or, failing that,
// from the cookie named by config.TokenCookie. Only HS256 tokens signed with
// secret are accepted; exp is required.
//
// Parameters:
//   - secret: Shared signing key of the auth provider
//   - config: Issuer, leeway and cookie name
//   - logger: Receives a TOKEN_REJECTED event for every bad token
//
// Returns:
//   - fiber.Handler: Middleware for the API route group
//
// Context Locals Set:
//   - user_id: Token subject (string)
//   - user_email: Token email claim (string, may be empty)
//
// Example:
//
//	api := app.Group("/api", middleware.AuthRequired(secret, cfg, logger))
func AuthRequired(secret []byte, config *security.SecurityConfig, logger *security.Logger) fiber.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.TokenLeeway),
	}
	if config.TokenIssuer != "" {
		opts = append(opts, jwt.WithIssuer(config.TokenIssuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(config.TokenCookie)
		}
		if raw == "" {
			return Abort(c, envelope.Unauthorized())
		}

		var claims SessionClaims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err == nil && claims.Subject == "" {
			err = errors.New("token has no subject")
		}
		if err != nil {
			logger.SecurityEvent(security.EventTokenRejected, nil, "", c.IP(), c.Get(fiber.HeaderUserAgent),
				map[string]interface{}{
					"path":   c.Path(),
					"reason": err.Error(),
				})
			return Abort(c, envelope.Unauthorized())
		}

		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalUserEmail, claims.Email)
		return c.Next()
	}
}

// UserID returns the authenticated caller's id, or "" outside AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// UserEmail returns the authenticated caller's email claim.
func UserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalUserEmail).(string)
	return email
}

// Abort answers with the error envelope and stops the chain.
func Abort(c *fiber.Ctx, e *envelope.Error) error {
	return c.Status(e.Status()).JSON(envelope.Fail(e))
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
