package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// SecurityMiddleware provides centralized security functionality.
type SecurityMiddleware struct {
	logger *security.Logger
	config *security.SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance.
func NewSecurityMiddleware(logger *security.Logger, config *security.SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger: logger,
		config: config,
	}
}

// WriteLimiter returns the bucket applied to every mutating request.
func (sm *SecurityMiddleware) WriteLimiter() *security.RateLimiter {
	return security.NewRateLimiter(sm.config.RateLimitWrite, sm.config.RateLimitWriteRefill)
}

// OrgCreateLimiter returns the stricter bucket for organization creation.
func (sm *SecurityMiddleware) OrgCreateLimiter() *security.RateLimiter {
	return security.NewRateLimiter(sm.config.RateLimitOrgCreate, sm.config.RateLimitOrgRefill)
}

// HeaderRateLimitRemaining reports how many writes the caller has left.
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

// RateLimit rejects requests once the caller's bucket in limiter is empty.
// Authenticated callers are keyed by user id, anonymous ones by IP. Safe
// methods pass through untouched.
//
// Rejections answer 429 with the RATE_LIMITED envelope and a Retry-After header.
func (sm *SecurityMiddleware) RateLimit(limiter *security.RateLimiter, endpointName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		identifier := "ip_" + c.IP()
		userID := UserID(c)
		if userID != "" {
			identifier = "user_" + userID
		}

		if !limiter.Allow(identifier) {
			var actorID *string
			if userID != "" {
				actorID = &userID
			}
			sm.logger.SecurityEvent(security.EventRateLimitExceeded, actorID, UserEmail(c), c.IP(), c.Get(fiber.HeaderUserAgent),
				map[string]interface{}{
					"endpoint":   endpointName,
					"identifier": identifier,
				})

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(sm.config.RateLimitRetryAfterSec))
			return Abort(c, envelope.New(envelope.CodeRateLimited, "Rate limit exceeded, please try again later"))
		}

		c.Set(HeaderRateLimitRemaining, strconv.Itoa(limiter.Remaining(identifier)))
		return c.Next()
	}
}

// RequestLogger logs every HTTP request with its request id. A 403 is also
// recorded as an UNAUTHORIZED_ACCESS security event.
func (sm *SecurityMiddleware) RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Let the app's error handler set the final status before logging.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		status := c.Response().StatusCode()
		sm.logger.HTTPRequest(
			RequestIDFrom(c),
			c.Method(),
			c.Path(),
			status,
			time.Since(start).Milliseconds(),
			c.IP(),
			c.Get(fiber.HeaderUserAgent),
		)

		if status == fiber.StatusForbidden {
			var actorID *string
			if id := UserID(c); id != "" {
				actorID = &id
			}
			sm.logger.SecurityEvent(security.EventUnauthorizedAccess, actorID, UserEmail(c), c.IP(), c.Get(fiber.HeaderUserAgent),
				map[string]interface{}{
					"method":     c.Method(),
					"path":       c.Path(),
					"status":     status,
					"request_id": RequestIDFrom(c),
				})
		}

		return err
	}
}

// SecureHeaders adds security headers suited to a JSON API.
func (sm *SecurityMiddleware) SecureHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Responses are data, never documents to render.
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderReferrerPolicy, "no-referrer")
		c.Set(fiber.HeaderCacheControl, "no-store")

		if sm.config.EnforceHTTPS {
			c.Set(fiber.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
