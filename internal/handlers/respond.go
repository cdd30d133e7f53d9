// Package handlers implements the HTTP handlers of the grants API.
//
// Every handler answers with the {data, error} envelope. Handlers only parse
// input, call a service and translate its result; access rules live in the
// services.
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// base carries what every handler needs.
type base struct {
	logger *security.Logger
	config *security.SecurityConfig
}

// ctx returns the request context bounded by the configured request timeout.
func (b base) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), b.config.RequestTimeout)
}

// ok writes a success envelope.
func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope.OK(data))
}

// respondError writes err as an error envelope. Storage failures are logged
// with the request id.
func (b base) respondError(c *fiber.Ctx, err error) error {
	e := envelope.As(err)
	if e.Code == envelope.CodeDatabase {
		b.logger.Error("request "+middleware.RequestIDFrom(c)+" "+c.Method()+" "+c.Path(), err)
	}
	return middleware.Abort(c, e)
}

// decode parses a JSON body into dst. An empty body leaves dst untouched.
func decode(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, dst); err != nil {
		return envelope.Validation("Request body must be valid JSON")
	}
	return nil
}

// actor returns the caller id as the pointer SecurityEvent expects.
func actor(c *fiber.Ctx) *string {
	id := middleware.UserID(c)
	return &id
}

func (b base) event(c *fiber.Ctx, eventType security.SecurityEventType, extra map[string]interface{}) {
	if extra == nil {
		extra = map[string]interface{}{}
	}
	extra["request_id"] = middleware.RequestIDFrom(c)
	b.logger.SecurityEvent(eventType, actor(c), middleware.UserEmail(c), c.IP(), c.Get(fiber.HeaderUserAgent), extra)
}
