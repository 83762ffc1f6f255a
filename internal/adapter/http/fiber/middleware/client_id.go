package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	ClientIDHeader = "X-Client-ID"
	ClientIDKey    = "client_id"
	maxClientIDLen = 128
)

// ClientIdentity resolves the shopper a request belongs to from the
// X-Client-ID header, or the client_id query parameter for websocket
// upgrades. Requests without one get a fresh id, echoed back in the header.
func ClientIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(ClientIDHeader)
		if id == "" {
			id = c.Query(ClientIDKey)
		}
		if len(id) > maxClientIDLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Client id too long"})
		}
		if id == "" {
			id = uuid.New().String()
		}

		c.Locals(ClientIDKey, id)
		c.Set(ClientIDHeader, id)
		return c.Next()
	}
}

// ClientID returns the id stored by ClientIdentity.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(ClientIDKey).(string)
	return id
}
