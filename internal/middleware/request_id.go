package middleware

import (
	"time"

	contextPkg "PollinatorTracker/pkg/context"
	"PollinatorTracker/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = contextPkg.LocalsRequestID

const maxRequestIDLength = 128

// NewRequestIDMiddleware keeps a well-formed X-Request-ID from the caller or
// issues a ULID, and echoes it on the response.
func NewRequestIDMiddleware() fiber.Handler {
	utilsInstance := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if !validRequestID(requestID) {
			requestID, _ = utilsInstance.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}

// validRequestID accepts short ids made of printable ASCII without spaces,
// so a client id cannot forge extra log fields.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
