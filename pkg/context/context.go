package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type requestIDKey struct{}

// LocalsRequestID is the fiber Locals key the request id middleware writes.
const LocalsRequestID = "X-Request-ID"

const unknownRequestID = "unknown"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return unknownRequestID
	}
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return unknownRequestID
	}
	return requestID
}

// FromFiberCtx starts a detached context carrying the request id. Work that
// outlives the handler (the fiber context is recycled) must not hold on to
// the request itself.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, _ := c.Locals(LocalsRequestID).(string)
	if requestID == "" {
		requestID = unknownRequestID
	}
	return WithRequestID(context.Background(), requestID)
}
