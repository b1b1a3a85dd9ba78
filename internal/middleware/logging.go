package middleware

import (
	"errors"
	"time"

	"PollinatorTracker/pkg/log"

	"github.com/gofiber/fiber/v2"
)

// NewLoggingMiddleware logs one line per request. Bodies are never logged;
// uploads are binary images.
func (m *middleware) NewLoggingMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	requestID := m.GetRequestID(c)

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()
	if err != nil {
		// the app error handler has not written the response yet
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	logFields := log.Fields{
		"request_id":    requestID,
		"method":        c.Method(),
		"path":          c.Path(),
		"status":        status,
		"latency_ms":    latency.Milliseconds(),
		"ip":            c.IP(),
		"user_agent":    c.Get("User-Agent"),
		"response_size": c.Response().Header.ContentLength(),
	}
	if err != nil {
		logFields["error"] = err.Error()
	}

	entry := m.log.WithFields(logFields)
	switch {
	case status >= 500:
		entry.Error("Server error")
	case status >= 400:
		entry.Warn("Client error")
	default:
		entry.Info("Success")
	}

	return err
}
