package config

import (
	"errors"

	"PollinatorTracker/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger, cfg *AppConfig) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:               "Pollinator Tracker",
			BodyLimit:             int(cfg.MaxUploadBytes),
			DisableKeepalive:      false,
			DisableStartupMessage: cfg.Env == "test",
			StrictRouting:         true,
			CaseSensitive:         true,
			UnescapePath:          true,
			Immutable:             true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
			ErrorHandler:          newErrorHandler(logger),
		})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))

	return app
}

// newErrorHandler renders errors that escape handlers (unknown routes,
// oversized bodies, recovered panics) with the same {"error"} body the
// handlers use.
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An unexpected error occurred"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}
		if code == fiber.StatusRequestEntityTooLarge {
			message = "File too large"
		}

		if code >= fiber.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"path":  ctx.Path(),
				"error": err.Error(),
			}).Error("Unhandled error")
		}

		return ctx.Status(code).JSON(handlerUtil.ErrorResponse{Error: message})
	}
}
