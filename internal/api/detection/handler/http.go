package detectionHandler

import (
	"context"
	"time"

	detectionService "PollinatorTracker/internal/api/detection/service"
	"PollinatorTracker/internal/middleware"
	"PollinatorTracker/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const baseURLLocal = "base_url"

// ModelStatus reports and refreshes detector availability for /health.
type ModelStatus interface {
	Name() string
	Available() bool
	Reason() string
	Refresh(ctx context.Context) bool
}

type Config struct {
	// PublicBaseURL prefixes image links. Empty means the request's own
	// scheme and host.
	PublicBaseURL  string
	RequestTimeout time.Duration
}

type DetectionHandler struct {
	log              *logrus.Logger
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	storage          storage.ItfStorage
	model            ModelStatus
	cfg              Config
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	storage storage.ItfStorage,
	model ModelStatus,
	cfg Config,
) *DetectionHandler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	return &DetectionHandler{
		log:              log,
		middleware:       middleware,
		detectionService: ds,
		storage:          storage,
		model:            model,
		cfg:              cfg,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(baseURLLocal, h.baseURL(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/upload", h.middleware.NewRateLimiter, h.Upload)
	srv.Post("/upload/video", h.middleware.NewRateLimiter, h.UploadVideo)

	srv.Get("/uploads/:filename", h.ServeUpload)
	srv.Get("/health", h.Health)

	srv.Use("/ws", wsMiddleware)
	srv.Get("/ws/detect", websocket.New(h.handleDetectSocket))
}
