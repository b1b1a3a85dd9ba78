package config

import (
	"context"
	"fmt"

	detectionHandler "PollinatorTracker/internal/api/detection/handler"
	detectionService "PollinatorTracker/internal/api/detection/service"
	"PollinatorTracker/internal/middleware"
	"PollinatorTracker/pkg/annotate"
	"PollinatorTracker/pkg/cache"
	"PollinatorTracker/pkg/detector"
	"PollinatorTracker/pkg/metrics"
	"PollinatorTracker/pkg/storage"
	"PollinatorTracker/pkg/utils"
	"PollinatorTracker/pkg/video"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const montageTileWidth = 320

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	cfg        *AppConfig
	middleware middleware.Middleware
	utils      utils.IUtils
	handlers   []handler
	storage    storage.ItfStorage
	model      *detector.Model
	annotator  annotate.IAnnotator
	metrics    *metrics.Metrics
	frames     video.IFrameExtractor
	cache      cache.IDetectionCache
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if server.storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if server.model == nil {
		return nil, fmt.Errorf("detector model is required")
	}
	if server.annotator == nil {
		return nil, fmt.Errorf("annotator is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithConfig(cfg *AppConfig) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.cfg == nil {
			return fmt.Errorf("config must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.Config{
			RateLimitRPS:   s.cfg.RateLimitRPS,
			RateLimitBurst: s.cfg.RateLimitBurst,
		})
		return nil
	}
}

func WithStorage() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("config must be initialized before storage")
		}
		store, err := storage.New(s.cfg.UploadDir, nil)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to prepare upload directory: %v", err)
			}
			return fmt.Errorf("failed to create storage: %w", err)
		}
		s.storage = store
		return nil
	}
}

func WithModel(model *detector.Model) ServerOption {
	return func(s *Server) error {
		s.model = model
		return nil
	}
}

func WithAnnotator(annotator annotate.IAnnotator) ServerOption {
	return func(s *Server) error {
		s.annotator = annotator
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithFrameExtractor(frames video.IFrameExtractor) ServerOption {
	return func(s *Server) error {
		s.frames = frames
		return nil
	}
}

// WithCache hands the detection cache to the server so Shutdown can close
// it. A nil cache is allowed.
func WithCache(c cache.IDetectionCache) ServerOption {
	return func(s *Server) error {
		s.cache = c
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	// Detection
	detectionServices := detectionService.NewDetectionService(
		s.log,
		detectionService.Config{
			MaxUploadBytes:   s.cfg.MaxUploadBytes,
			MontageFrames:    s.cfg.VideoMontageFrames,
			MontageTileWidth: montageTileWidth,
		},
		s.storage,
		s.model,
		s.annotator,
		s.frames,
		s.metrics,
		s.utils,
	)
	detectionHandlers := detectionHandler.New(s.log, s.middleware, detectionServices, s.storage, s.model, detectionHandler.Config{
		PublicBaseURL:  s.cfg.PublicBaseURL,
		RequestTimeout: s.cfg.RequestTimeout,
	})

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, detectionHandlers)

	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run() error {
	s.log.WithFields(logrus.Fields{
		"port":       s.cfg.Port,
		"upload_dir": s.storage.Dir(),
		"detector":   s.model.Name(),
		"available":  s.model.Available(),
	}).Info("Starting server")

	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// releases the detector connection and the cache.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)
	if closeErr := s.model.Close(); closeErr != nil {
		s.log.Warnf("Failed to close detector: %v", closeErr)
	}
	if s.cache != nil {
		if closeErr := s.cache.Close(); closeErr != nil {
			s.log.Warnf("Failed to close detection cache: %v", closeErr)
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Pollinator Tracker is running",
		})
	})
}

func (s *Server) setupMetrics() {
	if s.metrics == nil {
		return
	}
	s.engine.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}),
	))
}
