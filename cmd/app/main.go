package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PollinatorTracker/internal/config"
	"PollinatorTracker/pkg/detector"
	"PollinatorTracker/pkg/log"
	"PollinatorTracker/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	logger := log.NewLogger()
	validator := config.NewValidator()

	cfg, err := config.LoadEnv(validator)
	if err != nil {
		logger.Fatalf("Error loading configuration: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics, err := metrics.New(registry)
	if err != nil {
		logger.Fatal(err)
	}

	// A detector that cannot be built leaves the service up in degraded mode.
	detectionCache := config.NewDetectionCache(cfg)
	d, err := config.NewDetector(cfg, detectionCache, appMetrics, logger)
	if err != nil {
		logger.Errorf("Failed to configure detector: %v", err)
	}
	model := detector.NewModel(context.Background(), d, appMetrics, logger)

	fiberApp := config.NewFiber(logger, cfg)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithConfig(cfg),
		config.WithMiddleware(),
		config.WithStorage(),
		config.WithModel(model),
		config.WithAnnotator(config.NewAnnotator(cfg, logger)),
		config.WithMetrics(appMetrics),
		config.WithFrameExtractor(config.NewFrameExtractor(cfg, logger)),
		config.WithCache(detectionCache),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
