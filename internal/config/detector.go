package config

import (
	"fmt"

	"PollinatorTracker/pkg/annotate"
	"PollinatorTracker/pkg/cache"
	"PollinatorTracker/pkg/detector"
	"PollinatorTracker/pkg/metrics"
	"PollinatorTracker/pkg/redis"
	"PollinatorTracker/pkg/video"

	"github.com/sirupsen/logrus"
)

// NewDetectionCache picks Redis when an address is configured, an in-process
// cache otherwise. A zero TTL disables caching and returns nil.
func NewDetectionCache(cfg *AppConfig) cache.IDetectionCache {
	if cfg.CacheTTL <= 0 {
		return nil
	}
	if cfg.RedisAddress != "" {
		return redis.New(redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
	}
	return cache.NewMemory(cfg.CacheTTL)
}

// NewDetector builds the configured backend and its optional decorators.
func NewDetector(cfg *AppConfig, c cache.IDetectionCache, m *metrics.Metrics, log *logrus.Logger) (detector.IDetector, error) {
	var (
		d   detector.IDetector
		err error
	)

	switch cfg.DetectorBackend {
	case BackendWS:
		d, err = detector.NewWebSocket(detector.WebSocketConfig{
			URL:       cfg.DetectorURL,
			HealthURL: cfg.DetectorHealthURL,
			Timeout:   cfg.DetectorTimeout,
		})
	case BackendHTTP:
		d, err = detector.NewHTTP(detector.HTTPConfig{
			URL:       cfg.DetectorURL,
			HealthURL: cfg.DetectorHealthURL,
			Timeout:   cfg.DetectorTimeout,
		})
	default:
		err = fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DetectorSerialize {
		d = detector.Serialized(d)
	}
	if c != nil {
		d = detector.Cached(d, c, m)
	}

	log.WithFields(logrus.Fields{
		"backend":    cfg.DetectorBackend,
		"url":        cfg.DetectorURL,
		"serialized": cfg.DetectorSerialize,
		"cached":     c != nil,
	}).Info("Detector configured")

	return d, nil
}

func NewAnnotator(cfg *AppConfig, log *logrus.Logger) annotate.IAnnotator {
	opts := annotate.DefaultOptions()
	opts.FontSize = cfg.FontSize
	if cfg.FontPath != "" {
		opts.FontPaths = append([]string{cfg.FontPath}, opts.FontPaths...)
	}

	a := annotate.New(opts)
	if a.UsesFallbackFont() {
		log.Warn("No TrueType font found, labels use the built-in bitmap font")
	}
	return a
}

func NewFrameExtractor(cfg *AppConfig, log *logrus.Logger) video.IFrameExtractor {
	e := video.NewFFmpeg(cfg.FFmpegPath, cfg.VideoFrameRate)
	if !e.Available() {
		log.Warnf("%s not found, video uploads will fail", cfg.FFmpegPath)
	}
	return e
}
