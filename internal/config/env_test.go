package config

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "APP_ENV", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "PUBLIC_BASE_URL", "REQUEST_TIMEOUT",
		"DETECTOR_BACKEND", "DETECTOR_URL", "DETECTOR_HEALTH_URL", "DETECTOR_TIMEOUT", "DETECTOR_SERIALIZE",
		"FONT_PATH", "FONT_SIZE", "CACHE_TTL", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "FFMPEG_PATH", "VIDEO_FRAME_RATE", "VIDEO_MONTAGE_FRAMES",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(16<<20), cfg.MaxUploadBytes)
	assert.Equal(t, BackendHTTP, cfg.DetectorBackend)
	assert.Equal(t, defaultHTTPDetectorURL, cfg.DetectorURL)
	assert.Equal(t, 60*time.Second, cfg.DetectorTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 9, cfg.VideoMontageFrames)
	assert.Zero(t, cfg.RateLimitRPS)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "8080")
	t.Setenv("PUBLIC_BASE_URL", "https://bees.example.org/")
	t.Setenv("DETECTOR_BACKEND", "WS")
	t.Setenv("DETECTOR_TIMEOUT", "2.5")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("DETECTOR_SERIALIZE", "true")

	cfg, err := FromEnv(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://bees.example.org", cfg.PublicBaseURL)
	assert.Equal(t, BackendWS, cfg.DetectorBackend)
	assert.Equal(t, defaultWSDetectorURL, cfg.DetectorURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.DetectorTimeout)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.DetectorSerialize)
}

func TestFromEnvReportsEveryMalformedValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := FromEnv(NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}

func TestFromEnvValidates(t *testing.T) {
	tests := map[string]struct{ key, value string }{
		"unknown backend":       {"DETECTOR_BACKEND", "grpc"},
		"non numeric port":      {"APP_PORT", "http"},
		"zero upload limit":     {"MAX_UPLOAD_BYTES", "0"},
		"bad detector url":      {"DETECTOR_URL", "not a url"},
		"zero montage frames":   {"VIDEO_MONTAGE_FRAMES", "0"},
		"negative montage size": {"VIDEO_MONTAGE_FRAMES", "-3"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv(NewValidator())
			assert.Error(t, err)
		})
	}
}

func TestNewDetectionCache(t *testing.T) {
	assert.Nil(t, NewDetectionCache(&AppConfig{CacheTTL: 0}))

	c := NewDetectionCache(&AppConfig{CacheTTL: time.Minute})
	require.NotNil(t, c)

	ctx := context.Background()
	c.Set(ctx, "k", []entity.Detection{{Class: "bee", Confidence: 0.5}})
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "bee", got[0].Class)
}

func TestNewDetectorRejectsUnknownBackend(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewDetector(&AppConfig{DetectorBackend: "grpc"}, nil, nil, logger)
	assert.Error(t, err)

	d, err := NewDetector(&AppConfig{
		DetectorBackend: BackendHTTP,
		DetectorURL:     "http://localhost:8000/predict",
		DetectorTimeout: time.Second,
	}, nil, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "http", d.Name())
	require.NoError(t, d.Close())
}

func TestErrorHandlerRendersJSON(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := NewFiber(logger, &AppConfig{Env: "test", MaxUploadBytes: 1 << 20})
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })

	tests := []struct {
		path string
		code int
	}{
		{"/nowhere", fiber.StatusNotFound},
		{"/panic", fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.code, resp.StatusCode, tt.path)

		var body handlerUtil.ErrorResponse
		require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
	}
}
