package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/cache"
	"PollinatorTracker/pkg/metrics"
)

// Serialized allows one Detect call at a time, for backends that cannot
// serve concurrent requests.
func Serialized(d IDetector) IDetector {
	return &serialized{IDetector: d}
}

type serialized struct {
	IDetector
	mu sync.Mutex
}

func (s *serialized) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.IDetector.Detect(ctx, imagePath)
}

// Cached answers repeated images from c. Entries are keyed by the SHA-256
// of the image bytes and only successful results are stored.
func Cached(d IDetector, c cache.IDetectionCache, m *metrics.Metrics) IDetector {
	return &cached{IDetector: d, cache: c, metrics: m}
}

type cached struct {
	IDetector
	cache   cache.IDetectionCache
	metrics *metrics.Metrics
}

func (c *cached) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	key, err := fileDigest(imagePath)
	if err != nil {
		return nil, err
	}

	if dets, ok := c.cache.Get(ctx, key); ok {
		c.metrics.RecordCacheLookup(true)
		return dets, nil
	}
	c.metrics.RecordCacheLookup(false)

	dets, err := c.IDetector.Detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, key, dets)
	return dets, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
