// Package cache keeps detector results for images that were already seen.
package cache

import (
	"context"
	"time"

	"PollinatorTracker/internal/entity"

	gocache "github.com/patrickmn/go-cache"
)

type IDetectionCache interface {
	Get(ctx context.Context, key string) ([]entity.Detection, bool)
	Set(ctx context.Context, key string, detections []entity.Detection)
	Close() error
}

type memoryCache struct {
	store *gocache.Cache
}

// NewMemory returns an in-process cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) IDetectionCache {
	return &memoryCache{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]entity.Detection, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	dets, ok := v.([]entity.Detection)
	if !ok {
		return nil, false
	}
	return clone(dets), true
}

func (c *memoryCache) Set(_ context.Context, key string, detections []entity.Detection) {
	c.store.SetDefault(key, clone(detections))
}

func (c *memoryCache) Close() error {
	c.store.Flush()
	return nil
}

func clone(dets []entity.Detection) []entity.Detection {
	out := make([]entity.Detection, len(dets))
	copy(out, dets)
	return out
}
