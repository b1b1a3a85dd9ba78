package cache

import (
	"context"
	"testing"
	"time"

	"PollinatorTracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	dets := []entity.Detection{{Class: "bee", Confidence: 0.8, BBox: entity.BoundingBox{X1: 1, Y1: 1, X2: 5, Y2: 5}}}
	c.Set(ctx, "k", dets)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, dets, got)
}

func TestMemoryCacheIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	dets := []entity.Detection{{Class: "bee", Confidence: 0.8}}
	c.Set(ctx, "k", dets)
	dets[0].Class = "changed"

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "bee", got[0].Class)

	got[0].Class = "changed again"
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "bee", again[0].Class)
}

func TestMemoryCacheKeepsEmptyResults(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	c.Set(ctx, "empty", nil)
	got, ok := c.Get(ctx, "empty")
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(20 * time.Millisecond)

	c.Set(ctx, "k", []entity.Detection{{Class: "bee"}})
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheCloseDropsEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	c.Set(ctx, "k", []entity.Detection{{Class: "bee"}})

	require.NoError(t, c.Close())

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
