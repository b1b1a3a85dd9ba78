package detector

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/cache"
	"PollinatorTracker/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	healthErr error
	detectErr error
	dets      []entity.Detection
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
	closed    atomic.Bool
}

func (f *fakeDetector) Name() string { return "fake" }

func (f *fakeDetector) Detect(_ context.Context, _ string) ([]entity.Detection, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return f.dets, nil
}

func (f *fakeDetector) CheckHealth(context.Context) error { return f.healthErr }

func (f *fakeDetector) Close() error {
	f.closed.Store(true)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestModelAvailability(t *testing.T) {
	fake := &fakeDetector{healthErr: errors.New("connection refused")}
	m := NewModel(context.Background(), fake, nil, quietLogger())

	assert.False(t, m.Available())
	assert.Equal(t, "connection refused", m.Reason())
	assert.Equal(t, "fake", m.Name())

	_, err := m.Detect(context.Background(), "ignored.jpg")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(0), fake.calls.Load())

	fake.healthErr = nil
	assert.True(t, m.Refresh(context.Background()))
	assert.True(t, m.Available())
	assert.Empty(t, m.Reason())

	fake.dets = []entity.Detection{{Class: "bee", Confidence: 0.5}}
	dets, err := m.Detect(context.Background(), "ignored.jpg")
	require.NoError(t, err)
	assert.Len(t, dets, 1)

	require.NoError(t, m.Close())
	assert.True(t, fake.closed.Load())
}

func TestModelWithoutDetector(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, quietLogger())

	assert.False(t, m.Available())
	assert.Equal(t, "none", m.Name())
	assert.NotEmpty(t, m.Reason())

	_, err := m.Detect(context.Background(), "x.jpg")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, m.Close())
}

func TestModelRecordsInferenceDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	met, err := metrics.New(reg)
	require.NoError(t, err)

	m := NewModel(context.Background(), &fakeDetector{}, met, quietLogger())
	_, err = m.Detect(context.Background(), "x.jpg")
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(met.InferenceDuration))
}

func TestSerializedAllowsOneCallAtATime(t *testing.T) {
	fake := &fakeDetector{delay: 5 * time.Millisecond}
	d := Serialized(fake)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Detect(context.Background(), "x.jpg")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), fake.calls.Load())
	assert.Equal(t, int32(1), fake.maxFlight.Load())
	assert.Equal(t, "fake", d.Name())
}

func TestCachedReusesResultsForIdenticalImages(t *testing.T) {
	reg := prometheus.NewRegistry()
	met, err := metrics.New(reg)
	require.NoError(t, err)

	fake := &fakeDetector{dets: []entity.Detection{{Class: "bee", Confidence: 0.9}}}
	d := Cached(fake, cache.NewMemory(time.Minute), met)

	first := writeImage(t, "same-bytes")
	second := writeImage(t, "same-bytes")
	other := writeImage(t, "other-bytes")

	for _, p := range []string{first, second, other} {
		dets, err := d.Detect(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, "bee", dets[0].Class)
	}

	assert.Equal(t, int32(2), fake.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(met.CacheLookups.WithLabelValues(metrics.CacheHit)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(met.CacheLookups.WithLabelValues(metrics.CacheMiss)), 0)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	fake := &fakeDetector{detectErr: errors.New("timeout")}
	d := Cached(fake, cache.NewMemory(time.Minute), nil)
	img := writeImage(t, "bytes")

	_, err := d.Detect(context.Background(), img)
	assert.Error(t, err)

	fake.detectErr = nil
	fake.dets = []entity.Detection{}
	dets, err := d.Detect(context.Background(), img)
	require.NoError(t, err)
	assert.Empty(t, dets)
	assert.Equal(t, int32(2), fake.calls.Load())
}
