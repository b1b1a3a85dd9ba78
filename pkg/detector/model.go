package detector

import (
	"context"
	"sync"
	"time"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/metrics"

	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 5 * time.Second

// Model is the process-wide handle on the detector. It is built once at
// startup and records whether the detector answered its last health check.
type Model struct {
	detector IDetector
	metrics  *metrics.Metrics
	log      *logrus.Logger

	mu        sync.RWMutex
	available bool
	reason    string
}

// NewModel checks d once. A nil detector yields a model that is
// permanently unavailable.
func NewModel(ctx context.Context, d IDetector, m *metrics.Metrics, log *logrus.Logger) *Model {
	model := &Model{
		detector: d,
		metrics:  m,
		log:      log,
	}
	model.Refresh(ctx)
	return model
}

func (m *Model) Name() string {
	if m.detector == nil {
		return "none"
	}
	return m.detector.Name()
}

func (m *Model) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// Reason explains the last failed health check, or is empty.
func (m *Model) Reason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// Refresh checks the detector's health and updates availability.
func (m *Model) Refresh(ctx context.Context) bool {
	if m.detector == nil {
		m.setState(false, "no detector configured")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := m.detector.CheckHealth(ctx); err != nil {
		if m.Available() || m.Reason() == "" {
			m.log.WithFields(logrus.Fields{
				"detector": m.detector.Name(),
				"error":    err.Error(),
			}).Warn("[detector.Refresh] detector is not available")
		}
		m.setState(false, err.Error())
		return false
	}

	if !m.Available() {
		m.log.WithField("detector", m.detector.Name()).Info("[detector.Refresh] detector is available")
	}
	m.setState(true, "")
	return true
}

func (m *Model) setState(available bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	m.reason = reason
}

// Detect returns ErrUnavailable without calling the backend when the last
// health check failed.
func (m *Model) Detect(ctx context.Context, imagePath string) ([]entity.Detection, error) {
	if m.detector == nil || !m.Available() {
		return nil, ErrUnavailable
	}

	start := time.Now()
	dets, err := m.detector.Detect(ctx, imagePath)
	m.metrics.ObserveInference(m.detector.Name(), time.Since(start))

	return dets, err
}

func (m *Model) Close() error {
	if m.detector == nil {
		return nil
	}
	return m.detector.Close()
}
