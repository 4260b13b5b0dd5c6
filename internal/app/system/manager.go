package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/R3E-Network/chirp/internal/logging"
)

// Manager starts and stops registered services.
type Manager struct {
	mu       sync.Mutex
	log      *logging.Logger
	services []Service
	started  []Service
}

// NewManager returns an empty manager.
func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewDefault("system")
	}
	return &Manager{log: log}
}

// Register appends services. Registering after Start has no effect until the
// next Start.
func (m *Manager) Register(services ...Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range services {
		if svc != nil {
			m.services = append(m.services, svc)
		}
	}
}

// Start starts every service in order. If one fails, the ones already
// started are stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.log.WithError(err).WithField("service", svc.Name()).Error("service failed to start")
			stopErr := m.stopLocked(ctx)
			return errors.Join(fmt.Errorf("start %s: %w", svc.Name(), err), stopErr)
		}
		m.started = append(m.started, svc)
		m.log.WithField("service", svc.Name()).Info("service started")
	}
	return nil
}

// Stop stops started services in reverse order and returns every failure.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			m.log.WithError(err).WithField("service", svc.Name()).Warn("service failed to stop")
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
			continue
		}
		m.log.WithField("service", svc.Name()).Info("service stopped")
	}
	m.started = nil
	return errors.Join(errs...)
}
