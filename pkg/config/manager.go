package config

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Manager wraps a Service with an atomically-readable current Config and an
// optional file-watch driven reload, debounced so a flurry of writes to a
// config file collapses into one reload.
type Manager struct {
	Service  *Service
	current  atomic.Pointer[Config]
	debounce time.Duration
	providers []Provider
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// NewManager wraps svc (or a fresh Service if nil) in a Manager.
func NewManager(svc *Service) *Manager {
	if svc == nil {
		svc = NewService()
	}
	return &Manager{Service: svc, debounce: 100 * time.Millisecond}
}

// SetDebounce overrides the reload coalescing window.
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// Load resolves the configuration from the given providers, stores it, and
// arms file-watch based reload for any provider that supports it.
func (m *Manager) Load(ctx context.Context, providers ...Provider) (*Config, error) {
	cfg, err := m.Service.Load(ctx, providers...)
	if err != nil {
		return nil, err
	}
	m.current.Store(cfg)
	m.mu.Lock()
	m.providers = providers
	m.mu.Unlock()
	m.armWatchers(ctx, providers)
	return cfg, nil
}

func (m *Manager) armWatchers(ctx context.Context, providers []Provider) {
	watchCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	debounceWindow := m.debounce
	m.mu.Unlock()
	reload := debounce(watchCtx, debounceWindow, func() {
		_, _ = m.Service.Load(watchCtx, providers...)
		if cfg := m.Service.lastLoaded(); cfg != nil {
			m.current.Store(cfg)
		}
	})
	for _, p := range providers {
		_ = p.Watch(watchCtx, reload)
	}
}

// Get returns the most recently loaded Config, or nil if Load has never
// been called.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Close stops any active file watchers.
func (m *Manager) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return nil
}
