package config

import (
	"context"
	"sync"
)

var (
	globalMu       sync.RWMutex
	globalManager  *Manager
	globalWatchers []func(*Config)
)

// Initialize loads the process-wide configuration once at startup. Callers
// that need per-request isolation (tests, multi-tenant hosting) should use
// NewManager directly instead of the global accessors.
func Initialize(ctx context.Context, mgr *Manager, providers ...Provider) error {
	globalMu.Lock()
	if mgr == nil {
		mgr = NewManager(nil)
	}
	globalManager = mgr
	globalMu.Unlock()
	_, err := mgr.Load(ctx, providers...)
	return err
}

// Get returns the process-wide Config. It panics if Initialize has not been
// called, mirroring the fail-fast behavior of an uninitialized singleton.
func Get() *Config {
	globalMu.RLock()
	mgr := globalManager
	globalMu.RUnlock()
	if mgr == nil {
		panic("config: Get called before Initialize")
	}
	cfg := mgr.Get()
	if cfg == nil {
		panic("config: Get called before a successful Load")
	}
	return cfg
}

// OnChange registers a callback invoked after each successful Reload of the
// global configuration. Reloads the Manager triggers on its own when a
// watched file changes do not invoke these callbacks.
func OnChange(fn func(*Config)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager == nil {
		panic("config: OnChange called before Initialize")
	}
	globalWatchers = append(globalWatchers, fn)
}

// Reload forces a synchronous reload of the global configuration using the
// providers supplied at Initialize time.
func Reload(ctx context.Context) error {
	globalMu.RLock()
	mgr := globalManager
	watchers := append([]func(*Config){}, globalWatchers...)
	globalMu.RUnlock()
	if mgr == nil {
		panic("config: Reload called before Initialize")
	}
	mgr.mu.Lock()
	providers := mgr.providers
	mgr.mu.Unlock()
	cfg, err := mgr.Load(ctx, providers...)
	if err != nil {
		return err
	}
	for _, w := range watchers {
		w(cfg)
	}
	return nil
}

// resetForTest clears global state between test cases.
func resetForTest() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
	globalWatchers = nil
}
