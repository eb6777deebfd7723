// Package api implements the stateless control-plane HTTP surface:
// health, discovery, compose dispatch, and a deterministic chat endpoint.
// All caches are read-only snapshots loaded at startup; the only shared
// mutable state is a bounded work queue and a per-target advisory lock
// guarding concurrent composition of the same (output, system_name) pair.
package api

import (
	"sync"

	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/dispatch"
	"github.com/forge/composer/internal/metrics"
	"github.com/forge/composer/pkg/config"
)

// Server holds every read-only dependency a handler needs plus the small
// amount of shared mutable state the control plane allows: the dispatch
// queue and the per-key composition lock. It has no compose.Engine handle
// of its own — composition runs out-of-process (the CLI or the external
// worker consuming dispatched records), never inside the API.
type Server struct {
	cfg        *config.Config
	catalog    *catalog.Catalog
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Service
	queue      chan struct{}
	locks      keyLocks
	version    string
}

// NewServer wires a Server from its already-constructed dependencies.
// dispatcher may be nil, in which case every /compose call reports
// dispatch_status "skipped". metricsSvc may be nil, in which case a
// disabled (no-op) service is used.
func NewServer(
	cfg *config.Config,
	cat *catalog.Catalog,
	dispatcher *dispatch.Dispatcher,
	metricsSvc *metrics.Service,
	version string,
) *Server {
	depth := cfg.Dispatch.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	if metricsSvc == nil {
		metricsSvc, _ = metrics.NewService(false)
	}
	return &Server{
		cfg:        cfg,
		catalog:    cat,
		dispatcher: dispatcher,
		metrics:    metricsSvc,
		queue:      make(chan struct{}, depth),
		locks:      keyLocks{inUse: map[string]struct{}{}},
		version:    version,
	}
}

// tryAcquireQueueSlot reserves one queue slot without blocking. The
// caller must call release() exactly once when done, whether or not
// acquisition succeeded — release on a failed acquisition is a no-op.
func (s *Server) tryAcquireQueueSlot() (acquired bool, release func()) {
	select {
	case s.queue <- struct{}{}:
		return true, func() { <-s.queue }
	default:
		return false, func() {}
	}
}

// keyLocks serializes composition jobs that target the same
// (output, system_name) pair.
type keyLocks struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

func (k *keyLocks) tryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.inUse[key]; busy {
		return false
	}
	k.inUse[key] = struct{}{}
	return true
}

func (k *keyLocks) unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.inUse, key)
}
