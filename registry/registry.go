package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/thapovan-inc/orion-trace-reader/bookkeeper"
	"github.com/thapovan-inc/orion-trace-reader/storage"
	"github.com/thapovan-inc/orion-trace-reader/trace"
	"github.com/thapovan-inc/orion-trace-reader/util"
)

// Registry hands out at most one Handle per trace id, so the single-fetch
// guarantee holds across call sites and not just across goroutines sharing
// one handle. The book keeper records which traces the span stream has
// confirmed complete.
type Registry struct {
	executor storage.QueryExecutor
	bk       bookkeeper.BookKeeper
	mu       sync.RWMutex
	handles  map[uuid.UUID]*trace.Handle
}

var registry *Registry

func InitRegistry(executor storage.QueryExecutor) {
	logger := util.GetLogger("registry", "InitRegistry")
	if registry != nil {
		logger.Warn("Registry already initialised")
		return
	}
	registry = newRegistry(executor, bookkeeper.GetBookKeeper())
}

func GetRegistry() *Registry {
	if registry == nil {
		logger := util.GetLogger("registry", "GetRegistry")
		logger.Warn("Did you forget to call registry::InitRegistry() ?")
	}
	return registry
}

func newRegistry(executor storage.QueryExecutor, bk bookkeeper.BookKeeper) *Registry {
	return &Registry{
		executor: executor,
		bk:       bk,
		handles:  make(map[uuid.UUID]*trace.Handle),
	}
}

// Handle returns the process-wide handle for the given trace id, creating
// it on first request. Creation is guarded the same way the handle guards
// its fetch: racing callers all end up with the same pointer.
func (r *Registry) Handle(id uuid.UUID) *trace.Handle {
	r.mu.RLock()
	handle, exists := r.handles[id]
	r.mu.RUnlock()
	if exists {
		return handle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if handle, exists = r.handles[id]; exists {
		return handle
	}
	handle = trace.NewHandle(id, r.executor)
	r.handles[id] = handle
	r.bk.SawTrace(id[:])
	return handle
}

// Complete reports whether the span stream has confirmed the trace is fully
// written, without touching the store.
func (r *Registry) Complete(id uuid.UUID) bool {
	return r.bk.TraceComplete(id[:])
}

func (r *Registry) lookup(id uuid.UUID) (*trace.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, exists := r.handles[id]
	return handle, exists
}
