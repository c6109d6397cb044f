package trace

import (
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/thapovan-inc/orion-trace-reader/storage"
)

// DurationUnset marks a trace whose duration has not been observed yet:
// either no fetch has happened, or the aggregator has not finished writing
// the summary row. A zero duration is a legitimate value and is distinct
// from unset.
const DurationUnset int64 = math.MinInt64

// Handle is a lazy client-side view of one trace record in the store. The
// record may still be in the process of being written when the handle is
// created; the first accessor call from any goroutine triggers exactly one
// lookup, and the result is cached once the record is complete.
//
// A Handle is safe for concurrent use. While a fetch is in flight every
// other accessor on the same handle blocks rather than issuing a second
// round trip.
type Handle struct {
	id       uuid.UUID
	executor storage.QueryExecutor
	reporter Reporter

	mu   sync.Mutex
	snap atomic.Value // *snapshot, published only under mu
}

// snapshot is the full field set assembled from one fetch attempt. A nil
// snapshot means unfetched; complete == false means the summary row existed
// but its duration column was still null, so the next access refetches.
type snapshot struct {
	requestType    string
	durationMicros int64
	coordinator    net.IP
	parameters     map[string]string
	startedAt      time.Time
	events         []Event
	complete       bool
}

func NewHandle(id uuid.UUID, executor storage.QueryExecutor) *Handle {
	return NewHandleWithReporter(id, executor, logReporter{})
}

func NewHandleWithReporter(id uuid.UUID, executor storage.QueryExecutor, reporter Reporter) *Handle {
	return &Handle{id: id, executor: executor, reporter: reporter}
}

// TraceID never triggers a fetch.
func (h *Handle) TraceID() uuid.UUID {
	return h.id
}

// RequestType returns the kind of request traced, or "" until a fetch has
// observed the summary row.
func (h *Handle) RequestType() string {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.requestType
	}
	return ""
}

// DurationMicros returns the server-side duration of the traced request in
// microseconds, or DurationUnset until a complete record has been observed.
func (h *Handle) DurationMicros() int64 {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.durationMicros
	}
	return DurationUnset
}

// Coordinator returns the address of the node that coordinated the traced
// request, or nil until fetched.
func (h *Handle) Coordinator() net.IP {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.coordinator
	}
	return nil
}

// Parameters returns the request parameters recorded with the trace. It is
// nil both before a fetch and when the record carries no parameters.
func (h *Handle) Parameters() map[string]string {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.parameters
	}
	return nil
}

// StartedAt returns the server-side start time of the traced request, or
// the zero time until fetched.
func (h *Handle) StartedAt() time.Time {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.startedAt
	}
	return time.Time{}
}

// Events returns the activity rows of the trace in store order. It is nil
// until a fetch has run and non-nil but empty when the trace has no events.
// The returned slice is shared with the handle and must not be modified.
func (h *Handle) Events() []Event {
	h.ensureFetched()
	if s := h.loadSnapshot(); s != nil {
		return s.events
	}
	return nil
}

func (h *Handle) String() string {
	h.ensureFetched()
	requestType := ""
	durationMicros := DurationUnset
	if s := h.loadSnapshot(); s != nil {
		requestType = s.requestType
		durationMicros = s.durationMicros
	}
	if durationMicros == DurationUnset {
		return fmt.Sprintf("%s [%s] - incomplete", requestType, h.id)
	}
	return fmt.Sprintf("%s [%s] - %dµs", requestType, h.id, durationMicros)
}

func (h *Handle) loadSnapshot() *snapshot {
	if v := h.snap.Load(); v != nil {
		return v.(*snapshot)
	}
	return nil
}
