package trace

import (
	"net"

	"github.com/thapovan-inc/orion-trace-reader/storage/common"
)

// Lookups match the tables the aggregator writes. The store orders events
// by their time-ordered id; the handle never re-sorts.
const (
	summaryLookup = "SELECT request, duration, coordinator, parameters, started_at FROM trace_summary WHERE trace_id = ?"
	eventsLookup  = "SELECT activity, event_id, source, source_elapsed, thread FROM trace_events WHERE trace_id = ? ORDER BY event_id"
)

// ensureFetched runs the double-checked fetch gate. The fast path is a
// single atomic load and must not block: once a complete snapshot has been
// published, accessors never synchronize again. Goroutines that lose the
// race to the mutex re-check under it and return without a second round
// trip.
func (h *Handle) ensureFetched() {
	if s := h.loadSnapshot(); s != nil && s.complete {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if s := h.loadSnapshot(); s != nil && s.complete {
		return
	}
	h.fetch()
}

// fetch runs exactly one attempt against the store. The caller holds h.mu.
//
// A summary row with a null duration column means the aggregator is still
// writing the record: the fields that are present are adopted, but the
// snapshot stays incomplete so a later access retries. The duration is only
// assigned once the event list has also been read, which is what makes a
// published complete snapshot fully consistent.
func (h *Handle) fetch() {
	next := &snapshot{durationMicros: DurationUnset}
	if prev := h.loadSnapshot(); prev != nil {
		*next = *prev
		next.durationMicros = DurationUnset
		next.complete = false
	}

	durationMicros, haveDuration, err := h.fetchSummary(next)
	if err != nil {
		h.reporter.Report(&FetchError{TraceID: h.id, Stage: "summary", Err: err})
		return
	}

	events, err := h.fetchEvents()
	if err != nil {
		h.reporter.Report(&FetchError{TraceID: h.id, Stage: "events", Err: err})
		// The summary fields read above are still worth serving.
		h.snap.Store(next)
		return
	}
	next.events = events
	if haveDuration {
		next.durationMicros = durationMicros
		next.complete = true
	}
	h.snap.Store(next)
}

// fetchSummary reads the single summary row, assigning everything except
// the duration into next. The duration is returned to the caller so it can
// be installed last. A missing row is not an error; it simply leaves next
// untouched.
func (h *Handle) fetchSummary(next *snapshot) (int64, bool, error) {
	cursor, err := h.executor.Execute(common.Query{Statement: summaryLookup, Args: []interface{}{h.id[:]}})
	if err != nil {
		return 0, false, err
	}
	defer cursor.Close()
	if !cursor.Next() {
		return 0, false, cursor.Err()
	}
	// At most one row is expected per trace id; any extras are ignored.
	requestType, err := cursor.String("request")
	if err != nil {
		return 0, false, err
	}
	coordinator, err := cursor.String("coordinator")
	if err != nil {
		return 0, false, err
	}
	parametersPresent := !cursor.IsNull("parameters")
	var parameters map[string]string
	if parametersPresent {
		parameters, err = cursor.StringMap("parameters")
		if err != nil {
			return 0, false, err
		}
	}
	startedAt, err := cursor.Time("started_at")
	if err != nil {
		return 0, false, err
	}
	durationMicros := int64(0)
	haveDuration := false
	if !cursor.IsNull("duration") {
		durationMicros, err = cursor.Int64("duration")
		if err != nil {
			return 0, false, err
		}
		haveDuration = true
	}
	next.requestType = requestType
	next.coordinator = net.ParseIP(coordinator)
	if parametersPresent {
		next.parameters = parameters
	}
	next.startedAt = startedAt
	return durationMicros, haveDuration, nil
}

// fetchEvents reads the full event list for the trace in store order. The
// whole list is replaced on every attempt, so a retry after an incomplete
// read never appends to stale rows.
func (h *Handle) fetchEvents() ([]Event, error) {
	cursor, err := h.executor.Execute(common.Query{Statement: eventsLookup, Args: []interface{}{h.id[:]}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()
	events := make([]Event, 0)
	for cursor.Next() {
		description, err := cursor.String("activity")
		if err != nil {
			return nil, err
		}
		eventID, err := cursor.Uint64("event_id")
		if err != nil {
			return nil, err
		}
		source, err := cursor.String("source")
		if err != nil {
			return nil, err
		}
		sourceElapsed, err := cursor.Int64("source_elapsed")
		if err != nil {
			return nil, err
		}
		threadName, err := cursor.String("thread")
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Description:         description,
			Timestamp:           eventTime(eventID),
			Source:              net.ParseIP(source),
			SourceElapsedMicros: sourceElapsed,
			ThreadName:          threadName,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
