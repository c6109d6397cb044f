package trace

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	"github.com/thapovan-inc/orion-trace-reader/storage/common"
)

type fakeRow map[string]interface{}

type fakeResult struct {
	rows []fakeRow
	err  error
}

// fakeExecutor serves scripted results per lookup. Each call consumes the
// next scripted result for its statement; the last one repeats.
type fakeExecutor struct {
	mu           sync.Mutex
	summaryCalls int
	eventsCalls  int
	summary      []fakeResult
	events       []fakeResult
}

func (f *fakeExecutor) Initialize() error { return nil }
func (f *fakeExecutor) Close() error      { return nil }

func (f *fakeExecutor) Execute(query common.Query) (common.RowCursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var queue *[]fakeResult
	switch query.Statement {
	case summaryLookup:
		f.summaryCalls++
		queue = &f.summary
	case eventsLookup:
		f.eventsCalls++
		queue = &f.events
	default:
		return nil, errors.Errorf("unexpected statement %q", query.Statement)
	}
	var result fakeResult
	if len(*queue) > 0 {
		result = (*queue)[0]
		if len(*queue) > 1 {
			*queue = (*queue)[1:]
		}
	}
	if result.err != nil {
		return nil, result.err
	}
	return &fakeCursor{rows: result.rows}, nil
}

func (f *fakeExecutor) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls, f.eventsCalls
}

type fakeCursor struct {
	rows    []fakeRow
	current fakeRow
}

func (c *fakeCursor) Next() bool {
	if len(c.rows) == 0 {
		return false
	}
	c.current = c.rows[0]
	c.rows = c.rows[1:]
	return true
}

func (c *fakeCursor) IsNull(column string) bool {
	value, exists := c.current[column]
	return !exists || value == nil
}

func (c *fakeCursor) String(column string) (string, error) {
	value, _ := c.current[column].(string)
	return value, nil
}

func (c *fakeCursor) Int64(column string) (int64, error) {
	value, _ := c.current[column].(int64)
	return value, nil
}

func (c *fakeCursor) Uint64(column string) (uint64, error) {
	value, _ := c.current[column].(uint64)
	return value, nil
}

func (c *fakeCursor) Time(column string) (time.Time, error) {
	value, _ := c.current[column].(time.Time)
	return value, nil
}

func (c *fakeCursor) StringMap(column string) (map[string]string, error) {
	value, _ := c.current[column].(map[string]string)
	return value, nil
}

func (c *fakeCursor) Err() error   { return nil }
func (c *fakeCursor) Close() error { return nil }

type captureReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *captureReporter) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *captureReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

var testStartedAt = time.Date(2019, 3, 14, 9, 26, 53, 0, time.UTC)

func summaryRow(durationMicros interface{}) fakeRow {
	return fakeRow{
		"request":     "Execute CQL3 query",
		"duration":    durationMicros,
		"coordinator": "10.1.2.3",
		"parameters":  map[string]string{"query": "SELECT * FROM users"},
		"started_at":  testStartedAt,
	}
}

func eventRows() []fakeRow {
	return []fakeRow{
		{"activity": "Parsing query", "event_id": uint64(1000), "source": "10.1.2.3", "source_elapsed": int64(12), "thread": "Native-Transport-Requests-1"},
		{"activity": "Preparing statement", "event_id": uint64(2000), "source": "10.1.2.3", "source_elapsed": int64(45), "thread": "Native-Transport-Requests-1"},
		{"activity": "Read 3 live cells", "event_id": uint64(3000), "source": "10.1.2.4", "source_elapsed": int64(311), "thread": "ReadStage-2"},
	}
}

func newTestHandle(t *testing.T, executor *fakeExecutor) (*Handle, *captureReporter) {
	t.Helper()
	reporter := &captureReporter{}
	return NewHandleWithReporter(uuid.New(), executor, reporter), reporter
}

func TestSingleFetchUnderContention(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(4213))}}},
		events:  []fakeResult{{rows: eventRows()}},
	}
	handle, _ := newTestHandle(t, executor)

	const goroutines = 32
	start := make(chan struct{})
	durations := make([]int64, goroutines)
	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(slot int) {
			defer wg.Done()
			<-start
			durations[slot] = handle.DurationMicros()
		}(i)
	}
	close(start)
	wg.Wait()

	summaryCalls, eventsCalls := executor.calls()
	require.Equal(t, 1, summaryCalls)
	require.Equal(t, 1, eventsCalls)
	for _, duration := range durations {
		require.Equal(t, int64(4213), duration)
	}
}

func TestAssembledSnapshotConsistency(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(4213))}}},
		events:  []fakeResult{{rows: eventRows()}},
	}
	handle, reporter := newTestHandle(t, executor)

	require.Equal(t, "Execute CQL3 query", handle.RequestType())
	require.Equal(t, int64(4213), handle.DurationMicros())
	require.Equal(t, "10.1.2.3", handle.Coordinator().String())
	require.Equal(t, map[string]string{"query": "SELECT * FROM users"}, handle.Parameters())
	require.Equal(t, testStartedAt, handle.StartedAt())
	require.Len(t, handle.Events(), 3)
	require.Equal(t, time.Unix(0, 1000), handle.Events()[0].Timestamp)
	require.Equal(t, "10.1.2.4", handle.Events()[2].Source.String())
	require.Equal(t, 0, reporter.count())
}

func TestIncompleteRecordRetries(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{
			{rows: []fakeRow{summaryRow(nil)}},
			{rows: []fakeRow{summaryRow(int64(9999))}},
		},
		events: []fakeResult{{rows: eventRows()}},
	}
	handle, _ := newTestHandle(t, executor)

	// First access finds the summary row without a duration: the partial
	// fields are adopted but the record stays incomplete.
	require.Equal(t, "Execute CQL3 query", handle.RequestType())
	summaryCalls, eventsCalls := executor.calls()
	require.Equal(t, 1, summaryCalls)
	require.Equal(t, 1, eventsCalls)

	// Second access retries and now sees the finished record.
	require.Equal(t, int64(9999), handle.DurationMicros())
	summaryCalls, eventsCalls = executor.calls()
	require.Equal(t, 2, summaryCalls)
	require.Equal(t, 2, eventsCalls)
}

func TestCompleteStateIsIdempotent(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(77))}}},
		events:  []fakeResult{{rows: eventRows()}},
	}
	handle, _ := newTestHandle(t, executor)

	firstEvents := handle.Events()
	for i := 0; i < 10; i++ {
		handle.RequestType()
		handle.DurationMicros()
		handle.Parameters()
		handle.StartedAt()
	}
	secondEvents := handle.Events()

	summaryCalls, eventsCalls := executor.calls()
	require.Equal(t, 1, summaryCalls)
	require.Equal(t, 1, eventsCalls)
	require.Equal(t, fmt.Sprintf("%p", firstEvents), fmt.Sprintf("%p", secondEvents))
}

func TestFailureIsolation(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{err: errors.New("connection refused")}},
		events:  []fakeResult{{err: errors.New("connection refused")}},
	}
	handle, reporter := newTestHandle(t, executor)

	for i := 0; i < 3; i++ {
		require.Equal(t, "", handle.RequestType())
		require.Equal(t, DurationUnset, handle.DurationMicros())
		require.Nil(t, handle.Coordinator())
		require.Nil(t, handle.Parameters())
		require.True(t, handle.StartedAt().IsZero())
		require.Nil(t, handle.Events())
	}
	require.True(t, reporter.count() > 0)
	for _, err := range reporter.errs {
		fetchErr, isFetchErr := err.(*FetchError)
		require.True(t, isFetchErr)
		require.Equal(t, handle.TraceID(), fetchErr.TraceID)
	}
}

func TestEventsFailureLeavesRecordIncomplete(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(4213))}}},
		events: []fakeResult{
			{err: errors.New("read timeout")},
			{rows: eventRows()},
		},
	}
	handle, reporter := newTestHandle(t, executor)

	// The failed events lookup keeps the completeness gate shut even though
	// the summary row carried a duration, but the summary fields it did read
	// are served.
	require.Equal(t, "Execute CQL3 query", handle.RequestType())
	require.Equal(t, 1, reporter.count())
	require.Nil(t, handle.loadSnapshot().events)

	require.Equal(t, int64(4213), handle.DurationMicros())
	require.Len(t, handle.Events(), 3)
	summaryCalls, _ := executor.calls()
	require.Equal(t, 2, summaryCalls)
}

func TestEventOrderingPreserved(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(1))}}},
		events:  []fakeResult{{rows: eventRows()}},
	}
	handle, _ := newTestHandle(t, executor)

	events := handle.Events()
	require.Equal(t, []string{"Parsing query", "Preparing statement", "Read 3 live cells"},
		[]string{events[0].Description, events[1].Description, events[2].Description})
}

func TestMissingSummaryRowIsNotAnError(t *testing.T) {
	executor := &fakeExecutor{}
	handle, reporter := newTestHandle(t, executor)

	require.Equal(t, DurationUnset, handle.DurationMicros())
	require.Equal(t, 0, reporter.count())
	// The trace is simply not written yet; a later access tries again.
	require.Equal(t, "", handle.RequestType())
	summaryCalls, _ := executor.calls()
	require.Equal(t, 2, summaryCalls)
}

func TestFetchedButEmptyEventsIsNotNil(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(5))}}},
	}
	handle, _ := newTestHandle(t, executor)

	events := handle.Events()
	require.NotNil(t, events)
	require.Len(t, events, 0)
}

func TestStringTriggersFetch(t *testing.T) {
	executor := &fakeExecutor{
		summary: []fakeResult{{rows: []fakeRow{summaryRow(int64(4213))}}},
		events:  []fakeResult{{rows: eventRows()}},
	}
	handle, _ := newTestHandle(t, executor)

	rendered := handle.String()
	summaryCalls, _ := executor.calls()
	require.Equal(t, 1, summaryCalls)
	require.Contains(t, rendered, "Execute CQL3 query")
	require.Contains(t, rendered, handle.TraceID().String())
	require.Contains(t, rendered, "4213µs")
}

func TestTraceIDNeverFetches(t *testing.T) {
	executor := &fakeExecutor{}
	handle, _ := newTestHandle(t, executor)

	handle.TraceID()
	summaryCalls, eventsCalls := executor.calls()
	require.Equal(t, 0, summaryCalls)
	require.Equal(t, 0, eventsCalls)
}
