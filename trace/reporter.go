package trace

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
)

// Reporter receives fetch failures. Accessors never surface errors
// themselves; a failed attempt is visible to callers only as fields that
// stay unset until a later access retries.
type Reporter interface {
	Report(err error)
}

// FetchError wraps a failed lookup with the trace it was issued for and the
// stage ("summary" or "events") that failed.
type FetchError struct {
	TraceID uuid.UUID
	Stage   string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch %s for trace %s: %v", e.Stage, e.TraceID, e.Err)
}

type logReporter struct{}

func (logReporter) Report(err error) {
	logger := util.GetLogger("trace", "logReporter::Report")
	logger.Error("Trace fetch attempt failed", zap.Error(err))
}
