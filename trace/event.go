package trace

import (
	"net"
	"time"
)

// Event is one activity row recorded against a trace, in the order the
// store returned it. Events are values; they are built once from a fetched
// row and never modified.
type Event struct {
	Description         string
	Timestamp           time.Time
	Source              net.IP
	SourceElapsedMicros int64
	ThreadName          string
}

// Event ids are time-ordered: the identifier carries the event wall-clock
// as nanoseconds since the epoch, with ordering bits below resolution.
func eventTime(eventID uint64) time.Time {
	return time.Unix(0, int64(eventID))
}
