package bookkeeper

import (
	"github.com/thapovan-inc/orion-trace-reader/util"
)

// BookKeeper remembers which traces the reader has come across and which of
// them are known to be fully written, so the registry can skip storage round
// trips for traces the span stream has already confirmed complete.
type BookKeeper interface {
	TraceSeenBefore(traceID []byte) bool
	TraceComplete(traceID []byte) bool

	SawTrace(traceID []byte)
	MarkTraceComplete(traceID []byte)

	init() error
	Discard() error
	Close() error
}

var bk BookKeeper

func GetBookKeeper() BookKeeper {
	if bk == nil {
		storageType := util.GetConfig().BookKeeper.Type
		if storageType == "" || storageType == "memory" {
			bk = &bigCacheBK{}
		} else {
			bk = &badgerBK{}
		}
		bk.init()
	}
	return bk
}

func Cleanup() {
	if bk != nil {
		bk.Close()
	}
}
