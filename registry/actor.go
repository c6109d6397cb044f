package registry

import (
	"encoding/hex"
	"strings"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/thapovan-inc/orion-trace-reader/consumer"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"github.com/thapovan-inc/orionproto"
	"go.uber.org/zap"
)

// CompletionWatcher consumes the aggregator's span stream and marks a trace
// complete in the book keeper when its root span ends. Cached handles that
// are still incomplete get pre-warmed so the snapshot is ready before the
// next caller asks for it.
type CompletionWatcher interface {
	PrepareActor() *actor.PID
}

type watcherActor struct {
	pid          *actor.PID
	registry     *Registry
	prewarmAsync bool
}

func NewCompletionWatcher() CompletionWatcher {
	prewarmAsync := util.GetConfig().General.PrewarmAsync
	return &watcherActor{registry: GetRegistry(), prewarmAsync: prewarmAsync}
}

func (wa *watcherActor) PrepareActor() *actor.PID {
	props := actor.FromProducer(func() actor.Actor {
		return wa
	})
	wa.pid = actor.Spawn(props)
	return wa.pid
}

func (wa *watcherActor) Receive(c actor.Context) {
	logger := util.GetLogger("registry", "watcherActor::Receive")
	switch msg := c.Message().(type) {
	case *consumer.Message:
		wa.processMessage(msg)
	case string:
		if msg == "sig_stop" {
			c.Self().Poison()
		}
	case *actor.Started:
		logger.Info("Actor started")
	case *actor.Restarting:
		logger.Info("Actor restarting")
	case *actor.Stopping:
		logger.Info("Stopping, actor is about shut down")
	case *actor.Stopped:
		logger.Info("Stopped, actor and its children are stopped")
	}
}

func (wa *watcherActor) processMessage(msg *consumer.Message) {
	logger := util.GetLogger("registry", "watcherActor::processMessage")
	traceID, ok := parseTraceID(string(msg.Key))
	if !ok {
		logger.Warn("Unable to parse traceID from message key", zap.ByteString("key", msg.Key))
		return
	}
	spanData := &orionproto.Span{}
	err := proto.Unmarshal(msg.Value, spanData)
	if err != nil {
		logger.Warn("Unable to unmarshal span data", zap.Error(err))
		return
	}
	if !isRootSpanEnd(spanData) {
		return
	}
	wa.registry.bk.MarkTraceComplete(traceID[:])
	logger.Debug("Trace marked complete", zap.String("traceID", traceID.String()))
	if handle, cached := wa.registry.lookup(traceID); cached {
		warmFunc := func() {
			handle.DurationMicros()
		}
		if wa.prewarmAsync {
			go warmFunc()
		} else {
			warmFunc()
		}
	}
}

// Stream keys look like namespace_traceID_spanID_eventID, with the trace and
// span ids as hyphenated hex.
func parseTraceID(key string) (uuid.UUID, bool) {
	keyParts := strings.Split(key, "_")
	if len(keyParts) < 4 {
		return uuid.UUID{}, false
	}
	raw, err := hex.DecodeString(strings.Replace(keyParts[1], "-", "", -1))
	if err != nil {
		return uuid.UUID{}, false
	}
	traceID, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return traceID, true
}

// The trace is fully written once its root span reports END_SPAN.
func isRootSpanEnd(spanData *orionproto.Span) bool {
	if spanData.GetParentSpanId() != "" {
		return false
	}
	_, isEnd := spanData.Event.(*orionproto.Span_EndEvent)
	return isEnd
}
