package bookkeeper

import (
	"github.com/allegro/bigcache"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
	"time"
)

type bigCacheBK struct {
	cache *bigcache.BigCache
}

const (
	flagSeen     = 0x00
	flagComplete = 0x01
)

func (bc *bigCacheBK) TraceSeenBefore(traceID []byte) bool {
	logger := util.GetLogger("bookkeeper", "bigCacheBK::TraceSeenBefore")
	result, err := bc.wasSeenBefore(append([]byte("t-"), traceID...))
	if err != nil {
		logger.Warn("Error when trying to read from cache", zap.Error(err))
	}
	return result
}

func (bc *bigCacheBK) TraceComplete(traceID []byte) bool {
	logger := util.GetLogger("bookkeeper", "bigCacheBK::TraceComplete")
	result, err := bc.isComplete(append([]byte("t-"), traceID...))
	if err != nil {
		logger.Warn("Error when trying to read from cache", zap.Error(err))
	}
	return result
}

func (bc *bigCacheBK) SawTrace(traceID []byte) {
	logger := util.GetLogger("bookkeeper", "bigCacheBK::SawTrace")
	err := bc.markKeyAsSeen(append([]byte("t-"), traceID...))
	if err != nil {
		logger.Warn("Error when trying to write to cache", zap.Error(err))
	}
}

func (bc *bigCacheBK) MarkTraceComplete(traceID []byte) {
	logger := util.GetLogger("bookkeeper", "bigCacheBK::MarkTraceComplete")
	err := bc.markComplete(append([]byte("t-"), traceID...))
	if err != nil {
		logger.Warn("Error when trying to write to cache", zap.Error(err))
	}
}

func (bc *bigCacheBK) init() error {
	var err error
	bc.cache, err = bigcache.NewBigCache(bigcache.DefaultConfig(10 * time.Minute))
	return err
}

func (bc *bigCacheBK) Discard() error {
	return bc.cache.Reset()
}

func (bc *bigCacheBK) Close() error {
	return bc.cache.Reset()
}

func (b *bigCacheBK) wasSeenBefore(key []byte) (bool, error) {
	item, _ := b.cache.Get(string(key))
	return item != nil, nil
}

func (b *bigCacheBK) isComplete(key []byte) (bool, error) {
	data, _ := b.cache.Get(string(key))
	if data == nil {
		return false, nil
	}
	return data[0] == flagComplete, nil
}

func (b *bigCacheBK) markKeyAsSeen(key []byte) error {
	data, _ := b.cache.Get(string(key))
	if data == nil {
		return b.cache.Set(string(key), []byte{flagSeen})
	}
	return nil
}

func (b *bigCacheBK) markComplete(key []byte) error {
	return b.cache.Set(string(key), []byte{flagComplete})
}
