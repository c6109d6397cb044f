package bookkeeper

import (
	"github.com/dgraph-io/badger"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
	"log"
	"os"
	"time"
)

type badgerBK struct {
	db     *badger.DB
	ticker *time.Ticker
}

func (b *badgerBK) init() error {
	opts := badger.DefaultOptions
	path := ".orion/reader-bookkeeper"
	_ = os.MkdirAll(path, 0777)
	opts.Dir = path
	opts.ValueDir = path
	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		log.Fatal(err)
	}
	b.ticker = time.NewTicker(5 * time.Minute)
	go b.gcCleanup()
	return err
}

func (b *badgerBK) gcCleanup() {
	for range b.ticker.C {
		_ = b.db.RunValueLogGC(0.5)
	}
}

func (b *badgerBK) Discard() error {
	return b.db.RunValueLogGC(0.5)
}

func (b *badgerBK) Close() error {
	b.ticker.Stop()
	return b.db.Close()
}

func (b *badgerBK) TraceSeenBefore(traceID []byte) bool {
	logger := util.GetLogger("bookkeeper", "badgerBK::TraceSeenBefore")
	seen := false
	err := b.db.View(func(txn *badger.Txn) error {
		key := append([]byte("t-"), traceID...)
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err == nil {
			seen = true
		}
		return err
	})
	if err != nil {
		logger.Warn("Error when trying to read from badger db", zap.Error(err))
	}
	return seen
}

func (b *badgerBK) TraceComplete(traceID []byte) bool {
	logger := util.GetLogger("bookkeeper", "badgerBK::TraceComplete")
	complete := false
	err := b.db.View(func(txn *badger.Txn) error {
		key := append([]byte("t-"), traceID...)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.Value()
		if err != nil {
			return err
		}
		complete = len(data) > 0 && data[0] == flagComplete
		return nil
	})
	if err != nil {
		logger.Warn("Error when trying to read from badger db", zap.Error(err))
	}
	return complete
}

func (b *badgerBK) SawTrace(traceID []byte) {
	logger := util.GetLogger("bookkeeper", "badgerBK::SawTrace")
	err := b.db.Update(func(txn *badger.Txn) error {
		key := append([]byte("t-"), traceID...)
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return txn.Set(key, []byte{flagSeen})
		}
		return err
	})
	if err != nil {
		logger.Warn("Error when trying to write to badger db", zap.Error(err))
	}
}

func (b *badgerBK) MarkTraceComplete(traceID []byte) {
	logger := util.GetLogger("bookkeeper", "badgerBK::MarkTraceComplete")
	err := b.db.Update(func(txn *badger.Txn) error {
		key := append([]byte("t-"), traceID...)
		return txn.Set(key, []byte{flagComplete})
	})
	if err != nil {
		logger.Warn("Error when trying to write to badger db", zap.Error(err))
	}
}
