package storage

import (
	"fmt"
	"github.com/juju/errors"
	"github.com/thapovan-inc/orion-trace-reader/storage/common"
	storage "github.com/thapovan-inc/orion-trace-reader/storage/mysql"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
)

const (
	MYSQL = "mysql"
)

// QueryExecutor is the capability handed to trace handles. Execute runs one
// read-only lookup and returns a cursor over its rows. Implementations must
// be safe for concurrent use; handles share a single executor.
type QueryExecutor interface {
	Initialize() error
	Execute(query common.Query) (common.RowCursor, error)
	Close() error
}

var queryExecutor QueryExecutor

func InitQueryExecutorFromConfig() error {
	logger := util.GetLogger("storage", "InitQueryExecutorFromConfig")
	config := util.GetConfig().Storage
	var err error
	if queryExecutor != nil {
		return nil
	}
	switch config.Type {
	case MYSQL:
		mysqlExecutor := &storage.MySqlExecutor{MySqlConfig: config.MySQL}
		err = mysqlExecutor.Initialize()
		if err != nil {
			logger.Error("unable to initialize mysql executor", zap.Error(err))
		} else {
			queryExecutor = mysqlExecutor
		}
	default:
		err = errors.New(fmt.Sprint("unable to find any known storage backend. configured type = ", config.Type))
	}
	return err
}

func GetQueryExecutor() QueryExecutor {
	if queryExecutor == nil {
		logger := util.GetLogger("storage", "GetQueryExecutor")
		logger.Warn("Did you forget to call storage::InitQueryExecutorFromConfig() ?")
		return nil
	} else {
		return queryExecutor
	}
}
