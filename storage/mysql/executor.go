package storage

import (
	"database/sql"
	"github.com/go-sql-driver/mysql"
	jerrors "github.com/juju/errors"
	"github.com/thapovan-inc/orion-trace-reader/storage/common"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
	"sync"
)

// MySqlExecutor serves read-only trace lookups against the tables written by
// the aggregator. Statements are prepared once and reused across handles.
type MySqlExecutor struct {
	MySqlConfig       mysql.Config
	db                *sql.DB
	mu                sync.Mutex
	preparedStatement map[string]*sql.Stmt
}

func (p *MySqlExecutor) Initialize() error {
	p.preparedStatement = make(map[string]*sql.Stmt)
	return p.connect()
}

func (p *MySqlExecutor) Execute(query common.Query) (common.RowCursor, error) {
	logger := util.GetLogger("storage/mysql", "MySqlExecutor::Execute")
	stmt, err := p.prepareStatement(query.Statement)
	if err != nil {
		logger.Error("Unable to prepare statement", zap.Error(err))
		return nil, jerrors.Wrap(err, jerrors.New("unable to prepare lookup statement"))
	}
	rows, err := stmt.Query(query.Args...)
	if err != nil {
		logger.Error("Error when attempting to execute prepared statement", zap.Error(err))
		return nil, jerrors.Wrap(err, jerrors.New("unable to execute lookup"))
	}
	return newRowCursor(rows)
}

func (p *MySqlExecutor) prepareStatement(statement string) (*sql.Stmt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	stmt, exists := p.preparedStatement[statement]
	if !exists {
		stmt, err = p.db.Prepare(statement)
		if err == nil {
			p.preparedStatement[statement] = stmt
		}
	}
	return stmt, err
}

func (p *MySqlExecutor) Close() error {
	logger := util.GetLogger("storage/mysql", "MySqlExecutor::Close")
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, stmt := range p.preparedStatement {
		err := stmt.Close()
		if err != nil {
			logger.Error("Error when closing prepared statement", zap.Error(err))
			return err
		}
	}
	logger.Info("Closed all prepared statements")
	err := p.db.Close()
	if err != nil {
		logger.Error("Error when closing database", zap.Error(err))
		return err
	}
	logger.Info("Closed database")
	return nil
}
