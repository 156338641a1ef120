// Package database 基于gorm的持久化层实现
package database

import (
	"context"
	"errors"
	"time"

	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
	"github.com/half-nothing/strip-sync/internal/interfaces/global"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/operation"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DBCloseCallback struct {
	logger log.LoggerInterface
	db     *gorm.DB
}

func NewDBCloseCallback(loggerInterface log.LoggerInterface, db *gorm.DB) *DBCloseCallback {
	return &DBCloseCallback{logger: loggerInterface, db: db}
}

func (callback *DBCloseCallback) Invoke(_ context.Context) error {
	callback.logger.Info("Closing database connection")
	db, err := callback.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func ConnectDatabase(
	loggerInterface log.LoggerInterface,
	config *c.Config,
	debugMode bool,
) (global.Callable, *DatabaseOperations, error) {
	connection := config.Database.GetConnection(loggerInterface)
	if connection == nil {
		return nil, nil, errors.New("unsupported database type")
	}

	connectionConfig := gorm.Config{}
	connectionConfig.DefaultTransactionTimeout = 5 * time.Second
	connectionConfig.PrepareStmt = true

	if debugMode {
		connectionConfig.Logger = logger.Default.LogMode(logger.Error)
	} else {
		connectionConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(connection, &connectionConfig)
	if err != nil {
		return nil, nil, err
	}

	if err = db.Migrator().AutoMigrate(&Flight{}, &Session{}); err != nil {
		return nil, nil, err
	}

	dbPool, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	maxOpenConnections := config.Database.ServerMaxConnections * 4 / 5 // 不超过数据库最大连接的80%
	maxIdleConnections := maxOpenConnections / 5                       // 空闲连接约为最大连接的20%

	dbPool.SetMaxIdleConns(maxIdleConnections)
	dbPool.SetMaxOpenConns(maxOpenConnections)
	dbPool.SetConnMaxLifetime(config.Database.ConnectIdleDuration)

	if err = dbPool.Ping(); err != nil {
		return nil, nil, err
	}
	loggerInterface.Info("Database initialized and connection established")

	queryTimeout := config.Database.QueryDuration
	operations := NewDatabaseOperations(
		NewFlightOperation(db, queryTimeout),
		NewSessionOperation(db, queryTimeout),
	)
	return NewDBCloseCallback(loggerInterface, db), operations, nil
}
