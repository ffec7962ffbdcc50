// Package database holds the gorm connection helpers and row models shared
// by the SQL-backed model stores.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/stellaratm/internal/log"
	"go.uber.org/zap"
)

// NewGormLogger returns a gorm logger that writes through the zap logger
func NewGormLogger() logger.Interface {
	return logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Not-found is reported to callers as storage.ErrNotFound
			Colorful:                  false,
		},
	)
}

// CreateConnection is a helper function to create a PostgreSQL connection
// with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: NewGormLogger()})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}
	log.Info("TimescaleDB connection successful")

	return db, nil
}
