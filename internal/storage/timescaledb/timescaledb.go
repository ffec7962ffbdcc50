// Package timescaledb stores model atmospheres in TimescaleDB (or plain
// PostgreSQL) through gorm.
package timescaledb

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/stellaratm/internal/database"
	"github.com/chrissnell/stellaratm/internal/log"
	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/types"
	"gorm.io/gorm"
)

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('atmosphere_runs', 'created', if_not_exists => true, migrate_data => true);`

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, connectionString string) (*Storage, error) {
	conn, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	return NewWithDB(ctx, conn)
}

// NewWithDB prepares the schema on an existing gorm connection
func NewWithDB(ctx context.Context, conn *gorm.DB) (*Storage, error) {
	t := &Storage{TimescaleDBConn: conn}

	log.Info("migrating model tables...")
	if err := conn.WithContext(ctx).AutoMigrate(&database.RunRecord{}, &database.LevelRecord{}); err != nil {
		return nil, fmt.Errorf("could not migrate model tables: %w", err)
	}

	// Plain PostgreSQL works without the extension
	log.Info("creating TimescaleDB extension...")
	if err := conn.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		log.Warn("TimescaleDB extension unavailable, continuing with plain PostgreSQL tables:", err)
		return t, nil
	}

	log.Info("creating hypertable...")
	if err := conn.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		log.Warn("warning: could not create hypertable:", err)
	}

	return t, nil
}

// Save implements storage.ModelStore
func (t *Storage) Save(ctx context.Context, m *types.Atmosphere) error {
	run := database.RunFromModel(m)
	levels := database.LevelsFromModel(m)

	err := t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&run).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", m.ID).Delete(&database.LevelRecord{}).Error; err != nil {
			return err
		}
		if len(levels) == 0 {
			return nil
		}
		return tx.CreateInBatches(levels, 256).Error
	})
	if err != nil {
		log.Error("could not store model:", err)
		return fmt.Errorf("failed to store run %s: %w", m.ID, err)
	}
	return nil
}

// Get implements storage.ModelStore
func (t *Storage) Get(ctx context.Context, id string) (*types.Atmosphere, error) {
	db := t.TimescaleDBConn.WithContext(ctx)

	var run database.RunRecord
	if err := db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("error querying run %s: %w", id, err)
	}

	var levels []database.LevelRecord
	if err := db.Where("run_id = ?", id).Order("idx").Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("error querying levels of run %s: %w", id, err)
	}

	m := run.Model(levels)
	return &m, nil
}

// List implements storage.ModelStore
func (t *Storage) List(ctx context.Context) ([]types.Atmosphere, error) {
	var runs []database.RunRecord
	if err := t.TimescaleDBConn.WithContext(ctx).Order("created DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}

	out := make([]types.Atmosphere, len(runs))
	for i, r := range runs {
		out[i] = r.Model(nil)
	}
	return out, nil
}

// Ping implements storage.ModelStore
func (t *Storage) Ping(ctx context.Context) error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
