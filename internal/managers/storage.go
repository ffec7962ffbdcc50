// Package managers builds and supervises the configured storage backends
// and controllers.
package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/stellaratm/internal/log"
	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/storage/memory"
	"github.com/chrissnell/stellaratm/internal/storage/sqlite"
	"github.com/chrissnell/stellaratm/internal/storage/timescaledb"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/config"
)

// HealthCheckInterval is how often the storage backends are pinged
const HealthCheckInterval = 60 * time.Second

// StorageEngine is a named model store
type StorageEngine struct {
	Name  string
	Store storage.ModelStore
}

// StorageManager holds our active storage backends. Saves go to every
// backend; reads are served by the first one.
type StorageManager struct {
	Engines []StorageEngine
	Health  *storage.HealthManager
}

// NewStorageManager creates a StorageManager populated with all configured
// backends. With none configured, models are kept in memory.
func NewStorageManager(ctx context.Context, c *config.StorageData) (*StorageManager, error) {
	s := &StorageManager{Health: storage.NewHealthManager()}

	if c != nil && c.SQLite != nil {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
	}

	if c != nil && c.TimescaleDB != nil {
		if err := s.AddEngine(ctx, "timescaledb", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}

	if len(s.Engines) == 0 {
		log.Info("no storage backend configured; keeping models in memory")
		s.Engines = append(s.Engines, StorageEngine{Name: "memory", Store: memory.New()})
	}

	return s, nil
}

// AddEngine adds a new backend of name engineName
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c *config.StorageData) error {
	var store storage.ModelStore
	var err error

	switch engineName {
	case "sqlite":
		log.Infof("opening SQLite model store at %s", c.SQLite.Path)
		store, err = sqlite.New(ctx, c.SQLite.Path)
	case "timescaledb":
		store, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString)
	case "memory":
		store = memory.New()
	default:
		return fmt.Errorf("unknown storage backend %q", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Store: store})
	return nil
}

// PrimaryName returns the name of the backend serving reads
func (s *StorageManager) PrimaryName() string {
	return s.Engines[0].Name
}

// Save implements storage.ModelStore by writing to every backend
func (s *StorageManager) Save(ctx context.Context, m *types.Atmosphere) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Store.Save(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Get implements storage.ModelStore
func (s *StorageManager) Get(ctx context.Context, id string) (*types.Atmosphere, error) {
	return s.Engines[0].Store.Get(ctx, id)
}

// List implements storage.ModelStore
func (s *StorageManager) List(ctx context.Context) ([]types.Atmosphere, error) {
	return s.Engines[0].Store.List(ctx)
}

// Ping implements storage.ModelStore, checking every backend
func (s *StorageManager) Ping(ctx context.Context) error {
	var errs []error
	for _, e := range s.Engines {
		h := s.Health.CheckStore(ctx, e.Name, e.Store)
		if !h.Healthy() {
			errs = append(errs, fmt.Errorf("%s: %s", e.Name, h.Error))
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// StartHealthMonitor pings every backend on interval until ctx is done
func (s *StorageManager) StartHealthMonitor(ctx context.Context, interval time.Duration) {
	go func() {
		if err := s.Ping(ctx); err != nil {
			log.Warnf("storage health check failed: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Ping(ctx); err != nil {
					log.Warnf("storage health check failed: %v", err)
				} else {
					log.Debug("storage health check passed")
				}
			case <-ctx.Done():
				log.Info("stopping storage health monitor")
				return
			}
		}
	}()
}
