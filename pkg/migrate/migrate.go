// Package migrate applies versioned SQL schema migrations to a database/sql
// connection, tracking the applied version in a bookkeeping table.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Migration is a single schema change
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB is either a database connection or a transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Provider loads migrations and records which version is applied
type Provider interface {
	Migrations() ([]Migration, error)
	CreateVersionTable(ctx context.Context, db DB) error
	CurrentVersion(ctx context.Context, db DB) (int, error)
	SetVersion(ctx context.Context, db DB, version int) error
}

// Migrator runs migrations against a database
type Migrator struct {
	db       *sql.DB
	provider Provider
	logger   *zap.SugaredLogger
}

// NewMigrator creates a migrator. A nil logger discards progress messages.
func NewMigrator(db *sql.DB, provider Provider, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	return m.To(ctx, -1)
}

// To migrates up or down to targetVersion. -1 selects the latest version.
func (m *Migrator) To(ctx context.Context, targetVersion int) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}

	if targetVersion == -1 {
		targetVersion = 0
		if len(migrations) > 0 {
			targetVersion = migrations[len(migrations)-1].Version
		}
	}

	if targetVersion < current {
		return m.Down(ctx, targetVersion)
	}

	for _, mig := range migrations {
		if mig.Version > current && mig.Version <= targetVersion {
			if err := m.execute(ctx, mig, true); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
			}
		}
	}
	return nil
}

// Down reverts migrations until targetVersion is current
func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return fmt.Errorf("target version %d must be less than current version %d", targetVersion, current)
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if mig.Version > targetVersion && mig.Version <= current {
			if err := m.execute(ctx, mig, false); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", mig.Version, err)
			}
		}
	}
	return nil
}

// CurrentVersion returns the highest applied version, 0 for a fresh database
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.provider.CreateVersionTable(ctx, m.db); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}
	v, err := m.provider.CurrentVersion(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return v, nil
}

// Pending returns migrations not yet applied, oldest first
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := m.sorted()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range migrations {
		if mig.Version > current {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

func (m *Migrator) sorted() ([]Migration, error) {
	migrations, err := m.provider.Migrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// execute runs one migration and its version bump in a single transaction
func (m *Migrator) execute(ctx context.Context, mig Migration, up bool) error {
	stmt, direction, newVersion := mig.Up, "up", mig.Version
	if !up {
		stmt, direction, newVersion = mig.Down, "down", mig.Version-1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", mig.Version, direction)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.provider.SetVersion(ctx, tx, newVersion); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Infof("applied migration %d (%s) %s", mig.Version, mig.Name, direction)
	return nil
}
