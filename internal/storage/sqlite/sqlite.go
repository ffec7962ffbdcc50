// Package sqlite stores model atmospheres in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const runColumns = `id, teff, logg, zscale, regime, created, created_jd, iterations, converged, max_rel_dt, boundary`

// Store implements storage.ModelStore on SQLite
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens (creating if needed) the SQLite database at dbPath
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	m := migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "migrations", ""), nil)
	if err := m.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Save implements storage.ModelStore
func (s *Store) Save(ctx context.Context, m *types.Atmosphere) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Teff, m.LogG, m.ZScale, m.Regime, m.Created.UTC().Format(time.RFC3339Nano),
		m.CreatedJD, m.Iterations, m.Converged, m.MaxRelDT, m.Boundary)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM levels WHERE run_id = ?`, m.ID); err != nil {
		return fmt.Errorf("failed to clear levels of run %s: %w", m.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO levels (run_id, idx, tau, depth, temp, pgas, rho, kappa, mu) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare level insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range m.Levels {
		if _, err := stmt.ExecContext(ctx, m.ID, l.Index, l.Tau, l.Depth, l.Temp, l.Pgas, l.Rho, l.Kappa, l.Mu); err != nil {
			return fmt.Errorf("failed to insert level %d of run %s: %w", l.Index, m.ID, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (types.Atmosphere, error) {
	var m types.Atmosphere
	var created string
	err := row.Scan(&m.ID, &m.Teff, &m.LogG, &m.ZScale, &m.Regime, &created,
		&m.CreatedJD, &m.Iterations, &m.Converged, &m.MaxRelDT, &m.Boundary)
	if err != nil {
		return types.Atmosphere{}, err
	}
	m.Created, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return types.Atmosphere{}, fmt.Errorf("bad created time %q: %w", created, err)
	}
	return m, nil
}

// Get implements storage.ModelStore
func (s *Store) Get(ctx context.Context, id string) (*types.Atmosphere, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	m, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, tau, depth, temp, pgas, rho, kappa, mu FROM levels WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l types.Level
		if err := rows.Scan(&l.Index, &l.Tau, &l.Depth, &l.Temp, &l.Pgas, &l.Rho, &l.Kappa, &l.Mu); err != nil {
			return nil, fmt.Errorf("failed to scan level row: %w", err)
		}
		m.Levels = append(m.Levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &m, nil
}

// List implements storage.ModelStore
func (s *Store) List(ctx context.Context) ([]types.Atmosphere, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_jd DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []types.Atmosphere{}
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// Ping implements storage.ModelStore
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
