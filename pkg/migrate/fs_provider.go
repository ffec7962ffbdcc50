package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

// DefaultVersionTable is the bookkeeping table used when none is given
const DefaultVersionTable = "schema_migrations"

var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider loads migrations named NNN_name.up.sql and NNN_name.down.sql
// from a filesystem, typically an embed.FS, and tracks versions in a SQLite
// table.
type FSProvider struct {
	fsys  fs.FS
	dir   string
	table string
}

// NewFSProvider creates a provider reading dir inside fsys
func NewFSProvider(fsys fs.FS, dir, table string) *FSProvider {
	if table == "" {
		table = DefaultVersionTable
	}
	return &FSProvider{
		fsys:  fsys,
		dir:   dir,
		table: table,
	}
}

// Migrations implements Provider
func (p *FSProvider) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(p.fsys, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", p.dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(p.fsys, p.dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}

		mig := byVersion[version]
		if mig == nil {
			mig = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = mig
		}
		if matches[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		migrations = append(migrations, *mig)
	}
	return migrations, nil
}

// CreateVersionTable implements Provider
func (p *FSProvider) CreateVersionTable(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, p.table))
	return err
}

// CurrentVersion implements Provider
func (p *FSProvider) CurrentVersion(ctx context.Context, db DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", p.table)).Scan(&version)
	return version, err
}

// SetVersion implements Provider. Rolling back removes every record above
// version.
func (p *FSProvider) SetVersion(ctx context.Context, db DB, version int) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version > ?", p.table), version); err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)", p.table), version)
	return err
}
