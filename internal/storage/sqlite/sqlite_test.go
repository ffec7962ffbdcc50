package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleModel(teff float64, created time.Time) *types.Atmosphere {
	m := types.NewAtmosphere(atmos.Stellar{Teff: teff, LogG: 4.44, ZScale: 1}, created)
	m.Iterations = 4
	m.Converged = true
	m.MaxRelDT = 2.5e-4
	m.Boundary = 40
	m.Levels = []types.Level{
		{Index: 0, Tau: 1e-6, Depth: 1e-19, Temp: 4500, Pgas: 120, Rho: 1e-9, Kappa: 0.01, Mu: 1.3},
		{Index: 1, Tau: 1e-5, Depth: 3.2e5, Temp: 4550, Pgas: 900, Rho: 4e-9, Kappa: 0.02, Mu: 1.3},
	}
	return m
}

func TestSaveGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := sampleModel(5777, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Teff, got.Teff)
	assert.Equal(t, m.Regime, got.Regime)
	assert.True(t, m.Created.Equal(got.Created))
	assert.Equal(t, m.CreatedJD, got.CreatedJD)
	assert.Equal(t, m.Converged, got.Converged)
	assert.Equal(t, m.Boundary, got.Boundary)
	assert.Equal(t, m.Levels, got.Levels)
}

func TestSaveReplacesLevels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := sampleModel(5777, time.Now())
	require.NoError(t, s.Save(ctx, m))

	m.Levels = m.Levels[:1]
	m.Iterations = 9
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, got.Levels, 1)
	assert.Equal(t, 9, got.Iterations)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleModel(5000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleModel(9000, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	runs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Empty(t, runs[0].Levels)
	assert.NoError(t, s.Ping(ctx))
}

func TestHealthManagerCheckStore(t *testing.T) {
	s := newTestStore(t)
	hm := storage.NewHealthManager()

	h := hm.CheckStore(context.Background(), "sqlite", s)
	assert.True(t, h.Healthy())

	got, ok := hm.GetHealth("sqlite")
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.Len(t, hm.GetAllHealth(), 1)
}

func TestSchemaMigrated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "models.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleModel(5777, time.Now())))
	require.NoError(t, s.Close())

	// Reopening an existing database applies nothing and keeps the data
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	m := migrate.NewMigrator(s.db, migrate.NewFSProvider(migrations, "migrations", ""), nil)
	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	runs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
