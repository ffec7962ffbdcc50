package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/stellaratm/internal/storage/checkpoint"
	"github.com/chrissnell/stellaratm/internal/storage/sqlite"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir, body string) config.ConfigProvider {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return config.NewYAMLProvider(path)
}

func TestParams(t *testing.T) {
	cfg, err := config.ParseYAML([]byte("grid: {depths: 32}\niteration: {max_iterations: 4}"))
	require.NoError(t, err)

	star := atmos.Stellar{Teff: 5000, LogG: 4.5, ZScale: 1}
	p := Params(cfg, star)
	assert.Equal(t, star, p.Star)
	assert.Equal(t, 32, p.NumDeps)
	assert.Equal(t, 4, p.MaxIterations)
	assert.NoError(t, p.Validate())
}

func TestRunBatchStoresModelAndCheckpoint(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "models.db")
	ckpt := filepath.Join(dir, "run.ckpt")

	provider := writeConfig(t, dir, `
grid:
  depths: 32
iteration:
  max_iterations: 2
  checkpoint_path: `+ckpt+`
  resume: true
storage:
  sqlite:
    path: `+dbPath+`
`)

	a := New(provider, zap.NewNop().Sugar())
	require.NoError(t, a.Run(context.Background()))

	snap, err := checkpoint.Load(ckpt)
	require.NoError(t, err)
	assert.Len(t, snap.Tau, 32)
	assert.GreaterOrEqual(t, snap.Iteration, 1)

	store, err := sqlite.New(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// A second run resumes from the checkpoint
	require.NoError(t, New(provider, zap.NewNop().Sugar()).Run(context.Background()))
	runs, err = store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunRejectsIncompatibleCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "run.ckpt")

	first := writeConfig(t, dir, "grid: {depths: 16}\niteration: {max_iterations: 1, checkpoint_path: "+ckpt+"}")
	require.NoError(t, New(first, zap.NewNop().Sugar()).Run(context.Background()))

	second := writeConfig(t, dir, "grid: {depths: 24}\niteration: {max_iterations: 1, checkpoint_path: "+ckpt+", resume: true}")
	err := New(second, zap.NewNop().Sugar()).Run(context.Background())
	assert.ErrorIs(t, err, checkpoint.ErrIncompatible)
}

func TestRunRejectsCheckpointOnOtherTauBounds(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "run.ckpt")

	first := writeConfig(t, dir, "grid: {depths: 16}\niteration: {max_iterations: 1, checkpoint_path: "+ckpt+"}")
	require.NoError(t, New(first, zap.NewNop().Sugar()).Run(context.Background()))

	// Same level count, shallower top of the grid
	second := writeConfig(t, dir, "grid: {depths: 16, log10_tau_min: -5}\niteration: {max_iterations: 1, checkpoint_path: "+ckpt+", resume: true}")
	err := New(second, zap.NewNop().Sugar()).Run(context.Background())
	assert.ErrorIs(t, err, checkpoint.ErrIncompatible)
}

// sectionProvider serves a parsed config but fails section lookups on demand
type sectionProvider struct {
	cfg            *config.ConfigData
	storageErr     error
	controllersErr error
}

func (p *sectionProvider) LoadConfig() (*config.ConfigData, error) { return p.cfg, nil }

func (p *sectionProvider) GetStorageConfig() (*config.StorageData, error) {
	return &p.cfg.Storage, p.storageErr
}

func (p *sectionProvider) GetControllers() ([]config.ControllerData, error) {
	return p.cfg.Controllers, p.controllersErr
}

func (p *sectionProvider) Close() error { return nil }

func TestRunReadsConfigSections(t *testing.T) {
	cfg, err := config.ParseYAML([]byte("grid: {depths: 16}\niteration: {max_iterations: 1}"))
	require.NoError(t, err)

	broken := errors.New("section unavailable")

	err = New(&sectionProvider{cfg: cfg, storageErr: broken}, zap.NewNop().Sugar()).Run(context.Background())
	assert.ErrorIs(t, err, broken)

	err = New(&sectionProvider{cfg: cfg, controllersErr: broken}, zap.NewNop().Sugar()).Run(context.Background())
	assert.ErrorIs(t, err, broken)

	// With no storage and no controllers the model is solved into memory
	// and Run returns
	assert.NoError(t, New(&sectionProvider{cfg: cfg}, zap.NewNop().Sugar()).Run(context.Background()))
}
