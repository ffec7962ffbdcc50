// Package app wires configuration, storage, the solver and the controllers
// together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/stellaratm/internal/log"
	"github.com/chrissnell/stellaratm/internal/managers"
	"github.com/chrissnell/stellaratm/internal/solver"
	"github.com/chrissnell/stellaratm/internal/storage/checkpoint"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Params builds solver parameters for star from the grid and iteration
// settings of cfg
func Params(cfg *config.ConfigData, star atmos.Stellar) solver.Params {
	return solver.Params{
		Star:          star,
		NumDeps:       cfg.Grid.Depths,
		Log10TauMin:   cfg.Grid.Log10TauMin,
		Log10TauMax:   cfg.Grid.Log10TauMax,
		MaxIterations: cfg.Iteration.MaxIterations,
		Tolerance:     cfg.Iteration.Tolerance,
	}
}

// Run solves the configured model, stores it and, when controllers are
// configured, keeps serving until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	storageConfig, err := a.configProvider.GetStorageConfig()
	if err != nil {
		return fmt.Errorf("error loading storage configuration: %w", err)
	}
	controllers, err := a.configProvider.GetControllers()
	if err != nil {
		return fmt.Errorf("error loading controller configuration: %w", err)
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, storageConfig)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	// Cancel on SIGINT/SIGTERM, including during the initial solve
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			log.Info("shutdown signal received, initiating graceful shutdown...")
			cancel()
		case <-ctx.Done():
		}
	}()

	star := atmos.Stellar{Teff: cfg.Star.Teff, LogG: cfg.Star.LogG, ZScale: cfg.Star.ZScale}
	m, err := a.solveConfigured(ctx, cfg, star)
	if err != nil {
		return err
	}
	if err := storageManager.Save(ctx, m); err != nil {
		return fmt.Errorf("error storing model %s: %w", m.ID, err)
	}
	log.Infow("stored model",
		"id", m.ID,
		"levels", len(m.Levels),
		"iterations", m.Iterations,
		"converged", m.Converged,
	)

	if len(controllers) == 0 {
		return nil
	}

	storageManager.StartHealthMonitor(ctx, managers.HealthCheckInterval)

	// Initialize the controller manager
	solve := func(ctx context.Context, star atmos.Stellar) (*types.Atmosphere, error) {
		s, err := solver.New(Params(cfg, star), nil, a.logger)
		if err != nil {
			return nil, err
		}
		res, err := s.Solve(ctx, nil)
		if err != nil {
			return nil, err
		}
		return res.Model, nil
	}
	cm, err := managers.NewControllerManager(ctx, &wg, controllers, storageManager, solve, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	<-ctx.Done()
	log.Info("context cancelled, shutting down...")

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// solveConfigured runs the configured model, resuming from and writing to
// the checkpoint file when one is set
func (a *App) solveConfigured(ctx context.Context, cfg *config.ConfigData, star atmos.Stellar) (*types.Atmosphere, error) {
	s, err := solver.New(Params(cfg, star), nil, a.logger)
	if err != nil {
		return nil, err
	}

	path := cfg.Iteration.CheckpointPath
	var start *types.Structure
	if path != "" {
		if cfg.Iteration.Resume {
			start, err = loadCheckpoint(path, s.Params())
			if err != nil {
				return nil, err
			}
			if start != nil {
				log.Infof("resuming from checkpoint %s", path)
			}
		}
		s.OnStep(func(stats solver.StepStats, st types.Structure) error {
			if err := checkpoint.Save(path, checkpoint.NewSnapshot(star, stats.Iteration, st)); err != nil {
				return err
			}
			log.Debugf("checkpoint %s written after iteration %d", path, stats.Iteration)
			return nil
		})
	}

	res, err := s.Solve(ctx, start)
	if err != nil {
		return nil, err
	}
	return res.Model, nil
}

// loadCheckpoint returns the saved structure at path, or nil when the file
// does not exist yet
func loadCheckpoint(path string, p solver.Params) (*types.Structure, error) {
	snap, err := checkpoint.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("checkpoint %s not found; starting from the gray model", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := snap.Compatible(p.Star, p.NumDeps, p.Log10TauMin, p.Log10TauMax); err != nil {
		return nil, err
	}
	st, err := snap.Structure()
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return &st, nil
}
