// Package restserver exposes solved model atmospheres over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/stellaratm/internal/log"
	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// SolveFunc solves a model atmosphere for the given stellar parameters
type SolveFunc func(ctx context.Context, star atmos.Stellar) (*types.Atmosphere, error)

// Defaults for solve requests
const (
	DefaultMaxConcurrentSolves = 2
	DefaultSolveTimeout        = 5 * time.Minute
	maxRequestBody             = 1 << 16
)

// Controller represents the REST server controller
type Controller struct {
	ctx          context.Context
	wg           *sync.WaitGroup
	restConfig   config.RESTServerData
	Server       http.Server
	store        storage.ModelStore
	storeName    string
	health       *storage.HealthManager
	solve        SolveFunc
	solveSlots   *semaphore.Weighted
	solveTimeout time.Duration
	logger       *zap.SugaredLogger
	handlers     *Handlers
}

// Options carries the collaborators of the controller
type Options struct {
	Store        storage.ModelStore
	StoreName    string
	Health       *storage.HealthManager
	Solve        SolveFunc
	MaxSolves    int64
	SolveTimeout time.Duration
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, opts Options, logger *zap.SugaredLogger) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("REST server requires a model store")
	}
	if opts.Solve == nil {
		return nil, fmt.Errorf("REST server requires a solver")
	}
	if opts.Health == nil {
		opts.Health = storage.NewHealthManager()
	}
	if opts.StoreName == "" {
		opts.StoreName = "store"
	}
	if opts.MaxSolves <= 0 {
		opts.MaxSolves = DefaultMaxConcurrentSolves
	}
	if opts.SolveTimeout <= 0 {
		opts.SolveTimeout = DefaultSolveTimeout
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.HTTPPort == 0 {
		logger.Infof("rest.http_port not provided; defaulting to %d", config.DefaultHTTPPort)
		rc.HTTPPort = config.DefaultHTTPPort
	}

	ctrl := &Controller{
		ctx:          ctx,
		wg:           wg,
		restConfig:   rc,
		store:        opts.Store,
		storeName:    opts.StoreName,
		health:       opts.Health,
		solve:        opts.Solve,
		solveSlots:   semaphore.NewWeighted(opts.MaxSolves),
		solveTimeout: opts.SolveTimeout,
		logger:       logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.HTTPPort)
	// Panics in handlers become 500 responses logged through zap
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(log.GetZapLogger())),
		handlers.PrintRecoveryStack(true),
	)
	ctrl.Server.Handler = recovery(ctrl.setupRouter())

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the HTTP handler serving the API
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/runs", c.handlers.ListRuns).Methods(http.MethodGet)
	router.HandleFunc("/runs", c.handlers.CreateRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/levels", c.handlers.GetRunLevels).Methods(http.MethodGet)

	return router
}
