package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// RunRequest is the body of POST /runs
type RunRequest struct {
	Teff   float64 `json:"teff"`
	LogG   float64 `json:"logg"`
	ZScale float64 `json:"zscale"`
}

// Stellar converts the request to stellar parameters. A zero zscale means
// solar metallicity.
func (r RunRequest) Stellar() atmos.Stellar {
	z := r.ZScale
	if z == 0 {
		z = 1.0
	}
	return atmos.Stellar{Teff: r.Teff, LogG: r.LogG, ZScale: z}
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status  string                        `json:"status"`
	Storage map[string]storage.HealthData `json:"storage"`
}

// GetHealth reports the health of the model store
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	c := h.controller
	hd := c.health.CheckStore(req.Context(), c.storeName, c.store)

	resp := HealthResponse{
		Status:  "ok",
		Storage: c.health.GetAllHealth(),
	}
	status := http.StatusOK
	if !hd.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	h.write(w, req, status, resp)
}

// ListRuns returns the stored run summaries
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.store.List(req.Context())
	if err != nil {
		h.controller.logger.Errorf("error listing runs: %v", err)
		h.writeError(w, req, http.StatusInternalServerError, err)
		return
	}
	h.write(w, req, http.StatusOK, runs)
}

// GetRun returns one stored model with its level table
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	m, err := h.controller.store.Get(req.Context(), id)
	if err != nil {
		h.writeStoreError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, m)
}

// GetRunLevels returns the level table of a stored model. The optional
// query parameters from and to restrict it to an index range.
func (h *Handlers) GetRunLevels(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	m, err := h.controller.store.Get(req.Context(), id)
	if err != nil {
		h.writeStoreError(w, req, err)
		return
	}

	from, to := 0, len(m.Levels)
	q := req.URL.Query()
	if v := q.Get("from"); v != "" {
		if from, err = strconv.Atoi(v); err != nil || from < 0 {
			h.writeError(w, req, http.StatusBadRequest, fmt.Errorf("invalid from %q", v))
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = strconv.Atoi(v); err != nil || to < 0 {
			h.writeError(w, req, http.StatusBadRequest, fmt.Errorf("invalid to %q", v))
			return
		}
	}
	to = min(to, len(m.Levels))
	from = min(from, to)

	h.write(w, req, http.StatusOK, m.Levels[from:to])
}

// CreateRun solves a model for the posted stellar parameters, stores it and
// returns it
func (h *Handlers) CreateRun(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	var rr RunRequest
	if err := h.formatter.ReadRequest(req, &rr, maxRequestBody); err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	star := rr.Stellar()
	if err := star.Validate(); err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	if !c.solveSlots.TryAcquire(1) {
		h.writeError(w, req, http.StatusServiceUnavailable, errors.New("solver busy, retry later"))
		return
	}
	defer c.solveSlots.Release(1)

	ctx, cancel := context.WithTimeout(req.Context(), c.solveTimeout)
	defer cancel()

	m, err := c.solve(ctx, star)
	if err != nil {
		c.logger.Errorf("error solving teff=%g logg=%g: %v", star.Teff, star.LogG, err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.writeError(w, req, status, err)
		return
	}

	if err := c.store.Save(ctx, m); err != nil {
		c.logger.Errorf("error storing run %s: %v", m.ID, err)
		h.writeError(w, req, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Location", "/runs/"+m.ID)
	h.write(w, req, http.StatusCreated, m)
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, req, http.StatusNotFound, err)
		return
	}
	h.controller.logger.Errorf("error reading model store: %v", err)
	h.writeError(w, req, http.StatusInternalServerError, err)
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error encoding response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, err error) {
	if werr := h.formatter.WriteError(w, req, status, err); werr != nil {
		h.controller.logger.Errorf("error encoding error response: %v", werr)
	}
}
