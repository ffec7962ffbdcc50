package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/stellaratm/internal/storage/memory"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/chrissnell/stellaratm/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

func fakeSolve(ctx context.Context, star atmos.Stellar) (*types.Atmosphere, error) {
	m := types.NewAtmosphere(star, time.Now())
	m.Iterations = 1
	m.Converged = true
	m.Levels = []types.Level{
		{Index: 0, Tau: 1e-6, Temp: 0.8 * star.Teff},
		{Index: 1, Tau: 1e-3, Temp: 0.85 * star.Teff},
		{Index: 2, Tau: 1, Temp: star.Teff},
	}
	return m, nil
}

func newTestController(t *testing.T, solve SolveFunc) (*Controller, *memory.Store) {
	t.Helper()
	store := memory.New()
	var wg sync.WaitGroup
	c, err := NewController(context.Background(), &wg, config.RESTServerData{}, Options{
		Store:     store,
		StoreName: "memory",
		Solve:     solve,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c, store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	var wg sync.WaitGroup
	_, err := NewController(context.Background(), &wg, config.RESTServerData{}, Options{Solve: fakeSolve}, zap.NewNop().Sugar())
	assert.Error(t, err)

	_, err = NewController(context.Background(), &wg, config.RESTServerData{}, Options{Store: memory.New()}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestServerAddrDefaults(t *testing.T) {
	c, _ := newTestController(t, fakeSolve)
	assert.Equal(t, "0.0.0.0:8080", c.Server.Addr)
}

func TestCreateGetListRun(t *testing.T) {
	c, _ := newTestController(t, fakeSolve)
	h := c.Handler()

	rec := do(t, h, http.MethodPost, "/runs", `{"teff":5777,"logg":4.44}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created types.Atmosphere
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 5777.0, created.Teff)
	assert.Equal(t, 1.0, created.ZScale)
	assert.Equal(t, "/runs/"+created.ID, rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/runs/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Atmosphere
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Levels, 3)

	rec = do(t, h, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []types.Atmosphere
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Levels)

	rec = do(t, h, http.MethodGet, "/runs/"+created.ID+"/levels?from=1&to=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var levels []types.Level
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &levels))
	require.Len(t, levels, 1)
	assert.Equal(t, 1, levels[0].Index)
}

func TestGetRunMsgPack(t *testing.T) {
	c, store := newTestController(t, fakeSolve)
	m, _ := fakeSolve(context.Background(), atmos.Stellar{Teff: 9000, LogG: 4, ZScale: 1})
	require.NoError(t, store.Save(context.Background(), m))

	rec := do(t, c.Handler(), http.MethodGet, "/runs/"+m.ID+"?format=msgpack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&got))
	assert.Equal(t, m.ID, got["id"])
	assert.Equal(t, "hot", got["regime"])
}

func TestRunErrors(t *testing.T) {
	c, _ := newTestController(t, fakeSolve)
	h := c.Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown run", http.MethodGet, "/runs/nope", "", http.StatusNotFound},
		{"bad json", http.MethodPost, "/runs", `{"teff":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/runs", `{"teff":5000,"logg":4,"mass":1}`, http.StatusBadRequest},
		{"negative teff", http.MethodPost, "/runs", `{"teff":-5000,"logg":4}`, http.StatusBadRequest},
		{"missing logg", http.MethodPost, "/runs", `{"teff":5000}`, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/runs", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateRunSolverFailure(t *testing.T) {
	c, store := newTestController(t, func(context.Context, atmos.Stellar) (*types.Atmosphere, error) {
		return nil, errors.New("diverged")
	})

	rec := do(t, c.Handler(), http.MethodPost, "/runs", `{"teff":5777,"logg":4.44}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	runs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCreateRunBusy(t *testing.T) {
	c, _ := newTestController(t, fakeSolve)
	require.True(t, c.solveSlots.TryAcquire(DefaultMaxConcurrentSolves))
	defer c.solveSlots.Release(DefaultMaxConcurrentSolves)

	rec := do(t, c.Handler(), http.MethodPost, "/runs", `{"teff":5777,"logg":4.44}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	c, _ := newTestController(t, fakeSolve)

	rec := do(t, c.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, body.Storage, "memory")
}

func TestCreateRunSolverPanicRecovered(t *testing.T) {
	c, _ := newTestController(t, func(context.Context, atmos.Stellar) (*types.Atmosphere, error) {
		panic("singular matrix")
	})

	rec := do(t, c.Handler(), http.MethodPost, "/runs", `{"teff":5777,"logg":4.44}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The solve slot was released while unwinding
	require.True(t, c.solveSlots.TryAcquire(DefaultMaxConcurrentSolves))
	c.solveSlots.Release(DefaultMaxConcurrentSolves)
}
