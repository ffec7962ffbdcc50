package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sun = atmos.Stellar{Teff: 5777, LogG: 4.44, ZScale: 1.0}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"negative teff", func(p *Params) { p.Star.Teff = -1 }, true},
		{"too few depths", func(p *Params) { p.NumDeps = 2 }, true},
		{"inverted tau bounds", func(p *Params) { p.Log10TauMin, p.Log10TauMax = 2, -6 }, true},
		{"zero iterations", func(p *Params) { p.MaxIterations = 0 }, true},
		{"zero tolerance", func(p *Params) { p.Tolerance = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(sun)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitialStructure(t *testing.T) {
	s, err := New(DefaultParams(sun), nil, nil)
	require.NoError(t, err)

	st, err := s.InitialStructure()
	require.NoError(t, err)

	n := st.Tau.Len()
	require.Equal(t, atmos.DefaultNumDeps, n)
	require.NoError(t, st.Temp.Validate())
	require.NoError(t, st.Pgas.Validate())
	require.NoError(t, st.Rho.Validate())
	require.NoError(t, st.Kappa.Validate())
	require.Len(t, st.Depth, n)

	// Eddington law gives T = Teff at tau = 2/3
	i := atmos.NearestIndex(st.Tau.Lin, 2.0/3.0)
	want := sun.Teff * math.Pow(0.75*(st.Tau.Lin[i]+2.0/3.0), 0.25)
	assert.InDelta(t, want, st.Temp.Lin[i], 1e-9)
	assert.InEpsilon(t, sun.Teff, st.Temp.Lin[i], 0.1)

	for i := 1; i < n; i++ {
		assert.Greater(t, st.Pgas.Lin[i], st.Pgas.Lin[i-1], "pressure must increase with depth at %d", i)
		assert.GreaterOrEqual(t, st.Depth[i], st.Depth[i-1])
	}
}

func TestStepKeepsStructurePhysical(t *testing.T) {
	s, err := New(DefaultParams(sun), nil, nil)
	require.NoError(t, err)

	st, err := s.InitialStructure()
	require.NoError(t, err)
	before := st.Temp.Clone()

	next, stats, err := s.Step(st)
	require.NoError(t, err)

	assert.Equal(t, before.Lin, st.Temp.Lin, "step must not modify its input")
	assert.NoError(t, next.Temp.Validate())
	assert.NoError(t, next.Pgas.Validate())
	assert.Equal(t, atmos.CoolRegime, stats.Regime)
	assert.False(t, math.IsNaN(stats.MaxRelDT))
	assert.GreaterOrEqual(t, stats.MaxRelDT, 0.0)
	assert.LessOrEqual(t, stats.Boundary, next.Tau.Len())
}

func TestStepEndToEndPhysical(t *testing.T) {
	stars := []atmos.Stellar{
		{Teff: 4000, LogG: 4.44, ZScale: 1},
		sun,
		{Teff: 9000, LogG: 4.44, ZScale: 1},
		{Teff: 20000, LogG: 4.44, ZScale: 1},
	}

	for _, star := range stars {
		t.Run(fmt.Sprintf("teff=%.0f", star.Teff), func(t *testing.T) {
			s, err := New(DefaultParams(star), nil, nil)
			require.NoError(t, err)

			st, err := s.InitialStructure()
			require.NoError(t, err)
			next, stats, err := s.Step(st)
			require.NoError(t, err)

			n := next.Tau.Len()
			require.Equal(t, atmos.DefaultNumDeps, n)
			require.NoError(t, next.Temp.Validate())
			require.NoError(t, next.Pgas.Validate())
			require.NoError(t, next.Rho.Validate())
			require.NoError(t, next.Kappa.Validate())

			// Radiative layers above the convection boundary keep T rising
			// with depth
			for i := 1; i < min(stats.Boundary, n); i++ {
				assert.Greater(t, next.Temp.Lin[i], next.Temp.Lin[i-1], "temperature decreased at depth %d", i)
			}
			for i := 1; i < n; i++ {
				assert.GreaterOrEqual(t, next.Pgas.Lin[i], next.Pgas.Lin[i-1], "pressure decreased at depth %d", i)
			}
		})
	}
}

func TestSolve(t *testing.T) {
	p := DefaultParams(sun)
	p.MaxIterations = 3
	s, err := New(p, nil, nil)
	require.NoError(t, err)

	res, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	m := res.Model
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "cool", m.Regime)
	assert.LessOrEqual(t, m.Iterations, 3)
	assert.Len(t, res.History, m.Iterations)
	require.Len(t, m.Levels, p.NumDeps)

	for _, l := range m.Levels {
		for _, v := range []float64{l.Temp, l.Pgas, l.Rho, l.Kappa, l.Mu} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "level %d not finite", l.Index)
			assert.Greater(t, v, 0.0, "level %d not positive", l.Index)
		}
	}
}

func TestSolveResumesFromStructure(t *testing.T) {
	p := DefaultParams(sun)
	p.MaxIterations = 1
	s, err := New(p, nil, nil)
	require.NoError(t, err)

	first, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	start := first.Structure
	second, err := s.Solve(context.Background(), &start)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Model.Iterations)
	assert.NotEqual(t, first.Model.ID, second.Model.ID)
}

func TestSolveCancelled(t *testing.T) {
	s, err := New(DefaultParams(sun), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Solve(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOnStepHook(t *testing.T) {
	p := DefaultParams(sun)
	p.MaxIterations = 2
	p.Tolerance = 1e-12
	s, err := New(p, nil, nil)
	require.NoError(t, err)

	var seen []int
	s.OnStep(func(stats StepStats, st types.Structure) error {
		seen = append(seen, stats.Iteration)
		assert.Equal(t, p.NumDeps, st.Temp.Len())
		return nil
	})
	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)

	stop := errors.New("stop")
	s.OnStep(func(StepStats, types.Structure) error { return stop })
	_, err = s.Solve(context.Background(), nil)
	assert.True(t, errors.Is(err, stop))
}
