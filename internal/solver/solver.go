// Package solver drives the outer fixed-point iteration that alternates the
// hydrostatic, radiative equilibrium and convective stages until the
// temperature structure stops changing.
package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/stellaratm/internal/opacity"
	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Params controls a solve
type Params struct {
	Star          atmos.Stellar
	NumDeps       int
	Log10TauMin   float64
	Log10TauMax   float64
	MaxIterations int
	Tolerance     float64 // convergence threshold on max |dT/T|
}

// DefaultParams returns the standard 64-level grid and iteration settings
func DefaultParams(star atmos.Stellar) Params {
	return Params{
		Star:          star,
		NumDeps:       atmos.DefaultNumDeps,
		Log10TauMin:   atmos.DefaultLog10TauMin,
		Log10TauMax:   atmos.DefaultLog10TauMax,
		MaxIterations: 12,
		Tolerance:     1.0e-3,
	}
}

// Validate rejects parameters the solver cannot run with
func (p Params) Validate() error {
	if err := p.Star.Validate(); err != nil {
		return err
	}
	if p.NumDeps < 3 {
		return fmt.Errorf("num_deps=%d: %w", p.NumDeps, atmos.ErrTooFewDepths)
	}
	if !(p.Log10TauMax > p.Log10TauMin) {
		return atmos.ErrBadTauBounds
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", p.MaxIterations)
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", p.Tolerance)
	}
	return nil
}

// initialPressurePasses is the number of hydrostatic refinements of the
// starting pressure guess
const initialPressurePasses = 5

// StepStats summarizes one outer iteration
type StepStats struct {
	Iteration   int
	MaxRelDT    float64
	MeanAbsDT   float64
	Boundary    int
	ScaleHeight float64
	Regime      atmos.Regime
}

// Solver runs the outer iteration for one set of parameters
type Solver struct {
	params  Params
	opacity opacity.Source
	logger  *zap.SugaredLogger
	onStep  StepFunc
}

// StepFunc is called after every completed outer iteration. A non-nil
// error aborts the solve.
type StepFunc func(stats StepStats, st types.Structure) error

// New creates a solver. A nil opacity source selects the analytic continuum.
func New(p Params, src opacity.Source, logger *zap.SugaredLogger) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = opacity.NewAnalytic(p.Star.ZScale)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Solver{
		params:  p,
		opacity: src,
		logger:  logger,
	}, nil
}

// OnStep registers fn to run after every outer iteration
func (s *Solver) OnStep(fn StepFunc) {
	s.onStep = fn
}

// Params returns the solver parameters
func (s *Solver) Params() Params {
	return s.params
}

// InitialStructure builds the gray starting model: the Eddington
// temperature law T^4 = 3/4 Teff^4 (tau + 2/3) and a pressure refined by a
// few hydrostatic passes from P = g tau / kappa.
func (s *Solver) InitialStructure() (types.Structure, error) {
	p := s.params
	tau, err := atmos.NewTauGrid(p.NumDeps, p.Log10TauMin, p.Log10TauMax)
	if err != nil {
		return types.Structure{}, err
	}

	n := tau.Len()
	g := p.Star.Gravity()
	temp := atmos.NewProfile(n)
	pgas := atmos.NewProfile(n)
	for i := 0; i < n; i++ {
		temp.Set(i, p.Star.Teff*math.Pow(0.75*(tau.Lin[i]+2.0/3.0), 0.25))
		pgas.Set(i, g*tau.Lin[i])
	}

	st := types.Structure{
		Tau:  tau,
		Temp: temp,
		Pgas: pgas,
		Mu:   atmos.MeanMolecularWeights(temp),
	}
	if err := s.refreshMatter(&st); err != nil {
		return types.Structure{}, err
	}

	for pass := 0; pass < initialPressurePasses; pass++ {
		if err := s.hydrostatic(&st); err != nil {
			return types.Structure{}, err
		}
		if err := s.refreshMatter(&st); err != nil {
			return types.Structure{}, err
		}
	}

	return st, nil
}

// hydrostatic replaces the gas pressure. The top guess is reset to the
// boundary value g tau_0 / kappa_0 before integrating.
func (s *Solver) hydrostatic(st *types.Structure) error {
	guess := st.Pgas.Clone()
	guess.Set(0, s.params.Star.Gravity()*st.Tau.Lin[0]/st.Kappa.Lin[0])

	pgas, err := atmos.Hydrostatic(s.params.Star.LogG, st.Tau, st.Kappa, st.Temp, guess)
	if err != nil {
		return fmt.Errorf("hydrostatic integration: %w", err)
	}
	st.Pgas = pgas
	return nil
}

// refreshMatter recomputes density, extinction and geometric depth from the
// current temperature and pressure
func (s *Solver) refreshMatter(st *types.Structure) error {
	rho, err := atmos.Density(st.Temp, st.Pgas, st.Mu)
	if err != nil {
		return fmt.Errorf("density: %w", err)
	}
	kappa, err := s.opacity.Extinction(st.Temp, rho, st.Mu)
	if err != nil {
		return fmt.Errorf("extinction: %w", err)
	}
	depth, err := atmos.GeometricDepth(st.Tau, kappa, rho)
	if err != nil {
		return fmt.Errorf("geometric depth: %w", err)
	}

	st.Rho = rho
	st.Kappa = kappa
	st.Depth = depth
	return nil
}

// Step runs one outer iteration and returns the updated structure. The
// input structure is not modified.
func (s *Solver) Step(in types.Structure) (types.Structure, StepStats, error) {
	st := types.Structure{
		Tau:   in.Tau,
		Temp:  in.Temp.Clone(),
		Pgas:  in.Pgas.Clone(),
		Kappa: in.Kappa.Clone(),
		Mu:    atmos.MeanMolecularWeights(in.Temp),
	}

	if err := s.hydrostatic(&st); err != nil {
		return types.Structure{}, StepStats{}, err
	}
	if err := s.refreshMatter(&st); err != nil {
		return types.Structure{}, StepStats{}, err
	}

	rad, err := atmos.RadiativeCorrection(s.params.Star.Teff, st.Tau, st.Temp, st.Rho, st.Kappa)
	if err != nil {
		return types.Structure{}, StepStats{}, fmt.Errorf("radiative equilibrium: %w", err)
	}

	conv, err := atmos.ConvectiveAdjust(s.params.Star, st.Tau, rad.Temp, st.Pgas, st.Rho, st.Kappa, st.Mu)
	if err != nil {
		return types.Structure{}, StepStats{}, fmt.Errorf("convective adjustment: %w", err)
	}
	st.Temp = conv.Temp

	n := st.Tau.Len()
	rel := make([]float64, n)
	abs := make([]float64, n)
	for i := 0; i < n; i++ {
		d := st.Temp.Lin[i] - in.Temp.Lin[i]
		abs[i] = math.Abs(d)
		rel[i] = abs[i] / in.Temp.Lin[i]
	}

	stats := StepStats{
		MaxRelDT:    floats.Max(rel),
		MeanAbsDT:   stat.Mean(abs, nil),
		Boundary:    conv.Boundary,
		ScaleHeight: conv.ScaleHeight,
		Regime:      rad.Regime,
	}
	return st, stats, nil
}

// Result is a finished solve
type Result struct {
	Model     *types.Atmosphere
	Structure types.Structure
	History   []StepStats
}

// Solve iterates from start (or the gray starting model when start is nil)
// until the temperature change drops below the tolerance, the iteration cap
// is reached or ctx is cancelled.
func (s *Solver) Solve(ctx context.Context, start *types.Structure) (*Result, error) {
	var st types.Structure
	var err error
	if start != nil {
		if err := atmos.ValidateTauGrid(start.Tau); err != nil {
			return nil, fmt.Errorf("starting structure: %w", err)
		}
		st = *start
		if st.Kappa.Len() != st.Tau.Len() {
			st.Mu = atmos.MeanMolecularWeights(st.Temp)
			if err := s.refreshMatter(&st); err != nil {
				return nil, err
			}
		}
	} else {
		st, err = s.InitialStructure()
		if err != nil {
			return nil, err
		}
	}

	star := s.params.Star
	s.logger.Infof("solving atmosphere teff=%.0f logg=%.2f zscale=%.2f depths=%d",
		star.Teff, star.LogG, star.ZScale, st.Tau.Len())

	res := &Result{Model: types.NewAtmosphere(star, time.Now())}
	converged := false
	var last StepStats

	for it := 1; it <= s.params.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("solve cancelled after %d iterations: %w", it-1, err)
		}

		st, last, err = s.Step(st)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it, err)
		}
		last.Iteration = it
		res.History = append(res.History, last)

		s.logger.Debugw("outer iteration",
			"iteration", it,
			"max_rel_dt", last.MaxRelDT,
			"mean_abs_dt", last.MeanAbsDT,
			"convection_boundary", last.Boundary,
			"scale_height_tau1_cm", last.ScaleHeight,
		)

		if s.onStep != nil {
			if err := s.onStep(last, st); err != nil {
				return nil, fmt.Errorf("iteration %d hook: %w", it, err)
			}
		}

		if last.MaxRelDT < s.params.Tolerance {
			converged = true
			break
		}
	}

	if !converged {
		s.logger.Warnf("atmosphere did not converge in %d iterations (max |dT/T| = %.3g)",
			s.params.MaxIterations, last.MaxRelDT)
	}

	// Final pressure and matter consistent with the last temperature
	st.Mu = atmos.MeanMolecularWeights(st.Temp)
	if err := s.hydrostatic(&st); err != nil {
		return nil, err
	}
	if err := s.refreshMatter(&st); err != nil {
		return nil, err
	}

	m := res.Model
	m.Iterations = last.Iteration
	m.Converged = converged
	m.MaxRelDT = last.MaxRelDT
	m.Boundary = last.Boundary
	m.FillLevels(st)
	res.Structure = st

	s.logger.Infof("atmosphere %s finished after %d iterations (converged=%v)", m.ID, m.Iterations, converged)
	return res, nil
}
