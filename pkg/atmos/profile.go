// Package atmos implements the self-consistent atmosphere structure solver
// stages: the optical depth grid, the equation of state, hydrostatic and
// geometric depth integration, the multi-gray radiative equilibrium
// temperature correction and the convective stability adjustment.
//
// Every physical quantity is carried as a Profile: a depth-indexed pair of
// linear values and their natural logs. Index 0 is the top of the
// atmosphere (smallest optical depth).
package atmos

import (
	"fmt"
	"math"
)

// companionTolerance bounds |Ln - ln(Lin)| accepted by Validate
const companionTolerance = 1e-9

// Profile is a depth-indexed quantity with its natural-log companion.
// Ln[i] == ln(Lin[i]) holds for every i; use Set or SetLn to keep it so.
type Profile struct {
	Lin []float64
	Ln  []float64
}

// NewProfile allocates a zeroed profile with n levels
func NewProfile(n int) Profile {
	return Profile{
		Lin: make([]float64, n),
		Ln:  make([]float64, n),
	}
}

// ProfileFromLinear builds a profile from linear values
func ProfileFromLinear(lin []float64) Profile {
	p := NewProfile(len(lin))
	for i, v := range lin {
		p.Set(i, v)
	}
	return p
}

// ProfileFromLog builds a profile from natural-log values
func ProfileFromLog(ln []float64) Profile {
	p := NewProfile(len(ln))
	for i, v := range ln {
		p.SetLn(i, v)
	}
	return p
}

// Uniform returns a profile with n copies of v
func Uniform(n int, v float64) Profile {
	p := NewProfile(n)
	for i := 0; i < n; i++ {
		p.Set(i, v)
	}
	return p
}

// Len returns the number of depth levels
func (p Profile) Len() int {
	return len(p.Lin)
}

// Set stores a linear value and its log at depth i
func (p Profile) Set(i int, v float64) {
	p.Lin[i] = v
	p.Ln[i] = math.Log(v)
}

// SetLn stores a log value and its linear value at depth i
func (p Profile) SetLn(i int, lnv float64) {
	p.Ln[i] = lnv
	p.Lin[i] = math.Exp(lnv)
}

// Clone returns a deep copy
func (p Profile) Clone() Profile {
	c := NewProfile(p.Len())
	copy(c.Lin, p.Lin)
	copy(c.Ln, p.Ln)
	return c
}

// Validate checks that the profile is non-empty, strictly positive, finite
// and that both companions agree.
func (p Profile) Validate() error {
	if len(p.Lin) != len(p.Ln) {
		return ErrLengthMismatch
	}
	for i := range p.Lin {
		v, lnv := p.Lin[i], p.Ln[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(lnv) || math.IsInf(lnv, 0) {
			return fmt.Errorf("depth %d: %w", i, ErrNonFinite)
		}
		if v <= 0 {
			return fmt.Errorf("depth %d: value %g: %w", i, v, ErrNonPositive)
		}
		if math.Abs(lnv-math.Log(v)) > companionTolerance*math.Max(1, math.Abs(lnv)) {
			return fmt.Errorf("depth %d: log companion %g does not match ln(%g)", i, lnv, v)
		}
	}
	return nil
}

// sameLength reports ErrLengthMismatch unless every profile has n levels
func sameLength(n int, profiles ...Profile) error {
	for _, p := range profiles {
		if p.Len() != n || len(p.Ln) != n {
			return ErrLengthMismatch
		}
	}
	return nil
}

// Stellar holds the global stellar parameters of a model
type Stellar struct {
	Teff   float64 // effective temperature, K
	LogG   float64 // log10 surface gravity, cgs
	ZScale float64 // metallicity relative to solar
}

// Gravity returns the linear surface gravity in cm/s^2
func (s Stellar) Gravity() float64 {
	return math.Pow(10, s.LogG)
}

// Validate rejects non-physical stellar parameters
func (s Stellar) Validate() error {
	if s.Teff <= 0 || s.LogG <= 0 || s.ZScale <= 0 {
		return fmt.Errorf("teff=%g logg=%g zscale=%g: %w", s.Teff, s.LogG, s.ZScale, ErrNonPositive)
	}
	return nil
}
