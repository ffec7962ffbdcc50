// Package types holds the model records exchanged between the solver,
// storage engines and controllers.
package types

import (
	"time"

	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
)

// Level is one depth point of a converged (or partially converged) model
type Level struct {
	Index int     `json:"index" msgpack:"index"`
	Tau   float64 `json:"tau" msgpack:"tau"`
	Depth float64 `json:"depth_cm" msgpack:"depth_cm"`
	Temp  float64 `json:"temp" msgpack:"temp"`
	Pgas  float64 `json:"pgas" msgpack:"pgas"`
	Rho   float64 `json:"rho" msgpack:"rho"`
	Kappa float64 `json:"kappa" msgpack:"kappa"`
	Mu    float64 `json:"mu" msgpack:"mu"`
}

// Atmosphere is a solved model atmosphere
type Atmosphere struct {
	ID         string    `json:"id" msgpack:"id"`
	Teff       float64   `json:"teff" msgpack:"teff"`
	LogG       float64   `json:"logg" msgpack:"logg"`
	ZScale     float64   `json:"zscale" msgpack:"zscale"`
	Regime     string    `json:"regime" msgpack:"regime"`
	Created    time.Time `json:"created" msgpack:"created"`
	CreatedJD  float64   `json:"created_jd" msgpack:"created_jd"`
	Iterations int       `json:"iterations" msgpack:"iterations"`
	Converged  bool      `json:"converged" msgpack:"converged"`
	MaxRelDT   float64   `json:"max_rel_dt" msgpack:"max_rel_dt"`
	Boundary   int       `json:"convection_boundary" msgpack:"convection_boundary"`
	Levels     []Level   `json:"levels,omitempty" msgpack:"levels,omitempty"`
}

// NewAtmosphere stamps a new model with an ID and creation time
func NewAtmosphere(star atmos.Stellar, now time.Time) *Atmosphere {
	now = now.UTC()
	return &Atmosphere{
		ID:        uuid.New().String(),
		Teff:      star.Teff,
		LogG:      star.LogG,
		ZScale:    star.ZScale,
		Regime:    atmos.SelectRegime(star.Teff).String(),
		Created:   now,
		CreatedJD: julian.TimeToJD(now),
	}
}

// Stellar returns the stellar parameters of the model
func (a *Atmosphere) Stellar() atmos.Stellar {
	return atmos.Stellar{Teff: a.Teff, LogG: a.LogG, ZScale: a.ZScale}
}

// Structure holds the depth-indexed state carried between outer iterations
type Structure struct {
	Tau   atmos.Profile
	Temp  atmos.Profile
	Pgas  atmos.Profile
	Rho   atmos.Profile
	Kappa atmos.Profile
	Mu    []float64
	Depth []float64
}

// FillLevels copies a structure into the model's level table
func (a *Atmosphere) FillLevels(s Structure) {
	n := s.Tau.Len()
	a.Levels = make([]Level, n)
	for i := 0; i < n; i++ {
		l := Level{
			Index: i,
			Tau:   s.Tau.Lin[i],
			Temp:  s.Temp.Lin[i],
			Pgas:  s.Pgas.Lin[i],
		}
		if s.Rho.Len() == n {
			l.Rho = s.Rho.Lin[i]
		}
		if s.Kappa.Len() == n {
			l.Kappa = s.Kappa.Lin[i]
		}
		if len(s.Mu) == n {
			l.Mu = s.Mu[i]
		}
		if len(s.Depth) == n {
			l.Depth = s.Depth[i]
		}
		a.Levels[i] = l
	}
}
