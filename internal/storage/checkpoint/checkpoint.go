// Package checkpoint snapshots the outer-iteration structure to a msgpack
// file so an interrupted solve can be resumed.
package checkpoint

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/chrissnell/stellaratm/internal/types"
	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is bumped when the snapshot layout changes
const FormatVersion = 1

// ErrIncompatible is returned when a checkpoint does not match the
// requested star or grid
var ErrIncompatible = errors.New("checkpoint: incompatible with requested model")

// Snapshot is the on-disk checkpoint. Profiles are stored as linear values
// only; the log companions are rebuilt on load.
type Snapshot struct {
	Version   int       `msgpack:"version"`
	Saved     time.Time `msgpack:"saved"`
	Teff      float64   `msgpack:"teff"`
	LogG      float64   `msgpack:"logg"`
	ZScale    float64   `msgpack:"zscale"`
	Iteration int       `msgpack:"iteration"`
	Tau       []float64 `msgpack:"tau"`
	Temp      []float64 `msgpack:"temp"`
	Pgas      []float64 `msgpack:"pgas"`
	Rho       []float64 `msgpack:"rho,omitempty"`
	Kappa     []float64 `msgpack:"kappa,omitempty"`
	Mu        []float64 `msgpack:"mu,omitempty"`
	Depth     []float64 `msgpack:"depth,omitempty"`
}

// NewSnapshot captures a structure
func NewSnapshot(star atmos.Stellar, iteration int, st types.Structure) *Snapshot {
	return &Snapshot{
		Version:   FormatVersion,
		Saved:     time.Now().UTC(),
		Teff:      star.Teff,
		LogG:      star.LogG,
		ZScale:    star.ZScale,
		Iteration: iteration,
		Tau:       st.Tau.Lin,
		Temp:      st.Temp.Lin,
		Pgas:      st.Pgas.Lin,
		Rho:       st.Rho.Lin,
		Kappa:     st.Kappa.Lin,
		Mu:        st.Mu,
		Depth:     st.Depth,
	}
}

// Stellar returns the stellar parameters the snapshot was taken for
func (s *Snapshot) Stellar() atmos.Stellar {
	return atmos.Stellar{Teff: s.Teff, LogG: s.LogG, ZScale: s.ZScale}
}

// Structure rebuilds the solver structure and validates its profiles
func (s *Snapshot) Structure() (types.Structure, error) {
	n := len(s.Tau)
	if len(s.Temp) != n || len(s.Pgas) != n {
		return types.Structure{}, atmos.ErrLengthMismatch
	}

	st := types.Structure{
		Tau:  atmos.ProfileFromLinear(s.Tau),
		Temp: atmos.ProfileFromLinear(s.Temp),
		Pgas: atmos.ProfileFromLinear(s.Pgas),
	}
	if err := atmos.ValidateTauGrid(st.Tau); err != nil {
		return types.Structure{}, err
	}
	for _, p := range []atmos.Profile{st.Temp, st.Pgas} {
		if err := p.Validate(); err != nil {
			return types.Structure{}, err
		}
	}

	// Derived quantities are only restored when complete
	if len(s.Rho) == n && len(s.Kappa) == n && len(s.Mu) == n && len(s.Depth) == n {
		st.Rho = atmos.ProfileFromLinear(s.Rho)
		st.Kappa = atmos.ProfileFromLinear(s.Kappa)
		st.Mu = s.Mu
		st.Depth = s.Depth
	}
	return st, nil
}

// gridTolerance bounds the log10 tau mismatch accepted between a saved grid
// and the requested bounds
const gridTolerance = 1e-9

// Compatible checks that the snapshot belongs to star on an n-level grid
// spanning log10 tau from log10Min to log10Max
func (s *Snapshot) Compatible(star atmos.Stellar, n int, log10Min, log10Max float64) error {
	if s.Teff != star.Teff || s.LogG != star.LogG || s.ZScale != star.ZScale {
		return fmt.Errorf("%w: saved for teff=%g logg=%g zscale=%g", ErrIncompatible, s.Teff, s.LogG, s.ZScale)
	}
	if len(s.Tau) != n {
		return fmt.Errorf("%w: saved with %d depths, want %d", ErrIncompatible, len(s.Tau), n)
	}
	if n == 0 {
		return nil
	}
	lo, hi := math.Log10(s.Tau[0]), math.Log10(s.Tau[n-1])
	if math.Abs(lo-log10Min) > gridTolerance || math.Abs(hi-log10Max) > gridTolerance {
		return fmt.Errorf("%w: saved grid spans log10 tau %g..%g, want %g..%g",
			ErrIncompatible, lo, hi, log10Min, log10Max)
	}
	return nil
}

// Save writes the snapshot to path, replacing any previous file atomically
func Save(path string, s *Snapshot) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a snapshot from path
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{}
	if err := msgpack.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("checkpoint %s: unsupported version %d", path, s.Version)
	}
	return s, nil
}
