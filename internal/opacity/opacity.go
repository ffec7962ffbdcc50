// Package opacity supplies continuum mass extinction to the structure
// solver. The Analytic source is a stand-in for a full opacity module: an
// H- bound-free/free-free power law that fades out as hydrogen ionizes,
// plus Thomson scattering by the freed electrons.
package opacity

import (
	"math"

	"github.com/chrissnell/stellaratm/pkg/atmos"
)

// Source computes the Rosseland mean mass extinction (cm^2/g) per depth
type Source interface {
	Extinction(temp, rho atmos.Profile, mu []float64) (atmos.Profile, error)
}

const (
	// HydrogenMassFraction is X for solar composition
	HydrogenMassFraction = 0.70
	// KappaFloor keeps extinction strictly positive in the coolest, thinnest layers
	KappaFloor = 1.0e-4

	hMinusCoeff = 2.5e-31
)

// Analytic is a closed-form continuum extinction scaled by metallicity
type Analytic struct {
	ZScale float64
}

// NewAnalytic returns an analytic source for the given metallicity scale
func NewAnalytic(zScale float64) *Analytic {
	return &Analytic{ZScale: zScale}
}

// IonizedFraction maps a mean molecular weight onto the fraction of
// hydrogen ionized, 0 at the neutral weight and 1 at the ionized weight.
func IonizedFraction(mu float64) float64 {
	f := (atmos.NeutralMu/mu - 1.0) / (atmos.NeutralMu/atmos.IonizedMu - 1.0)
	return math.Max(0, math.Min(1, f))
}

// Extinction implements Source
func (a *Analytic) Extinction(temp, rho atmos.Profile, mu []float64) (atmos.Profile, error) {
	n := temp.Len()
	if rho.Len() != n || len(mu) != n {
		return atmos.Profile{}, atmos.ErrLengthMismatch
	}
	if a.ZScale <= 0 {
		return atmos.Profile{}, atmos.ErrNonPositive
	}

	lnCoeff := math.Log(hMinusCoeff) + math.Log(a.ZScale)
	kappaES := 0.2 * (1.0 + HydrogenMassFraction)

	kappa := atmos.NewProfile(n)
	for i := 0; i < n; i++ {
		fIon := IonizedFraction(mu[i])
		kHMinus := math.Exp(lnCoeff + 0.5*rho.Ln[i] + 9.0*temp.Ln[i])
		kappa.Set(i, kHMinus*(1.0-fIon)+kappaES*fIon+KappaFloor)
	}
	return kappa, nil
}
