package atmos

import (
	"math"

	"github.com/chrissnell/stellaratm/internal/constants"
)

// Mean molecular weight breakpoints. Below NeutralTemp the gas is treated
// as neutral, above IonizedTemp as fully ionized.
const (
	NeutralMu   = 1.3  // amu
	IonizedMu   = 0.62 // amu
	NeutralTemp = 4000.0
	IonizedTemp = 10000.0
)

// MeanMolecularWeight returns the mean particle mass in amu at temperature
// temp. Between the breakpoints ln(mu) is linear in ln(T).
func MeanMolecularWeight(temp float64) float64 {
	switch {
	case temp <= NeutralTemp:
		return NeutralMu
	case temp >= IonizedTemp:
		return IonizedMu
	}

	lnMuN, lnMuI := math.Log(NeutralMu), math.Log(IonizedMu)
	lnTN, lnTI := math.Log(NeutralTemp), math.Log(IonizedTemp)
	slope := (lnMuI - lnMuN) / (lnTI - lnTN)

	return math.Exp(lnMuN + slope*(math.Log(temp)-lnTN))
}

// MeanMolecularWeights evaluates MeanMolecularWeight at every depth
func MeanMolecularWeights(temp Profile) []float64 {
	mu := make([]float64, temp.Len())
	for i, t := range temp.Lin {
		mu[i] = MeanMolecularWeight(t)
	}
	return mu
}

// MassDensity returns ln(rho) in g/cm^3 for an ideal gas at temperature temp
// (K), gas pressure pgas (dyn/cm^2) and mean molecular weight mu (amu). The
// arithmetic is done entirely in log space.
func MassDensity(temp, pgas, mu float64) float64 {
	return math.Log(pgas) - math.Log(temp) + math.Log(mu) + constants.LnAMU - constants.LnBoltzmann
}

// Density derives the mass density profile from temperature and gas pressure
func Density(temp, pgas Profile, mu []float64) (Profile, error) {
	n := temp.Len()
	if err := sameLength(n, pgas); err != nil {
		return Profile{}, err
	}
	if len(mu) != n {
		return Profile{}, ErrLengthMismatch
	}

	rho := NewProfile(n)
	for i := 0; i < n; i++ {
		rho.SetLn(i, pgas.Ln[i]-temp.Ln[i]+math.Log(mu[i])+constants.LnAMU-constants.LnBoltzmann)
	}
	return rho, nil
}
