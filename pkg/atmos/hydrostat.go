package atmos

import (
	"math"

	"github.com/chrissnell/stellaratm/internal/constants"
)

// MaxRadPressureFraction caps P_rad/P_tot when splitting total pressure into
// gas pressure. The cap keeps gas pressure positive for very luminous models.
const MaxRadPressureFraction = 0.5

// lnRadPressureFactor is ln(4 sigma / 3c)
var lnRadPressureFactor = math.Log(4.0) + constants.LnStefanBoltz - math.Log(3.0) - constants.LnSpeedOfLight

// RadiationPressure returns ln(P_rad) for temperature ln values
func RadiationPressure(temp Profile) []float64 {
	lnPrad := make([]float64, temp.Len())
	for i, lnT := range temp.Ln {
		lnPrad[i] = lnRadPressureFactor + 4.0*lnT
	}
	return lnPrad
}

// Hydrostatic integrates hydrostatic equilibrium on the tau grid and returns
// the new gas pressure structure.
//
// The integral form used is
//
//	P_tot^(3/2) = (3/2) g ∫ sqrt(P_tot)/kappa dtau = (3/2) g ∫ tau sqrt(P_tot)/kappa dln(tau)
//
// with the integrand evaluated on the previous pressure guess. The running
// integral is seeded from the guessed total pressure at the top, the first
// interval takes one explicit half-step (log-midpoint) Euler step, and the
// remaining intervals use the extended trapezoid rule. The top gas pressure
// is copied from guessPgas unchanged.
func Hydrostatic(logg float64, tau TauGrid, kappa, temp, guessPgas Profile) (Profile, error) {
	n := tau.Len()
	if n < 2 {
		return Profile{}, ErrTooFewDepths
	}
	if err := sameLength(n, kappa, temp, guessPgas); err != nil {
		return Profile{}, err
	}
	for _, p := range []Profile{kappa, temp, guessPgas} {
		if err := p.Validate(); err != nil {
			return Profile{}, err
		}
	}

	lnG := logg * math.Ln10
	lnPrad := RadiationPressure(temp)

	lnIntegrand := make([]float64, n)
	for i := 0; i < n; i++ {
		ptot := guessPgas.Lin[i] + math.Exp(lnPrad[i])
		lnIntegrand[i] = tau.Ln[i] + 0.5*math.Log(ptot) - kappa.Ln[i]
	}

	// Column above the top level, consistent with the guessed top pressure
	lnPtot0 := math.Log(guessPgas.Lin[0] + math.Exp(lnPrad[0]))
	sum := math.Exp(math.Log(2.0/3.0) + 1.5*lnPtot0 - lnG)

	pgas := NewProfile(n)
	pgas.Set(0, guessPgas.Lin[0])

	lnFac := math.Log(1.5) + lnG
	for i := 1; i < n; i++ {
		dlnTau := tau.Ln[i] - tau.Ln[i-1]
		if i == 1 {
			sum += dlnTau * math.Exp(0.5*(lnIntegrand[0]+lnIntegrand[1]))
		} else {
			sum += 0.5 * dlnTau * (math.Exp(lnIntegrand[i-1]) + math.Exp(lnIntegrand[i]))
		}

		lnPtot := (2.0 / 3.0) * (lnFac + math.Log(sum))
		radFrac := math.Min(math.Exp(lnPrad[i]-lnPtot), MaxRadPressureFraction)
		pgas.SetLn(i, lnPtot+math.Log(1.0-radFrac))
	}

	return pgas, nil
}
