package atmos

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// BinRadiation holds the per-depth radiation field of one gray bin
type BinRadiation struct {
	Bin  GrayBin
	B    []float64 // bin-integrated Planck function
	DBdT []float64 // bin-integrated dB/dT
	J    []float64 // mean intensity from the Lambda operator
}

// RadEqResult is the outcome of one radiative equilibrium correction
type RadEqResult struct {
	Regime    Regime
	Temp      Profile   // corrected temperature
	DeltaT    []float64 // applied correction, K
	Heating   []float64
	Cooling   []float64
	CorrDenom []float64
	Bins      []BinRadiation
}

// RadiativeCorrection performs one damped Lambda-iteration temperature
// correction using the bin table selected by teff.
func RadiativeCorrection(teff float64, tau TauGrid, temp, rho, kappa Profile) (RadEqResult, error) {
	regime := SelectRegime(teff)
	res, err := RadiativeCorrectionBins(tau, temp, rho, kappa, GrayBins(regime))
	res.Regime = regime
	return res, err
}

// RadiativeCorrectionBins performs one damped Lambda-iteration temperature
// correction with an explicit bin table.
//
// Per depth, with k = level*kappa*rho for each bin:
//
//	cooling   = Σ k [eps B + (1-eps) J]
//	heating   = Σ k J
//	corrDenom = Σ k dB/dT
//	dT        = (heating - cooling) / corrDenom * exp(tau[0] - tau[i])
//
// The exponential factor damps the correction with depth. A correction
// that would drive T non-positive leaves that depth unchanged.
func RadiativeCorrectionBins(tau TauGrid, temp, rho, kappa Profile, bins GrayBinTable) (RadEqResult, error) {
	n := tau.Len()
	if n < 2 {
		return RadEqResult{}, ErrTooFewDepths
	}
	if err := sameLength(n, temp, rho, kappa); err != nil {
		return RadEqResult{}, err
	}
	if err := temp.Validate(); err != nil {
		return RadEqResult{}, err
	}

	// Bins are independent; each goroutine fills only its own slot and the
	// accumulation below runs in bin order.
	rad := make([]BinRadiation, len(bins))
	var g errgroup.Group
	for k, bin := range bins {
		k, bin := k, bin
		g.Go(func() error {
			r, err := binRadiation(tau, temp, bin)
			if err != nil {
				return err
			}
			rad[k] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RadEqResult{}, err
	}

	res := RadEqResult{
		Temp:      temp.Clone(),
		DeltaT:    make([]float64, n),
		Heating:   make([]float64, n),
		Cooling:   make([]float64, n),
		CorrDenom: make([]float64, n),
		Bins:      rad,
	}

	for _, r := range rad {
		for i := 0; i < n; i++ {
			k := r.Bin.Level * kappa.Lin[i] * rho.Lin[i]
			res.Cooling[i] += k * (r.Bin.Epsilon*r.B[i] + (1.0-r.Bin.Epsilon)*r.J[i])
			res.Heating[i] += k * r.J[i]
			res.CorrDenom[i] += k * r.DBdT[i]
		}
	}

	for i := 0; i < n; i++ {
		diff := res.Heating[i] - res.Cooling[i]
		dT := math.Copysign(math.Abs(diff), diff) / res.CorrDenom[i]
		dT *= math.Exp(tau.Lin[0] - tau.Lin[i])

		newT := temp.Lin[i] + dT
		if !(newT > 0) {
			continue
		}
		res.DeltaT[i] = dT
		res.Temp.Set(i, newT)
	}

	return res, nil
}

// binRadiation evaluates B, dB/dT and J for one bin at every depth
func binRadiation(tau TauGrid, temp Profile, bin GrayBin) (BinRadiation, error) {
	n := tau.Len()
	r := BinRadiation{
		Bin:  bin,
		B:    make([]float64, n),
		DBdT: make([]float64, n),
	}
	for i, t := range temp.Lin {
		r.B[i], r.DBdT[i] = PlanckBin(bin.LambdaLo, bin.LambdaHi, t)
	}

	j, err := MeanIntensity(tau, bin.Level, r.B)
	if err != nil {
		return BinRadiation{}, err
	}
	r.J = j
	return r, nil
}
