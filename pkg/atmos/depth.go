package atmos

import "math"

// TopDepthCm is the geometric depth assigned to the top level
const TopDepthCm = 1.0e-19

// GeometricDepth converts the tau grid to geometric depth (cm) by trapezoid
// integration of dz = tau/(kappa rho) dln(tau) from the top down.
func GeometricDepth(tau TauGrid, kappa, rho Profile) ([]float64, error) {
	n := tau.Len()
	if err := sameLength(n, kappa, rho); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrTooFewDepths
	}

	z := make([]float64, n)
	z[0] = TopDepthCm

	prev := math.Exp(tau.Ln[0] - kappa.Ln[0] - rho.Ln[0])
	for i := 1; i < n; i++ {
		cur := math.Exp(tau.Ln[i] - kappa.Ln[i] - rho.Ln[i])
		z[i] = z[i-1] + 0.5*(cur+prev)*(tau.Ln[i]-tau.Ln[i-1])
		prev = cur
	}

	return z, nil
}
