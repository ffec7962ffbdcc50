package atmos

import "math"

// Lambda operator constants
const (
	// LambdaHalfWidth is the number of master grid intervals summed on each
	// side of a depth point
	LambdaHalfWidth = 36
	// LambdaSubdivisions is the number of sub-intervals per master interval
	LambdaSubdivisions = 3
	// ThermalizationTau is the Rosseland depth beyond which J = S
	ThermalizationTau = 66.67
	// ThermalizationE1 is the kernel value below which a depth no longer
	// sees the surface and J = S
	ThermalizationE1 = 1.0e-14
)

// MeanIntensity applies the Lambda operator to a source function for one
// gray bin. tau is the Rosseland grid; the bin's optical depth axis is
// level*tau. Returns J at every depth.
//
// The mean intensity is J(tau) = 1/2 ∫ S(t) E1(|t - tau|) dt. Around each
// depth the integral is split into sub-intervals of the log-tau master grid.
// The source is interpolated linearly in ln(tau) and held at its interval
// midpoint value, while the kernel is integrated exactly through
// K(x) = ∫_0^x E1. Beyond the summation window the source is held at the
// window edge value out to the surface (t = 0) above and to infinity below.
func MeanIntensity(tau TauGrid, level float64, source []float64) ([]float64, error) {
	n := tau.Len()
	if len(source) != n {
		return nil, ErrLengthMismatch
	}

	srcAt, err := NewInterpolator(tau.Ln, source)
	if err != nil {
		return nil, err
	}

	j := make([]float64, n)
	for i := 0; i < n; i++ {
		tauBin := level * tau.Lin[i]
		surfaceOffset := tauBin - level*tau.Lin[0]
		if tau.Lin[i] > ThermalizationTau || E1(surfaceOffset) < ThermalizationE1 {
			j[i] = source[i]
			continue
		}

		lo := max(0, i-LambdaHalfWidth)
		hi := min(n-1, i+LambdaHalfWidth)

		// Sub-point abscissae (bin tau) and interpolated source values
		count := (hi-lo)*LambdaSubdivisions + 1
		t := make([]float64, 0, count)
		s := make([]float64, 0, count)
		for k := lo; k < hi; k++ {
			step := (tau.Ln[k+1] - tau.Ln[k]) / LambdaSubdivisions
			for m := 0; m < LambdaSubdivisions; m++ {
				lnt := tau.Ln[k] + float64(m)*step
				t = append(t, level*math.Exp(lnt))
				s = append(s, srcAt.At(lnt))
			}
		}
		t = append(t, level*tau.Lin[hi])
		s = append(s, source[hi])

		sum := 0.0
		for k := 0; k < len(t)-1; k++ {
			sMid := 0.5 * (s[k] + s[k+1])
			weight := math.Abs(e1Kernel(math.Abs(t[k+1]-tauBin)) - e1Kernel(math.Abs(t[k]-tauBin)))
			sum += sMid * weight
		}

		// Above the window, up to the surface
		first := t[0]
		sum += s[0] * (e1Kernel(tauBin) - e1Kernel(tauBin-first))

		// Below the window, semi-infinite
		last := t[len(t)-1]
		sum += s[len(s)-1] * (1.0 - e1Kernel(last-tauBin))

		j[i] = 0.5 * sum
	}

	return j, nil
}
