package atmos

import (
	"math"
	"testing"

	"github.com/chrissnell/stellaratm/internal/constants"
	"github.com/stretchr/testify/assert"
)

func TestPlanckLambda(t *testing.T) {
	const lambda = 500e-7 // cm
	const temp = 5777.0

	x := constants.Planck * constants.SpeedOfLight / (lambda * constants.Boltzmann * temp)
	want := 2 * constants.Planck * constants.SpeedOfLight * constants.SpeedOfLight /
		math.Pow(lambda, 5) / math.Expm1(x)

	b, dbdt := PlanckLambda(lambda, temp)
	assert.InEpsilon(t, want, b, 1e-10)

	// Finite difference derivative
	dT := 1e-3
	bp, _ := PlanckLambda(lambda, temp+dT)
	bm, _ := PlanckLambda(lambda, temp-dT)
	assert.InEpsilon(t, (bp-bm)/(2*dT), dbdt, 1e-6)
}

func TestPlanckLambdaNoOverflow(t *testing.T) {
	b, dbdt := PlanckLambda(10e-7, 1000)
	assert.False(t, math.IsNaN(b) || math.IsInf(b, 0))
	assert.False(t, math.IsNaN(dbdt) || math.IsInf(dbdt, 0))
	assert.GreaterOrEqual(t, b, 0.0)
}

func TestPlanckBinWholeSpectrum(t *testing.T) {
	bin := SingleGrayBin()[0]
	for _, temp := range []float64{3000, 5777, 10000, 30000} {
		b, dbdt := PlanckBin(bin.LambdaLo, bin.LambdaHi, temp)

		// Integrated over all wavelengths B = sigma T^4 / pi
		total := constants.StefanBoltz * math.Pow(temp, 4) / math.Pi
		assert.InEpsilon(t, total, b, 1e-3, "T=%g", temp)
		assert.InEpsilon(t, 4*total/temp, dbdt, 1e-3, "T=%g", temp)
	}
}

func TestPlanckBinsSumToTotal(t *testing.T) {
	const temp = 5777.0
	sum := 0.0
	for _, bin := range GrayBins(CoolRegime) {
		b, _ := PlanckBin(bin.LambdaLo, bin.LambdaHi, temp)
		sum += b
	}
	assert.InEpsilon(t, constants.StefanBoltz*math.Pow(temp, 4)/math.Pi, sum, 5e-3)
}
