package opacity

import (
	"testing"

	"github.com/chrissnell/stellaratm/pkg/atmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIonizedFraction(t *testing.T) {
	assert.InDelta(t, 0.0, IonizedFraction(atmos.NeutralMu), 1e-12)
	assert.InDelta(t, 1.0, IonizedFraction(atmos.IonizedMu), 1e-12)
	assert.Equal(t, 0.0, IonizedFraction(2.0))
	assert.Equal(t, 1.0, IonizedFraction(0.5))

	mid := IonizedFraction(atmos.MeanMolecularWeight(6000))
	assert.Greater(t, mid, 0.0)
	assert.Less(t, mid, 1.0)
}

func TestAnalyticExtinction(t *testing.T) {
	temps := []float64{3000, 4500, 5777, 8000, 12000, 30000}
	temp := atmos.ProfileFromLinear(temps)
	rho := atmos.Uniform(len(temps), 1.0e-7)
	mu := atmos.MeanMolecularWeights(temp)

	solar := NewAnalytic(1.0)
	kappa, err := solar.Extinction(temp, rho, mu)
	require.NoError(t, err)
	require.NoError(t, kappa.Validate())
	for i, k := range kappa.Lin {
		assert.GreaterOrEqual(t, k, KappaFloor, "depth %d", i)
	}

	// Fully ionized gas is dominated by electron scattering
	last := len(temps) - 1
	assert.InDelta(t, 0.2*(1.0+HydrogenMassFraction)+KappaFloor, kappa.Lin[last], 1e-9)

	// Metal-poor gas is more transparent where H- dominates
	poor, err := NewAnalytic(0.1).Extinction(temp, rho, mu)
	require.NoError(t, err)
	assert.Less(t, poor.Lin[2], kappa.Lin[2])
}

func TestAnalyticExtinctionErrors(t *testing.T) {
	temp := atmos.Uniform(4, 5000)
	rho := atmos.Uniform(4, 1e-7)
	mu := atmos.MeanMolecularWeights(temp)

	_, err := NewAnalytic(1).Extinction(temp, atmos.Uniform(3, 1e-7), mu)
	assert.ErrorIs(t, err, atmos.ErrLengthMismatch)

	_, err = NewAnalytic(1).Extinction(temp, rho, mu[:3])
	assert.ErrorIs(t, err, atmos.ErrLengthMismatch)

	_, err = NewAnalytic(0).Extinction(temp, rho, mu)
	assert.ErrorIs(t, err, atmos.ErrNonPositive)
}

func TestAnalyticImplementsSource(t *testing.T) {
	var _ Source = NewAnalytic(1)
}
