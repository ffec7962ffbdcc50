package atmos

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestE1Series(t *testing.T) {
	tests := []struct {
		x, want, tol float64
	}{
		{0.5, 0.5597735947761608, 1e-12},
		{1.0, 0.21938393439552029, 1e-8},
		{2.0, 0.04890051070806112, 1e-4},
	}
	for _, tt := range tests {
		assert.InEpsilon(t, tt.want, E1(tt.x), tt.tol, "E1(%g)", tt.x)
	}
}

func TestE1Asymptotic(t *testing.T) {
	for _, x := range []float64{3, 5, 10, 40} {
		assert.Equal(t, math.Exp(-x)/x, E1(x))
	}
}

func TestE1Floor(t *testing.T) {
	assert.Equal(t, E1(E1Floor), E1(0))
	assert.Equal(t, E1(E1Floor), E1(-1))
	assert.False(t, math.IsInf(E1(0), 0))
}

func TestE1BranchJump(t *testing.T) {
	// Above x=3 E1 is exactly e^-x/x, so the truncated series and the
	// asymptotic form meet with a jump of about 21% of the asymptotic value
	below := E1(math.Nextafter(E1SeriesLimit, 0))
	above := E1(E1SeriesLimit)
	assert.Equal(t, math.Exp(-E1SeriesLimit)/E1SeriesLimit, above)
	assert.Less(t, below, above)
	assert.InEpsilon(t, above, below, 0.22)

	// Decreasing on each branch
	for x := 0.01; x < 2.9; x += 0.1 {
		assert.Greater(t, E1(x), E1(x+0.1))
	}
}

func TestE1Kernel(t *testing.T) {
	assert.Equal(t, 0.0, e1Kernel(0))
	assert.InDelta(t, 1.0, e1Kernel(3), 1e-15)
	assert.InDelta(t, 1.0, e1Kernel(50), 1e-15)

	prev := 0.0
	for x := 0.001; x < 3; x *= 1.5 {
		k := e1Kernel(x)
		assert.Greater(t, k, prev)
		assert.Less(t, k, 1.0)
		prev = k
	}
}
