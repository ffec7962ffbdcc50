package atmos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRegime(t *testing.T) {
	assert.Equal(t, CoolRegime, SelectRegime(3500))
	assert.Equal(t, CoolRegime, SelectRegime(5777))
	assert.Equal(t, HotRegime, SelectRegime(RegimeThresholdTeff))
	assert.Equal(t, HotRegime, SelectRegime(20000))

	assert.Equal(t, "cool", CoolRegime.String())
	assert.Equal(t, "hot", HotRegime.String())
	assert.Equal(t, "unknown", Regime(7).String())
}

func TestGrayBinTables(t *testing.T) {
	for _, r := range []Regime{CoolRegime, HotRegime} {
		t.Run(r.String(), func(t *testing.T) {
			bins := GrayBins(r)
			require.NotEmpty(t, bins)
			assert.LessOrEqual(t, len(bins), MaxGrayBins)

			for i, b := range bins {
				assert.Greater(t, b.LambdaHi, b.LambdaLo, "bin %d", i)
				assert.Greater(t, b.Level, 0.0, "bin %d", i)
				assert.Greater(t, b.Epsilon, 0.0, "bin %d", i)
				assert.LessOrEqual(t, b.Epsilon, 1.0, "bin %d", i)
				if i > 0 {
					assert.Equal(t, bins[i-1].LambdaHi, b.LambdaLo, "bins %d and %d not contiguous", i-1, i)
				}
			}
		})
	}
}

func TestGrayBinsReturnsCopy(t *testing.T) {
	a := GrayBins(CoolRegime)
	a[0].Level = -1
	b := GrayBins(CoolRegime)
	assert.Greater(t, b[0].Level, 0.0)
}
