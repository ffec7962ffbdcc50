package atmos

// Regime selects the multi-gray bin table for a model
type Regime int

const (
	// CoolRegime covers Teff below RegimeThresholdTeff: metal and H- continua
	CoolRegime Regime = iota
	// HotRegime covers Teff at or above RegimeThresholdTeff: hydrogen bound-free edges
	HotRegime
)

// RegimeThresholdTeff is the Teff (K) that switches between the two bin tables
const RegimeThresholdTeff = 6500.0

// MaxGrayBins bounds the number of wavelength bins in any table
const MaxGrayBins = 11

func (r Regime) String() string {
	switch r {
	case CoolRegime:
		return "cool"
	case HotRegime:
		return "hot"
	default:
		return "unknown"
	}
}

// SelectRegime picks the bin table regime for an effective temperature
func SelectRegime(teff float64) Regime {
	if teff < RegimeThresholdTeff {
		return CoolRegime
	}
	return HotRegime
}

// GrayBin is one wavelength band of the multi-gray approximation. Level is
// the band's extinction relative to the Rosseland mean and Epsilon its
// thermalization (true absorption) fraction.
type GrayBin struct {
	LambdaLo float64 // cm
	LambdaHi float64 // cm
	Level    float64
	Epsilon  float64
}

// GrayBinTable is an ordered set of contiguous bins, shortest wavelength first
type GrayBinTable []GrayBin

const nm = 1.0e-7 // cm

var (
	coolEdges   = []float64{30, 150, 200, 250, 300, 364.6, 500, 800, 1200, 1645, 2500, 100000}
	coolLevels  = []float64{10.0, 6.0, 4.0, 3.0, 2.0, 1.5, 1.0, 0.8, 0.6, 0.9, 2.0}
	coolEpsilon = []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.98, 0.99, 0.99, 0.99}

	hotEdges   = []float64{10, 91.2, 150, 250, 364.6, 500, 820.4, 1200, 1458.8, 2279, 5000, 100000}
	hotLevels  = []float64{100.0, 2.0, 1.6, 1.3, 0.7, 0.6, 1.0, 0.9, 1.2, 1.8, 3.0}
	hotEpsilon = []float64{0.5, 0.6, 0.6, 0.6, 0.5, 0.5, 0.55, 0.6, 0.65, 0.7, 0.8}
)

// GrayBins returns the bin table for a regime. The returned table is a
// fresh copy.
func GrayBins(r Regime) GrayBinTable {
	edges, levels, eps := coolEdges, coolLevels, coolEpsilon
	if r == HotRegime {
		edges, levels, eps = hotEdges, hotLevels, hotEpsilon
	}

	table := make(GrayBinTable, len(levels))
	for i := range levels {
		table[i] = GrayBin{
			LambdaLo: edges[i] * nm,
			LambdaHi: edges[i+1] * nm,
			Level:    levels[i],
			Epsilon:  eps[i],
		}
	}
	return table
}

// SingleGrayBin is the pure gray limit: one band spanning 10 nm to 1 mm with
// Rosseland-mean extinction and complete thermalization.
func SingleGrayBin() GrayBinTable {
	return GrayBinTable{{
		LambdaLo: 10 * nm,
		LambdaHi: 1.0e6 * nm,
		Level:    1.0,
		Epsilon:  1.0,
	}}
}
