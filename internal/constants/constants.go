// Package constants defines application-wide constants, version information
// and the physical constants shared by every solver stage.
package constants

import (
	"math"
	"runtime"
)

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// Physical constants, CGS units
const (
	Boltzmann    = 1.380649e-16      // k_B, erg/K
	Planck       = 6.62607015e-27    // h, erg s
	SpeedOfLight = 2.99792458e10     // c, cm/s
	StefanBoltz  = 5.670374419e-5    // sigma, erg/cm^2/s/K^4
	AMU          = 1.66053906660e-24 // atomic mass unit, g
	ElectronVolt = 1.602176634e-12   // eV, erg
	Gravitation  = 6.67430e-8        // G, cm^3/g/s^2
)

// Solar reference values used to rescale empirical parameters
const (
	TeffSun = 5778.0 // K
	LogGSun = 4.44   // log10(cm/s^2)
)

// Natural logs of the constants above. Formulas that work in log space
// consume these directly.
var (
	LnBoltzmann    = math.Log(Boltzmann)
	LnPlanck       = math.Log(Planck)
	LnSpeedOfLight = math.Log(SpeedOfLight)
	LnStefanBoltz  = math.Log(StefanBoltz)
	LnAMU          = math.Log(AMU)
)
