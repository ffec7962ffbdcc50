// Package config loads the run configuration: stellar parameters, grid and
// iteration settings, storage backends and controllers.
package config

import (
	"errors"
	"fmt"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Star        StarData         `json:"star" yaml:"star"`
	Grid        GridData         `json:"grid" yaml:"grid"`
	Iteration   IterationData    `json:"iteration" yaml:"iteration"`
	Storage     StorageData      `json:"storage,omitempty" yaml:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty" yaml:"controllers,omitempty"`
}

// StarData holds the global stellar parameters of the default run
type StarData struct {
	Teff   float64 `json:"teff" yaml:"teff"`
	LogG   float64 `json:"logg" yaml:"logg"`
	ZScale float64 `json:"zscale" yaml:"zscale"`
}

// GridData holds the optical depth grid settings
type GridData struct {
	Depths      int     `json:"depths" yaml:"depths"`
	Log10TauMin float64 `json:"log10_tau_min" yaml:"log10_tau_min"`
	Log10TauMax float64 `json:"log10_tau_max" yaml:"log10_tau_max"`
}

// IterationData holds the outer iteration settings
type IterationData struct {
	MaxIterations  int     `json:"max_iterations" yaml:"max_iterations"`
	Tolerance      float64 `json:"tolerance" yaml:"tolerance"`
	CheckpointPath string  `json:"checkpoint_path,omitempty" yaml:"checkpoint_path,omitempty"`
	Resume         bool    `json:"resume,omitempty" yaml:"resume,omitempty"`
}

// StorageData holds the configuration for the model storage backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty" yaml:"timescaledb,omitempty"`
}

// SQLiteData configures the SQLite model store
type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

// TimescaleDBData configures the TimescaleDB/PostgreSQL model store
type TimescaleDBData struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty" yaml:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty" yaml:"rest,omitempty"`
}

// RESTServerData configures the REST API server
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	HTTPPort   int    `json:"http_port,omitempty" yaml:"http_port,omitempty"`
}

// Defaults for settings left empty in the configuration
const (
	DefaultTeff          = 5777.0
	DefaultLogG          = 4.44
	DefaultZScale        = 1.0
	DefaultDepths        = 64
	DefaultLog10TauMin   = -6.0
	DefaultLog10TauMax   = 2.0
	DefaultMaxIterations = 12
	DefaultTolerance     = 1.0e-3
	DefaultHTTPPort      = 8080
)

// ErrUnknownController is returned for a controller type that does not exist
var ErrUnknownController = errors.New("config: unknown controller type")

// ApplyDefaults fills unset fields with their default values
func (c *ConfigData) ApplyDefaults() {
	if c.Star.Teff == 0 {
		c.Star.Teff = DefaultTeff
	}
	if c.Star.LogG == 0 {
		c.Star.LogG = DefaultLogG
	}
	if c.Star.ZScale == 0 {
		c.Star.ZScale = DefaultZScale
	}
	if c.Grid.Depths == 0 {
		c.Grid.Depths = DefaultDepths
	}
	if c.Grid.Log10TauMin == 0 && c.Grid.Log10TauMax == 0 {
		c.Grid.Log10TauMin = DefaultLog10TauMin
		c.Grid.Log10TauMax = DefaultLog10TauMax
	}
	if c.Iteration.MaxIterations == 0 {
		c.Iteration.MaxIterations = DefaultMaxIterations
	}
	if c.Iteration.Tolerance == 0 {
		c.Iteration.Tolerance = DefaultTolerance
	}
	for i := range c.Controllers {
		if c.Controllers[i].Type == "rest" {
			if c.Controllers[i].RESTServer == nil {
				c.Controllers[i].RESTServer = &RESTServerData{}
			}
			if c.Controllers[i].RESTServer.HTTPPort == 0 {
				c.Controllers[i].RESTServer.HTTPPort = DefaultHTTPPort
			}
		}
	}
}

// Validate checks the configuration for values the solver cannot run with
func (c *ConfigData) Validate() error {
	if c.Star.Teff <= 0 || c.Star.LogG <= 0 || c.Star.ZScale <= 0 {
		return fmt.Errorf("star: teff, logg and zscale must be positive (got %g, %g, %g)",
			c.Star.Teff, c.Star.LogG, c.Star.ZScale)
	}
	if c.Grid.Depths < 3 {
		return fmt.Errorf("grid: depths must be at least 3, got %d", c.Grid.Depths)
	}
	if c.Grid.Log10TauMax <= c.Grid.Log10TauMin {
		return fmt.Errorf("grid: log10_tau_max (%g) must exceed log10_tau_min (%g)",
			c.Grid.Log10TauMax, c.Grid.Log10TauMin)
	}
	if c.Iteration.MaxIterations < 1 {
		return fmt.Errorf("iteration: max_iterations must be at least 1, got %d", c.Iteration.MaxIterations)
	}
	if c.Iteration.Tolerance <= 0 {
		return fmt.Errorf("iteration: tolerance must be positive, got %g", c.Iteration.Tolerance)
	}
	if c.Iteration.Resume && c.Iteration.CheckpointPath == "" {
		return fmt.Errorf("iteration: resume requires checkpoint_path")
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage: sqlite path is empty")
	}
	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("storage: timescaledb connection_string is empty")
	}
	for _, ctl := range c.Controllers {
		switch ctl.Type {
		case "rest":
			if ctl.RESTServer == nil || ctl.RESTServer.HTTPPort <= 0 || ctl.RESTServer.HTTPPort > 65535 {
				return fmt.Errorf("controllers: rest http_port out of range")
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownController, ctl.Type)
		}
	}
	return nil
}
