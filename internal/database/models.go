package database

import (
	"time"

	"github.com/chrissnell/stellaratm/internal/types"
)

// RunRecord is one solved model in the runs table
type RunRecord struct {
	ID         string    `gorm:"primaryKey;column:id"`
	Created    time.Time `gorm:"primaryKey;column:created;not null"`
	CreatedJD  float64   `gorm:"column:created_jd"`
	Teff       float64   `gorm:"column:teff;not null"`
	LogG       float64   `gorm:"column:logg;not null"`
	ZScale     float64   `gorm:"column:zscale;not null"`
	Regime     string    `gorm:"column:regime"`
	Iterations int       `gorm:"column:iterations"`
	Converged  bool      `gorm:"column:converged"`
	MaxRelDT   float64   `gorm:"column:max_rel_dt"`
	Boundary   int       `gorm:"column:boundary"`
}

// TableName specifies the table name for RunRecord
func (RunRecord) TableName() string {
	return "atmosphere_runs"
}

// LevelRecord is one depth point of a stored model
type LevelRecord struct {
	RunID string  `gorm:"primaryKey;column:run_id"`
	Idx   int     `gorm:"primaryKey;column:idx"`
	Tau   float64 `gorm:"column:tau"`
	Depth float64 `gorm:"column:depth"`
	Temp  float64 `gorm:"column:temp"`
	Pgas  float64 `gorm:"column:pgas"`
	Rho   float64 `gorm:"column:rho"`
	Kappa float64 `gorm:"column:kappa"`
	Mu    float64 `gorm:"column:mu"`
}

// TableName specifies the table name for LevelRecord
func (LevelRecord) TableName() string {
	return "atmosphere_levels"
}

// RunFromModel converts a model into its run row
func RunFromModel(m *types.Atmosphere) RunRecord {
	return RunRecord{
		ID:         m.ID,
		Created:    m.Created,
		CreatedJD:  m.CreatedJD,
		Teff:       m.Teff,
		LogG:       m.LogG,
		ZScale:     m.ZScale,
		Regime:     m.Regime,
		Iterations: m.Iterations,
		Converged:  m.Converged,
		MaxRelDT:   m.MaxRelDT,
		Boundary:   m.Boundary,
	}
}

// LevelsFromModel converts a model's level table into rows
func LevelsFromModel(m *types.Atmosphere) []LevelRecord {
	rows := make([]LevelRecord, len(m.Levels))
	for i, l := range m.Levels {
		rows[i] = LevelRecord{
			RunID: m.ID,
			Idx:   l.Index,
			Tau:   l.Tau,
			Depth: l.Depth,
			Temp:  l.Temp,
			Pgas:  l.Pgas,
			Rho:   l.Rho,
			Kappa: l.Kappa,
			Mu:    l.Mu,
		}
	}
	return rows
}

// Model converts a run row and its level rows back into a model
func (r RunRecord) Model(levels []LevelRecord) types.Atmosphere {
	m := types.Atmosphere{
		ID:         r.ID,
		Teff:       r.Teff,
		LogG:       r.LogG,
		ZScale:     r.ZScale,
		Regime:     r.Regime,
		Created:    r.Created.UTC(),
		CreatedJD:  r.CreatedJD,
		Iterations: r.Iterations,
		Converged:  r.Converged,
		MaxRelDT:   r.MaxRelDT,
		Boundary:   r.Boundary,
	}
	for _, l := range levels {
		m.Levels = append(m.Levels, types.Level{
			Index: l.Idx,
			Tau:   l.Tau,
			Depth: l.Depth,
			Temp:  l.Temp,
			Pgas:  l.Pgas,
			Rho:   l.Rho,
			Kappa: l.Kappa,
			Mu:    l.Mu,
		})
	}
	return m
}
