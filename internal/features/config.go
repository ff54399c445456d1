// Package features builds the flat observation table and the per-entity
// point-in-time aggregates computed on it.
package features

import (
	"github.com/yourusername/race-features/internal/config"
)

// TargetColumn is the binary label added by AddTarget
const TargetColumn = "target"

// DefaultRoles are the entity roles aggregated when none are configured
var DefaultRoles = []string{"horse", "jockey", "owner", "coach"}

// Bound is an inclusive-lower, exclusive-upper range
type Bound struct {
	Low  float64
	High float64
}

// Contains reports whether low <= v < high
func (b Bound) Contains(v float64) bool {
	return v >= b.Low && v < b.High
}

// JoinConfig describes the core left join
type JoinConfig struct {
	LeftTable  string
	RightTable string
	Key        string
	Suffixes   [2]string
}

// FilterConfig describes the observation filter
type FilterConfig struct {
	FlagColumn string
	Bounds     map[string]Bound
}

// Config holds everything the builder and aggregator need
type Config struct {
	Join       JoinConfig
	Filter     FilterConfig
	RankColumn string
	DateColumn string
	Roles      []string
	Window     int
	Workers    int
	Force      bool
}

// FromConfig converts application configuration to a feature Config
func FromConfig(cfg config.FeaturesConfig) Config {
	bounds := make(map[string]Bound, len(cfg.Bounds))
	for col, b := range cfg.Bounds {
		bounds[col] = Bound{Low: b.Low, High: b.High}
	}
	roles := cfg.Roles
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	window := cfg.LastNWindow
	if window <= 0 {
		window = 3
	}
	return Config{
		Join: JoinConfig{
			LeftTable:  cfg.LeftTable,
			RightTable: cfg.RightTable,
			Key:        cfg.JoinKey,
			Suffixes:   cfg.Suffixes(),
		},
		Filter: FilterConfig{
			FlagColumn: cfg.FlagColumn,
			Bounds:     bounds,
		},
		RankColumn: cfg.RankColumn,
		DateColumn: cfg.DateColumn,
		Roles:      roles,
		Window:     window,
		Workers:    cfg.Workers,
		Force:      cfg.ForceRecompute,
	}
}
