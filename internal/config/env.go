package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverrides holds DYNROUTING_* values. Unset variables leave nil pointers.
type envOverrides struct {
	MaxConcurrency   *int           `env:"DYNROUTING_MAX_CONCURRENCY"`
	LogLevel         *string        `env:"DYNROUTING_LOG_LEVEL"`
	LogDir           *string        `env:"DYNROUTING_LOG_DIR"`
	EngagedThreshold *int           `env:"DYNROUTING_ENGAGED_THRESHOLD"`
	Variant          *string        `env:"DYNROUTING_VARIANT"`
	HistoryEnabled   *bool          `env:"DYNROUTING_HISTORY_ENABLED"`
	HistoryDB        *string        `env:"DYNROUTING_HISTORY_DB"`
	WatchPattern     *string        `env:"DYNROUTING_WATCH_PATTERN"`
	WatchDebounce    *time.Duration `env:"DYNROUTING_WATCH_DEBOUNCE"`
	ExportFormat     *string        `env:"DYNROUTING_EXPORT_FORMAT"`
	ExportDir        *string        `env:"DYNROUTING_EXPORT_DIR"`
}

// ApplyEnv overrides configuration values from the environment.
func (c *Config) ApplyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setInt(&c.MaxConcurrency, e.MaxConcurrency)
	setString(&c.LogLevel, e.LogLevel)
	setString(&c.LogDir, e.LogDir)
	setInt(&c.Analysis.EngagedThreshold, e.EngagedThreshold)
	setString(&c.Analysis.Variant, e.Variant)
	setBool(&c.History.Enabled, e.HistoryEnabled)
	setString(&c.History.DBPath, e.HistoryDB)
	setString(&c.Watch.Pattern, e.WatchPattern)
	if e.WatchDebounce != nil {
		c.Watch.Debounce = *e.WatchDebounce
	}
	setString(&c.Export.Format, e.ExportFormat)
	setString(&c.Export.Dir, e.ExportDir)
	return nil
}
