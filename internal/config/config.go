package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/harrison/dynrouting/internal/classify"
)

// AnalysisConfig tunes trial classification.
type AnalysisConfig struct {
	// EngagedThreshold is the rolling window of go trials used to detect disengagement
	EngagedThreshold int `yaml:"engaged_threshold" validate:"gte=1"`

	// Variant overrides the task-version rule for other-modal go trials
	Variant string `yaml:"variant" validate:"oneof=auto distractor cross_block"`
}

// HistoryConfig configures the training history database.
type HistoryConfig struct {
	// Enabled records every analyzed session
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database file
	DBPath string `yaml:"db_path" validate:"required_if=Enabled true"`
}

// WatchConfig configures the export directory watcher.
type WatchConfig struct {
	// Pattern is a glob on session file names
	Pattern string `yaml:"pattern"`

	// Debounce is how long a file must stay quiet before it is analyzed
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// ExportConfig sets export defaults.
type ExportConfig struct {
	Format string `yaml:"format" validate:"oneof=json csv trials-csv"`
	Dir    string `yaml:"dir"`
	Pretty bool   `yaml:"pretty"`
}

// Config represents dynrouting configuration options
type Config struct {
	// MaxConcurrency is the number of session files analyzed at once (0 = one per CPU)
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=0"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	Analysis AnalysisConfig `yaml:"analysis"`
	History  HistoryConfig  `yaml:"history"`
	Watch    WatchConfig    `yaml:"watch"`
	Export   ExportConfig   `yaml:"export"`
}

// DefaultWatchPattern matches the behavior rig's session file names.
const DefaultWatchPattern = "DynamicRouting*"

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency: 0,
		LogLevel:       "info",
		LogDir:         filepath.Join(HomeDirName, "logs"),
		Analysis: AnalysisConfig{
			EngagedThreshold: classify.DefaultEngagedThreshold,
			Variant:          string(classify.VariantAuto),
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(HomeDirName, "history", HistoryDBName),
		},
		Watch: WatchConfig{
			Pattern:  DefaultWatchPattern,
			Debounce: 500 * time.Millisecond,
		},
		Export: ExportConfig{
			Format: "json",
			Dir:    ".",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from zero values so only keys present in
	// the file override defaults.
	type yamlConfig struct {
		MaxConcurrency *int    `yaml:"max_concurrency"`
		LogLevel       *string `yaml:"log_level"`
		LogDir         *string `yaml:"log_dir"`
		Analysis       struct {
			EngagedThreshold *int    `yaml:"engaged_threshold"`
			Variant          *string `yaml:"variant"`
		} `yaml:"analysis"`
		History struct {
			Enabled *bool   `yaml:"enabled"`
			DBPath  *string `yaml:"db_path"`
		} `yaml:"history"`
		Watch struct {
			Pattern  *string `yaml:"pattern"`
			Debounce *string `yaml:"debounce"`
		} `yaml:"watch"`
		Export struct {
			Format *string `yaml:"format"`
			Dir    *string `yaml:"dir"`
			Pretty *bool   `yaml:"pretty"`
		} `yaml:"export"`
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setInt(&cfg.MaxConcurrency, y.MaxConcurrency)
	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.LogDir, y.LogDir)
	setInt(&cfg.Analysis.EngagedThreshold, y.Analysis.EngagedThreshold)
	setString(&cfg.Analysis.Variant, y.Analysis.Variant)
	setBool(&cfg.History.Enabled, y.History.Enabled)
	setString(&cfg.History.DBPath, y.History.DBPath)
	setString(&cfg.Watch.Pattern, y.Watch.Pattern)
	if y.Watch.Debounce != nil {
		d, err := time.ParseDuration(*y.Watch.Debounce)
		if err != nil {
			return nil, fmt.Errorf("invalid watch.debounce format %q: %w", *y.Watch.Debounce, err)
		}
		cfg.Watch.Debounce = d
	}
	setString(&cfg.Export.Format, y.Export.Format)
	setString(&cfg.Export.Dir, y.Export.Dir)
	setBool(&cfg.Export.Pretty, y.Export.Pretty)

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .dynrouting/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, HomeDirName, ConfigFileName))
}

// Load reads the config file in dir and applies DYNROUTING_* environment
// overrides on top of it.
func Load(dir string) (*Config, error) {
	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FlagOverrides carries CLI flag values. Nil fields were not set on the command line.
type FlagOverrides struct {
	MaxConcurrency   *int
	LogLevel         *string
	LogDir           *string
	EngagedThreshold *int
	Variant          *string
	HistoryDB        *string
	NoHistory        *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file and environment settings
func (c *Config) MergeWithFlags(f FlagOverrides) {
	setInt(&c.MaxConcurrency, f.MaxConcurrency)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogDir, f.LogDir)
	setInt(&c.Analysis.EngagedThreshold, f.EngagedThreshold)
	setString(&c.Analysis.Variant, f.Variant)
	setString(&c.History.DBPath, f.HistoryDB)
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
}

// Validate validates the configuration values
// Returns an error naming the first invalid key
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	fe := verrs[0]
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("invalid %s %q, must be one of: %s", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Errorf("%s must be >= %s, got %v", key, fe.Param(), fe.Value())
	case "required_if":
		return fmt.Errorf("%s cannot be empty when history is enabled", key)
	default:
		return fmt.Errorf("invalid %s: failed %q check", key, fe.Tag())
	}
}

// AnalysisVariant returns the configured variant as a classify.Variant.
func (c *Config) AnalysisVariant() classify.Variant {
	return classify.Variant(c.Analysis.Variant)
}

// configKey turns "Config.analysis.variant" into "analysis.variant".
func configKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
