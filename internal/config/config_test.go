package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrency != 0 {
		t.Errorf("MaxConcurrency = %d, want 0", cfg.MaxConcurrency)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != ".dynrouting/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".dynrouting/logs")
	}
	if cfg.Analysis.EngagedThreshold != 10 {
		t.Errorf("EngagedThreshold = %d, want 10", cfg.Analysis.EngagedThreshold)
	}
	if cfg.Analysis.Variant != "auto" {
		t.Errorf("Variant = %q, want auto", cfg.Analysis.Variant)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.DBPath != ".dynrouting/history/history.db" {
		t.Errorf("History.DBPath = %q", cfg.History.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `max_concurrency: 4
log_level: debug
log_dir: /tmp/logs
analysis:
  engaged_threshold: 8
  variant: distractor
history:
  enabled: false
watch:
  pattern: "DynamicRouting1_*"
  debounce: 2s
export:
  format: csv
  pretty: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/logs", cfg.LogDir)
	assert.Equal(t, 8, cfg.Analysis.EngagedThreshold)
	assert.Equal(t, "distractor", cfg.Analysis.Variant)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, ".dynrouting/history/history.db", cfg.History.DBPath, "absent keys keep defaults")
	assert.Equal(t, "DynamicRouting1_*", cfg.Watch.Pattern)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, ".", cfg.Export.Dir)
	assert.True(t, cfg.Export.Pretty)
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "malformed yaml", content: "log_level: [info", wantErr: "failed to parse config file"},
		{name: "bad debounce", content: "watch:\n  debounce: soon\n", wantErr: "invalid watch.debounce format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, HomeDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, HomeDirName, ConfigFileName), []byte("log_level: warn\n"), 0644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

// TestPrecedence checks defaults < file < environment < flags.
func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, HomeDirName), 0755))
	content := "max_concurrency: 2\nlog_level: debug\nanalysis:\n  variant: distractor\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, HomeDirName, ConfigFileName), []byte(content), 0644))

	t.Setenv("DYNROUTING_LOG_LEVEL", "warn")
	t.Setenv("DYNROUTING_VARIANT", "cross_block")
	t.Setenv("DYNROUTING_WATCH_DEBOUNCE", "750ms")
	t.Setenv("DYNROUTING_HISTORY_ENABLED", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxConcurrency, "file beats default")
	assert.Equal(t, "warn", cfg.LogLevel, "env beats file")
	assert.Equal(t, "cross_block", cfg.Analysis.Variant)
	assert.Equal(t, 750*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.History.Enabled)

	level := "error"
	threshold := 5
	cfg.MergeWithFlags(FlagOverrides{LogLevel: &level, EngagedThreshold: &threshold})

	assert.Equal(t, "error", cfg.LogLevel, "flag beats env")
	assert.Equal(t, 5, cfg.Analysis.EngagedThreshold)
	assert.Equal(t, 2, cfg.MaxConcurrency, "unset flags keep earlier values")
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("DYNROUTING_MAX_CONCURRENCY", "many")
	cfg := DefaultConfig()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestMergeWithFlags_NoHistory(t *testing.T) {
	cfg := DefaultConfig()

	off := false
	cfg.MergeWithFlags(FlagOverrides{NoHistory: &off})
	assert.True(t, cfg.History.Enabled)

	on := true
	db := "/data/history.db"
	cfg.MergeWithFlags(FlagOverrides{NoHistory: &on, HistoryDB: &db})
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/data/history.db", cfg.History.DBPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.MaxConcurrency = -1 },
			wantErr: "max_concurrency must be >= 0, got -1",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: `invalid log_level "verbose", must be one of: trace, debug, info, warn, error`,
		},
		{
			name:    "zero engaged threshold",
			mutate:  func(c *Config) { c.Analysis.EngagedThreshold = 0 },
			wantErr: "analysis.engaged_threshold must be >= 1, got 0",
		},
		{
			name:    "unknown variant",
			mutate:  func(c *Config) { c.Analysis.Variant = "opto" },
			wantErr: `invalid analysis.variant "opto"`,
		},
		{
			name:    "history without path",
			mutate:  func(c *Config) { c.History.DBPath = "" },
			wantErr: "history.db_path cannot be empty when history is enabled",
		},
		{
			name:   "disabled history without path",
			mutate: func(c *Config) { c.History.Enabled = false; c.History.DBPath = "" },
		},
		{
			name:    "unknown export format",
			mutate:  func(c *Config) { c.Export.Format = "hdf5" },
			wantErr: `invalid export.format "hdf5", must be one of: json, csv, trials-csv`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetHome(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		t.Setenv(HomeEnvVar, "/srv/dynrouting")
		home, err := GetHome()
		require.NoError(t, err)
		assert.Equal(t, "/srv/dynrouting", home)
	})

	t.Run("ancestor with home dir", func(t *testing.T) {
		t.Setenv(HomeEnvVar, "")
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, HomeDirName), 0755))
		nested := filepath.Join(root, "sessions", "366122")
		require.NoError(t, os.MkdirAll(nested, 0755))
		t.Chdir(nested)

		home, err := GetHome()
		require.NoError(t, err)
		assert.Equal(t, resolved(t, filepath.Join(root, HomeDirName)), resolved(t, home))

		projectRoot, err := ProjectRoot()
		require.NoError(t, err)
		assert.Equal(t, resolved(t, root), resolved(t, projectRoot))
	})

	t.Run("created in working directory", func(t *testing.T) {
		t.Setenv(HomeEnvVar, "")
		dir := t.TempDir()
		t.Chdir(dir)

		home, err := GetHome()
		require.NoError(t, err)
		info, err := os.Stat(home)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestResolvePath(t *testing.T) {
	t.Setenv(HomeEnvVar, "/srv/state")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/history.db", "/abs/history.db"},
		{".dynrouting/history/history.db", "/srv/state/history/history.db"},
		{"exports", "/srv/exports"},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

// resolved evaluates symlinks so temp dirs compare equal on every platform.
func resolved(t *testing.T, path string) string {
	t.Helper()
	p, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return p
}
