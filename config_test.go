package swissalloc

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(64<<20), cfg.HeapSize)
	assert.Equal(t, uint64(16<<20), cfg.ArenaSize)
	assert.Equal(t, alloc.BackingMmap, cfg.Backing)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nothing configured", func(c *Config) { c.HeapSize, c.ArenaSize = 0, 0 }},
		{"over limit", func(c *Config) { c.MemoryLimit = 1 << 20 }},
		{"negative workers", func(c *Config) { c.MaxWorkers = -1 }},
		{"unknown backing", func(c *Config) { c.Backing = alloc.Backing(9) }},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }},
		{"huge heap", func(c *Config) { c.HeapSize = 1 << 63 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.ArenaSize = 0
	cfg.MemoryLimit = cfg.HeapSize
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swissalloc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
heap_size: 8MiB
arena_size: 1 MB
memory_limit: 16MiB
max_workers: 3
backing: go
log_level: debug
log_format: JSON
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		HeapSize:    8 << 20,
		ArenaSize:   1_000_000,
		MemoryLimit: 16 << 20,
		MaxWorkers:  3,
		Backing:     alloc.BackingGo,
		LogLevel:    slog.LevelDebug,
		LogFormat:   LogFormatJSON,
	}, cfg)
}

func TestLoadConfig_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swissalloc.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
heap_size = "8MiB"
backing = "go"
`), 0o600))

	t.Setenv("SWISSALLOC_HEAP_SIZE", "2MiB")
	t.Setenv("SWISSALLOC_ARENA_SIZE", "0")
	t.Setenv("SWISSALLOC_MAX_WORKERS", "5")
	t.Setenv("SWISSALLOC_LOG_FORMAT", "none")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(2<<20), cfg.HeapSize)
	assert.Equal(t, uint64(0), cfg.ArenaSize)
	assert.Equal(t, 5, cfg.MaxWorkers)
	assert.Equal(t, alloc.BackingGo, cfg.Backing)
	assert.Equal(t, LogFormatNone, cfg.LogFormat)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	tests := []struct {
		env, value string
	}{
		{"SWISSALLOC_HEAP_SIZE", "lots"},
		{"SWISSALLOC_BACKING", "tape"},
		{"SWISSALLOC_LOG_LEVEL", "loud"},
		{"SWISSALLOC_LOG_FORMAT", "xml"},
		{"SWISSALLOC_MEMORY_LIMIT", "1KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := LoadConfig("")
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
