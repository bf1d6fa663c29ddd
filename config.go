package swissalloc

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/swissalloc/alloc"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "SWISSALLOC"

// LogFormat selects the handler built for a Runtime's logger.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatNone LogFormat = "none"
)

// Config describes the allocators a Runtime reserves.
type Config struct {
	// HeapSize is the heap pool size in bytes. 0 disables the heap.
	HeapSize uint64
	// ArenaSize is the arena buffer size in bytes. 0 disables the arena.
	ArenaSize uint64
	// MemoryLimit caps the sum of all reservations. 0 means unlimited.
	MemoryLimit uint64
	// MaxWorkers bounds concurrent bulk-load workers. 0 means GOMAXPROCS.
	MaxWorkers int
	// Backing selects where reservations live.
	Backing alloc.Backing

	LogLevel  slog.Level
	LogFormat LogFormat
}

// DefaultConfig returns a 64 MiB heap and a 16 MiB arena, both mmap-backed,
// logging warnings and above as text.
func DefaultConfig() Config {
	return Config{
		HeapSize:  64 << 20,
		ArenaSize: 16 << 20,
		Backing:   alloc.BackingMmap,
		LogLevel:  slog.LevelWarn,
		LogFormat: LogFormatText,
	}
}

// Validate checks that the sizes fit the platform and the configured limit.
func (c Config) Validate() error {
	if c.HeapSize == 0 && c.ArenaSize == 0 {
		return fmt.Errorf("%w: neither heap nor arena configured", ErrInvalidConfig)
	}
	for _, s := range []struct {
		name string
		v    uint64
	}{
		{"heap_size", c.HeapSize},
		{"arena_size", c.ArenaSize},
		{"memory_limit", c.MemoryLimit},
	} {
		if s.v > math.MaxInt {
			return fmt.Errorf("%w: %s %s too large", ErrInvalidConfig, s.name, humanize.IBytes(s.v))
		}
	}
	if c.MemoryLimit > 0 && c.HeapSize+c.ArenaSize > c.MemoryLimit {
		return fmt.Errorf("%w: heap %s + arena %s exceed memory limit %s", ErrInvalidConfig,
			humanize.IBytes(c.HeapSize), humanize.IBytes(c.ArenaSize), humanize.IBytes(c.MemoryLimit))
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("%w: max_workers %d", ErrInvalidConfig, c.MaxWorkers)
	}
	if c.Backing != alloc.BackingMmap && c.Backing != alloc.BackingGo {
		return fmt.Errorf("%w: backing %d", ErrInvalidConfig, c.Backing)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatNone:
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// fileConfig is the on-disk and environment shape of Config. Sizes are
// human-readable strings such as "64MiB" or "1GB".
type fileConfig struct {
	HeapSize    string `mapstructure:"heap_size"`
	ArenaSize   string `mapstructure:"arena_size"`
	MemoryLimit string `mapstructure:"memory_limit"`
	MaxWorkers  int    `mapstructure:"max_workers"`
	Backing     string `mapstructure:"backing"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// LoadConfig reads path (YAML, TOML or JSON, by extension) when it is not
// empty, then applies SWISSALLOC_* environment overrides on top of
// DefaultConfig. The result is validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg, err := fc.parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("heap_size", humanize.IBytes(d.HeapSize))
	v.SetDefault("arena_size", humanize.IBytes(d.ArenaSize))
	v.SetDefault("memory_limit", "0")
	v.SetDefault("max_workers", 0)
	v.SetDefault("backing", d.Backing.String())
	v.SetDefault("log_level", d.LogLevel.String())
	v.SetDefault("log_format", string(d.LogFormat))
}

func bindEnvVars(v *viper.Viper) {
	for _, key := range []string{
		"heap_size",
		"arena_size",
		"memory_limit",
		"max_workers",
		"backing",
		"log_level",
		"log_format",
	} {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key))
	}
}

func (fc fileConfig) parse() (Config, error) {
	var (
		cfg  Config
		errs []error
		err  error
	)

	if cfg.HeapSize, err = parseSize("heap_size", fc.HeapSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.ArenaSize, err = parseSize("arena_size", fc.ArenaSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.MemoryLimit, err = parseSize("memory_limit", fc.MemoryLimit); err != nil {
		errs = append(errs, err)
	}
	cfg.MaxWorkers = fc.MaxWorkers

	b, ok := alloc.ParseBacking(fc.Backing)
	if !ok {
		errs = append(errs, fmt.Errorf("%w: backing %q", ErrInvalidConfig, fc.Backing))
	}
	cfg.Backing = b

	if err := cfg.LogLevel.UnmarshalText([]byte(fc.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err))
	}
	cfg.LogFormat = LogFormat(strings.ToLower(fc.LogFormat))

	return cfg, errors.Join(errs...)
}

func parseSize(name, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	return n, nil
}
