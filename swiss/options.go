package swiss

import (
	"log/slog"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/hash"
)

// HashAlgorithm selects the function used to hash raw key bytes.
type HashAlgorithm = hash.Algorithm

const (
	// HashXXH3 is the default 64-bit XXH3 hash.
	HashXXH3 = hash.XXH3
	// HashXXH64 is the classic xxHash64.
	HashXXH64 = hash.XXH64
)

type options struct {
	logger      *slog.Logger
	metrics     alloc.MetricsCollector
	algorithm   HashAlgorithm
	seed        uint64
	seeded      bool
	stopAtEmpty bool

	// Sharded only
	workers int
	limiter WorkerLimiter
}

// Option configures a Table or a Sharded table.
type Option func(*options)

// WithLogger sets the logger used for growth events and fatal violations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets the collector that receives growth events.
func WithMetricsCollector(m alloc.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHashAlgorithm selects the key hash. Defaults to HashXXH3.
func WithHashAlgorithm(a HashAlgorithm) Option {
	return func(o *options) {
		o.algorithm = a
	}
}

// WithSeed fixes the hash seed. Without it every table draws a random seed,
// so iteration order differs between tables holding the same keys.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithStopAtEmpty makes Find stop at the first probed group that still has
// an Empty slot. Insert always fills the first Empty slot on a key's probe
// sequence and nothing is ever deleted, so a key cannot live beyond such a
// group. Without this option Find walks the full probe budget.
func WithStopAtEmpty(enabled bool) Option {
	return func(o *options) {
		o.stopAtEmpty = enabled
	}
}

// WithWorkers bounds the goroutines Sharded.BulkSet runs at once.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithWorkerLimiter makes Sharded.BulkSet take a slot from a shared limiter
// for every shard it fills.
func WithWorkerLimiter(l WorkerLimiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}
