package swissalloc

import "log/slog"

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector that both allocators
// report to. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &swissalloc.BasicMetricsCollector{}
//	rt, _ := swissalloc.Open(cfg, swissalloc.WithMetricsCollector(metrics))
//	// ... use rt ...
//	stats := metrics.GetStats()
//	fmt.Printf("Heap allocs: %d, in use: %d bytes\n", stats.HeapAllocs, stats.HeapBytesInUse)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger overrides the logger built from Config.LogLevel and
// Config.LogFormat.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(cfg Config, optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = loggerFor(cfg)
	}
	return o
}

func loggerFor(cfg Config) *Logger {
	switch cfg.LogFormat {
	case LogFormatJSON:
		return NewJSONLogger(cfg.LogLevel)
	case LogFormatNone:
		return NoopLogger()
	default:
		return NewTextLogger(cfg.LogLevel)
	}
}
