package asyncresource

import "github.com/rs/zerolog"

type config struct {
	observer Observer
	logger   zerolog.Logger
}

func defaultConfig() config {
	return config{logger: zerolog.Nop()}
}

// Option configures a Cache at construction time.
type Option func(*config)

// WithObserver attaches an Observer that receives hit, miss, start,
// settlement, and deletion events for the lifetime of the cache.
func WithObserver(o Observer) Option {
	return func(cfg *config) {
		cfg.observer = o
	}
}

// WithLogger sets the logger for debug-level cache events. Entries
// are tagged with the source function's name. The default logger
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
