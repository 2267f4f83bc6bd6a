package cats

import "log/slog"

// UnpackOption configures Unpack and Archive.Extract.
type UnpackOption func(*unpackConfig)

type unpackConfig struct {
	verbose  bool
	logger   *slog.Logger
	progress ProgressFunc
	workers  int
	maxDepth int
}

func newUnpackConfig(opts []UnpackOption) unpackConfig {
	cfg := unpackConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// UnpackWithVerbose logs every extracted entry at Info level.
// Without it these messages are logged at Debug.
func UnpackWithVerbose(v bool) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.verbose = v
	}
}

// UnpackWithLogger sets a logger for unpack operations.
// If not set, logging is disabled.
func UnpackWithLogger(logger *slog.Logger) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.logger = logger
	}
}

// UnpackWithProgress sets a callback that receives progress updates.
//
// Unpack reports StageDecodingHeader once the archive has been read, then
// StageExtracting after each file is written. With more than one worker the
// callback may be invoked concurrently.
func UnpackWithProgress(fn ProgressFunc) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.progress = fn
	}
}

// UnpackWithWorkers sets how many files are written concurrently.
// Values < 2 write files one at a time in archive order, which is the default.
// Directories are always created first, in archive order.
func UnpackWithWorkers(n int) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.workers = n
	}
}

// UnpackWithMaxDepth limits directory nesting in the archive header.
// Zero uses DefaultMaxDepth; negative disables the limit.
func UnpackWithMaxDepth(n int) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.maxDepth = n
	}
}

// log returns the configured logger or a discard logger if none is set.
func (cfg *unpackConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
