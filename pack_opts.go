package cats

import (
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
)

// PackOption configures Build and Pack.
type PackOption func(*packConfig)

type packConfig struct {
	compression Compression
	verbose     bool
	logger      *slog.Logger
	progress    ProgressFunc
	maxDepth    int
	exclude     []string
}

func newPackConfig(opts []PackOption) packConfig {
	cfg := packConfig{compression: CompressionGzip}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxDepth == 0 {
		cfg.maxDepth = DefaultMaxDepth
	}
	return cfg
}

// PackWithCompression sets how new file contents are stored.
// The default is CompressionGzip at the strongest level.
func PackWithCompression(c Compression) PackOption {
	return func(cfg *packConfig) {
		cfg.compression = c
	}
}

// PackWithVerbose logs every visited directory and file at Info level.
// Without it these messages are logged at Debug.
func PackWithVerbose(v bool) PackOption {
	return func(cfg *packConfig) {
		cfg.verbose = v
	}
}

// PackWithLogger sets a logger for pack operations.
// If not set, logging is disabled.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}

// PackWithProgress sets a callback that receives progress updates.
//
// The callback receives StageWalking once per directory, StageStoring once
// per file and StageWritingArchive when Pack begins writing the target.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}

// PackWithMaxDepth limits directory nesting in the source tree.
// Zero uses DefaultMaxDepth; negative disables the limit.
func PackWithMaxDepth(n int) PackOption {
	return func(cfg *packConfig) {
		cfg.maxDepth = n
	}
}

// PackWithExclude skips source paths matching any of the given
// doublestar glob patterns, such as "**/*.tmp" or ".git". Patterns are
// matched against slash-separated paths relative to the source root.
// An excluded directory is skipped with everything below it.
func PackWithExclude(patterns ...string) PackOption {
	return func(cfg *packConfig) {
		cfg.exclude = append(cfg.exclude, patterns...)
	}
}

func (cfg *packConfig) excluded(p string) bool {
	for _, pat := range cfg.exclude {
		if matched, err := doublestar.Match(pat, p); err == nil && matched {
			return true
		}
	}
	return false
}

func (cfg *packConfig) level() slog.Level {
	if cfg.verbose {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// log returns the configured logger or a discard logger if none is set.
func (cfg *packConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
