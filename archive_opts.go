package cats

// ReadOption configures Read, Open and Decode.
type ReadOption func(*readConfig)

type readConfig struct {
	maxDepth    int
	maxFileSize uint64
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ReadWithMaxDepth limits directory nesting in the header.
// Zero uses DefaultMaxDepth; negative disables the limit.
func ReadWithMaxDepth(n int) ReadOption {
	return func(cfg *readConfig) {
		cfg.maxDepth = n
	}
}

// ReadWithMaxFileSize limits the decompressed size of a single file.
// Set limit to 0 to disable the limit.
func ReadWithMaxFileSize(limit uint64) ReadOption {
	return func(cfg *readConfig) {
		cfg.maxFileSize = limit
	}
}
