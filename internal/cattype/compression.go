package cattype

// Compression identifies how a file's bytes are stored in the data region.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
)

// Wire values for Compression. Any other byte is invalid.
const (
	compressionByteGzip byte = 0xFE
	compressionByteNone byte = 0xFF
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// Byte returns the on-disk encoding of c.
func (c Compression) Byte() (byte, bool) {
	switch c {
	case CompressionNone:
		return compressionByteNone, true
	case CompressionGzip:
		return compressionByteGzip, true
	default:
		return 0, false
	}
}

// CompressionFromByte decodes an on-disk compression byte.
func CompressionFromByte(b byte) (Compression, bool) {
	switch b {
	case compressionByteNone:
		return CompressionNone, true
	case compressionByteGzip:
		return CompressionGzip, true
	default:
		return 0, false
	}
}
