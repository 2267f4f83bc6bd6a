package cats

import (
	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/codec"
)

// Re-export types from internal/cattype for public API.
type (
	// Entry is a node of the archived tree: either a File or a Directory.
	Entry = cattype.Entry

	// File references a range of the data region.
	File = cattype.File

	// Directory holds child entries in walk order.
	Directory = cattype.Directory

	// Header is the decoded archive metadata.
	Header = cattype.Header

	// EntryType is the on-disk tag preceding each entry.
	EntryType = cattype.EntryType

	// Compression identifies how a file's bytes are stored.
	Compression = cattype.Compression
)

// Re-export compression constants.
const (
	CompressionNone = cattype.CompressionNone
	CompressionGzip = cattype.CompressionGzip
)

// Re-export entry type constants.
const (
	EntryTypeFile      = cattype.EntryTypeFile
	EntryTypeDirectory = cattype.EntryTypeDirectory
)

// Magic is the four-byte signature at the start of every archive.
var Magic = cattype.Magic

const (
	// Version is the only archive version this package reads or writes.
	Version = cattype.Version

	// MaxNameLen is the longest entry name an archive can store.
	MaxNameLen = cattype.MaxNameLen

	// MaxEntries is the most children a directory can have.
	MaxEntries = cattype.MaxEntries

	// DefaultMaxDepth is the default limit on directory nesting.
	DefaultMaxDepth = codec.DefaultMaxDepth
)
