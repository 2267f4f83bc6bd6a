package cattype

import "math"

// Magic is the four-byte signature at the start of every archive.
var Magic = [4]byte{'C', 'A', 'T', 'S'}

// Version is the only header version this package reads or writes.
const Version uint8 = 1

const (
	// MaxNameLen is the longest entry name the one-byte length prefix can carry.
	MaxNameLen = math.MaxUint8

	// MaxEntries is the most children a directory or header can list.
	MaxEntries = math.MaxUint16
)

// EntryType is the on-disk tag preceding each entry.
type EntryType uint8

const (
	EntryTypeFile      EntryType = 0
	EntryTypeDirectory EntryType = 1
)

// Entry is a node of the archived tree: either a File or a Directory.
type Entry interface {
	// EntryName returns the entry's own name (a single path segment).
	EntryName() string

	// Type returns the on-disk tag for the entry.
	Type() EntryType
}

// File references a range of the shared data region.
type File struct {
	Name string

	// Offset and Size index into the data region, not the whole archive.
	// For compressed entries they describe the compressed bytes.
	Offset uint32
	Size   uint32

	Compression Compression
}

// EntryName implements Entry.
func (f File) EntryName() string { return f.Name }

// Type implements Entry.
func (f File) Type() EntryType { return EntryTypeFile }

// End returns the exclusive end offset of the file's bytes.
func (f File) End() uint64 {
	return uint64(f.Offset) + uint64(f.Size)
}

// Directory holds child entries in walk order.
type Directory struct {
	Name    string
	Entries []Entry
}

// EntryName implements Entry.
func (d Directory) EntryName() string { return d.Name }

// Type implements Entry.
func (d Directory) Type() EntryType { return EntryTypeDirectory }

// Header is the decoded archive metadata. Entries are the children of the
// packed root directory; the root itself has no node.
type Header struct {
	Version uint8
	Entries []Entry
}

// InBounds reports whether the file's range lies within a data region of
// length n.
func (f File) InBounds(n int) bool {
	return n >= 0 && f.End() <= uint64(n)
}
