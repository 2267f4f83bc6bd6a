// Package codec encodes and decodes the archive header.
//
// Layout of a header:
//
//	version      u8
//	entry_count  u16 BE
//	entries      entry_count × entry
//
// and of an entry:
//
//	type  u8        0 = file, 1 = directory
//	name  u8 len || bytes
//	file:      offset u32 BE, size u32 BE, compression u8 (0xFE gzip, 0xFF none)
//	directory: child_count u16 BE, child_count × entry
//
// Every field is read or written under its own path context, so a failure
// names the entry and field it happened in.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/meigma/cats/internal/binio"
	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/pathctx"
)

// DefaultMaxDepth is the default limit on directory nesting when decoding.
const DefaultMaxDepth = 1024

// Context labels pushed for each field.
const (
	labelVersion       = "version"
	labelEntriesLength = "entries length"
	labelEntryType     = "entry type"
	labelFileName      = "file name"
	labelDirectoryName = "directory name"
	labelFileOffset    = "file offset"
	labelFileSize      = "file size"
	labelEntryCount    = "entry count"
	labelCompression   = "compression"
)

var (
	// ErrTooManyEntries is returned when a directory has more children than a u16 can count.
	ErrTooManyEntries = errors.New("cats: more than 65535 entries")

	// ErrTooDeep is returned when directories nest beyond the decoder's depth limit.
	ErrTooDeep = errors.New("cats: directory nesting too deep")
)

// EncodeHeader writes h to w.
func EncodeHeader(w io.Writer, h *cattype.Header, ctx *pathctx.Context) error {
	if err := binio.WriteU8(w, h.Version); err != nil {
		return cattype.WrapContext(err, ctx.Push(labelVersion), cattype.KindErrorWritingMetadata)
	}
	if err := writeCount(w, len(h.Entries), ctx.Push(labelEntriesLength)); err != nil {
		return err
	}
	for i, e := range h.Entries {
		if err := EncodeEntry(w, e, ctx.Push(strconv.Itoa(i))); err != nil {
			return err
		}
	}
	return nil
}

// EncodeEntry writes e, and for directories all of its descendants, to w.
func EncodeEntry(w io.Writer, e cattype.Entry, ctx *pathctx.Context) error {
	switch e := e.(type) {
	case cattype.File:
		return encodeFile(w, &e, ctx)
	case *cattype.File:
		return encodeFile(w, e, ctx)
	case cattype.Directory:
		return encodeDirectory(w, &e, ctx)
	case *cattype.Directory:
		return encodeDirectory(w, e, ctx)
	default:
		return cattype.WithContext(cattype.KindErrorWritingMetadata, ctx.Push(labelEntryType),
			fmt.Errorf("unsupported entry %T", e))
	}
}

func encodeFile(w io.Writer, f *cattype.File, ctx *pathctx.Context) error {
	if err := binio.WriteU8(w, uint8(cattype.EntryTypeFile)); err != nil {
		return cattype.WrapContext(err, ctx.Push(labelEntryType), cattype.KindErrorWritingMetadata)
	}
	if err := writeName(w, f.Name, ctx.Push(labelFileName)); err != nil {
		return err
	}
	if err := binio.WriteU32(w, f.Offset); err != nil {
		return cattype.WrapContext(err, ctx.Push(labelFileOffset), cattype.KindErrorWritingMetadata)
	}
	if err := binio.WriteU32(w, f.Size); err != nil {
		return cattype.WrapContext(err, ctx.Push(labelFileSize), cattype.KindErrorWritingMetadata)
	}
	return encodeCompression(w, f.Compression, ctx.Push(f.Name).Push(labelCompression))
}

func encodeDirectory(w io.Writer, d *cattype.Directory, ctx *pathctx.Context) error {
	if err := binio.WriteU8(w, uint8(cattype.EntryTypeDirectory)); err != nil {
		return cattype.WrapContext(err, ctx.Push(labelEntryType), cattype.KindErrorWritingMetadata)
	}
	if err := writeName(w, d.Name, ctx.Push(labelDirectoryName)); err != nil {
		return err
	}
	if err := writeCount(w, len(d.Entries), ctx.Push(labelEntryCount)); err != nil {
		return err
	}
	child := ctx.Push(d.Name)
	for _, e := range d.Entries {
		if err := EncodeEntry(w, e, child); err != nil {
			return err
		}
	}
	return nil
}

func encodeCompression(w io.Writer, c cattype.Compression, ctx *pathctx.Context) error {
	b, ok := c.Byte()
	if !ok {
		return cattype.WithContext(cattype.KindErrorWritingMetadata, ctx, fmt.Errorf("unknown compression %d", c))
	}
	return cattype.WrapContext(binio.WriteU8(w, b), ctx, cattype.KindErrorWritingMetadata)
}

// writeName rejects names the length prefix cannot describe instead of truncating them.
func writeName(w io.Writer, name string, ctx *pathctx.Context) error {
	if len(name) > cattype.MaxNameLen {
		return cattype.WithContext(cattype.KindInvalidEntryName, ctx, binio.ErrStringTooLong)
	}
	return cattype.WrapContext(binio.WriteString(w, name), ctx, cattype.KindErrorWritingMetadata)
}

func writeCount(w io.Writer, n int, ctx *pathctx.Context) error {
	if n > cattype.MaxEntries {
		return cattype.WithContext(cattype.KindErrorWritingMetadata, ctx, ErrTooManyEntries)
	}
	return cattype.WrapContext(binio.WriteU16(w, uint16(n)), ctx, cattype.KindErrorWritingMetadata) //nolint:gosec // bounded above
}

// Decoder reads headers with a limit on directory nesting.
type Decoder struct {
	maxDepth int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxDepth limits directory nesting. Zero uses DefaultMaxDepth;
// negative disables the limit.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		d.maxDepth = n
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxDepth == 0 {
		d.maxDepth = DefaultMaxDepth
	}
	return d
}

// DecodeHeader reads a header with the default decoder.
func DecodeHeader(r io.Reader, ctx *pathctx.Context) (*cattype.Header, error) {
	return NewDecoder().DecodeHeader(r, ctx)
}

// DecodeEntry reads a single entry with the default decoder.
func DecodeEntry(r io.Reader, ctx *pathctx.Context) (cattype.Entry, error) {
	return NewDecoder().DecodeEntry(r, ctx)
}

// DecodeHeader reads a header from r. A version other than cattype.Version
// fails before any entry is read.
func (d *Decoder) DecodeHeader(r io.Reader, ctx *pathctx.Context) (*cattype.Header, error) {
	version, err := binio.ReadU8(r)
	if err != nil {
		return nil, cattype.WrapContext(err, ctx.Push(labelVersion), cattype.KindErrorReadingMetadata)
	}
	if version != cattype.Version {
		return nil, &cattype.Error{Kind: cattype.KindUnknownVersion, Context: ctx.Push(labelVersion), Byte: version}
	}
	count, err := binio.ReadU16(r)
	if err != nil {
		return nil, cattype.WrapContext(err, ctx.Push(labelEntriesLength), cattype.KindErrorReadingMetadata)
	}
	entries := make([]cattype.Entry, 0, count)
	for i := range int(count) {
		e, err := d.decodeEntry(r, ctx.Push(strconv.Itoa(i)), 0)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return &cattype.Header{Version: version, Entries: entries}, nil
}

// DecodeEntry reads one entry, and for directories all of its descendants.
func (d *Decoder) DecodeEntry(r io.Reader, ctx *pathctx.Context) (cattype.Entry, error) {
	return d.decodeEntry(r, ctx, 0)
}

func (d *Decoder) decodeEntry(r io.Reader, ctx *pathctx.Context, depth int) (cattype.Entry, error) {
	tag, err := binio.ReadU8(r)
	if err != nil {
		return nil, cattype.WrapContext(err, ctx.Push(labelEntryType), cattype.KindErrorReadingMetadata)
	}
	switch cattype.EntryType(tag) {
	case cattype.EntryTypeFile:
		f, err := decodeFile(r, ctx)
		if err != nil {
			return nil, err
		}
		return f, nil
	case cattype.EntryTypeDirectory:
		dir, err := d.decodeDirectory(r, ctx, depth)
		if err != nil {
			return nil, err
		}
		return dir, nil
	default:
		return nil, cattype.InvalidEntryType(ctx.Push(labelEntryType), tag)
	}
}

func decodeFile(r io.Reader, ctx *pathctx.Context) (cattype.File, error) {
	name, err := binio.ReadString(r)
	if err != nil {
		return cattype.File{}, cattype.WrapContext(err, ctx.Push(labelFileName), cattype.KindErrorReadingMetadata)
	}
	offset, err := binio.ReadU32(r)
	if err != nil {
		return cattype.File{}, cattype.WrapContext(err, ctx.Push(labelFileOffset), cattype.KindErrorReadingMetadata)
	}
	size, err := binio.ReadU32(r)
	if err != nil {
		return cattype.File{}, cattype.WrapContext(err, ctx.Push(labelFileSize), cattype.KindErrorReadingMetadata)
	}
	compression, err := decodeCompression(r, ctx.Push(name).Push(labelCompression))
	if err != nil {
		return cattype.File{}, err
	}
	return cattype.File{Name: name, Offset: offset, Size: size, Compression: compression}, nil
}

func (d *Decoder) decodeDirectory(r io.Reader, ctx *pathctx.Context, depth int) (cattype.Directory, error) {
	name, err := binio.ReadString(r)
	if err != nil {
		return cattype.Directory{}, cattype.WrapContext(err, ctx.Push(labelDirectoryName), cattype.KindErrorReadingMetadata)
	}
	if d.maxDepth > 0 && depth >= d.maxDepth {
		return cattype.Directory{}, cattype.WithContext(cattype.KindInvalidMetadata, ctx.Push(name), ErrTooDeep)
	}
	count, err := binio.ReadU16(r)
	if err != nil {
		return cattype.Directory{}, cattype.WrapContext(err, ctx.Push(labelEntryCount), cattype.KindErrorReadingMetadata)
	}
	child := ctx.Push(name)
	entries := make([]cattype.Entry, 0, count)
	for range int(count) {
		e, err := d.decodeEntry(r, child, depth+1)
		if err != nil {
			return cattype.Directory{}, err
		}
		entries = append(entries, e)
	}
	return cattype.Directory{Name: name, Entries: entries}, nil
}

func decodeCompression(r io.Reader, ctx *pathctx.Context) (cattype.Compression, error) {
	b, err := binio.ReadU8(r)
	if err != nil {
		return 0, cattype.WrapContext(err, ctx, cattype.KindErrorReadingMetadata)
	}
	c, ok := cattype.CompressionFromByte(b)
	if !ok {
		return 0, cattype.WithContext(cattype.KindInvalidEntryData, ctx, fmt.Errorf("unknown compression byte %#x", b))
	}
	return c, nil
}
