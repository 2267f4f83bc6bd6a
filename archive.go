package cats

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/codec"
	"github.com/meigma/cats/internal/compress"
	"github.com/meigma/cats/internal/extract"
	"github.com/meigma/cats/internal/names"
	"github.com/meigma/cats/internal/pathctx"
	"github.com/meigma/cats/internal/sizing"
)

// Context roots used when rendering read and unpack errors.
const (
	headerRoot = "header"
	unpackRoot = "unpacking"
)

// streamName stands in for a file name when reading from an io.Reader.
const streamName = "-"

const (
	dirMode  fs.FileMode = fs.ModeDir | 0o755
	fileMode fs.FileMode = 0o644
)

// Archive is a decoded archive held in memory.
//
// Archive implements fs.FS, fs.ReadFileFS, fs.ReadDirFS and fs.StatFS.
// Directory listings are sorted by name. Entries whose names would not be
// valid on unpack are not reachable by path, and where a directory holds two
// entries with the same name only the first is reachable.
//
// An Archive is safe for concurrent use.
type Archive struct {
	header *Header
	data   []byte
	pool   *compress.Pool

	maxFileSize uint64

	root      *node
	readGroup singleflight.Group
}

// Decode reads an archive from r and returns its header and data region.
func Decode(r io.Reader, opts ...ReadOption) (*Header, []byte, error) {
	cfg := newReadConfig(opts)
	return decode(r, streamName, &cfg)
}

// Read decodes an archive from r.
func Read(r io.Reader, opts ...ReadOption) (*Archive, error) {
	cfg := newReadConfig(opts)
	return read(r, streamName, &cfg)
}

// Open reads the archive file at name.
func Open(name string, opts ...ReadOption) (*Archive, error) {
	cfg := newReadConfig(opts)
	f, err := os.Open(name) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, cattype.WithPath(cattype.KindFailedToOpenInput, name, err)
	}
	defer f.Close()
	return read(f, name, &cfg)
}

func read(r io.Reader, name string, cfg *readConfig) (*Archive, error) {
	header, data, err := decode(r, name, cfg)
	if err != nil {
		return nil, err
	}
	a := &Archive{
		header:      header,
		data:        data,
		pool:        compress.NewPool(0),
		maxFileSize: cfg.maxFileSize,
	}
	a.root = a.index()
	return a, nil
}

// decode reads the magic, the header and the data region. name is used
// for I/O errors.
func decode(r io.Reader, name string, cfg *readConfig) (*Header, []byte, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, cattype.WithPath(cattype.KindInvalidFileType, name, nil)
		}
		return nil, nil, cattype.WithPath(cattype.KindErrorReadingFile, name, err)
	}
	if magic != Magic {
		return nil, nil, cattype.WithPath(cattype.KindInvalidFileType, name, nil)
	}

	dec := codec.NewDecoder(codec.WithMaxDepth(cfg.maxDepth))
	header, err := dec.DecodeHeader(br, pathctx.New(headerRoot))
	if err != nil {
		return nil, nil, err
	}

	data, err := sizing.ReadAllWithLimit(br, 0)
	if err != nil {
		return nil, nil, cattype.WithPath(cattype.KindErrorReadingFile, name, err)
	}
	return header, data, nil
}

// Header returns the decoded header. It must not be modified.
func (a *Archive) Header() *Header {
	return a.header
}

// DataSize returns the size of the data region in bytes.
func (a *Archive) DataSize() int {
	return len(a.data)
}

// Entry returns the entry at the slash-separated path p.
// The root "." is returned as a Directory holding the top-level entries.
func (a *Archive) Entry(p string) (Entry, bool) {
	n, ok := a.lookup(NormalizePath(p))
	if !ok {
		return nil, false
	}
	return n.entry, true
}

// WalkFunc is called by Walk for every entry in archive order.
// Returning fs.SkipDir from a directory skips its children; any other
// error stops the walk and is returned by Walk.
type WalkFunc func(p string, e Entry) error

// Walk visits every entry depth-first in the order they are stored,
// including entries that are not reachable by path.
func (a *Archive) Walk(fn WalkFunc) error {
	err := walkEntries("", a.header.Entries, fn)
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func walkEntries(dir string, entries []Entry, fn WalkFunc) error {
	for _, e := range entries {
		p := e.EntryName()
		if dir != "" {
			p = dir + "/" + p
		}
		err := fn(p, e)
		d, isDir := e.(Directory)
		if errors.Is(err, fs.SkipDir) && isDir {
			continue
		}
		if err != nil {
			return err
		}
		if isDir {
			if err := walkEntries(p, d.Entries, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Extract writes the archive's contents below destDir, creating it if
// needed. Existing files are replaced.
//
// Every name is validated and every file range is checked before any file
// is written.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...UnpackOption) error {
	cfg := newUnpackConfig(opts)
	_, err := a.extract(ctx, destDir, &cfg)
	return err
}

func (a *Archive) extract(ctx context.Context, destDir string, cfg *unpackConfig) (int, error) {
	x := extract.New(a.data,
		extract.WithWorkers(cfg.workers),
		extract.WithMaxFileSize(a.maxFileSize),
		extract.WithPool(a.pool),
		extract.WithLogger(cfg.logger),
		extract.WithVerbose(cfg.verbose),
		extract.WithProgress(cfg.progress),
	)
	return x.Extract(ctx, destDir, a.header.Entries, pathctx.New(unpackRoot))
}

// Open implements fs.FS.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if n.isDir() {
		return &openDir{a: a, n: n, name: name}, nil
	}
	content, err := a.readNode(n)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &openFile{
		Reader: bytes.NewReader(content),
		info:   &fileInfo{name: n.name, size: int64(len(content)), mode: fileMode},
	}, nil
}

// ReadFile implements fs.ReadFileFS.
//
// The content is decompressed if necessary. Concurrent reads of the same
// stored content are deduplicated with singleflight; each caller receives
// its own copy.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	if n.isDir() {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: errIsDir}
	}
	content, err := a.readNode(n)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return content, nil
}

// ReadDir implements fs.ReadDirFS.
//
// ReadDir returns directory entries for the named directory, sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	if !n.isDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errNotDir}
	}
	entries := make([]fs.DirEntry, 0, len(n.children))
	for _, c := range n.children {
		entries = append(entries, &dirEntry{a: a, n: c})
	}
	return entries, nil
}

// Stat implements fs.StatFS.
//
// Stat of a compressed file decompresses it to report its size.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	n, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	info, err := a.info(n)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return info, nil
}

var (
	errIsDir  = errors.New("is a directory")
	errNotDir = errors.New("not a directory")
)

// node is a reachable entry in the path index.
type node struct {
	name  string
	entry Entry
	ctx   *pathctx.Context

	children []*node
	byName   map[string]*node

	sizeOnce sync.Once
	size     int64
	sizeErr  error
}

func (n *node) isDir() bool {
	return n.byName != nil
}

func newDirNode(name string, entry Entry, ctx *pathctx.Context) *node {
	return &node{name: name, entry: entry, ctx: ctx, byName: make(map[string]*node)}
}

func (n *node) add(child *node) {
	if child.name == "." || !names.Valid(child.name) {
		return
	}
	if _, dup := n.byName[child.name]; dup {
		return
	}
	n.byName[child.name] = child
	n.children = append(n.children, child)
}

// index builds the path index over the header.
func (a *Archive) index() *node {
	root := newDirNode(".", Directory{Name: ".", Entries: a.header.Entries}, pathctx.New(headerRoot))
	indexDir(root, a.header.Entries)
	return root
}

func indexDir(parent *node, entries []Entry) {
	for _, e := range entries {
		name := e.EntryName()
		switch e := e.(type) {
		case Directory:
			n := newDirNode(name, e, parent.ctx.Push(name))
			indexDir(n, e.Entries)
			parent.add(n)
		case File:
			parent.add(&node{name: name, entry: e, ctx: parent.ctx.Push(name)})
		}
	}
	slices.SortFunc(parent.children, func(x, y *node) int {
		return strings.Compare(x.name, y.name)
	})
}

func (a *Archive) lookup(name string) (*node, bool) {
	if name == "." {
		return a.root, true
	}
	n := a.root
	for seg := range strings.SplitSeq(name, "/") {
		if !n.isDir() {
			return nil, false
		}
		child, ok := n.byName[seg]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// readNode returns a private copy of a file node's content.
func (a *Archive) readNode(n *node) ([]byte, error) {
	f, _ := n.entry.(File) //nolint:errcheck // callers pass file nodes only
	key := strconv.FormatUint(uint64(f.Offset), 10) + ":" +
		strconv.FormatUint(uint64(f.Size), 10) + ":" + f.Compression.String()

	// The result may be shared with a read of another entry, so errors are
	// attributed to n here rather than inside the group.
	result, err, shared := a.readGroup.Do(key, func() (any, error) {
		return a.decodeFile(f)
	})
	if err != nil {
		return nil, cattype.WithContext(cattype.KindInvalidEntryData, n.ctx, err)
	}
	content := result.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	if shared || f.Compression == CompressionNone {
		content = bytes.Clone(content)
	}
	return content, nil
}

// content returns f's decoded bytes. Uncompressed content aliases the data
// region. Failures are reported as InvalidEntryData at ctx.
func (a *Archive) content(f File, ctx *pathctx.Context) ([]byte, error) {
	b, err := a.decodeFile(f)
	if err != nil {
		return nil, cattype.WithContext(cattype.KindInvalidEntryData, ctx, err)
	}
	return b, nil
}

func (a *Archive) decodeFile(f File) ([]byte, error) {
	if !f.InBounds(len(a.data)) {
		return nil, fmt.Errorf("range %d+%d outside data region of %d bytes", f.Offset, f.Size, len(a.data))
	}
	raw := a.data[f.Offset:f.End()]
	if f.Compression != CompressionGzip {
		return raw, nil
	}
	return a.pool.Decompress(raw, a.maxFileSize)
}

// fileSize returns the decoded size of a file node. Compressed content is
// decompressed once and discarded.
func (a *Archive) fileSize(n *node) (int64, error) {
	n.sizeOnce.Do(func() {
		f, _ := n.entry.(File) //nolint:errcheck // callers pass file nodes only
		content, err := a.content(f, n.ctx)
		n.size, n.sizeErr = int64(len(content)), err
	})
	return n.size, n.sizeErr
}

func (a *Archive) info(n *node) (fs.FileInfo, error) {
	if n.isDir() {
		return &fileInfo{name: n.name, mode: dirMode}, nil
	}
	size, err := a.fileSize(n)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: n.name, size: size, mode: fileMode}, nil
}

// fileInfo implements fs.FileInfo for archive entries.
type fileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *fileInfo) Sys() any           { return nil }

// dirEntry implements fs.DirEntry. Info is resolved on demand.
type dirEntry struct {
	a *Archive
	n *node
}

func (de *dirEntry) Name() string { return de.n.name }
func (de *dirEntry) IsDir() bool  { return de.n.isDir() }

func (de *dirEntry) Type() fs.FileMode {
	if de.n.isDir() {
		return fs.ModeDir
	}
	return 0
}

func (de *dirEntry) Info() (fs.FileInfo, error) {
	return de.a.info(de.n)
}

// openFile implements fs.File over decoded file content.
type openFile struct {
	*bytes.Reader
	info *fileInfo
}

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Close() error               { return nil }

// openDir implements fs.File and fs.ReadDirFile for directories.
type openDir struct {
	a    *Archive
	n    *node
	name string
	pos  int
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: errIsDir}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: path.Base(d.name), mode: dirMode}, nil
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	remaining := d.n.children[d.pos:]
	if n > 0 && len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > 0 && n < len(remaining) {
		remaining = remaining[:n]
	}
	entries := make([]fs.DirEntry, 0, len(remaining))
	for _, c := range remaining {
		entries = append(entries, &dirEntry{a: d.a, n: c})
	}
	d.pos += len(remaining)
	return entries, nil
}

// Interface compliance.
var (
	_ fs.FS          = (*Archive)(nil)
	_ fs.ReadFileFS  = (*Archive)(nil)
	_ fs.ReadDirFS   = (*Archive)(nil)
	_ fs.StatFS      = (*Archive)(nil)
	_ fs.ReadDirFile = (*openDir)(nil)
	_ io.ReaderAt    = (*openFile)(nil)
)
