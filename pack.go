package cats

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/codec"
	"github.com/meigma/cats/internal/names"
	"github.com/meigma/cats/internal/pathctx"
	"github.com/meigma/cats/internal/store"
)

// Context roots used when rendering pack errors.
const (
	walkRoot   = "Archiving"
	encodeRoot = "pack"
)

// Built is an archive assembled in memory by Build.
type Built struct {
	// Header is the entry tree, in the order it will be encoded.
	Header *Header

	// Data is the data region referenced by the header's file entries.
	Data []byte

	// Files is the number of file entries in the tree.
	Files int

	// Stored is the number of distinct contents in Data.
	Stored int

	// Reused is the number of file entries that point at content stored
	// for an earlier file.
	Reused int
}

// Build walks fsys from its root and assembles an archive in memory.
//
// Directories are read with fs.ReadDir, so entries are ordered by name.
// Regular files are read whole and stored once per distinct content;
// symbolic links and other special files are skipped with a warning, as are paths matching
// a PackWithExclude pattern. Every other name must pass entry name validation.
//
// The context is checked between entries; cancellation returns ctx.Err().
func Build(ctx context.Context, fsys fs.FS, opts ...PackOption) (*Built, error) {
	cfg := newPackConfig(opts)
	return build(ctx, fsys, "", &cfg)
}

// WriteTo writes the magic, the encoded header and the data region to w.
// Header encoding failures are returned as *Error; failures of w are
// returned as they are.
func (b *Built) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := cw.Write(Magic[:]); err != nil {
		return cw.n, err
	}
	if err := codec.EncodeHeader(cw, b.Header, pathctx.New(encodeRoot)); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write(b.Data); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Pack archives the directory srcDir into the file target.
//
// The target is created or truncated only after the whole tree has been
// read, and is removed again if writing fails. The walk is confined to
// srcDir with os.OpenRoot.
func Pack(ctx context.Context, srcDir, target string, opts ...PackOption) error {
	cfg := newPackConfig(opts)

	info, err := os.Stat(srcDir)
	if err != nil {
		return cattype.WithPath(cattype.KindInvalidInputPath, srcDir, err)
	}
	if !info.IsDir() {
		return cattype.WithPath(cattype.KindInvalidInputPath, srcDir, nil)
	}

	root, err := os.OpenRoot(srcDir)
	if err != nil {
		return cattype.WithPath(cattype.KindErrorReadingFile, srcDir, err)
	}
	defer root.Close()

	cfg.log().Info("creating archive", "dir", srcDir, "target", target, "compression", cfg.compression)

	built, err := build(ctx, root.FS(), srcDir, &cfg)
	if err != nil {
		return err
	}

	if cfg.progress != nil {
		cfg.progress(ProgressEvent{
			Stage:      StageWritingArchive,
			Path:       target,
			BytesDone:  uint64(len(built.Data)),
			FilesDone:  built.Files,
			FilesTotal: built.Files,
		})
	}

	if err := writeArchive(built, target); err != nil {
		return err
	}

	cfg.log().Info("archive written",
		"target", target,
		"entries", built.Files,
		"data_size", len(built.Data),
		"stored_blobs", built.Stored,
		"reused", built.Reused)
	return nil
}

// writeArchive writes built to target, truncating any existing file.
func writeArchive(built *Built, target string) error {
	f, err := os.Create(target) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return cattype.WithPath(cattype.KindErrorWritingFile, target, err)
	}

	bw := bufio.NewWriter(f)
	_, err = built.WriteTo(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		return nil
	}

	_ = os.Remove(target) //nolint:errcheck // best-effort cleanup
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return cattype.WithPath(cattype.KindErrorWritingFile, target, err)
}

func build(ctx context.Context, fsys fs.FS, display string, cfg *packConfig) (*Built, error) {
	if _, ok := cfg.compression.Byte(); !ok {
		return nil, cattype.WithPath(cattype.KindUnknownArgument, "", fmt.Errorf("unknown compression %d", cfg.compression))
	}
	for _, pat := range cfg.exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, cattype.WithPath(cattype.KindUnknownArgument, "", fmt.Errorf("invalid exclude pattern %q: %w", pat, doublestar.ErrBadPattern))
		}
	}

	info, err := fs.Stat(fsys, ".")
	if err != nil {
		return nil, cattype.WithPath(cattype.KindInvalidInputPath, display, err)
	}
	if !info.IsDir() {
		return nil, cattype.WithPath(cattype.KindInvalidInputPath, display, nil)
	}

	b := &builder{
		fsys:    fsys,
		display: display,
		cfg:     cfg,
		store:   store.New(cfg.compression),
	}
	entries, err := b.walkDir(ctx, ".", pathctx.New(walkRoot), 0)
	if err != nil {
		return nil, err
	}

	return &Built{
		Header: &Header{Version: Version, Entries: entries},
		Data:   b.store.Bytes(),
		Files:  b.files,
		Stored: b.store.Len(),
		Reused: b.store.Hits(),
	}, nil
}

// builder holds the state of a single Build call.
type builder struct {
	fsys    fs.FS
	display string
	cfg     *packConfig
	store   *store.Store
	files   int
}

// walkDir builds the entries for the children of dir. depth is the number
// of directories between the root and dir.
func (b *builder) walkDir(ctx context.Context, dir string, pctx *pathctx.Context, depth int) ([]Entry, error) {
	children, err := fs.ReadDir(b.fsys, dir)
	if err != nil {
		return nil, cattype.WithPath(cattype.KindErrorReadingFile, b.displayPath(dir), err)
	}
	b.report(StageWalking, dir)

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := child.Name()
		p := path.Join(dir, name)
		cctx := pctx.Push(name)

		if b.cfg.excluded(p) {
			b.cfg.log().Log(ctx, b.cfg.level(), "excluding path", "path", b.displayPath(p))
			continue
		}

		switch {
		case child.IsDir():
			if _, err := names.Validate(name, cctx); err != nil {
				return nil, err
			}
			if b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth {
				return nil, cattype.WithContext(cattype.KindInvalidMetadata, cctx, codec.ErrTooDeep)
			}
			b.cfg.log().Log(ctx, b.cfg.level(), "serializing directory", "path", b.displayPath(p))
			sub, err := b.walkDir(ctx, p, cctx, depth+1)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Directory{Name: name, Entries: sub})

		case child.Type().IsRegular():
			if _, err := names.Validate(name, cctx); err != nil {
				return nil, err
			}
			f, err := b.storeFile(ctx, p, name, cctx)
			if err != nil {
				return nil, err
			}
			entries = append(entries, f)

		default:
			b.cfg.log().Warn("skipping non-regular file", "path", b.displayPath(p), "mode", child.Type().String())
		}
	}
	return entries, nil
}

func (b *builder) storeFile(ctx context.Context, p, name string, cctx *pathctx.Context) (File, error) {
	content, err := fs.ReadFile(b.fsys, p)
	if err != nil {
		return File{}, cattype.WithPath(cattype.KindErrorReadingFile, b.displayPath(p), err)
	}

	loc, reused, err := b.store.Put(content, cctx)
	if err != nil {
		return File{}, err
	}
	b.files++

	b.cfg.log().Log(ctx, b.cfg.level(), "serializing file",
		"path", b.displayPath(p),
		"size", len(content),
		"reused", reused)
	b.report(StageStoring, p)

	return File{Name: name, Offset: loc.Offset, Size: loc.Size, Compression: loc.Compression}, nil
}

func (b *builder) report(stage ProgressStage, p string) {
	if b.cfg.progress == nil {
		return
	}
	b.cfg.progress(ProgressEvent{
		Stage:     stage,
		Path:      p,
		BytesDone: uint64(b.store.Size()), //nolint:gosec // Size is never negative
		FilesDone: b.files,
	})
}

// displayPath renders an fs.FS path for logs and errors.
func (b *builder) displayPath(p string) string {
	if b.display == "" {
		return p
	}
	return filepath.Join(b.display, filepath.FromSlash(p))
}

// countingWriter tracks the number of bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
