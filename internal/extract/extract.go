// Package extract materializes a decoded entry tree on disk.
//
// Extraction runs in two phases. The tree is first walked depth-first:
// every name is validated, every file range is checked against the data
// region and every directory is created. Files are then written, either
// in walk order or on a bounded set of workers. The data region is never
// modified, and file ranges never share output paths, so workers need no
// coordination beyond error propagation.
package extract

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/compress"
	"github.com/meigma/cats/internal/names"
	"github.com/meigma/cats/internal/pathctx"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Extractor writes entries whose contents live in a shared data region.
type Extractor struct {
	data        []byte
	pool        *compress.Pool
	workers     int
	maxFileSize uint64
	verbose     bool
	logger      *slog.Logger
	progress    cattype.ProgressFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets how many files are written concurrently.
// Values < 2 write files one at a time in walk order.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		x.workers = n
	}
}

// WithMaxFileSize limits the decompressed size of a single file.
// Zero disables the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(x *Extractor) {
		x.maxFileSize = limit
	}
}

// WithPool sets the gzip pool used for compressed entries.
func WithPool(p *compress.Pool) Option {
	return func(x *Extractor) {
		x.pool = p
	}
}

// WithLogger sets the logger for per-entry messages.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) {
		x.logger = l
	}
}

// WithVerbose logs every extracted entry at Info instead of Debug.
func WithVerbose(v bool) Option {
	return func(x *Extractor) {
		x.verbose = v
	}
}

// WithProgress sets a callback receiving StageExtracting events.
func WithProgress(fn cattype.ProgressFunc) Option {
	return func(x *Extractor) {
		x.progress = fn
	}
}

// New creates an Extractor over data, the archive's data region.
func New(data []byte, opts ...Option) *Extractor {
	x := &Extractor{data: data}
	for _, opt := range opts {
		opt(x)
	}
	if x.pool == nil {
		x.pool = compress.NewPool(0)
	}
	return x
}

// task is a file waiting to be written. rel is relative to the
// destination directory.
type task struct {
	rel  string
	ctx  *pathctx.Context
	file cattype.File
}

// Extract writes entries below destDir, creating it if needed. root is the
// context the walk starts from.
func (x *Extractor) Extract(ctx context.Context, destDir string, entries []cattype.Entry, root *pathctx.Context) (int, error) {
	sink, err := NewFileSink(destDir)
	if err != nil {
		return 0, err
	}
	defer sink.Close()

	var tasks []task
	if err := x.plan(ctx, sink, ".", entries, root, &tasks); err != nil {
		return 0, err
	}

	var done atomic.Int64
	write := func(t *task) error {
		if err := x.writeFile(sink, t); err != nil {
			return err
		}
		n := int(done.Add(1))
		x.reportProgress(sink.Path(t.rel), n, len(tasks))
		return nil
	}

	if x.workers < 2 {
		for i := range tasks {
			if err := ctx.Err(); err != nil {
				return int(done.Load()), err
			}
			if err := write(&tasks[i]); err != nil {
				return int(done.Load()), err
			}
		}
		return len(tasks), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i := range tasks {
		if gctx.Err() != nil {
			break
		}
		t := &tasks[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return write(t)
		})
	}
	if err := g.Wait(); err != nil {
		return int(done.Load()), err
	}
	if err := ctx.Err(); err != nil {
		return int(done.Load()), err
	}
	return len(tasks), nil
}

// plan walks entries depth-first, validating and creating directories.
func (x *Extractor) plan(ctx context.Context, sink *FileSink, dir string, entries []cattype.Entry, ectx *pathctx.Context, tasks *[]task) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := names.Validate(e.EntryName(), ectx)
		if err != nil {
			return err
		}
		rel := filepath.Join(dir, name)

		switch e := e.(type) {
		case cattype.Directory:
			x.log().Log(ctx, x.level(), "unpacking", "path", sink.Path(rel))
			if err := sink.Mkdir(rel); err != nil {
				return err
			}
			if err := x.plan(ctx, sink, rel, e.Entries, ectx.Push(name), tasks); err != nil {
				return err
			}
		case cattype.File:
			if !e.InBounds(len(x.data)) {
				return cattype.WithContext(cattype.KindInvalidEntryData, ectx.Push(name),
					fmt.Errorf("range %d+%d outside data region of %d bytes", e.Offset, e.Size, len(x.data)))
			}
			*tasks = append(*tasks, task{rel: rel, ctx: ectx.Push(name), file: e})
		default:
			return cattype.InvalidEntryType(ectx.Push(name), uint8(e.Type()))
		}
	}
	return nil
}

// writeFile decodes one file's content and writes it.
func (x *Extractor) writeFile(sink *FileSink, t *task) error {
	content := x.data[t.file.Offset:t.file.End()]
	if t.file.Compression == cattype.CompressionGzip {
		decoded, err := x.pool.Decompress(content, x.maxFileSize)
		if err != nil {
			return cattype.WithContext(cattype.KindInvalidEntryData, t.ctx, err)
		}
		content = decoded
	}

	x.log().Log(context.Background(), x.level(), "unpacking", "path", sink.Path(t.rel))
	return sink.WriteFile(t.rel, content)
}

func (x *Extractor) reportProgress(path string, done, total int) {
	if x.progress == nil {
		return
	}
	x.progress(cattype.ProgressEvent{
		Stage:      cattype.StageExtracting,
		Path:       path,
		FilesDone:  done,
		FilesTotal: total,
	})
}

func (x *Extractor) level() slog.Level {
	if x.verbose {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// log returns the logger, falling back to a discard logger if nil.
func (x *Extractor) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

// FileSink creates directories and writes files below a destination
// directory. Paths are relative to that directory and every operation goes
// through an os.Root, so a symbolic link already present in the destination
// cannot redirect a write outside it.
//
// Files are written to a temporary file in the same directory, then renamed
// to the final path. An existing file at the final path is replaced.
type FileSink struct {
	dir  string
	root *os.Root
}

// NewFileSink creates destDir if needed and opens it as the sink's root.
func NewFileSink(destDir string) (*FileSink, error) {
	if err := os.MkdirAll(destDir, dirMode); err != nil {
		return nil, cattype.WithPath(cattype.KindUnableToCreateDirectory, destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, cattype.WithPath(cattype.KindUnableToCreateDirectory, destDir, err)
	}
	return &FileSink{dir: destDir, root: root}, nil
}

// Close releases the destination root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// Path returns the host path of rel, for logs and errors.
func (s *FileSink) Path(rel string) string {
	return filepath.Join(s.dir, rel)
}

// Mkdir creates rel and any missing parents.
func (s *FileSink) Mkdir(rel string) error {
	if err := s.root.MkdirAll(rel, dirMode); err != nil {
		return cattype.WithPath(cattype.KindUnableToCreateDirectory, s.Path(rel), err)
	}
	return nil
}

// WriteFile writes content to rel, creating the parent directory if needed.
func (s *FileSink) WriteFile(rel string, content []byte) error {
	dir := filepath.Dir(rel)
	if err := s.Mkdir(dir); err != nil {
		return err
	}

	path := s.Path(rel)
	tempFile, tempRel, err := s.createTemp(dir)
	if err != nil {
		return cattype.WithPath(cattype.KindErrorWritingFile, path, err)
	}
	fail := func(err error) error {
		_ = tempFile.Close()       //nolint:errcheck // already failing
		_ = s.root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return cattype.WithPath(cattype.KindErrorWritingFile, path, err)
	}

	if _, err := tempFile.Write(content); err != nil {
		return fail(err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		return fail(err)
	}
	if err := tempFile.Close(); err != nil {
		_ = s.root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return cattype.WithPath(cattype.KindErrorWritingFile, path, err)
	}
	if err := s.root.Rename(tempRel, rel); err != nil {
		_ = s.root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return cattype.WithPath(cattype.KindErrorWritingFile, path, err)
	}
	return nil
}

// createTemp creates an exclusive temporary file in dir.
func (s *FileSink) createTemp(dir string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return nil, "", err
		}
		rel := filepath.Join(dir, ".cats-"+hex.EncodeToString(b[:]))
		f, err := s.root.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, rel, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}
