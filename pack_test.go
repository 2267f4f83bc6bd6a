package cats

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cats/internal/codec"
	"github.com/meigma/cats/internal/testutil"
)

func TestBuildConcreteScenario(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.txt":     {Data: []byte("hi")},
		"sub/b.txt": {Data: []byte("hi")},
	}

	built, err := Build(context.Background(), fsys, PackWithCompression(CompressionNone))
	require.NoError(t, err)

	want := []Entry{
		File{Name: "a.txt", Offset: 0, Size: 2, Compression: CompressionNone},
		Directory{Name: "sub", Entries: []Entry{
			File{Name: "b.txt", Offset: 0, Size: 2, Compression: CompressionNone},
		}},
	}
	assert.Equal(t, Version, built.Header.Version)
	assert.Equal(t, want, built.Header.Entries)
	assert.Equal(t, []byte("hi"), built.Data)
	assert.Equal(t, 2, built.Files)
	assert.Equal(t, 1, built.Stored)
	assert.Equal(t, 1, built.Reused)

	var buf bytes.Buffer
	n, err := built.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	wantBytes := []byte{
		'C', 'A', 'T', 'S',
		0x01,       // version
		0x00, 0x02, // entries
		0x00, 0x05, 'a', '.', 't', 'x', 't', 0, 0, 0, 0, 0, 0, 0, 2, 0xFF,
		0x01, 0x03, 's', 'u', 'b', 0x00, 0x01,
		0x00, 0x05, 'b', '.', 't', 'x', 't', 0, 0, 0, 0, 0, 0, 0, 2, 0xFF,
		'h', 'i',
	}
	assert.Equal(t, wantBytes, buf.Bytes())
}

func TestBuildDeduplicatesGzip(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("duplicate content "), 64)
	fsys := fstest.MapFS{
		"one.txt":        {Data: content},
		"nested/two.txt": {Data: content},
		"other.txt":      {Data: []byte("different")},
	}

	built, err := Build(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, 3, built.Files)
	assert.Equal(t, 2, built.Stored)
	assert.Equal(t, 1, built.Reused)

	a := built.Header.Entries[1].(File)
	nested := built.Header.Entries[0].(Directory)
	b := nested.Entries[0].(File)
	assert.Equal(t, "one.txt", a.Name)
	assert.Equal(t, "two.txt", b.Name)
	assert.Equal(t, CompressionGzip, a.Compression)
	assert.Equal(t, a.Offset, b.Offset)
	assert.Equal(t, a.Size, b.Size)
	assert.Less(t, int(a.Size), len(content), "gzip should shrink repetitive content")

	other := built.Header.Entries[2].(File)
	assert.Equal(t, int(a.Size)+int(other.Size), len(built.Data))
}

func TestBuildSortsEntries(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"c.txt":   {Data: []byte("c")},
		"a.txt":   {Data: []byte("a")},
		"b/x.txt": {Data: []byte("x")},
	}
	built, err := Build(context.Background(), fsys, PackWithCompression(CompressionNone))
	require.NoError(t, err)

	got := make([]string, 0, len(built.Header.Entries))
	for _, e := range built.Header.Entries {
		got = append(got, e.EntryName())
	}
	assert.Equal(t, []string{"a.txt", "b", "c.txt"}, got)
	assert.Equal(t, []byte("axc"), built.Data)
}

func TestBuildEmptyDirectories(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"empty": {Mode: fs.ModeDir | 0o755},
	}
	built, err := Build(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, []Entry{Directory{Name: "empty", Entries: []Entry{}}}, built.Header.Entries)
	assert.Empty(t, built.Data)
}

func TestBuildSkipsSymlinks(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("a")},
		"link":  {Data: []byte("a.txt"), Mode: fs.ModeSymlink | 0o777},
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	built, err := Build(context.Background(), fsys, PackWithLogger(logger))
	require.NoError(t, err)
	require.Len(t, built.Header.Entries, 1)
	assert.Equal(t, "a.txt", built.Header.Entries[0].EntryName())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "skipping non-regular file")
	assert.Contains(t, logs.String(), "path=link")
}

func TestBuildExclude(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.txt":              {Data: []byte("a")},
		"scratch.tmp":        {Data: []byte("t")},
		"sub/b.txt":          {Data: []byte("b")},
		"sub/deep/c.tmp":     {Data: []byte("c")},
		".git/HEAD":          {Data: []byte("ref")},
		"has space/skip.txt": {Data: []byte("s")},
	}
	built, err := Build(context.Background(), fsys,
		PackWithCompression(CompressionNone),
		PackWithExclude("**/*.tmp", ".git"),
		PackWithExclude("has space"))
	require.NoError(t, err)

	var got []string
	a, err := Read(bytes.NewReader(mustWrite(t, built)))
	require.NoError(t, err)
	require.NoError(t, a.Walk(func(p string, _ Entry) error {
		got = append(got, p)
		return nil
	}))
	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt", "sub/deep"}, got)
	assert.Equal(t, 2, built.Files)
}

func TestBuildBadExcludePattern(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), fstest.MapFS{}, PackWithExclude("[a-"))
	require.ErrorIs(t, err, ErrUnknownArgument)
	assert.Equal(t, -1, ExitCode(err))
}

func mustWrite(tb testing.TB, built *Built) []byte {
	tb.Helper()
	var buf bytes.Buffer
	_, err := built.WriteTo(&buf)
	require.NoError(tb, err)
	return buf.Bytes()
}

func TestBuildInvalidNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		context string
	}{
		{
			name:    "backslash",
			fsys:    fstest.MapFS{`bad\name.txt`: {Data: []byte("x")}},
			context: `Archiving/bad\name.txt`,
		},
		{
			name:    "space",
			fsys:    fstest.MapFS{"has space.txt": {Data: []byte("x")}},
			context: "Archiving/has space.txt",
		},
		{
			name:    "control character",
			fsys:    fstest.MapFS{"bell\x07": {Data: []byte("x")}},
			context: "Archiving/bell\x07",
		},
		{
			name:    "non-ascii",
			fsys:    fstest.MapFS{"café": {Data: []byte("x")}},
			context: "Archiving/café",
		},
		{
			name:    "nested directory",
			fsys:    fstest.MapFS{"sub/bad dir/f": {Data: []byte("x")}},
			context: "Archiving/sub/bad dir",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(context.Background(), tt.fsys)
			require.ErrorIs(t, err, ErrInvalidEntryName)
			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.context, ce.Context.String())
			assert.Equal(t, 100, ExitCode(err))
		})
	}
}

func TestBuildMaxDepth(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"a/b/c/f.txt": {Data: []byte("x")}}

	_, err := Build(context.Background(), fsys, PackWithMaxDepth(2))
	require.ErrorIs(t, err, ErrInvalidMetadata)
	require.ErrorIs(t, err, codec.ErrTooDeep)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Archiving/a/b/c", ce.Context.String())

	_, err = Build(context.Background(), fsys, PackWithMaxDepth(3))
	require.NoError(t, err)

	_, err = Build(context.Background(), fsys, PackWithMaxDepth(-1))
	require.NoError(t, err)
}

func TestBuildUnknownCompression(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), fstest.MapFS{}, PackWithCompression(Compression(9)))
	require.ErrorIs(t, err, ErrUnknownArgument)
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, fstest.MapFS{"a.txt": {Data: []byte("a")}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildProgress(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.txt":     {Data: []byte("aaa")},
		"sub/b.txt": {Data: []byte("bb")},
	}

	var mu sync.Mutex
	var events []ProgressEvent
	_, err := Build(context.Background(), fsys,
		PackWithCompression(CompressionNone),
		PackWithProgress(func(e ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		}))
	require.NoError(t, err)

	var walked, stored []string
	for _, e := range events {
		switch e.Stage {
		case StageWalking:
			walked = append(walked, e.Path)
		case StageStoring:
			stored = append(stored, e.Path)
		default:
			t.Fatalf("unexpected stage %s", e.Stage)
		}
	}
	assert.Equal(t, []string{".", "sub"}, walked)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, stored)

	last := events[len(events)-1]
	assert.Equal(t, uint64(5), last.BytesDone)
	assert.Equal(t, 2, last.FilesDone)
}

func TestBuildVerboseLogging(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"sub/a.txt": {Data: []byte("a")}}

	var quiet, loud bytes.Buffer
	quietLogger := slog.New(slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelInfo}))
	loudLogger := slog.New(slog.NewTextHandler(&loud, &slog.HandlerOptions{Level: slog.LevelInfo}))

	_, err := Build(context.Background(), fsys, PackWithLogger(quietLogger))
	require.NoError(t, err)
	_, err = Build(context.Background(), fsys, PackWithLogger(loudLogger), PackWithVerbose(true))
	require.NoError(t, err)

	assert.NotContains(t, quiet.String(), "serializing")
	assert.Contains(t, loud.String(), "serializing directory")
	assert.Contains(t, loud.String(), "serializing file")
	assert.Contains(t, loud.String(), "path=sub/a.txt")
}

func TestBuiltWriteToFailures(t *testing.T) {
	t.Parallel()

	built, err := Build(context.Background(), fstest.MapFS{"a.txt": {Data: []byte("hi")}})
	require.NoError(t, err)

	_, err = built.WriteTo(&testutil.FailingWriter{Limit: 2})
	require.ErrorIs(t, err, testutil.ErrInjected)

	_, err = built.WriteTo(&testutil.FailingWriter{Limit: 6})
	require.ErrorIs(t, err, ErrErrorWritingMetadata)
	require.ErrorIs(t, err, testutil.ErrInjected)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "pack/entries length", ce.Context.String())
}

func TestPack(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, testutil.Tree{
		"a.txt":     "hi",
		"sub/b.txt": "hi",
	})
	target := filepath.Join(t.TempDir(), "out.cats")

	require.NoError(t, Pack(context.Background(), src, target, PackWithCompression(CompressionNone)))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("CATS"), raw[:4])
	assert.Equal(t, []byte("hi"), raw[len(raw)-2:])
}

func TestPackTruncatesTarget(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, testutil.Tree{"a.txt": "a"})
	target := filepath.Join(t.TempDir(), "out.cats")
	require.NoError(t, os.WriteFile(target, bytes.Repeat([]byte("x"), 4096), 0o644))

	require.NoError(t, Pack(context.Background(), src, target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(4096))
}

func TestPackInvalidInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	target := filepath.Join(dir, "out.cats")

	tests := []struct {
		name string
		src  string
	}{
		{"missing", filepath.Join(dir, "missing")},
		{"regular file", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Pack(context.Background(), tt.src, target)
			require.ErrorIs(t, err, ErrInvalidInputPath)
			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.src, ce.Path)
			assert.Equal(t, -1, ExitCode(err))
			assert.NoFileExists(t, target)
		})
	}
}

func TestPackUnwritableTarget(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, testutil.Tree{"a.txt": "a"})
	target := filepath.Join(t.TempDir(), "missing", "out.cats")

	err := Pack(context.Background(), src, target)
	require.ErrorIs(t, err, ErrErrorWritingFile)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, target, ce.Path)
	assert.Equal(t, 201, ExitCode(err))
}

func TestPackInvalidNameLeavesNoTarget(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, testutil.Tree{"bad name.txt": "x"})
	target := filepath.Join(t.TempDir(), "out.cats")

	err := Pack(context.Background(), src, target)
	require.ErrorIs(t, err, ErrInvalidEntryName)
	assert.Equal(t, "Invalid filename at 'Archiving/bad name.txt'", err.Error())
	assert.NoFileExists(t, target)
}

func TestPackProgressWritingArchive(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, testutil.Tree{"a.txt": "a"})
	target := filepath.Join(t.TempDir(), "out.cats")

	var mu sync.Mutex
	var stages []ProgressStage
	err := Pack(context.Background(), src, target, PackWithProgress(func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, e.Stage)
	}))
	require.NoError(t, err)
	assert.Equal(t, []ProgressStage{StageWalking, StageStoring, StageWritingArchive}, stages)
}
