package cats

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"math/rand"
	"testing"
	"testing/fstest"
)

var (
	benchSinkBytes []byte
	benchSinkBuilt *Built
	benchSinkArch  *Archive
)

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"

	benchDirCount = 16
)

type benchCase struct {
	name        string
	fileCount   int
	fileSize    int
	dupEvery    int
	compression Compression
	pattern     benchPattern
}

var benchCases = []benchCase{
	{
		name:        "files=128/size=16k/none/compressible",
		fileCount:   128,
		fileSize:    16 << 10,
		compression: CompressionNone,
		pattern:     benchPatternCompressible,
	},
	{
		name:        "files=128/size=16k/gzip/compressible",
		fileCount:   128,
		fileSize:    16 << 10,
		compression: CompressionGzip,
		pattern:     benchPatternCompressible,
	},
	{
		name:        "files=128/size=16k/gzip/random",
		fileCount:   128,
		fileSize:    16 << 10,
		compression: CompressionGzip,
		pattern:     benchPatternRandom,
	},
	{
		name:        "files=1024/size=1k/gzip/dup=4",
		fileCount:   1024,
		fileSize:    1 << 10,
		dupEvery:    4,
		compression: CompressionGzip,
		pattern:     benchPatternRandom,
	},
}

func BenchmarkBuild(b *testing.B) {
	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			fsys := makeBenchFS(b, bc)
			b.SetBytes(int64(bc.fileCount * bc.fileSize))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				built, err := Build(context.Background(), fsys, PackWithCompression(bc.compression))
				if err != nil {
					b.Fatal(err)
				}
				benchSinkBuilt = built
			}
		})
	}
}

func BenchmarkRead(b *testing.B) {
	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			raw := makeBenchArchive(b, bc)
			b.SetBytes(int64(len(raw)))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				a, err := Read(bytes.NewReader(raw))
				if err != nil {
					b.Fatal(err)
				}
				benchSinkArch = a
			}
		})
	}
}

func BenchmarkArchiveReadFile(b *testing.B) {
	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			a, err := Read(bytes.NewReader(makeBenchArchive(b, bc)))
			if err != nil {
				b.Fatal(err)
			}
			paths := benchPaths(bc)
			b.SetBytes(int64(bc.fileSize))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; b.Loop(); i++ {
				content, err := a.ReadFile(paths[i%len(paths)])
				if err != nil {
					b.Fatal(err)
				}
				benchSinkBytes = content
			}
		})
	}
}

func BenchmarkExtract(b *testing.B) {
	bc := benchCases[1]
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("%s/workers=%d", bc.name, workers), func(b *testing.B) {
			a, err := Read(bytes.NewReader(makeBenchArchive(b, bc)))
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(bc.fileCount * bc.fileSize))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if err := a.Extract(context.Background(), b.TempDir(), UnpackWithWorkers(workers)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func benchPaths(bc benchCase) []string {
	paths := make([]string, 0, bc.fileCount)
	for i := range bc.fileCount {
		paths = append(paths, fmt.Sprintf("dir%02d/file%05d.dat", i%benchDirCount, i))
	}
	return paths
}

// makeBenchFS returns an in-memory tree for bc. With dupEvery > 0, every
// dupEvery files share the same content.
func makeBenchFS(b *testing.B, bc benchCase) fs.FS {
	b.Helper()

	fsys := make(fstest.MapFS, bc.fileCount)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // reproducible benchmark data
	var prev []byte
	for i, p := range benchPaths(bc) {
		if bc.dupEvery > 0 && i%bc.dupEvery != 0 && prev != nil {
			fsys[p] = &fstest.MapFile{Data: prev}
			continue
		}
		content := make([]byte, bc.fileSize)
		switch bc.pattern {
		case benchPatternRandom:
			if _, err := rng.Read(content); err != nil {
				b.Fatal(err)
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}
		fsys[p] = &fstest.MapFile{Data: content}
		prev = content
	}
	return fsys
}

func makeBenchArchive(b *testing.B, bc benchCase) []byte {
	b.Helper()

	built, err := Build(context.Background(), makeBenchFS(b, bc), PackWithCompression(bc.compression))
	if err != nil {
		b.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := built.WriteTo(&buf); err != nil {
		b.Fatal(err)
	}
	return buf.Bytes()
}
