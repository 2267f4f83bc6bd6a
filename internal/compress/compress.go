// Package compress gzips and gunzips file contents with pooled
// encoders and decoders.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/cats/internal/sizing"
)

// ErrDecompression is returned when stored bytes are not valid gzip data.
var ErrDecompression = errors.New("cats: decompression failed")

// Pool manages reusable gzip writers and readers.
// The zero value is not usable; create one with NewPool.
type Pool struct {
	level   int
	writers sync.Pool
	readers sync.Pool
}

// NewPool creates a pool whose writers compress at level.
// Use gzip.BestCompression to match the archive writer's default.
func NewPool(level int) *Pool {
	return &Pool{level: level}
}

// Compress returns the gzip encoding of data.
func (p *Pool) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := p.getWriter(&buf)
	if err != nil {
		return nil, err
	}
	defer p.writers.Put(zw)

	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pool) getWriter(w io.Writer) (*gzip.Writer, error) {
	if zw, ok := p.writers.Get().(*gzip.Writer); ok {
		zw.Reset(w)
		return zw, nil
	}
	zw, err := gzip.NewWriterLevel(w, p.level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	return zw, nil
}

// Decompress returns the decoded content of a gzip stream.
// maxSize limits the decoded length; zero disables the limit.
func (p *Pool) Decompress(data []byte, maxSize uint64) ([]byte, error) {
	src := bytes.NewReader(data)
	zr, err := p.getReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer p.readers.Put(zr)

	out, err := sizing.ReadAllWithLimit(zr, maxSize)
	if err != nil {
		if errors.Is(err, sizing.ErrOverflow) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return out, nil
}

func (p *Pool) getReader(r io.Reader) (*gzip.Reader, error) {
	if zr, ok := p.readers.Get().(*gzip.Reader); ok {
		if err := zr.Reset(r); err != nil {
			return nil, err
		}
		return zr, nil
	}
	return gzip.NewReader(r)
}
