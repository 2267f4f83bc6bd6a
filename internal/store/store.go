// Package store holds file contents while an archive is being built.
//
// Contents are keyed by the SHA-256 digest of their raw bytes, so identical
// files are stored once in the data region no matter how many entries
// reference them. A Store lives for a single pack operation.
package store

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/compress"
	"github.com/meigma/cats/internal/pathctx"
	"github.com/meigma/cats/internal/sizing"
)

// Location describes where a stored content lives in the data region.
type Location struct {
	Offset      uint32
	Size        uint32
	Compression cattype.Compression
}

// Store is a deduplicating, append-only data region.
// It is safe for concurrent use; lookups and offset reservation are atomic
// per digest.
type Store struct {
	compression cattype.Compression
	pool        *compress.Pool

	mu    sync.Mutex
	index map[digest.Digest]Location
	data  bytes.Buffer
	hits  int
}

// New creates an empty Store that stores new content with compression c.
func New(c cattype.Compression) *Store {
	s := &Store{
		compression: c,
		index:       make(map[digest.Digest]Location),
	}
	if c == cattype.CompressionGzip {
		s.pool = compress.NewPool(gzip.BestCompression)
	}
	return s
}

// Put stores content unless identical content is already present, and
// returns its location. reused reports whether an earlier copy was found.
// ctx names the file being stored and is attached to any error.
func (s *Store) Put(content []byte, ctx *pathctx.Context) (loc Location, reused bool, err error) {
	d := digest.FromBytes(content)

	if loc, ok := s.lookup(d); ok {
		return loc, true, nil
	}

	stored := content
	if s.compression == cattype.CompressionGzip {
		stored, err = s.pool.Compress(content)
		if err != nil {
			return Location{}, false, cattype.WithContext(cattype.KindFailedToCompressData, ctx.Push("gzip"), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have stored the same content while we compressed.
	if loc, ok := s.index[d]; ok {
		s.hits++
		return loc, true, nil
	}

	offset, err := sizing.ToUint32(s.data.Len())
	if err != nil {
		return Location{}, false, cattype.WithContext(cattype.KindErrorWritingMetadata, ctx.Push("file offset"), err)
	}
	size, err := sizing.ToUint32(len(stored))
	if err != nil {
		return Location{}, false, cattype.WithContext(cattype.KindErrorWritingMetadata, ctx.Push("file size"), err)
	}

	loc = Location{Offset: offset, Size: size, Compression: s.compression}
	s.data.Write(stored)
	s.index[d] = loc
	return loc, false, nil
}

func (s *Store) lookup(d digest.Digest) (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.index[d]
	if ok {
		s.hits++
	}
	return loc, ok
}

// Lookup returns the location of content with digest d, if stored.
func (s *Store) Lookup(d digest.Digest) (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.index[d]
	return loc, ok
}

// Bytes returns the data region. The slice aliases the store's buffer and
// must not be modified; it is only stable once no more Puts happen.
func (s *Store) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Bytes()
}

// Size returns the current length of the data region.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Len()
}

// Len returns the number of distinct contents stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Hits returns how many Puts were satisfied by an existing copy.
func (s *Store) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
