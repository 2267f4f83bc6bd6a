// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"errors"
	"io"
	"math"
)

// ErrOverflow is returned when a size does not fit the target width.
var ErrOverflow = errors.New("cats: size overflow")

// ToUint32 converts a non-negative int to uint32, returning ErrOverflow if it doesn't fit.
func ToUint32(n int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, ErrOverflow
	}
	return uint32(n), nil
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns ErrOverflow if more than maxSize bytes are available.
// A maxSize of zero disables the limit.
func ReadAllWithLimit(r io.Reader, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		return io.ReadAll(r)
	}
	if maxSize > uint64(math.MaxInt-1) {
		return nil, ErrOverflow
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, ErrOverflow
	}
	return data, nil
}
