// Package binio reads and writes the fixed-width big-endian integers and
// length-prefixed strings the archive header is built from.
//
// Errors are returned raw; callers attach a path context before surfacing them.
package binio

import (
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxStringLen is the longest string a one-byte length prefix can describe.
const MaxStringLen = 255

// ErrStringTooLong is returned when a string does not fit the length prefix.
var ErrStringTooLong = errors.New("cats: string longer than 255 bytes")

// WriteU8 writes a single byte.
func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteU16 writes v as two big-endian bytes.
func WriteU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteU32 writes v as four big-endian bytes.
func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteString writes one length byte followed by the bytes of s.
// Strings longer than MaxStringLen are rejected rather than truncated.
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLen {
		return ErrStringTooLong
	}
	buf := make([]byte, 0, 1+len(s))
	buf = append(buf, byte(len(s)))
	buf = append(buf, s...)
	_, err := w.Write(buf)
	return err
}

// ReadU8 reads a single byte.
func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU16 reads two big-endian bytes.
func ReadU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadU32 reads four big-endian bytes.
func ReadU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadString reads a length-prefixed string. Invalid UTF-8 is replaced
// with U+FFFD rather than rejected.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadU8(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	if utf8.Valid(buf) {
		return string(buf), nil
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError)), nil
}
