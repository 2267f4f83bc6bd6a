// Package cats packs a directory tree into a single archive file and
// unpacks it again.
//
// An archive is laid out as:
//
//	"CATS"       4-byte magic
//	header       version, then the entry tree (see internal/codec)
//	data region  concatenated file contents, each possibly gzip-compressed
//
// File entries reference their content by offset and size within the data
// region. Contents are deduplicated by SHA-256 digest while packing, so
// byte-identical files share a single stored copy.
//
// Every failure is a *Error whose Kind maps to a stable process exit code
// and whose message names the field, entry or path that failed.
//
// Archives opened with Open or Read implement fs.FS and related interfaces
// for stdlib compatibility.
package cats
