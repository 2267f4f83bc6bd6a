// Package testutil provides helpers for building and comparing directory
// trees and archives in tests.
package testutil

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/codec"
	"github.com/meigma/cats/internal/pathctx"
)

// Tree maps slash-separated relative paths to file contents. A key ending
// in "/" names a directory, which lets tests describe empty directories.
type Tree map[string]string

// WriteTree creates tree below dir.
func WriteTree(tb testing.TB, dir string, tree Tree) {
	tb.Helper()

	for p, content := range tree {
		full := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(p, "/")))
		if strings.HasSuffix(p, "/") {
			if err := os.MkdirAll(full, 0o755); err != nil {
				tb.Fatalf("mkdir %s: %v", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			tb.Fatalf("mkdir parent of %s: %v", p, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", p, err)
		}
	}
}

// ReadTree returns the regular files below dir, plus every directory that
// has no children, in the same form WriteTree accepts.
func ReadTree(tb testing.TB, dir string) Tree {
	tb.Helper()

	tree := make(Tree)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			children, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				tree[rel+"/"] = ""
			}
			return nil
		}
		content, err := os.ReadFile(path) //nolint:gosec // test fixture path
		if err != nil {
			return err
		}
		tree[rel] = string(content)
		return nil
	})
	if err != nil {
		tb.Fatalf("read tree %s: %v", dir, err)
	}
	return tree
}

// EncodeArchive returns magic, the encoded header and data as one buffer.
// It lets tests craft archives the packer would never produce.
func EncodeArchive(tb testing.TB, h *cattype.Header, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	buf.Write(cattype.Magic[:])
	if err := codec.EncodeHeader(&buf, h, pathctx.New("test")); err != nil {
		tb.Fatalf("encode header: %v", err)
	}
	buf.Write(data)
	return buf.Bytes()
}

// ErrInjected is returned by FailingWriter.
var ErrInjected = errors.New("injected write failure")

// FailingWriter accepts Limit bytes and then fails every write with
// ErrInjected.
type FailingWriter struct {
	Limit int
	n     int
}

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	room := w.Limit - w.n
	if room <= 0 {
		return 0, ErrInjected
	}
	if len(p) > room {
		w.n += room
		return room, ErrInjected
	}
	w.n += len(p)
	return len(p), nil
}
