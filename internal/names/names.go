// Package names validates entry names.
//
// Every path segment written to disk during unpack passes through Validate,
// which is what keeps archive contents inside the destination directory.
package names

import (
	"github.com/meigma/cats/internal/cattype"
	"github.com/meigma/cats/internal/pathctx"
)

// Valid reports whether name may be used as an entry name: non-empty, at
// most cattype.MaxNameLen bytes, only visible ASCII (0x21-0x7E), no '/' or
// '\', and not "..".
func Valid(name string) bool {
	if name == "" || name == ".." || len(name) > cattype.MaxNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7E || c == '/' || c == '\\' {
			return false
		}
	}
	return true
}

// Validate returns name unchanged, or an InvalidEntryName error carrying ctx.
func Validate(name string, ctx *pathctx.Context) (string, error) {
	if !Valid(name) {
		return "", cattype.WithContext(cattype.KindInvalidEntryName, ctx, nil)
	}
	return name, nil
}
