package cats

import "strings"

// NormalizePath converts a user-provided archive path to fs.ValidPath form.
//
// Leading, trailing and repeated slashes are dropped and an empty result
// becomes ".", so "/sub//b.txt/" names "sub/b.txt". Backslashes are not
// separators: entry names can never contain them, so a path with one will
// not be found. "." and ".." segments are left alone and never match an
// entry.
func NormalizePath(p string) string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}
