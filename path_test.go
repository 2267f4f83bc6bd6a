package cats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "."},
		{"root slash", "/", "."},
		{"only slashes", "///", "."},
		{"dot", ".", "."},
		{"top-level file", "a.txt", "a.txt"},
		{"leading slash", "/sub/b.txt", "sub/b.txt"},
		{"trailing slash", "sub/", "sub"},
		{"repeated slashes", "sub//deeper///c.txt", "sub/deeper/c.txt"},
		{"backslash kept", `sub\b.txt`, `sub\b.txt`},
		{"dotdot kept", "//a//..//b//", "a/../b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}
