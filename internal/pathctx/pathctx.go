// Package pathctx tracks where in a source tree or archive layout an
// operation is, so that failures can name the exact field that broke.
//
// A Context is an immutable chain of segments. Push never modifies the
// receiver; it returns a new node that shares the receiver as its parent,
// so recursive calls can each hold their own branch without copying.
package pathctx

import "strings"

// Context is one segment in a root-to-leaf chain.
// The nil *Context is valid and renders as the empty string.
type Context struct {
	segment string
	parent  *Context
	depth   int
}

// New returns a root context holding segment.
func New(segment string) *Context {
	return &Context{segment: segment, depth: 1}
}

// Push returns a child context of c holding segment.
// Pushing onto a nil context is equivalent to New.
func (c *Context) Push(segment string) *Context {
	if c == nil {
		return New(segment)
	}
	return &Context{segment: segment, parent: c, depth: c.depth + 1}
}

// Segment returns the leaf segment.
func (c *Context) Segment() string {
	if c == nil {
		return ""
	}
	return c.segment
}

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context {
	if c == nil {
		return nil
	}
	return c.parent
}

// Depth returns the number of segments in the chain.
func (c *Context) Depth() int {
	if c == nil {
		return 0
	}
	return c.depth
}

// Segments returns the segments from root to leaf.
func (c *Context) Segments() []string {
	segments := make([]string, c.Depth())
	for n := c; n != nil; n = n.parent {
		segments[n.depth-1] = n.segment
	}
	return segments
}

// String joins all segments from root to leaf with "/".
func (c *Context) String() string {
	return strings.Join(c.Segments(), "/")
}
