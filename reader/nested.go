package reader

import (
	"fmt"
	"slices"

	"github.com/arloliu/schemabin/errs"
)

// NestedReader fans out into one child cursor per element of a
// multi-valued parent. Children may differ in length.
type NestedReader struct {
	children []Cursor
}

var _ Cursor = (*NestedReader)(nil)

// NewNestedReader groups children into one cursor.
func NewNestedReader(children ...Cursor) (*NestedReader, error) {
	if len(children) == 0 {
		return nil, errs.ErrEmptyNested
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: child %d is nil", errs.ErrUsage, i)
		}
	}

	return &NestedReader{children: slices.Clone(children)}, nil
}

// Children returns the child cursors.
func (n *NestedReader) Children() []Cursor {
	return slices.Clone(n.children)
}

func (n *NestedReader) Len() int {
	return len(n.children)
}

func (n *NestedReader) At(i int) (Cursor, error) {
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("%w: child %d of %d", errs.ErrIndexOutOfRange, i, len(n.children))
	}

	return n.children[i], nil
}

// Get applies keys to every child.
func (n *NestedReader) Get(keys ...any) (Cursor, error) {
	return walk(n, keys)
}

func (n *NestedReader) step(key any) (Cursor, error) {
	out := make([]Cursor, len(n.children))
	for i, c := range n.children {
		next, err := c.step(key)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out[i] = next
	}

	return &NestedReader{children: out}, nil
}

// Value returns one entry per child.
func (n *NestedReader) Value() (any, error) {
	return materialize(n)
}

func (n *NestedReader) enqueue(m *materializer, set func(any)) error {
	out := make([]any, len(n.children))
	set(out)
	for i, c := range n.children {
		if err := c.enqueue(m, func(v any) { out[i] = v }); err != nil {
			return err
		}
	}

	return nil
}
