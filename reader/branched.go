package reader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arloliu/schemabin/errs"
)

// BranchedReader is the cursor of a OneOf. It holds one cursor per
// alternative and the branch of every addressed element.
//
// Without an active branch, Get navigates every alternative and Value
// interleaves their values by discriminator. SwitchBranch returns a copy
// that behaves as if the chosen alternative were the whole value; the
// original stays usable for switching to another branch.
type BranchedReader struct {
	typeName string
	branches []Cursor
	disc     []int
	single   bool
	active   int
}

var _ Cursor = (*BranchedReader)(nil)

// AsBranched returns c as a BranchedReader.
func AsBranched(c Cursor) (*BranchedReader, error) {
	br, ok := c.(*BranchedReader)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errs.ErrNotOneOf, c)
	}

	return br, nil
}

// TypeName returns the schema name of the OneOf.
func (b *BranchedReader) TypeName() string {
	return b.typeName
}

// Branches returns one cursor per alternative, in declaration order.
func (b *BranchedReader) Branches() []Cursor {
	return slices.Clone(b.branches)
}

// Discriminator returns the branch of every addressed element, -1 for an
// absent one.
func (b *BranchedReader) Discriminator() []int {
	return slices.Clone(b.disc)
}

// Active returns the branch chosen by SwitchBranch, or -1.
func (b *BranchedReader) Active() int {
	return b.active
}

// SwitchBranch selects branch i.
func (b *BranchedReader) SwitchBranch(i int) (*BranchedReader, error) {
	if i < 0 || i >= len(b.branches) {
		return nil, fmt.Errorf("%w: branch %d of %d in %s", errs.ErrIndexOutOfRange, i, len(b.branches), b.typeName)
	}

	out := *b
	out.active = i

	return &out, nil
}

func (b *BranchedReader) Len() int {
	return len(b.disc)
}

func (b *BranchedReader) At(i int) (Cursor, error) {
	if i < 0 || i >= len(b.disc) {
		return nil, fmt.Errorf("%w: element %d of %d", errs.ErrIndexOutOfRange, i, len(b.disc))
	}

	return b.elem(i)
}

func (b *BranchedReader) elem(i int) (Cursor, error) {
	branch := b.active
	if branch < 0 {
		branch = b.disc[i]
	}
	if branch < 0 {
		return null, nil
	}
	if b.single {
		return b.branches[branch], nil
	}

	return b.branches[branch].At(i)
}

func (b *BranchedReader) Get(keys ...any) (Cursor, error) {
	return walk(b, keys)
}

func (b *BranchedReader) step(key any) (Cursor, error) {
	switch {
	case b.active >= 0:
		return b.branches[b.active].step(key)
	case b.single:
		return b.branches[b.disc[0]].step(key)
	}

	out := *b
	out.branches = make([]Cursor, len(b.branches))
	var errList []error
	for i, c := range b.branches {
		next, err := c.step(key)
		if err != nil {
			errList = append(errList, fmt.Errorf("branch %d: %w", i, err))
			next = &NestedReader{children: nullChildren(len(b.disc))}
		}
		out.branches[i] = next
	}
	if len(errList) == len(b.branches) {
		return nil, errors.Join(errList...)
	}

	return &out, nil
}

func (b *BranchedReader) Value() (any, error) {
	return materialize(b)
}

func (b *BranchedReader) enqueue(m *materializer, set func(any)) error {
	if b.single {
		c, err := b.elem(0)
		if err != nil {
			return err
		}

		return c.enqueue(m, set)
	}
	if b.active >= 0 {
		return b.branches[b.active].enqueue(m, set)
	}

	out := make([]any, len(b.disc))
	set(out)
	for i := range b.disc {
		c, err := b.elem(i)
		if err != nil {
			return err
		}
		if err := c.enqueue(m, func(v any) { out[i] = v }); err != nil {
			return err
		}
	}

	return nil
}

func nullChildren(n int) []Cursor {
	out := make([]Cursor, n)
	for i := range out {
		out[i] = null
	}

	return out
}
