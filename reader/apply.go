package reader

import (
	"fmt"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/lazy"
)

// Transform re-expresses the lazy array operations as cursor operations.
// The result of every operation is a cursor over the same buffer with a new
// index map, so it can be navigated further with Get.
//
//	entities, _ := root.Get("entities")
//	alive, err := reader.Apply(entities).Filter(func(v any) bool {
//		return v.(uint8) == 3
//	}, "class")
//	names, err := alive.Get(reader.AllValues, "name")
type Transform struct {
	target Cursor
	other  Cursor
	each   bool
}

// Apply starts a transformation of c. A single Array or Map cursor is
// expanded to its elements first.
func Apply(c Cursor) Transform {
	return Transform{target: c}
}

// ForEach broadcasts the transformation over one level of nesting: it is
// applied to every child of a NestedReader independently.
func (t Transform) ForEach() Transform {
	t.each = true
	return t
}

// With computes the selection on the target but applies it to other, which
// must address as many elements as the target.
func (t Transform) With(other Cursor) Transform {
	t.other = other
	return t
}

// Filter keeps the elements for which pred holds on the value at path.
func (t Transform) Filter(pred func(any) bool, path ...any) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return a.Filter(pred)
	}, path)
}

// Sort orders the elements by cmp over the value at path. The sort is
// stable.
func (t Transform) Sort(cmp func(x, y any) int, path ...any) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return a.Sort(cmp)
	}, path)
}

// FindAll selects, for every entry of targets, the first element whose
// value at path matches it. Entries without a match become absent.
func (t Transform) FindAll(targets []any, match func(v, target any) bool, path ...any) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return lazy.FindAll(a, lazy.FromSlice(targets, nil, nil), match)
	}, path)
}

// DropNull removes absent elements and elements whose value at path is nil.
func (t Transform) DropNull(path ...any) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		if len(path) == 0 {
			return a.DropNull()
		}

		return a.DropNull().Filter(func(v any) bool { return v != nil })
	}, path)
}

// Reverse reverses the element order.
func (t Transform) Reverse() (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return a.Reverse()
	}, nil)
}

// Slice keeps elements [start, end), clamped to the element count.
func (t Transform) Slice(start, end int) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return a.Slice(start, end)
	}, nil)
}

// Duplicate repeats element i counts[i] times.
func (t Transform) Duplicate(counts []int) (Cursor, error) {
	return t.run(func(a *lazy.Array[any]) *lazy.Array[any] {
		return a.Duplicate(counts)
	}, nil)
}

func (t Transform) run(op func(*lazy.Array[any]) *lazy.Array[any], path []any) (Cursor, error) {
	if t.each {
		return t.broadcast(op, path)
	}

	base, err := elements(t.target)
	if err != nil {
		return nil, err
	}
	dest := base
	if t.other != nil {
		if dest, err = elements(t.other); err != nil {
			return nil, err
		}
		if dest.Len() != base.Len() {
			return nil, fmt.Errorf("%w: selection over %d elements applied to %d", errs.ErrUsage, base.Len(), dest.Len())
		}
	}

	var firstErr error
	getter := func(p int) any {
		if firstErr != nil {
			return nil
		}
		v, err := valueAt(base, p, path)
		if err != nil {
			firstErr = err
		}

		return v
	}

	index := lazy.Identity(base.Len())
	for i := range index {
		if c, _ := base.At(i); c == null {
			index[i] = -1
		}
	}
	positions := lazy.Positions(lazy.FromGetter(getter, index, nil), op)
	if firstErr != nil {
		return nil, firstErr
	}

	return reselect(dest, positions)
}

func (t Transform) broadcast(op func(*lazy.Array[any]) *lazy.Array[any], path []any) (Cursor, error) {
	parents, err := nested(t.target)
	if err != nil {
		return nil, err
	}
	var others *NestedReader
	if t.other != nil {
		if others, err = nested(t.other); err != nil {
			return nil, err
		}
		if others.Len() != parents.Len() {
			return nil, fmt.Errorf("%w: %d groups applied to %d", errs.ErrUsage, parents.Len(), others.Len())
		}
	}

	out := make([]Cursor, parents.Len())
	for i, child := range parents.children {
		if child == null {
			out[i] = null
			continue
		}
		inner := Transform{target: child}
		if others != nil {
			inner.other = others.children[i]
		}
		if out[i], err = inner.run(op, path); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
	}

	return &NestedReader{children: out}, nil
}

// elements expands a single Array or Map cursor into the cursor of its
// elements.
func elements(c Cursor) (Cursor, error) {
	switch v := c.(type) {
	case *Reader:
		if v.multi {
			return v, nil
		}
	case *BranchedReader:
		if !v.single {
			return v, nil
		}
	default:
		return c, nil
	}

	all, err := c.Get(AllValues)
	if err != nil {
		return nil, fmt.Errorf("%w: apply needs a collection: %w", errs.ErrUsage, err)
	}

	return all, nil
}

func nested(c Cursor) (*NestedReader, error) {
	if n, ok := c.(*NestedReader); ok {
		return n, nil
	}

	all, err := c.Get(AllValues)
	if err != nil {
		return nil, fmt.Errorf("%w: ForEach needs nested collections: %w", errs.ErrUsage, err)
	}
	n, ok := all.(*NestedReader)
	if !ok {
		return nil, fmt.Errorf("%w: ForEach needs nested collections, got %T", errs.ErrUsage, all)
	}

	return n, nil
}

func valueAt(c Cursor, i int, path []any) (any, error) {
	elem, err := c.At(i)
	if err != nil {
		return nil, err
	}
	if len(path) > 0 {
		if elem, err = elem.Get(path...); err != nil {
			return nil, err
		}
	}

	return elem.Value()
}

// reselect rebuilds c with element i taken from position positions[i];
// negative positions become absent elements.
func reselect(c Cursor, positions []int32) (Cursor, error) {
	switch v := c.(type) {
	case *Reader:
		if !v.multi {
			return nil, fmt.Errorf("%w: cannot reselect a single %s", errs.ErrUsage, v.name)
		}
		index := make([]int32, len(positions))
		for i, p := range positions {
			index[i] = -1
			if p >= 0 {
				index[i] = v.index[p]
			}
		}

		return v.with(v.node, 0, index), nil

	case *NestedReader:
		children := make([]Cursor, len(positions))
		for i, p := range positions {
			children[i] = null
			if p >= 0 {
				children[i] = v.children[p]
			}
		}

		return &NestedReader{children: children}, nil

	case *BranchedReader:
		if v.single {
			return nil, fmt.Errorf("%w: cannot reselect a single %s", errs.ErrUsage, v.typeName)
		}
		out := *v
		out.disc = make([]int, len(positions))
		for i, p := range positions {
			out.disc[i] = -1
			if p >= 0 {
				out.disc[i] = v.disc[p]
			}
		}
		out.branches = make([]Cursor, len(v.branches))
		for b, branch := range v.branches {
			var err error
			if out.branches[b], err = reselect(branch, positions); err != nil {
				return nil, err
			}
		}

		return &out, nil

	case *KeysCursor:
		keys := make([]string, 0, len(positions))
		for _, p := range positions {
			if p < 0 {
				return nil, fmt.Errorf("%w: map keys cannot be absent", errs.ErrUsage)
			}
			keys = append(keys, v.keys[p])
		}

		return &KeysCursor{keys: keys}, nil

	case nullCursor:
		return v, nil

	default:
		return nil, fmt.Errorf("%w: cannot reselect %T", errs.ErrUsage, c)
	}
}
