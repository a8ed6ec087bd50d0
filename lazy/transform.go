package lazy

import "slices"

// Filter keeps the elements for which pred returns true. Absent elements are
// passed to pred as the fill value.
func (a *Array[T]) Filter(pred func(T) bool) *Array[T] {
	index := make([]int32, 0, len(a.index))
	for i, p := range a.index {
		if pred(a.At(i)) {
			index = append(index, p)
		}
	}

	return a.WithIndex(index)
}

// Sort orders the elements by cmp. The sort is stable: elements that compare
// equal keep their current relative order. Each element is evaluated once.
func (a *Array[T]) Sort(cmp func(x, y T) int) *Array[T] {
	order := Identity(len(a.index))
	values := a.Collect()

	slices.SortStableFunc(order, func(x, y int32) int {
		if c := cmp(values[x], values[y]); c != 0 {
			return c
		}
		// explicit tie break on position
		return int(x) - int(y)
	})

	index := make([]int32, len(order))
	for i, o := range order {
		index[i] = a.index[o]
	}

	return a.WithIndex(index)
}

// Reverse reverses the element order.
func (a *Array[T]) Reverse() *Array[T] {
	index := cloneIndex(a.index)
	slices.Reverse(index)

	return a.WithIndex(index)
}

// Slice returns elements [start, end). Bounds are clamped to [0, Len()].
func (a *Array[T]) Slice(start, end int) *Array[T] {
	start = max(0, min(start, len(a.index)))
	end = max(start, min(end, len(a.index)))

	return a.WithIndex(a.index[start:end:end])
}

// Duplicate repeats element i counts[i] times. Elements without a count are
// dropped.
func (a *Array[T]) Duplicate(counts []int) *Array[T] {
	total := 0
	for i, c := range counts {
		if i >= len(a.index) {
			break
		}
		total += max(c, 0)
	}

	index := make([]int32, 0, total)
	for i, c := range counts {
		if i >= len(a.index) {
			break
		}
		for range c {
			index = append(index, a.index[i])
		}
	}

	return a.WithIndex(index)
}

// DropNull removes absent elements.
func (a *Array[T]) DropNull() *Array[T] {
	index := make([]int32, 0, len(a.index))
	for _, p := range a.index {
		if p >= 0 {
			index = append(index, p)
		}
	}

	return a.WithIndex(index)
}

// DropNulls prunes co-indexed arrays consistently: the results keep exactly
// the positions where every input has a present entry, in original order.
// Arrays shorter than the first one treat missing positions as absent.
func DropNulls[T any](arrays ...*Array[T]) []*Array[T] {
	if len(arrays) == 0 {
		return nil
	}

	keep := make([]int, 0, arrays[0].Len())
	for i := range arrays[0].Len() {
		present := true
		for _, arr := range arrays {
			if i >= arr.Len() || arr.index[i] < 0 {
				present = false
				break
			}
		}
		if present {
			keep = append(keep, i)
		}
	}

	out := make([]*Array[T], len(arrays))
	for j, arr := range arrays {
		index := make([]int32, len(keep))
		for k, i := range keep {
			index[k] = arr.index[i]
		}
		out[j] = arr.WithIndex(index)
	}

	return out
}

// FindAll correlates target with a: element i of the result is the first
// element of a for which match(aValue, target[i]) holds, or absent when none
// does. This is a nested-loop join.
func FindAll[T, U any](a *Array[T], target *Array[U], match func(T, U) bool) *Array[T] {
	values := a.Collect()
	index := make([]int32, target.Len())

	for i := range target.Len() {
		index[i] = -1
		tv := target.At(i)
		for j, v := range values {
			if a.index[j] >= 0 && match(v, tv) {
				index[i] = a.index[j]
				break
			}
		}
	}

	return a.WithIndex(index)
}

// Positions returns the positions (0..Len()-1) selected by op when applied to
// a. Absent elements of a carry a negative position. op must only reorder,
// drop or repeat elements; it must not replace a's getter.
func Positions[T any](a *Array[T], op func(*Array[T]) *Array[T]) []int32 {
	index := Identity(a.Len())
	for i, p := range a.index {
		if p < 0 {
			index[i] = -1
		}
	}
	positional := FromGetter(a.At, index, a.fill)

	return op(positional).index
}

// With applies the selection op computes on src to other, which must be
// co-indexed with src. It is the building block for filtering one column by a
// predicate over another:
//
//	kept := lazy.With(classes, waypoints, func(c *lazy.Array[int]) *lazy.Array[int] {
//		return c.Filter(func(v int) bool { return v == 3 })
//	})
func With[T, U any](src *Array[T], other *Array[U], op func(*Array[T]) *Array[T]) *Array[U] {
	return View(other, Positions(src, op))
}
