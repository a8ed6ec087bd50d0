package lazy

import (
	"iter"
	"slices"
)

// Sequence is the read-only view shared by every Array instantiation. Nested
// helpers treat any element implementing Sequence as a sub-collection.
type Sequence interface {
	Len() int
	Item(i int) (any, bool)
}

// Array is a virtual sequence defined by a getter and an index map.
type Array[T any] struct {
	getter func(int) T
	index  []int32
	fill   T
}

var _ Sequence = (*Array[int])(nil)

// Identity returns the index map [0, 1, ..., n-1].
func Identity(n int) []int32 {
	index := make([]int32, n)
	for i := range index {
		index[i] = int32(i) //nolint:gosec
	}

	return index
}

// New creates an Array of length n reading getter(0..n-1).
func New[T any](getter func(int) T, n int) *Array[T] {
	return &Array[T]{getter: getter, index: Identity(n)}
}

// FromGetter creates an Array from a getter and an explicit index map. The
// index map is retained, not copied.
func FromGetter[T any](getter func(int) T, index []int32, fill T) *Array[T] {
	return &Array[T]{getter: getter, index: index, fill: fill}
}

// FromSlice creates an Array over values. A nil index selects every value in
// order; fill is returned by At for absent entries.
func FromSlice[T any](values []T, index []int32, fill T) *Array[T] {
	if index == nil {
		index = Identity(len(values))
	}

	return &Array[T]{
		getter: func(p int) T { return values[p] },
		index:  index,
		fill:   fill,
	}
}

// View composes an index map over src: element i of the result is element
// index[i] of src. Negative or out-of-range entries are absent.
func View[T any](src *Array[T], index []int32) *Array[T] {
	composed := make([]int32, len(index))
	for i, p := range index {
		if p < 0 || int(p) >= len(src.index) {
			composed[i] = -1
			continue
		}
		composed[i] = src.index[p]
	}

	return &Array[T]{getter: src.getter, index: composed, fill: src.fill}
}

// Len returns the logical length.
func (a *Array[T]) Len() int {
	return len(a.index)
}

// Get returns element i and whether it is present.
func (a *Array[T]) Get(i int) (T, bool) {
	if i < 0 || i >= len(a.index) {
		return a.fill, false
	}
	p := a.index[i]
	if p < 0 {
		return a.fill, false
	}

	return a.getter(int(p)), true
}

// At returns element i, or the fill value when it is absent.
func (a *Array[T]) At(i int) T {
	v, _ := a.Get(i)
	return v
}

// Item implements Sequence.
func (a *Array[T]) Item(i int) (any, bool) {
	v, ok := a.Get(i)
	if !ok {
		return nil, false
	}

	return v, true
}

// IndexMap returns the index map. The caller must not modify it.
func (a *Array[T]) IndexMap() []int32 {
	return a.index
}

// Getter returns the underlying getter.
func (a *Array[T]) Getter() func(int) T {
	return a.getter
}

// Fill returns the value reported for absent elements.
func (a *Array[T]) Fill() T {
	return a.fill
}

// All iterates over (position, value) pairs; absent elements yield the fill value.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range a.index {
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}

// Collect materializes the array.
func (a *Array[T]) Collect() []T {
	out := make([]T, len(a.index))
	for i := range a.index {
		out[i] = a.At(i)
	}

	return out
}

// WithIndex returns an array over the same getter with a new index map.
func (a *Array[T]) WithIndex(index []int32) *Array[T] {
	return &Array[T]{getter: a.getter, index: index, fill: a.fill}
}

// Map returns an array whose elements are f applied to a's elements. f runs on
// every access; absent elements stay absent.
func Map[T, U any](a *Array[T], f func(T) U) *Array[U] {
	getter := a.getter

	return &Array[U]{
		getter: func(p int) U { return f(getter(p)) },
		index:  a.index,
	}
}

// FromTuple combines column sources into one array of rows. Element i is
// []any{sources[0].At(i), sources[1].At(i), ...}. Lengths are not checked;
// the result has the length of the first source.
func FromTuple(sources ...*Array[any]) *Array[[]any] {
	n := 0
	if len(sources) > 0 {
		n = sources[0].Len()
	}

	return New(func(i int) []any {
		row := make([]any, len(sources))
		for j, s := range sources {
			row[j] = s.At(i)
		}

		return row
	}, n)
}

// FromRecord combines named column sources into one array of records. Absent
// column entries are omitted from the record. Lengths are not checked; the
// result has the length of the first source.
func FromRecord(names []string, sources []*Array[any]) *Array[map[string]any] {
	n := 0
	if len(sources) > 0 {
		n = sources[0].Len()
	}

	return New(func(i int) map[string]any {
		rec := make(map[string]any, len(names))
		for j, name := range names {
			if j >= len(sources) {
				break
			}
			if v, ok := sources[j].Get(i); ok {
				rec[name] = v
			}
		}

		return rec
	}, n)
}

// cloneIndex is used by transformations that rewrite the index map in place.
func cloneIndex(index []int32) []int32 {
	return slices.Clone(index)
}
