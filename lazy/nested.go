package lazy

import "iter"

type nestFrame struct {
	seq   Sequence
	pos   int
	depth int
}

// NestedForEach visits every leaf of a ragged tree of Sequences in order.
// path holds the position at each level and is only valid during the call.
func NestedForEach(s Sequence, fn func(path []int, leaf any)) {
	NestedForEachUntil(s, func(path []int, leaf any) bool {
		fn(path, leaf)
		return true
	})
}

// NestedReduce folds every leaf into an accumulator.
func NestedReduce[A any](s Sequence, f func(acc A, leaf any) A, init A) A {
	acc := init
	NestedForEach(s, func(_ []int, leaf any) {
		acc = f(acc, leaf)
	})

	return acc
}

// NestedMap returns a tree of the same shape whose leaves are f applied to
// the leaves of s. Sub-collections are mapped on access.
func NestedMap(s Sequence, f func(any) any) *Array[any] {
	return New(func(i int) any {
		v, ok := s.Item(i)
		if !ok {
			return nil
		}
		if child, isSeq := v.(Sequence); isSeq {
			return NestedMap(child, f)
		}

		return f(v)
	}, s.Len())
}

// NestedFilter returns a tree of the same shape keeping only the leaves for
// which pred holds. Sub-collections are always kept and filtered on access.
func NestedFilter(s Sequence, pred func(any) bool) *Array[any] {
	index := make([]int32, 0, s.Len())
	for i := range s.Len() {
		v, _ := s.Item(i)
		if _, isSeq := v.(Sequence); isSeq || pred(v) {
			index = append(index, int32(i)) //nolint:gosec
		}
	}

	return FromGetter(func(i int) any {
		v, _ := s.Item(i)
		if child, isSeq := v.(Sequence); isSeq {
			return NestedFilter(child, pred)
		}

		return v
	}, index, nil)
}

// NestedSize returns the number of leaves.
func NestedSize(s Sequence) int {
	return NestedReduce(s, func(acc int, _ any) int { return acc + 1 }, 0)
}

// NestedDepth returns the maximum nesting depth; a flat sequence has depth 1.
func NestedDepth(s Sequence) int {
	deepest := 1
	stack := []nestFrame{{seq: s, depth: 1}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= top.seq.Len() {
			stack = stack[:len(stack)-1]
			continue
		}

		i := top.pos
		top.pos++
		if v, _ := top.seq.Item(i); v != nil {
			if child, ok := v.(Sequence); ok {
				d := top.depth + 1
				deepest = max(deepest, d)
				stack = append(stack, nestFrame{seq: child, depth: d})
			}
		}
	}

	return deepest
}

// Flattened is a restartable flattening of a ragged tree.
type Flattened struct {
	root Sequence
}

// IterateNested flattens s. The returned value can be iterated any number of
// times.
func IterateNested(s Sequence) Flattened {
	return Flattened{root: s}
}

// All yields the leaves in depth-first order.
func (f Flattened) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		stop := false
		NestedForEachUntil(f.root, func(_ []int, leaf any) bool {
			if !yield(leaf) {
				stop = true
			}

			return !stop
		})
	}
}

// GroupStarts returns, for every level-0 element, the flat index of its first
// leaf. An element without leaves starts where the next one does.
func (f Flattened) GroupStarts() []int {
	starts := make([]int, f.root.Len())
	for i := range starts {
		starts[i] = -1
	}

	count := 0
	NestedForEach(f.root, func(path []int, _ any) {
		if starts[path[0]] < 0 {
			starts[path[0]] = count
		}
		count++
	})

	next := count
	for i := len(starts) - 1; i >= 0; i-- {
		if starts[i] < 0 {
			starts[i] = next
		}
		next = starts[i]
	}

	return starts
}

// NestedForEachUntil is NestedForEach with early termination: the walk stops
// when fn returns false.
func NestedForEachUntil(s Sequence, fn func(path []int, leaf any) bool) {
	stack := []nestFrame{{seq: s}}
	path := make([]int, 1)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= top.seq.Len() {
			stack = stack[:len(stack)-1]
			path = path[:len(stack)]

			continue
		}

		i := top.pos
		top.pos++
		path[len(path)-1] = i

		v, _ := top.seq.Item(i)
		if child, ok := v.(Sequence); ok {
			stack = append(stack, nestFrame{seq: child})
			path = append(path, 0)

			continue
		}
		if !fn(path, v) {
			return
		}
	}
}
