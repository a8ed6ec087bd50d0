package bitmask

import "iter"

// BitToIndex converts a bit stream into the positions of its set bits.
func BitToIndex(bitSeq iter.Seq[bool]) iter.Seq[int] {
	return func(yield func(int) bool) {
		i := 0
		for b := range bitSeq {
			if b && !yield(i) {
				return
			}
			i++
		}
	}
}

// IndexToBit expands a member set over [0, n) into n bits.
func IndexToBit(set iter.Seq[int], n int) iter.Seq[bool] {
	return func(yield func(bool) bool) {
		i := 0
		for idx := range set {
			for ; i < idx && i < n; i++ {
				if !yield(false) {
					return
				}
			}
			if i < n {
				if !yield(true) {
					return
				}
				i++
			}
		}
		for ; i < n; i++ {
			if !yield(false) {
				return
			}
		}
	}
}

// ForwardMapIndexes maps every position in [0, n) to its rank among the
// positions whose membership equals equals, or -1 if it does not match.
func ForwardMapIndexes(set iter.Seq[int], n int, equals bool) []int32 {
	out := make([]int32, n)
	var rank int32
	i := 0

	emit := func(member bool) {
		if member == equals {
			out[i] = rank
			rank++
		} else {
			out[i] = -1
		}
		i++
	}

	for idx := range set {
		for i < idx && i < n {
			emit(false)
		}
		if i < n {
			emit(true)
		}
	}
	for i < n {
		emit(false)
	}

	return out
}

// BackwardMapIndexes lists, in rank order, the positions in [0, n) whose
// membership equals equals. It is the inverse of ForwardMapIndexes.
func BackwardMapIndexes(set iter.Seq[int], n int, equals bool) []int32 {
	if equals {
		out := make([]int32, 0)
		for idx := range set {
			if idx >= n {
				break
			}
			out = append(out, int32(idx)) //nolint:gosec
		}

		return out
	}

	out := make([]int32, 0, n)
	i := 0
	for idx := range set {
		for ; i < idx && i < n; i++ {
			out = append(out, int32(i)) //nolint:gosec
		}
		i = idx + 1
	}
	for ; i < n; i++ {
		out = append(out, int32(i)) //nolint:gosec
	}

	return out
}

// ForwardMapSingleIndex is ForwardMapIndexes for one position. It scans the set
// only up to index.
func ForwardMapSingleIndex(set iter.Seq[int], index int, equals bool) int32 {
	if index < 0 {
		return -1
	}

	before := 0
	member := false
	for idx := range set {
		if idx > index {
			break
		}
		if idx == index {
			member = true
			break
		}
		before++
	}

	if member != equals {
		return -1
	}
	if equals {
		return int32(before) //nolint:gosec
	}

	return int32(index - before) //nolint:gosec
}

// BackwardMapSingleIndex returns the position of the rank-th matching element,
// or -1 if the rank is beyond the matching elements of [0, n).
func BackwardMapSingleIndex(set iter.Seq[int], n int, rank int, equals bool) int32 {
	if rank < 0 {
		return -1
	}

	if equals {
		r := 0
		for idx := range set {
			if idx >= n {
				break
			}
			if r == rank {
				return int32(idx) //nolint:gosec
			}
			r++
		}

		return -1
	}

	pos := rank
	for idx := range set {
		if idx > pos {
			break
		}
		pos++
	}
	if pos >= n {
		return -1
	}

	return int32(pos) //nolint:gosec
}

// ChainForwardIndexes composes two index maps: result[i] = second[first[i]].
// Negative entries and out-of-range positions propagate as -1.
func ChainForwardIndexes(first, second []int32) []int32 {
	out := make([]int32, len(first))
	for i, p := range first {
		if p < 0 || int(p) >= len(second) {
			out[i] = -1
			continue
		}
		out[i] = second[p]
	}

	return out
}

// ChainBackwardIndexes composes a backward map with an index map:
// result[i] = indexes[backward[i]]. Negative entries propagate as -1.
func ChainBackwardIndexes(indexes, backward []int32) []int32 {
	return ChainForwardIndexes(backward, indexes)
}
