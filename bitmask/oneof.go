package bitmask

import (
	"fmt"
	"sort"

	"github.com/arloliu/schemabin/errs"
)

// Layer is one decoded level of an n-way discriminant.
//
// Layer b partitions the elements not claimed by layers 0..b-1: Members lists
// the positions, within that remainder, of the elements assigned to branch b.
// N is the size of the remainder.
type Layer struct {
	Members []int
	N       int
}

// SplitOneOf derives the k-1 layers of an n-way discriminant. disc[i] is the
// branch of element i and must lie in [0, k).
func SplitOneOf(disc []int, k int) ([]Layer, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: OneOf needs at least 2 branches, got %d", errs.ErrUsage, k)
	}

	layers := make([]Layer, k-1)
	remaining := len(disc)
	for b := range layers {
		layers[b].N = remaining
		layers[b].Members = make([]int, 0)
	}

	// pos[b] is the ordinal of the current element inside layer b's remainder.
	pos := make([]int, k-1)
	for i, d := range disc {
		if d < 0 || d >= k {
			return nil, fmt.Errorf("%w: discriminant %d at %d outside [0,%d)", errs.ErrUsage, d, i, k)
		}
		for b := 0; b < k-1 && b <= d; b++ {
			if b == d {
				layers[b].Members = append(layers[b].Members, pos[b])
			}
			pos[b]++
		}
	}
	for b := 1; b < k-1; b++ {
		layers[b].N = layers[b-1].N - len(layers[b-1].Members)
	}

	return layers, nil
}

// DecodeLayers decodes k-1 encoded layers. The first layer covers n elements;
// each following layer covers what the previous one left unclaimed.
func DecodeLayers(encoded [][]byte, n int) []Layer {
	layers := make([]Layer, len(encoded))
	remaining := n
	for b, data := range encoded {
		members := DecodeAll(data, remaining)
		layers[b] = Layer{Members: members, N: remaining}
		remaining -= len(members)
	}

	return layers
}

// IndexToOneOf returns the branch of every element in [0, n).
func IndexToOneOf(layers []Layer, n int) []int {
	disc := make([]int, n)
	walkOneOf(layers, n, func(i, branch int, _ int32) {
		disc[i] = branch
	})

	return disc
}

// ForwardMapOneOf maps every element to its rank within branch, or -1 when it
// belongs to another branch.
func ForwardMapOneOf(layers []Layer, n int, branch int) []int32 {
	out := make([]int32, n)
	walkOneOf(layers, n, func(i, b int, rank int32) {
		if b == branch {
			out[i] = rank
		} else {
			out[i] = -1
		}
	})

	return out
}

// BackwardMapOneOf lists, in rank order, the original positions of the
// elements assigned to branch.
func BackwardMapOneOf(layers []Layer, n int, branch int) []int32 {
	out := make([]int32, 0)
	walkOneOf(layers, n, func(i, b int, _ int32) {
		if b == branch {
			out = append(out, int32(i)) //nolint:gosec
		}
	})

	return out
}

// walkOneOf visits every element in order with its branch and rank.
func walkOneOf(layers []Layer, n int, visit func(i, branch int, rank int32)) {
	k := len(layers) + 1
	ptr := make([]int, len(layers))
	in := make([]int32, len(layers))
	out := make([]int, len(layers))

	for i := range n {
		assigned := false
		for b, layer := range layers {
			p := in[b] + int32(out[b]) //nolint:gosec
			if ptr[b] < len(layer.Members) && layer.Members[ptr[b]] == int(p) {
				ptr[b]++
				visit(i, b, in[b])
				in[b]++
				assigned = true

				break
			}
			out[b]++
		}
		if !assigned {
			visit(i, k-1, int32(out[k-2])-1) //nolint:gosec
		}
	}
}

// ForwardMapSingleOneOf returns the branch of one element and its rank inside
// that branch. It returns (-1, -1) for an out-of-range index.
func ForwardMapSingleOneOf(layers []Layer, index int) (branch int, rank int32) {
	if index < 0 || (len(layers) > 0 && index >= layers[0].N) {
		return -1, -1
	}

	p := index
	for b, layer := range layers {
		before := sort.SearchInts(layer.Members, p)
		if before < len(layer.Members) && layer.Members[before] == p {
			return b, int32(before) //nolint:gosec
		}
		p -= before
	}

	return len(layers), int32(p) //nolint:gosec
}

// BackwardMapSingleOneOf returns the original position of the rank-th element
// of branch, or -1 if the branch has fewer elements.
func BackwardMapSingleOneOf(layers []Layer, branch int, rank int) int32 {
	if branch < 0 || branch > len(layers) || rank < 0 {
		return -1
	}

	var p int
	if branch < len(layers) {
		if rank >= len(layers[branch].Members) {
			return -1
		}
		p = layers[branch].Members[rank]
	} else {
		last := layers[len(layers)-1]
		if rank >= last.N-len(last.Members) {
			return -1
		}
		p = rank
	}

	for b := branch - 1; b >= 0; b-- {
		for _, m := range layers[b].Members {
			if m > p {
				break
			}
			p++
		}
	}

	return int32(p) //nolint:gosec
}
