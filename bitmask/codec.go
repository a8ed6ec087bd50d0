package bitmask

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"math/bits"

	"github.com/arloliu/schemabin/errs"
)

// maxDepth bounds the traversal stack.
const maxDepth = 64

type node struct {
	lo   int
	span int
}

type stack struct {
	items [maxDepth]node
	sp    int
}

func (s *stack) push(n node) {
	s.items[s.sp] = n
	s.sp++
}

func (s *stack) pop() node {
	s.sp--
	return s.items[s.sp]
}

// treeSpan returns the smallest power of two that is >= n.
func treeSpan(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}

type bitWriter struct {
	buf  []byte
	nbit int
}

func (w *bitWriter) write(bit bool) {
	if w.nbit%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if bit {
		w.buf[len(w.buf)-1] |= 1 << (w.nbit % 8)
	}
	w.nbit++
}

type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) next() (bit bool, ok bool) {
	if r.pos >= len(r.data)*8 {
		return false, false
	}
	bit = r.data[r.pos/8]&(1<<(r.pos%8)) != 0
	r.pos++

	return bit, true
}

// Encode encodes the strictly increasing indices of a set over [0, n).
//
// The result is never empty: an empty set or n == 0 encodes to a single zero byte.
//
// Returns an error wrapping errs.ErrUsage if an index is out of range or the
// sequence is not strictly increasing.
func Encode(indices []int, n int) ([]byte, error) {
	pos := 0
	next := func() (int, bool) {
		if pos >= len(indices) {
			return 0, false
		}
		v := indices[pos]
		pos++

		return v, true
	}

	return encode(next, n)
}

// EncodeSeq encodes an ordered index stream. It stops pulling from seq as soon
// as the stream is exhausted.
func EncodeSeq(seq iter.Seq[int], n int) ([]byte, error) {
	next, stop := iter.Pull(seq)
	defer stop()

	return encode(next, n)
}

func encode(next func() (int, bool), n int) ([]byte, error) {
	if n <= 0 {
		if _, ok := next(); ok {
			return nil, fmt.Errorf("%w: index in empty bitmask", errs.ErrUsage)
		}

		return []byte{0}, nil
	}

	var w bitWriter
	var st stack

	cur, ok := next()
	if ok && (cur < 0 || cur >= n) {
		return nil, fmt.Errorf("%w: bitmask index %d out of range [0,%d)", errs.ErrUsage, cur, n)
	}

	st.push(node{lo: 0, span: treeSpan(n)})
	for st.sp > 0 && ok {
		nd := st.pop()
		if nd.lo >= n {
			continue
		}

		hit := cur < nd.lo+nd.span
		w.write(hit)
		if !hit {
			continue
		}

		if nd.span == 1 {
			prev := cur
			cur, ok = next()
			if ok && (cur <= prev || cur >= n) {
				return nil, fmt.Errorf("%w: bitmask index %d after %d (n=%d)", errs.ErrUsage, cur, prev, n)
			}

			continue
		}

		half := nd.span / 2
		st.push(node{lo: nd.lo + half, span: half})
		st.push(node{lo: nd.lo, span: half})
	}

	if len(w.buf) == 0 {
		return []byte{0}, nil
	}

	return w.buf, nil
}

// Decode returns a restartable iterator over the members encoded in data.
//
// Each call to the returned sequence walks the tree from the start. Running out
// of bits ends the sequence.
func Decode(data []byte, n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if n <= 0 {
			return
		}

		r := bitReader{data: data}
		var st stack
		st.push(node{lo: 0, span: treeSpan(n)})

		for st.sp > 0 {
			nd := st.pop()
			if nd.lo >= n {
				continue
			}

			bit, ok := r.next()
			if !ok {
				return
			}
			if !bit {
				continue
			}

			if nd.span == 1 {
				if !yield(nd.lo) {
					return
				}

				continue
			}

			half := nd.span / 2
			st.push(node{lo: nd.lo + half, span: half})
			st.push(node{lo: nd.lo, span: half})
		}
	}
}

// DecodeAll decodes data into a slice of members.
func DecodeAll(data []byte, n int) []int {
	out := make([]int, 0)
	for idx := range Decode(data, n) {
		out = append(out, idx)
	}

	return out
}

// Count returns the number of members encoded in data.
func Count(data []byte, n int) int {
	c := 0
	for range Decode(data, n) {
		c++
	}

	return c
}

// AppendEmbedded appends the embedded form of a bitmask to dst: a uvarint
// element count n followed by the encoded tree bits.
func AppendEmbedded(dst []byte, indices []int, n int) ([]byte, error) {
	enc, err := Encode(indices, n)
	if err != nil {
		return dst, err
	}

	dst = binary.AppendUvarint(dst, uint64(n)) //nolint:gosec
	dst = append(dst, enc...)

	return dst, nil
}

// ParseEmbedded splits an embedded bitmask into its element count and tree bits.
func ParseEmbedded(data []byte) (tree []byte, n int, err error) {
	v, sz := binary.Uvarint(data)
	if sz <= 0 || v > math.MaxInt32 {
		return nil, 0, fmt.Errorf("%w: bad bitmask length prefix", errs.ErrCorruptBuffer)
	}

	return data[sz:], int(v), nil //nolint:gosec
}
