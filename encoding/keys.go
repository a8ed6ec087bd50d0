package encoding

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/arloliu/schemabin/errs"
)

// AppendKeys appends the keys region of a Map slot to dst.
func AppendKeys(dst []byte, keys []string) []byte {
	for _, k := range keys {
		dst = binary.AppendUvarint(dst, uint64(len(k)))
		dst = append(dst, k...)
	}

	return dst
}

// KeysSize returns the encoded size of keys.
func KeysSize(keys []string) int {
	size := 0
	for _, k := range keys {
		size += uvarintLen(uint64(len(k))) + len(k)
	}

	return size
}

// DecodeKeys reads n keys from data and returns them with the number of
// bytes consumed.
func DecodeKeys(data []byte, n int) ([]string, int, error) {
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: negative key count %d", errs.ErrCorruptBuffer, n)
	}

	keys := make([]string, 0, min(n, len(data)))
	pos := 0
	for range n {
		s, next, err := readString(data, pos)
		if err != nil {
			if pos == len(data) {
				return nil, 0, fmt.Errorf("%w: keys region holds %d of %d keys", errs.ErrCorruptBuffer, len(keys), n)
			}

			return nil, 0, err
		}
		keys = append(keys, s)
		pos = next
	}

	return keys, pos, nil
}

// FindKey returns the position of key in a sorted key list.
func FindKey(keys []string, key string) (int, bool) {
	return slices.BinarySearch(keys, key)
}

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}

	return n
}
