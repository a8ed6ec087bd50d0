package bitmask

import (
	"encoding/binary"
	"math/rand"
	"slices"
	"testing"

	"github.com/arloliu/schemabin/errs"
	"github.com/stretchr/testify/require"
)

func randomSet(rng *rand.Rand, n int, density float64) []int {
	out := make([]int, 0)
	for i := range n {
		if rng.Float64() < density {
			out = append(out, i)
		}
	}

	return out
}

func TestEncodeDecode_Example(t *testing.T) {
	set := []int{6, 7, 21, 28, 30}

	data, err := Encode(set, 256)
	require.NoError(t, err)
	require.Equal(t, set, DecodeAll(data, 256))
	require.Equal(t, 5, Count(data, 256))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{1, 2, 3, 7, 8, 9, 31, 32, 33, 100, 1000, 4097} {
		for _, density := range []float64{0, 0.01, 0.1, 0.5, 0.9, 1} {
			set := randomSet(rng, n, density)
			data, err := Encode(set, n)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			got := DecodeAll(data, n)
			require.Equal(t, set, got, "n=%d density=%v", n, density)
		}
	}
}

func TestEncode_EmptyAndSentinel(t *testing.T) {
	data, err := Encode(nil, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, data)
	require.Empty(t, DecodeAll(data, 0))

	data, err = Encode(nil, 1000)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, data)
	require.Empty(t, DecodeAll(data, 1000))
}

func TestEncode_SingleLeaf(t *testing.T) {
	data, err := Encode([]int{0}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, data)
	require.Equal(t, []int{0}, DecodeAll(data, 1))
}

func TestEncode_TruncatesTrailingZeros(t *testing.T) {
	// Only the path to index 0 is emitted: depth+1 bits for n=1024.
	data, err := Encode([]int{0}, 1024)
	require.NoError(t, err)
	require.Len(t, data, 2)

	// Appending explicit zero bytes must not change the decoded set.
	padded := append(slices.Clone(data), 0, 0, 0)
	require.Equal(t, []int{0}, DecodeAll(padded, 1024))
}

func TestEncode_SparseIsCompact(t *testing.T) {
	n := 1 << 16
	data, err := Encode([]int{5, n - 1}, n)
	require.NoError(t, err)
	require.Less(t, len(data), 16)
}

func TestEncode_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		set  []int
		n    int
	}{
		{"not increasing", []int{3, 3}, 10},
		{"decreasing", []int{5, 2}, 10},
		{"out of range", []int{10}, 10},
		{"negative", []int{-1}, 10},
		{"member in empty", []int{0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.set, tt.n)
			require.ErrorIs(t, err, errs.ErrUsage)
		})
	}
}

func TestEncodeSeq(t *testing.T) {
	set := []int{1, 4, 9, 16, 25}
	fromSeq, err := EncodeSeq(slices.Values(set), 30)
	require.NoError(t, err)

	fromSlice, err := Encode(set, 30)
	require.NoError(t, err)
	require.Equal(t, fromSlice, fromSeq)
}

func TestDecode_Restartable(t *testing.T) {
	data, err := Encode([]int{2, 3, 11}, 16)
	require.NoError(t, err)

	seq := Decode(data, 16)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)

	// early termination
	for idx := range seq {
		require.Equal(t, 2, idx)
		break
	}
}

func TestEmbedded(t *testing.T) {
	buf := []byte{0xff}
	buf, err := AppendEmbedded(buf, []int{1, 300}, 301)
	require.NoError(t, err)

	tree, n, err := ParseEmbedded(buf[1:])
	require.NoError(t, err)
	require.Equal(t, 301, n)
	require.Equal(t, []int{1, 300}, DecodeAll(tree, n))

	_, _, err = ParseEmbedded(nil)
	require.ErrorIs(t, err, errs.ErrCorruptBuffer)

	// element counts are int32 positions
	huge := binary.AppendUvarint(nil, 1<<31)
	_, _, err = ParseEmbedded(append(huge, 0))
	require.ErrorIs(t, err, errs.ErrCorruptBuffer)
}

func BenchmarkDecode_Sparse(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	set := randomSet(rng, 1<<16, 0.001)
	data, _ := Encode(set, 1<<16)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		_ = Count(data, 1<<16)
	}
}

func BenchmarkEncode_Dense(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	set := randomSet(rng, 1<<12, 0.5)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		_, _ = Encode(set, 1<<12)
	}
}
