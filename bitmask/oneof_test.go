package bitmask

import (
	"math/rand"
	"testing"

	"github.com/arloliu/schemabin/errs"
	"github.com/stretchr/testify/require"
)

func encodeLayers(t *testing.T, disc []int, k int) []Layer {
	t.Helper()

	layers, err := SplitOneOf(disc, k)
	require.NoError(t, err)

	encoded := make([][]byte, len(layers))
	for b, l := range layers {
		encoded[b], err = Encode(l.Members, l.N)
		require.NoError(t, err)
	}

	return DecodeLayers(encoded, len(disc))
}

func TestOneOf_PartitionCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, k := range []int{2, 3, 5} {
		disc := make([]int, 200)
		for i := range disc {
			disc[i] = rng.Intn(k)
		}

		layers := encodeLayers(t, disc, k)
		require.Equal(t, disc, IndexToOneOf(layers, len(disc)))

		seen := make([]int, len(disc))
		for b := range k {
			fwd := ForwardMapOneOf(layers, len(disc), b)
			bwd := BackwardMapOneOf(layers, len(disc), b)

			expected := make([]int32, 0)
			for i, d := range disc {
				if d == b {
					expected = append(expected, int32(i))
				}
			}
			require.Equal(t, expected, bwd, "branch %d", b)

			for i, r := range fwd {
				if r < 0 {
					continue
				}
				seen[i]++
				require.Equal(t, int32(i), bwd[r])
				require.Equal(t, int32(i), BackwardMapSingleOneOf(layers, b, int(r)))
			}
			require.Equal(t, int32(-1), BackwardMapSingleOneOf(layers, b, len(bwd)))
		}
		for i := range seen {
			require.Equal(t, 1, seen[i], "element %d must belong to exactly one branch", i)

			branch, rank := ForwardMapSingleOneOf(layers, i)
			require.Equal(t, disc[i], branch)
			require.Equal(t, ForwardMapOneOf(layers, len(disc), branch)[i], rank)
		}
	}
}

func TestOneOf_LayerSizes(t *testing.T) {
	disc := []int{2, 0, 1, 2, 0}
	layers, err := SplitOneOf(disc, 3)
	require.NoError(t, err)
	require.Equal(t, []Layer{
		{Members: []int{1, 4}, N: 5},
		{Members: []int{1}, N: 3},
	}, layers)
}

func TestOneOf_Invalid(t *testing.T) {
	_, err := SplitOneOf([]int{0}, 1)
	require.ErrorIs(t, err, errs.ErrUsage)

	_, err = SplitOneOf([]int{0, 3}, 3)
	require.ErrorIs(t, err, errs.ErrUsage)

	layers := encodeLayers(t, []int{0, 1}, 2)
	b, r := ForwardMapSingleOneOf(layers, 5)
	require.Equal(t, -1, b)
	require.Equal(t, int32(-1), r)
	require.Equal(t, int32(-1), BackwardMapSingleOneOf(layers, 4, 0))
}
