package encoding

import (
	"strings"
	"testing"

	"github.com/arloliu/schemabin/errs"
	"github.com/stretchr/testify/require"
)

func TestStringTableEncoder_AddString(t *testing.T) {
	enc := NewStringTableEncoder()
	defer enc.Finish()

	off, err := enc.AddString("red")
	require.NoError(t, err)
	require.Equal(t, uint32(0), off)

	off, err = enc.AddString("green")
	require.NoError(t, err)
	require.Equal(t, uint32(4), off)

	again, err := enc.AddString("red")
	require.NoError(t, err)
	require.Equal(t, uint32(0), again)

	empty, err := enc.AddString("")
	require.NoError(t, err)
	require.Equal(t, uint32(10), empty)

	require.Equal(t, 3, enc.Len())
	require.Equal(t, 11, enc.Size())
	require.Equal(t, []byte{3, 'r', 'e', 'd', 5, 'g', 'r', 'e', 'e', 'n', 0}, enc.Bytes())
}

func TestStringTable_RoundTrip(t *testing.T) {
	enc := NewStringTableEncoder()
	defer enc.Finish()

	inputs := []string{"", "a", strings.Repeat("x", 300), "héllo", "a"}
	offsets := make([]uint32, len(inputs))
	for i, s := range inputs {
		off, err := enc.AddString(s)
		require.NoError(t, err)
		offsets[i] = off
	}
	require.Equal(t, offsets[1], offsets[4])

	dec := NewStringTableDecoder(enc.Bytes())
	for i, s := range inputs {
		got, err := dec.StringAt(offsets[i])
		require.NoError(t, err)
		require.Equal(t, s, got)
	}

	var all []string
	for off, s := range dec.All() {
		got, err := dec.StringAt(off)
		require.NoError(t, err)
		require.Equal(t, s, got)
		all = append(all, s)
	}
	require.Equal(t, inputs[:4], all)
}

func TestStringTableDecoder_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		off  uint32
	}{
		{"empty table", nil, 0},
		{"offset past end", []byte{1, 'a'}, 2},
		{"length overrun", []byte{5, 'a', 'b'}, 0},
		{"truncated varint", []byte{0x80}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStringTableDecoder(tt.data).StringAt(tt.off)
			require.ErrorIs(t, err, errs.ErrCorruptBuffer)
		})
	}
}

func BenchmarkStringTableEncoder_AddString(b *testing.B) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	b.ReportAllocs()
	for b.Loop() {
		enc := NewStringTableEncoder()
		for i := range 1000 {
			_, _ = enc.AddString(words[i%len(words)])
		}
		enc.Finish()
	}
}
