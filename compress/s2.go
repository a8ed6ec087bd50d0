package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/schemabin/errs"
)

// S2Compressor compresses bodies with S2, a Snappy extension that trades
// some ratio for much faster encoding.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates an S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress compresses data as a single S2 block.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress restores size bytes. The block's own length prefix is checked
// before any allocation.
func (c S2Compressor) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return checkSize("s2", nil, size)
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("%w: s2: %w", errs.ErrCorruptBuffer, err)
	}
	if n != size {
		return checkSize("s2", make([]byte, n), size)
	}

	out, err := s2.Decode(make([]byte, size), data)
	if err != nil {
		return nil, fmt.Errorf("%w: s2: %w", errs.ErrCorruptBuffer, err)
	}

	return checkSize("s2", out, size)
}
