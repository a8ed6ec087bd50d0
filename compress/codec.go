package compress

import (
	"fmt"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
)

// Compressor compresses a buffer body.
type Compressor interface {
	// Compress returns the compressed form of data. The input is not
	// modified; the result may alias it only for the no-op codec.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a buffer body.
type Decompressor interface {
	// Decompress restores data to exactly size bytes. A body that decodes to
	// a different length is reported as corrupt.
	Decompress(data []byte, size int) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// Stats describes one compression operation.
type Stats struct {
	Algorithm      format.CompressionType
	OriginalSize   int
	CompressedSize int
}

// Ratio returns compressed size / original size, or 0 for an empty input.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the saved space in percent.
func (s Stats) SpaceSavings() float64 {
	return (1 - s.Ratio()) * 100
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec returns the built-in codec for compressionType.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrCompression, compressionType)
}

// checkSize wraps a decoded body whose length disagrees with the header.
func checkSize(alg string, out []byte, size int) ([]byte, error) {
	if len(out) != size {
		return nil, fmt.Errorf("%w: %s body decoded to %d bytes, want %d", errs.ErrCorruptBuffer, alg, len(out), size)
	}

	return out, nil
}
