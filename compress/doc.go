// Package compress provides the body codecs of a schemabin buffer.
//
// The header is never compressed; the body following it is compressed as a
// single block with the codec named in the header. Because the header
// records the uncompressed body length, decompression allocates the output
// once and rejects bodies that decode to any other size.
//
// # Supported Algorithms
//
//   - None: the body is stored as is and can be read in place
//   - Zstd: best ratio, github.com/klauspost/compress/zstd
//   - S2: fast Snappy-compatible codec, github.com/klauspost/compress/s2
//   - LZ4: fastest decompression, github.com/pierrec/lz4/v4
//
// A compressed buffer loses zero-copy primitive dumps into the caller's
// buffer; the reader dumps from the decompressed body instead.
//
// # Usage
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	stored, err := codec.Compress(body)
//	...
//	body, err = codec.Decompress(stored, len(body))
//
// All built-in codecs are stateless and safe for concurrent use; encoder and
// decoder state is pooled internally.
package compress
