package section

import "github.com/arloliu/schemabin/format"

const (
	// Bit masks of the Options field
	LinksMask        = 0x0001 // Mask for the link bit (bit 0), set when the body holds Link nodes
	ReservedBitsMask = 0x000E // Mask for reserved bits (bits 1-3), must be zero
	MagicNumberMask  = 0xFFF0 // Mask for magic number (bits 4-15)

	// Magic number (bits 4-15)
	MagicV1Opt = 0xEC10

	// Version is the current format version.
	Version = 1

	// HeaderSize is the fixed header size in bytes.
	HeaderSize = 32
)

var validCompressions = map[format.CompressionType]struct{}{
	format.CompressionNone: {},
	format.CompressionZstd: {},
	format.CompressionS2:   {},
	format.CompressionLZ4:  {},
}
