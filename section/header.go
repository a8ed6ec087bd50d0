package section

import (
	"fmt"

	"github.com/arloliu/schemabin/endian"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
)

// Header is the fixed-size section at the start of a buffer.
type Header struct {
	// Options packs the magic number with option bits.
	Options uint16 // byte offset 0-1
	// Version is the format version, currently 1.
	Version uint8 // byte offset 2
	// Compression is the codec applied to the body.
	Compression format.CompressionType // byte offset 3
	// SchemaFingerprint identifies the schema graph the buffer was written with.
	SchemaFingerprint uint64 // byte offset 4-11
	// RootOffset is the body offset of the root node.
	RootOffset uint32 // byte offset 12-15
	// StringTableOffset is the body offset where the string table starts.
	// The table runs to the end of the body.
	StringTableOffset uint32 // byte offset 16-19
	// RootTypeOffset is the string table offset of the root type name.
	RootTypeOffset uint32 // byte offset 20-23
	// BodyLength is the uncompressed body length.
	BodyLength uint32 // byte offset 24-27
	// StoredLength is the body length following the header, after compression.
	StoredLength uint32 // byte offset 28-31
}

// NewHeader creates a header for a buffer written with the given schema
// fingerprint. Offsets and lengths are filled in by the writer.
func NewHeader(fingerprint uint64) *Header {
	return &Header{
		Options:           MagicV1Opt,
		Version:           Version,
		Compression:       format.CompressionNone,
		SchemaFingerprint: fingerprint,
	}
}

// HasLinks reports whether the body holds Link nodes.
func (h *Header) HasLinks() bool {
	return h.Options&LinksMask != 0
}

// SetHasLinks sets or clears the link bit.
func (h *Header) SetHasLinks(enabled bool) {
	if enabled {
		h.Options |= LinksMask
	} else {
		h.Options &^= LinksMask
	}
}

// MagicNumber returns the magic number bits of Options.
func (h *Header) MagicNumber() uint16 {
	return h.Options & MagicNumberMask
}

// Parse parses the header from exactly HeaderSize bytes.
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	engine := endian.GetLittleEndianEngine()
	h.Options = engine.Uint16(data[0:2])
	h.Version = data[2]
	h.Compression = format.CompressionType(data[3])
	h.SchemaFingerprint = engine.Uint64(data[4:12])
	h.RootOffset = engine.Uint32(data[12:16])
	h.StringTableOffset = engine.Uint32(data[16:20])
	h.RootTypeOffset = engine.Uint32(data[20:24])
	h.BodyLength = engine.Uint32(data[24:28])
	h.StoredLength = engine.Uint32(data[28:32])

	return h.Validate()
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the serialized header to dst.
func (h *Header) AppendTo(dst []byte) []byte {
	engine := endian.GetLittleEndianEngine()
	dst = engine.AppendUint16(dst, h.Options)
	dst = append(dst, h.Version, byte(h.Compression))
	dst = engine.AppendUint64(dst, h.SchemaFingerprint)
	dst = engine.AppendUint32(dst, h.RootOffset)
	dst = engine.AppendUint32(dst, h.StringTableOffset)
	dst = engine.AppendUint32(dst, h.RootTypeOffset)
	dst = engine.AppendUint32(dst, h.BodyLength)
	dst = engine.AppendUint32(dst, h.StoredLength)

	return dst
}

// Validate checks the magic number, reserved bits, version, compression and
// the internal consistency of the offsets.
func (h *Header) Validate() error {
	if h.MagicNumber() != MagicV1Opt {
		return errs.ErrInvalidMagic
	}
	if h.Options&ReservedBitsMask != 0 {
		return fmt.Errorf("%w: reserved option bits set", errs.ErrCorruptBuffer)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %d", errs.ErrInvalidVersion, h.Version)
	}
	if _, ok := validCompressions[h.Compression]; !ok {
		return fmt.Errorf("%w: %d", errs.ErrCompression, h.Compression)
	}
	if h.StringTableOffset > h.BodyLength {
		return fmt.Errorf("%w: string table offset %d beyond body length %d", errs.ErrCorruptBuffer, h.StringTableOffset, h.BodyLength)
	}
	if h.RootOffset > h.StringTableOffset {
		return fmt.Errorf("%w: root offset %d outside node region", errs.ErrCorruptBuffer, h.RootOffset)
	}
	if h.Compression == format.CompressionNone && h.StoredLength != h.BodyLength {
		return fmt.Errorf("%w: stored length %d differs from body length %d", errs.ErrCorruptBuffer, h.StoredLength, h.BodyLength)
	}

	return nil
}

// ParseHeader parses the header at the start of data and checks that the
// stored body follows it in full.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	var h Header
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}
	if uint64(len(data)-HeaderSize) < uint64(h.StoredLength) {
		return Header{}, fmt.Errorf("%w: body truncated, have %d of %d bytes", errs.ErrCorruptBuffer, len(data)-HeaderSize, h.StoredLength)
	}

	return h, nil
}
