package format

type (
	Kind            uint8
	CompressionType uint8
	ArrayKind       uint8
)

const (
	KindPrimitive  Kind = 0x1 // KindPrimitive is a fixed-size scalar or vector codec.
	KindTuple      Kind = 0x2 // KindTuple is an ordered list of positional children.
	KindNamedTuple Kind = 0x3 // KindNamedTuple is an ordered list of named children.
	KindArray      Kind = 0x4 // KindArray is a variable-length list of one element type.
	KindMap        Kind = 0x5 // KindMap is a string-keyed dictionary of one value type.
	KindOptional   Kind = 0x6 // KindOptional is a value that may be absent.
	KindOneOf      Kind = 0x7 // KindOneOf is a tagged union of two or more alternatives.
	KindRef        Kind = 0x8 // KindRef is a back-reference to a value written elsewhere.
	KindLink       Kind = 0x9 // KindLink is a jump into a type of another schema.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.

	Int8Array    ArrayKind = 0x1
	Uint8Array   ArrayKind = 0x2
	Int16Array   ArrayKind = 0x3
	Uint16Array  ArrayKind = 0x4
	Int32Array   ArrayKind = 0x5
	Uint32Array  ArrayKind = 0x6
	Float32Array ArrayKind = 0x7
	Int64Array   ArrayKind = 0x8
	Uint64Array  ArrayKind = 0x9
	Float64Array ArrayKind = 0xa
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindTuple:
		return "Tuple"
	case KindNamedTuple:
		return "NamedTuple"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindOptional:
		return "Optional"
	case KindOneOf:
		return "OneOf"
	case KindRef:
		return "Ref"
	case KindLink:
		return "Link"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ElementSize returns the width in bytes of one element of the typed array.
func (a ArrayKind) ElementSize() int {
	switch a {
	case Int8Array, Uint8Array:
		return 1
	case Int16Array, Uint16Array:
		return 2
	case Int32Array, Uint32Array, Float32Array:
		return 4
	case Int64Array, Uint64Array, Float64Array:
		return 8
	default:
		return 0
	}
}

func (a ArrayKind) String() string {
	switch a {
	case Int8Array:
		return "Int8Array"
	case Uint8Array:
		return "Uint8Array"
	case Int16Array:
		return "Int16Array"
	case Uint16Array:
		return "Uint16Array"
	case Int32Array:
		return "Int32Array"
	case Uint32Array:
		return "Uint32Array"
	case Float32Array:
		return "Float32Array"
	case Int64Array:
		return "Int64Array"
	case Uint64Array:
		return "Uint64Array"
	case Float64Array:
		return "Float64Array"
	default:
		return "Unknown"
	}
}
