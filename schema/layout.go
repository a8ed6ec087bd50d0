package schema

import "github.com/arloliu/schemabin/format"

// Slot widths of the buffer layout. All pointers are little-endian int32
// offsets into the body.
const (
	PointerSize      = 4
	ArraySlotSize    = 8  // {offset, length}
	MapSlotSize      = 12 // {offsetToKeys, offsetToValues, length}
	OptionalSlotSize = 12 // {bitmaskOffset, bitmaskLength, childOffset}
	RefSlotSize      = 8  // {offset, index}
	LinkSlotSize     = 4  // {childOffset}
	OneOfBranchSize  = 12 // {childOffset, bitmaskOffset, bitmaskLength}
)

// OneOfSlotSize returns the slot width of a k-way OneOf: k branch records
// minus the bitmask of the last, implicit branch.
func OneOfSlotSize(k int) int {
	return OneOfBranchSize*(k-1) + PointerSize
}

// PerElement reports whether t stores one slot per element. Column kinds
// (Tuple, NamedTuple, Optional, OneOf, Link) store one slot for the whole
// column and address their children with the same index.
func PerElement(t Type) bool {
	switch t.Kind() { //nolint:exhaustive
	case format.KindPrimitive, format.KindArray, format.KindMap, format.KindRef:
		return true
	default:
		return false
	}
}

// SlotSize returns the width of one slot of t.
func SlotSize(t Type) int {
	switch d := t.(type) {
	case Primitive:
		return d.Codec.Size
	case Tuple:
		return PointerSize * len(d.Children)
	case NamedTuple:
		return PointerSize * len(d.Fields)
	case Array:
		return ArraySlotSize
	case Map:
		return MapSlotSize
	case Optional:
		return OptionalSlotSize
	case OneOf:
		return OneOfSlotSize(len(d.Children))
	case Ref:
		return RefSlotSize
	case Link:
		return LinkSlotSize
	default:
		return 0
	}
}

// BlockSize returns the bytes a node of type t holding n values occupies.
func BlockSize(t Type, n int) int {
	if PerElement(t) {
		return SlotSize(t) * n
	}

	return SlotSize(t)
}

// Alignment returns the alignment of a node block of type t. Primitive blocks
// are aligned to their typed-array element so they can be viewed in place.
func Alignment(t Type) int {
	if p, ok := t.(Primitive); ok && p.Codec.Array != 0 {
		return p.Codec.Array.ElementSize()
	}

	return PointerSize
}
