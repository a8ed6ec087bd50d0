package reader

import (
	"fmt"
	"unsafe"

	"github.com/arloliu/schemabin/endian"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/schema"
)

// DumpBytes returns the slot memory of the addressed primitive elements
// without copying. The elements must be present and stored back to back:
// a gap, a reordering or an absent element is ErrNotContiguous.
//
// The returned slice aliases the buffer and must not be modified.
func (r *Reader) DumpBytes() ([]byte, error) {
	p, err := r.primitive()
	if err != nil {
		return nil, err
	}
	codec := p.typ.(schema.Primitive).Codec //nolint:forcetypeassert

	index := p.Index()
	if len(index) == 0 {
		return []byte{}, nil
	}
	first := index[0]
	for i, idx := range index {
		if idx < 0 || idx != first+int32(i) { //nolint:gosec
			return nil, fmt.Errorf("%w: %s element %d is at %d, want %d", errs.ErrNotContiguous, p.name, i, idx, first+int32(i)) //nolint:gosec
		}
	}

	start := int(p.offset) + int(first)*codec.Size
	n := len(index) * codec.Size
	data, err := p.buf.slice(start, n)
	if err != nil {
		return nil, err
	}

	return data[:n:n], nil
}

// Dump returns the addressed primitive elements as a typed slice viewing
// the buffer, for example []float32 for format.Float32Array. The element
// width of kind must divide the slot size, so a Vec3 column dumps as three
// float32 per element.
//
// Dump needs a little-endian host and a block aligned to the element width;
// otherwise it returns ErrUnaligned and DumpBytes remains available.
func (r *Reader) Dump(kind format.ArrayKind) (any, error) {
	p, err := r.primitive()
	if err != nil {
		return nil, err
	}
	codec := p.typ.(schema.Primitive).Codec //nolint:forcetypeassert

	width := kind.ElementSize()
	if width == 0 || codec.Array == 0 || codec.Size%width != 0 {
		return nil, fmt.Errorf("%w: cannot view %s as %s", errs.ErrUsage, codec.Name, kind)
	}
	if !endian.IsNativeLittleEndian() {
		return nil, fmt.Errorf("%w: host is big-endian", errs.ErrUnaligned)
	}

	data, err := p.DumpBytes()
	if err != nil {
		return nil, err
	}
	count := len(data) / width
	if count > 0 && uintptr(unsafe.Pointer(&data[0]))%uintptr(width) != 0 {
		return nil, fmt.Errorf("%w: %s block at %p", errs.ErrUnaligned, p.name, &data[0])
	}

	return view(kind, data, count), nil
}

func view(kind format.ArrayKind, data []byte, count int) any {
	if count == 0 {
		return emptyView(kind)
	}

	ptr := unsafe.Pointer(&data[0])
	switch kind {
	case format.Int8Array:
		return unsafe.Slice((*int8)(ptr), count)
	case format.Uint8Array:
		return unsafe.Slice((*uint8)(ptr), count)
	case format.Int16Array:
		return unsafe.Slice((*int16)(ptr), count)
	case format.Uint16Array:
		return unsafe.Slice((*uint16)(ptr), count)
	case format.Int32Array:
		return unsafe.Slice((*int32)(ptr), count)
	case format.Uint32Array:
		return unsafe.Slice((*uint32)(ptr), count)
	case format.Float32Array:
		return unsafe.Slice((*float32)(ptr), count)
	case format.Int64Array:
		return unsafe.Slice((*int64)(ptr), count)
	case format.Uint64Array:
		return unsafe.Slice((*uint64)(ptr), count)
	default:
		return unsafe.Slice((*float64)(ptr), count)
	}
}

func emptyView(kind format.ArrayKind) any {
	switch kind {
	case format.Int8Array:
		return []int8{}
	case format.Uint8Array:
		return []uint8{}
	case format.Int16Array:
		return []int16{}
	case format.Uint16Array:
		return []uint16{}
	case format.Int32Array:
		return []int32{}
	case format.Uint32Array:
		return []uint32{}
	case format.Float32Array:
		return []float32{}
	case format.Int64Array:
		return []int64{}
	case format.Uint64Array:
		return []uint64{}
	default:
		return []float64{}
	}
}

// primitive resolves Optional, Ref and Link layers down to a primitive
// reader.
func (r *Reader) primitive() (*Reader, error) {
	cur := r
	for {
		var (
			next Cursor
			err  error
		)
		switch d := cur.typ.(type) {
		case schema.Primitive:
			return cur, nil
		case schema.Optional:
			next, err = cur.unwrap(d)
		case schema.Ref:
			next, err = cur.deref(d)
		case schema.Link:
			next, err = cur.follow(d)
		default:
			return nil, fmt.Errorf("%w: %s %s", errs.ErrNotPrimitive, cur.typ.Kind(), cur.name)
		}
		if err != nil {
			return nil, err
		}

		var ok bool
		if cur, ok = next.(*Reader); !ok {
			return nil, fmt.Errorf("%w: %s resolves to %T", errs.ErrNotContiguous, r.name, next)
		}
	}
}
