package writer

import (
	"fmt"
	"math"

	"github.com/arloliu/schemabin/encoding"
	"github.com/arloliu/schemabin/endian"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/schema"
)

var le = endian.GetLittleEndianEngine()

// allocate assigns the offset of every node block, bucket by bucket, then
// of every bitmask and key region after them. It returns the end of the
// last region.
func (c *buildContext) allocate() (int, error) {
	cursor := 0
	for _, bucket := range c.order {
		for _, n := range c.buckets[bucket] {
			cursor = alignUp(cursor, schema.Alignment(n.typ))
			n.offset = int32(min(cursor, math.MaxInt32)) //nolint:gosec
			cursor += schema.BlockSize(n.typ, n.values.Len())
		}
	}

	for _, bucket := range c.order {
		for _, n := range c.buckets[bucket] {
			for _, regions := range [][]*region{n.masks, n.keys} {
				for _, r := range regions {
					if r == nil {
						continue
					}
					r.offset = int32(min(cursor, math.MaxInt32)) //nolint:gosec
					cursor += len(r.data)
				}
			}
		}
	}

	if cursor > math.MaxInt32 {
		return 0, fmt.Errorf("%w: layout of %d bytes exceeds the int32 offset range", errs.ErrValue, cursor)
	}

	return cursor, nil
}

// emit fills the slots of every node and copies the regions into body.
func (c *buildContext) emit(body []byte, strs *encoding.StringTableEncoder) error {
	for _, bucket := range c.order {
		for _, n := range c.buckets[bucket] {
			if err := c.emitNode(body, n, strs); err != nil {
				return err
			}
			for _, regions := range [][]*region{n.masks, n.keys} {
				for _, r := range regions {
					if r != nil {
						copy(body[r.offset:], r.data)
					}
				}
			}
		}
	}

	return nil
}

func (c *buildContext) emitNode(body []byte, n *node, strs *encoding.StringTableEncoder) error {
	base := int(n.offset)
	count := n.values.Len()

	switch d := n.typ.(type) {
	case schema.Primitive:
		size := d.Codec.Size
		for i := range count {
			slot := body[base+i*size : base+(i+1)*size]
			if err := d.Codec.Put(slot, n.values.At(i), strs); err != nil {
				return fmt.Errorf("%s[%d]: %w", n.name, i, err)
			}
		}

	case schema.Tuple, schema.NamedTuple:
		for i, ch := range n.children {
			putInt32(body, base+i*schema.PointerSize, ptr(ch))
		}

	case schema.Array:
		for i := range count {
			slot := base + i*schema.ArraySlotSize
			putInt32(body, slot, ptr(n.children[i]))
			putInt32(body, slot+4, n.lens[i])
		}

	case schema.Map:
		for i := range count {
			slot := base + i*schema.MapSlotSize
			putInt32(body, slot, regionOffset(n.keys[i]))
			putInt32(body, slot+4, ptr(n.children[i]))
			putInt32(body, slot+8, n.lens[i])
		}

	case schema.Optional:
		mask := n.masks[0]
		putInt32(body, base, mask.offset)
		putInt32(body, base+4, int32(len(mask.data))) //nolint:gosec
		putInt32(body, base+8, ptr(n.children[0]))

	case schema.OneOf:
		pos := base
		for b, mask := range n.masks {
			putInt32(body, pos, ptr(n.children[b]))
			putInt32(body, pos+4, mask.offset)
			putInt32(body, pos+8, int32(len(mask.data))) //nolint:gosec
			pos += schema.OneOfBranchSize
		}
		putInt32(body, pos, ptr(n.children[len(n.children)-1]))

	case schema.Ref:
		target := childName(d.Target)
		for i := range count {
			v := n.values.At(i)
			id, ok := schema.IdentityOf(v)
			if !ok {
				return fmt.Errorf("%w: %s[%d] of type %T", errs.ErrRefIdentity, n.name, i, v)
			}
			ref, ok := c.refs[refKey{graph: n.graph, name: target, id: id}]
			if !ok {
				return fmt.Errorf("%w: %s[%d] points at a %s that is not part of the value tree", errs.ErrUnresolvedRef, n.name, i, target)
			}
			slot := base + i*schema.RefSlotSize
			putInt32(body, slot, ref.node.offset)
			putInt32(body, slot+4, int32(ref.index)) //nolint:gosec
		}

	case schema.Link:
		putInt32(body, base, ptr(n.children[0]))
	}

	return nil
}

func ptr(n *node) int32 {
	if n == nil {
		return -1
	}

	return n.offset
}

func regionOffset(r *region) int32 {
	if r == nil {
		return -1
	}

	return r.offset
}

func putInt32(body []byte, off int, v int32) {
	le.PutUint32(body[off:], uint32(v)) //nolint:gosec
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}

	return (n + align - 1) / align * align
}
