package reader

import (
	"fmt"

	"github.com/arloliu/schemabin/bitmask"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/schema"
)

// task materializes element idx of a node and hands the result to set.
type task struct {
	buf  *buffer
	node node
	idx  int32
	set  func(any)
}

type layoutKey struct {
	buf    *buffer
	offset int32
}

type sharedKey struct {
	buf    *buffer
	graph  *schema.Graph
	name   string
	offset int32
	idx    int32
}

type optionalEntry struct {
	layout  optionalLayout
	forward []int32
}

// materializer builds Go values with an explicit task stack. Containers are
// allocated and handed to their parent before their children are filled in,
// so elements of a Ref target type are shared by every Ref pointing at them
// within one Value call.
type materializer struct {
	stack    []task
	optional map[layoutKey]*optionalEntry
	oneOf    map[layoutKey]*oneOfLayout
	shared   map[sharedKey]any
}

func materialize(c Cursor) (any, error) {
	m := &materializer{
		optional: make(map[layoutKey]*optionalEntry),
		oneOf:    make(map[layoutKey]*oneOfLayout),
		shared:   make(map[sharedKey]any),
	}

	var out any
	if err := c.enqueue(m, func(v any) { out = v }); err != nil {
		return nil, err
	}
	if err := m.run(); err != nil {
		return nil, err
	}

	return out, nil
}

func (m *materializer) push(buf *buffer, n node, idx int32, set func(any)) {
	m.stack = append(m.stack, task{buf: buf, node: n, idx: idx, set: set})
}

func (m *materializer) run() error {
	for len(m.stack) > 0 {
		t := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]

		if err := m.visit(t); err != nil {
			return fmt.Errorf("%s[%d]: %w", t.node.name, t.idx, err)
		}
	}

	return nil
}

func (m *materializer) visit(t task) error {
	n := t.node
	if t.idx < 0 {
		t.set(nil)
		return nil
	}
	if n.offset < 0 {
		return fmt.Errorf("%w: element of an empty column", errs.ErrCorruptBuffer)
	}

	set := t.set
	if n.graph.IsRefTarget(n.name) {
		key := sharedKey{buf: t.buf, graph: n.graph, name: n.name, offset: n.offset, idx: t.idx}
		if v, ok := m.shared[key]; ok {
			t.set(v)
			return nil
		}
		set = func(v any) {
			m.shared[key] = v
			t.set(v)
		}
	}

	switch d := n.typ.(type) {
	case schema.Primitive:
		size := d.Codec.Size
		slot, err := t.buf.slice(int(n.offset)+int(t.idx)*size, size)
		if err != nil {
			return err
		}
		v, err := d.Codec.Load(slot, t.buf.strings)
		if err != nil {
			return err
		}
		set(v)

	case schema.Tuple:
		out := make([]any, len(d.Children))
		set(out)
		for col, child := range d.Children {
			if err := m.pushColumn(t, child, col, func(v any) { out[col] = v }); err != nil {
				return err
			}
		}

	case schema.NamedTuple:
		rec := make(map[string]any, len(d.Fields))
		set(rec)
		for col, f := range d.Fields {
			name := f.Name
			err := m.pushColumn(t, f.Type, col, func(v any) {
				if v != nil {
					rec[name] = v
				}
			})
			if err != nil {
				return err
			}
		}

	case schema.Array:
		slot, err := t.buf.int32s(int(n.offset)+int(t.idx)*schema.ArraySlotSize, 2)
		if err != nil {
			return err
		}
		elems, err := nodeOf(n.graph, d.Element, slot[0], int(slot[1]))
		if err != nil {
			return err
		}
		if err := t.buf.fits(elems); err != nil {
			return err
		}
		out := make([]any, slot[1])
		set(out)
		for j := range out {
			m.push(t.buf, elems, int32(j), func(v any) { out[j] = v }) //nolint:gosec
		}

	case schema.Map:
		slot, err := t.buf.int32s(int(n.offset)+int(t.idx)*schema.MapSlotSize, 3)
		if err != nil {
			return err
		}
		vals, err := nodeOf(n.graph, d.Value, slot[1], int(slot[2]))
		if err != nil {
			return err
		}
		if err := t.buf.fits(vals); err != nil {
			return err
		}
		keys, err := t.buf.keys(slot[0], slot[2])
		if err != nil {
			return err
		}
		rec := make(map[string]any, len(keys))
		set(rec)
		for j, key := range keys {
			m.push(t.buf, vals, int32(j), func(v any) { rec[key] = v }) //nolint:gosec
		}

	case schema.Optional:
		entry, err := m.optionalAt(t.buf, n)
		if err != nil {
			return err
		}
		if int(t.idx) >= len(entry.forward) {
			return fmt.Errorf("%w: element outside optional of %d", errs.ErrCorruptBuffer, len(entry.forward))
		}
		p := entry.forward[t.idx]
		if p < 0 {
			set(nil)
			return nil
		}
		inner, err := nodeOf(n.graph, d.Inner, entry.layout.child, entry.layout.present)
		if err != nil {
			return err
		}
		m.push(t.buf, inner, p, set)

	case schema.OneOf:
		layout, err := m.oneOfAt(t.buf, n, len(d.Children))
		if err != nil {
			return err
		}
		b, rank := bitmask.ForwardMapSingleOneOf(layout.layers, int(t.idx))
		if b < 0 {
			return fmt.Errorf("%w: element outside OneOf of %d", errs.ErrCorruptBuffer, layout.n)
		}
		child, err := nodeOf(n.graph, d.Children[b], layout.offsets[b], layout.lengths[b])
		if err != nil {
			return err
		}
		m.push(t.buf, child, rank, set)

	case schema.Ref:
		slot, err := t.buf.int32s(int(n.offset)+int(t.idx)*schema.RefSlotSize, 2)
		if err != nil {
			return err
		}
		target, err := nodeOf(n.graph, d.Target, slot[0], int(slot[1])+1)
		if err != nil {
			return err
		}
		m.push(t.buf, target, slot[1], set)

	case schema.Link:
		off, err := t.buf.int32At(int(n.offset))
		if err != nil {
			return err
		}
		linked, ok := t.buf.linked(n.graph, d.Schema)
		if !ok {
			set(LinkRef{Schema: d.Schema, Type: d.Target, Offset: off, Index: t.idx})
			return nil
		}
		target, err := nodeOf(linked, schema.Named(d.Target), off, n.length)
		if err != nil {
			return err
		}
		m.push(t.buf, target, t.idx, set)

	default:
		return fmt.Errorf("%w: unsupported descriptor %T", errs.ErrTraversal, n.typ)
	}

	return nil
}

func (m *materializer) pushColumn(t task, child schema.Type, col int, set func(any)) error {
	off, err := t.buf.int32At(int(t.node.offset) + col*schema.PointerSize)
	if err != nil {
		return err
	}
	n, err := nodeOf(t.node.graph, child, off, t.node.length)
	if err != nil {
		return err
	}
	m.push(t.buf, n, t.idx, set)

	return nil
}

// optionalAt and oneOfAt decode a layout once per Value call. The first
// visit checks the node against the buffer.
func (m *materializer) optionalAt(buf *buffer, n node) (*optionalEntry, error) {
	key := layoutKey{buf: buf, offset: n.offset}
	if e, ok := m.optional[key]; ok {
		return e, nil
	}

	if err := buf.fits(n); err != nil {
		return nil, err
	}
	layout, err := buf.optional(n.offset)
	if err != nil {
		return nil, err
	}
	e := &optionalEntry{layout: layout, forward: layout.forward()}
	m.optional[key] = e

	return e, nil
}

func (m *materializer) oneOfAt(buf *buffer, n node, k int) (*oneOfLayout, error) {
	key := layoutKey{buf: buf, offset: n.offset}
	if l, ok := m.oneOf[key]; ok {
		return l, nil
	}

	if err := buf.fits(n); err != nil {
		return nil, err
	}
	l, err := buf.oneOf(n.offset, k)
	if err != nil {
		return nil, err
	}
	m.oneOf[key] = l

	return l, nil
}
