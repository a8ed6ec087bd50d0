package reader

import (
	"fmt"
	"slices"

	"github.com/arloliu/schemabin/bitmask"
	"github.com/arloliu/schemabin/encoding"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/lazy"
	"github.com/arloliu/schemabin/schema"
)

// node locates a block of the buffer: the type it holds and where.
type node struct {
	graph  *schema.Graph
	name   string
	typ    schema.Type
	offset int32 // -1 for an empty column
	length int
}

// Reader addresses one element (single) or a list of elements (multi) of a
// node. In multi mode index holds node positions, -1 for an absent element.
type Reader struct {
	buf *buffer
	node

	single int32
	index  []int32
	multi  bool
}

var _ Cursor = (*Reader)(nil)

// Kind returns the kind of the addressed type.
func (r *Reader) Kind() format.Kind {
	return r.typ.Kind()
}

// TypeName returns the schema name of the addressed type.
func (r *Reader) TypeName() string {
	return r.name
}

// Offset returns the body offset of the node, -1 for an empty column.
func (r *Reader) Offset() int32 {
	return r.offset
}

// IsMulti reports whether the reader addresses a list of elements.
func (r *Reader) IsMulti() bool {
	return r.multi
}

// Len returns the number of addressed elements.
func (r *Reader) Len() int {
	if r.multi {
		return len(r.index)
	}

	return 1
}

// Index returns the node positions addressed by the reader.
func (r *Reader) Index() []int32 {
	if r.multi {
		return slices.Clone(r.index)
	}

	return []int32{r.single}
}

// At returns a single reader over element i.
func (r *Reader) At(i int) (Cursor, error) {
	if i < 0 || i >= r.Len() {
		return nil, fmt.Errorf("%w: element %d of %d", errs.ErrIndexOutOfRange, i, r.Len())
	}
	if !r.multi {
		return r, nil
	}

	return r.elem(i), nil
}

func (r *Reader) elem(i int) Cursor {
	p := r.index[i]
	if p < 0 {
		return null
	}

	return r.at(r.node, p)
}

// AddLink registers the graph that Link types with schema key resolve into.
// The registration is shared by every reader derived from the same buffer.
func (r *Reader) AddLink(key string, g *schema.Graph) error {
	return r.buf.addLink(key, g)
}

// Keys returns the field names of a NamedTuple or the keys of a single Map
// element.
func (r *Reader) Keys() ([]string, error) {
	switch d := r.typ.(type) {
	case schema.NamedTuple:
		return d.FieldNames(), nil
	case schema.Map:
		if r.multi {
			return nil, fmt.Errorf("%w: keys of a multi-valued map", errs.ErrUsage)
		}
		slot, err := r.buf.int32s(int(r.offset)+int(r.single)*schema.MapSlotSize, 3)
		if err != nil {
			return nil, err
		}

		return r.buf.keys(slot[0], slot[2])
	default:
		return nil, fmt.Errorf("%w: %s %s has no keys", errs.ErrKeyAccess, r.typ.Kind(), r.name)
	}
}

// Get navigates keys one at a time. See the package documentation for the
// keys each kind accepts.
func (r *Reader) Get(keys ...any) (Cursor, error) {
	return walk(r, keys)
}

// Value materializes the addressed elements.
func (r *Reader) Value() (any, error) {
	return materialize(r)
}

func (r *Reader) enqueue(m *materializer, set func(any)) error {
	if !r.multi {
		m.push(r.buf, r.node, r.single, set)
		return nil
	}

	out := make([]any, len(r.index))
	set(out)
	for i, p := range r.index {
		if p >= 0 {
			m.push(r.buf, r.node, p, func(v any) { out[i] = v })
		}
	}

	return nil
}

func (r *Reader) step(key any) (Cursor, error) {
	if key == NullValue {
		d, ok := r.typ.(schema.Optional)
		if !ok {
			return nil, fmt.Errorf("%w: NullValue on %s %s", errs.ErrKeyAccess, r.typ.Kind(), r.name)
		}

		return r.unwrap(d)
	}

	var (
		next Cursor
		err  error
	)
	switch d := r.typ.(type) {
	case schema.Optional:
		next, err = r.unwrap(d)
	case schema.Ref:
		next, err = r.deref(d)
	case schema.Link:
		next, err = r.follow(d)
	case schema.OneOf:
		next, err = r.branched(d)
	case schema.Tuple:
		col, ok := key.(int)
		if !ok {
			return nil, fmt.Errorf("%w: tuple %s needs an int key, got %T", errs.ErrKeyAccess, r.name, key)
		}
		if col < 0 || col >= len(d.Children) {
			return nil, fmt.Errorf("%w: tuple %s has %d children, got %d", errs.ErrIndexOutOfRange, r.name, len(d.Children), col)
		}

		return r.column(d.Children[col], col)
	case schema.NamedTuple:
		field, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a field name, got %T", errs.ErrKeyAccess, r.name, key)
		}
		col, ok := d.FieldIndex(field)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", errs.ErrKeyAccess, r.name, field)
		}

		return r.column(d.Fields[col].Type, col)
	case schema.Array:
		return r.arrayStep(d, key)
	case schema.Map:
		return r.mapStep(d, key)
	default:
		return nil, fmt.Errorf("%w: %s %s cannot be navigated", errs.ErrKeyAccess, r.typ.Kind(), r.name)
	}
	if err != nil {
		return nil, err
	}

	return next.step(key)
}

// column moves to child col of a Tuple or NamedTuple. The child column is
// addressed with the same index.
func (r *Reader) column(t schema.Type, col int) (Cursor, error) {
	off := int32(-1)
	if r.offset >= 0 {
		var err error
		if off, err = r.buf.int32At(int(r.offset) + col*schema.PointerSize); err != nil {
			return nil, err
		}
	}

	n, err := nodeOf(r.graph, t, off, r.length)
	if err != nil {
		return nil, err
	}

	return r.with(n, r.single, r.index).settle()
}

func (r *Reader) arrayStep(d schema.Array, key any) (Cursor, error) {
	if r.multi {
		return r.fanOut(d.Element, key)
	}

	slot, err := r.buf.int32s(int(r.offset)+int(r.single)*schema.ArraySlotSize, 2)
	if err != nil {
		return nil, err
	}
	elems, err := nodeOf(r.graph, d.Element, slot[0], int(slot[1]))
	if err != nil {
		return nil, err
	}
	if err := r.buf.fits(elems); err != nil {
		return nil, err
	}

	return r.selectIn(elems, key, nil, false)
}

func (r *Reader) mapStep(d schema.Map, key any) (Cursor, error) {
	if r.multi {
		return r.fanOut(d.Value, key)
	}

	slot, err := r.buf.int32s(int(r.offset)+int(r.single)*schema.MapSlotSize, 3)
	if err != nil {
		return nil, err
	}
	vals, err := nodeOf(r.graph, d.Value, slot[1], int(slot[2]))
	if err != nil {
		return nil, err
	}
	if err := r.buf.fits(vals); err != nil {
		return nil, err
	}
	keys, err := r.buf.keys(slot[0], slot[2])
	if err != nil {
		return nil, err
	}

	return r.selectIn(vals, key, keys, true)
}

// selectIn applies key to the element list of one Array or Map element.
func (r *Reader) selectIn(elems node, key any, keys []string, isMap bool) (Cursor, error) {
	switch k := key.(type) {
	case sentinel:
		switch {
		case k == AllValues:
			return r.with(elems, 0, lazy.Identity(elems.length)).settle()
		case k == AllKeys && isMap:
			return &KeysCursor{keys: keys}, nil
		default:
			return nil, fmt.Errorf("%w: %v on %s", errs.ErrKeyAccess, k, r.name)
		}

	case int:
		if isMap {
			return nil, fmt.Errorf("%w: map %s needs a string key, got int", errs.ErrKeyAccess, r.name)
		}
		if k < 0 || k >= elems.length {
			return nil, fmt.Errorf("%w: index %d of %d in %s", errs.ErrIndexOutOfRange, k, elems.length, r.name)
		}

		return r.at(elems, int32(k)).settle() //nolint:gosec

	case []int:
		if isMap {
			return nil, fmt.Errorf("%w: map %s needs string keys, got []int", errs.ErrKeyAccess, r.name)
		}
		index := make([]int32, len(k))
		for i, p := range k {
			if p < 0 || p >= elems.length {
				return nil, fmt.Errorf("%w: index %d of %d in %s", errs.ErrIndexOutOfRange, p, elems.length, r.name)
			}
			index[i] = int32(p) //nolint:gosec
		}

		return r.with(elems, 0, index).settle()

	case string:
		if !isMap {
			return nil, fmt.Errorf("%w: array %s needs an int key, got string", errs.ErrKeyAccess, r.name)
		}
		p, ok := encoding.FindKey(keys, k)
		if !ok {
			return nil, fmt.Errorf("%w: map %s has no key %q", errs.ErrKeyAccess, r.name, k)
		}

		return r.at(elems, int32(p)).settle() //nolint:gosec

	case []string:
		if !isMap {
			return nil, fmt.Errorf("%w: array %s needs int keys, got []string", errs.ErrKeyAccess, r.name)
		}
		index := make([]int32, len(k))
		for i, name := range k {
			p, ok := encoding.FindKey(keys, name)
			if !ok {
				return nil, fmt.Errorf("%w: map %s has no key %q", errs.ErrKeyAccess, r.name, name)
			}
			index[i] = int32(p) //nolint:gosec
		}

		return r.with(elems, 0, index).settle()

	default:
		return nil, fmt.Errorf("%w: %T", errs.ErrMalformedKey, key)
	}
}

// fanOut applies key to every addressed element of a multi-valued Array or
// Map. Every element owns its own child node, so the result nests.
func (r *Reader) fanOut(elem schema.Type, key any) (Cursor, error) {
	if len(r.index) == 0 {
		n, err := nodeOf(r.graph, elem, -1, 0)
		if err != nil {
			return nil, err
		}

		return r.with(n, 0, []int32{}).settle()
	}

	children := make([]Cursor, len(r.index))
	for i := range r.index {
		c := r.elem(i)
		if c == null {
			children[i] = null
			continue
		}
		next, err := c.step(key)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		children[i] = next
	}

	return &NestedReader{children: children}, nil
}

// unwrap resolves an Optional to its inner type. Absent elements become
// absent cursors.
func (r *Reader) unwrap(d schema.Optional) (Cursor, error) {
	if r.offset < 0 {
		if !r.multi {
			return nil, r.missing()
		}

		return r.emptyAs(d.Inner)
	}
	if err := r.buf.fits(r.node); err != nil {
		return nil, err
	}

	layout, err := r.buf.optional(r.offset)
	if err != nil {
		return nil, err
	}
	inner, err := nodeOf(r.graph, d.Inner, layout.child, layout.present)
	if err != nil {
		return nil, err
	}

	if !r.multi {
		if int(r.single) >= layout.n {
			return nil, fmt.Errorf("%w: element %d of optional %s with %d values", errs.ErrCorruptBuffer, r.single, r.name, layout.n)
		}
		p := bitmask.ForwardMapSingleIndex(bitmask.Decode(layout.absent, layout.n), int(r.single), false)
		if p < 0 {
			return null, nil
		}

		return r.at(inner, p).settle()
	}

	return r.with(inner, 0, bitmask.ChainForwardIndexes(r.index, layout.forward())).settle()
}

// deref resolves a Ref to the referenced element. Elements of a multi cursor
// that point into different nodes become a NestedReader.
func (r *Reader) deref(d schema.Ref) (Cursor, error) {
	if r.offset < 0 {
		if !r.multi {
			return nil, r.missing()
		}

		return r.emptyAs(d.Target)
	}

	slotAt := func(p int32) (int32, int32, error) {
		slot, err := r.buf.int32s(int(r.offset)+int(p)*schema.RefSlotSize, 2)
		if err != nil {
			return 0, 0, err
		}
		if slot[0] < 0 || slot[1] < 0 {
			return 0, 0, fmt.Errorf("%w: ref slot %d of %s points at (%d, %d)", errs.ErrCorruptBuffer, p, r.name, slot[0], slot[1])
		}

		return slot[0], slot[1], nil
	}

	if !r.multi {
		off, idx, err := slotAt(r.single)
		if err != nil {
			return nil, err
		}
		target, err := nodeOf(r.graph, d.Target, off, int(idx)+1)
		if err != nil {
			return nil, err
		}

		return r.at(target, idx).settle()
	}

	offs := make([]int32, len(r.index))
	index := make([]int32, len(r.index))
	shared, length := int32(-1), 0
	spread := false
	for i, p := range r.index {
		index[i], offs[i] = -1, -1
		if p < 0 {
			continue
		}
		off, idx, err := slotAt(p)
		if err != nil {
			return nil, err
		}
		offs[i], index[i] = off, idx
		length = max(length, int(idx)+1)
		if shared < 0 {
			shared = off
		} else if off != shared {
			spread = true
		}
	}

	if !spread {
		target, err := nodeOf(r.graph, d.Target, shared, length)
		if err != nil {
			return nil, err
		}

		return r.with(target, 0, index).settle()
	}

	children := make([]Cursor, len(index))
	for i, idx := range index {
		if idx < 0 {
			children[i] = null
			continue
		}
		target, err := nodeOf(r.graph, d.Target, offs[i], int(idx)+1)
		if err != nil {
			return nil, err
		}
		if children[i], err = r.at(target, idx).settle(); err != nil {
			return nil, err
		}
	}

	return &NestedReader{children: children}, nil
}

// follow jumps through a Link into the linked graph.
func (r *Reader) follow(d schema.Link) (Cursor, error) {
	linked, ok := r.buf.linked(r.graph, d.Schema)
	if !ok {
		return nil, fmt.Errorf("%w: %q used by %s", errs.ErrUnresolvedLink, d.Schema, r.name)
	}

	off := int32(-1)
	if r.offset >= 0 {
		var err error
		if off, err = r.buf.int32At(int(r.offset)); err != nil {
			return nil, err
		}
	}
	target, err := nodeOf(linked, schema.Named(d.Target), off, r.length)
	if err != nil {
		return nil, err
	}

	return r.with(target, r.single, r.index).settle()
}

// branched splits a OneOf cursor into one cursor per alternative.
func (r *Reader) branched(d schema.OneOf) (*BranchedReader, error) {
	k := len(d.Children)
	br := &BranchedReader{typeName: r.name, branches: make([]Cursor, k), single: !r.multi, active: -1}

	if r.offset < 0 {
		if !r.multi {
			return nil, r.missing()
		}
		for b, child := range d.Children {
			n, err := nodeOf(r.graph, child, -1, 0)
			if err != nil {
				return nil, err
			}
			if br.branches[b], err = r.with(n, 0, []int32{}).settle(); err != nil {
				return nil, err
			}
		}
		br.disc = make([]int, len(r.index))
		for i := range br.disc {
			br.disc[i] = -1
		}

		return br, nil
	}

	if err := r.buf.fits(r.node); err != nil {
		return nil, err
	}
	layout, err := r.buf.oneOf(r.offset, k)
	if err != nil {
		return nil, err
	}
	nodes := make([]node, k)
	for b, child := range d.Children {
		if nodes[b], err = nodeOf(r.graph, child, layout.offsets[b], layout.lengths[b]); err != nil {
			return nil, err
		}
	}

	if !r.multi {
		b, rank := bitmask.ForwardMapSingleOneOf(layout.layers, int(r.single))
		if b < 0 {
			return nil, fmt.Errorf("%w: element %d of OneOf %s with %d values", errs.ErrCorruptBuffer, r.single, r.name, layout.n)
		}
		for i := range br.branches {
			br.branches[i] = null
		}
		if br.branches[b], err = r.at(nodes[b], rank).settle(); err != nil {
			return nil, err
		}
		br.disc = []int{b}

		return br, nil
	}

	disc := bitmask.IndexToOneOf(layout.layers, layout.n)
	br.disc = make([]int, len(r.index))
	for i, p := range r.index {
		br.disc[i] = -1
		if p >= 0 && int(p) < len(disc) {
			br.disc[i] = disc[p]
		}
	}
	for b := range k {
		index := bitmask.ChainForwardIndexes(r.index, bitmask.ForwardMapOneOf(layout.layers, layout.n, b))
		if br.branches[b], err = r.with(nodes[b], 0, index).settle(); err != nil {
			return nil, err
		}
	}

	return br, nil
}

// missing reports a single element addressed in an empty column. Only a
// corrupt pointer leads there.
func (r *Reader) missing() error {
	return fmt.Errorf("%w: element %d of %s in an empty column", errs.ErrCorruptBuffer, r.single, r.name)
}

// emptyAs is the reader of an empty column of type t.
func (r *Reader) emptyAs(t schema.Type) (Cursor, error) {
	n, err := nodeOf(r.graph, t, -1, 0)
	if err != nil {
		return nil, err
	}

	return r.with(n, r.single, r.index).settle()
}

// settle turns a OneOf reader into a BranchedReader.
func (r *Reader) settle() (Cursor, error) {
	if d, ok := r.typ.(schema.OneOf); ok {
		return r.branched(d)
	}

	return r, nil
}

func (r *Reader) with(n node, single int32, index []int32) *Reader {
	return &Reader{buf: r.buf, node: n, single: single, index: index, multi: index != nil}
}

func (r *Reader) at(n node, p int32) *Reader {
	return &Reader{buf: r.buf, node: n, single: p}
}

func nodeOf(g *schema.Graph, t schema.Type, offset int32, length int) (node, error) {
	name, desc, err := g.Resolve(t)
	if err != nil {
		return node{}, err
	}

	return node{graph: g, name: name, typ: desc, offset: offset, length: length}, nil
}
