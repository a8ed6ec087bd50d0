package reader

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arloliu/schemabin/bitmask"
	"github.com/arloliu/schemabin/compress"
	"github.com/arloliu/schemabin/encoding"
	"github.com/arloliu/schemabin/endian"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/internal/options"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/section"
)

var le = endian.GetLittleEndianEngine()

// buffer is the state shared by every cursor derived from one New call.
type buffer struct {
	header  section.Header
	body    []byte
	strings encoding.StringTableDecoder
	logger  *zap.Logger

	linkMu sync.RWMutex
	links  map[string]*schema.Graph

	fitted sync.Map // fitKey -> largest length checked
}

type fitKey struct {
	graph  *schema.Graph
	name   string
	offset int32
}

// New parses the header of buf, decompresses the body when needed and
// returns a cursor over the root value.
//
// An uncompressed body is read in place; buf must stay unmodified while the
// returned reader, or any reader derived from it, is in use.
func New(buf []byte, graph *schema.Graph, opts ...Option) (*Reader, error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: nil schema graph", errs.ErrUsage)
	}

	cfg := &config{logger: zap.NewNop(), links: make(map[string]*schema.Graph)}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	header, err := section.ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if !cfg.skipSchemaHash && header.SchemaFingerprint != graph.Fingerprint() {
		return nil, fmt.Errorf("%w: buffer %016x, graph %016x", errs.ErrSchemaMismatch, header.SchemaFingerprint, graph.Fingerprint())
	}

	codec, err := compress.GetCodec(header.Compression)
	if err != nil {
		return nil, err
	}
	stored := buf[section.HeaderSize : section.HeaderSize+int(header.StoredLength)]
	body, err := codec.Decompress(stored, int(header.BodyLength))
	if err != nil {
		return nil, err
	}

	b := &buffer{
		header:  header,
		body:    body,
		strings: encoding.NewStringTableDecoder(body[header.StringTableOffset:]),
		logger:  cfg.logger,
		links:   cfg.links,
	}

	rootName, err := b.strings.StringAt(header.RootTypeOffset)
	if err != nil {
		return nil, fmt.Errorf("root type name: %w", err)
	}
	rootType, err := graph.Lookup(rootName)
	if err != nil {
		return nil, fmt.Errorf("root type: %w", err)
	}

	b.logger.Debug("opened buffer",
		zap.String("root", rootName),
		zap.Stringer("compression", header.Compression),
		zap.Uint32("body_bytes", header.BodyLength),
		zap.Uint32("stored_bytes", header.StoredLength),
		zap.Bool("links", header.HasLinks()),
		zap.Bool("in_place", header.Compression == format.CompressionNone),
	)

	return &Reader{
		buf:    b,
		node:   node{graph: graph, name: rootName, typ: rootType, offset: int32(header.RootOffset), length: 1}, //nolint:gosec
		single: 0,
	}, nil
}

// addLink registers g for schema key.
func (b *buffer) addLink(key string, g *schema.Graph) error {
	if key == "" || g == nil {
		return fmt.Errorf("%w: link needs a key and a graph", errs.ErrUsage)
	}

	b.linkMu.Lock()
	defer b.linkMu.Unlock()
	b.links[key] = g

	return nil
}

// linked resolves a schema key, first against the links registered on the
// reader, then against the links of the graph that declared the Link.
func (b *buffer) linked(from *schema.Graph, key string) (*schema.Graph, bool) {
	b.linkMu.RLock()
	g, ok := b.links[key]
	b.linkMu.RUnlock()
	if ok {
		return g, true
	}

	return from.LinkedGraph(key)
}

// nodesEnd is the end of the region holding node blocks, bitmasks and keys.
func (b *buffer) nodesEnd() int {
	return int(b.header.StringTableOffset)
}

func (b *buffer) slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > b.nodesEnd() || n > b.nodesEnd()-off {
		return nil, fmt.Errorf("%w: range [%d,+%d) outside %d node bytes", errs.ErrCorruptBuffer, off, n, b.nodesEnd())
	}

	return b.body[off : off+n], nil
}

func (b *buffer) int32At(off int) (int32, error) {
	p, err := b.slice(off, 4)
	if err != nil {
		return 0, err
	}

	return int32(le.Uint32(p)), nil //nolint:gosec
}

// int32s reads count consecutive int32 values at off.
func (b *buffer) int32s(off, count int) ([]int32, error) {
	p, err := b.slice(off, 4*count)
	if err != nil {
		return nil, err
	}

	out := make([]int32, count)
	for i := range out {
		out[i] = int32(le.Uint32(p[4*i:])) //nolint:gosec
	}

	return out, nil
}

// mask reads the embedded bitmask of the given region.
func (b *buffer) mask(off, length int32) (tree []byte, n int, err error) {
	p, err := b.slice(int(off), int(length))
	if err != nil {
		return nil, 0, err
	}

	return bitmask.ParseEmbedded(p)
}

// keys decodes the sorted key list of a Map slot.
func (b *buffer) keys(off int32, count int32) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	if off < 0 || int(off) >= b.nodesEnd() {
		return nil, fmt.Errorf("%w: keys offset %d", errs.ErrCorruptBuffer, off)
	}

	keys, _, err := encoding.DecodeKeys(b.body[off:b.nodesEnd()], int(count))

	return keys, err
}

// fits checks that a node of n.length elements lies inside the node region
// before anything is allocated per element. It follows the first column of
// Tuple and NamedTuple nodes, resolved Links, the child of an Optional and
// every branch of a OneOf, so element counts and mask sizes read from the
// buffer stay bounded by the buffer size.
func (b *buffer) fits(n node) error {
	end := b.nodesEnd()
	pending := []node{n}
	var checked []node
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		switch {
		case cur.length < 0:
			return fmt.Errorf("%w: %s has negative length %d", errs.ErrCorruptBuffer, cur.name, cur.length)
		case cur.length == 0:
			continue
		case cur.offset < 0 || int(cur.offset) >= end:
			return fmt.Errorf("%w: %s of %d elements at offset %d", errs.ErrCorruptBuffer, cur.name, cur.length, cur.offset)
		}
		if v, ok := b.fitted.Load(fitKey{cur.graph, cur.name, cur.offset}); ok && v.(int) >= cur.length { //nolint:forcetypeassert
			continue
		}
		// every checked node owns at least one byte, more means a cycle
		if len(checked) >= end {
			return fmt.Errorf("%w: columns below %s at %d do not terminate", errs.ErrCorruptBuffer, n.name, n.offset)
		}
		checked = append(checked, cur)

		if schema.PerElement(cur.typ) {
			if schema.BlockSize(cur.typ, cur.length) > end-int(cur.offset) {
				return fmt.Errorf("%w: %d elements of %s overrun the node region at %d", errs.ErrCorruptBuffer, cur.length, cur.name, cur.offset)
			}

			continue
		}

		next, err := b.columns(cur)
		if err != nil {
			return err
		}
		pending = append(pending, next...)
	}

	for _, c := range checked {
		b.fitted.Store(fitKey{c.graph, c.name, c.offset}, c.length)
	}

	return nil
}

// columns lists the child nodes fits descends into.
func (b *buffer) columns(n node) ([]node, error) {
	var (
		t      schema.Type
		g      = n.graph
		off    int32
		length = n.length
		err    error
	)

	switch d := n.typ.(type) {
	case schema.Tuple:
		if len(d.Children) == 0 {
			return nil, nil
		}
		t = d.Children[0]
		off, err = b.int32At(int(n.offset))
	case schema.NamedTuple:
		if len(d.Fields) == 0 {
			return nil, nil
		}
		t = d.Fields[0].Type
		off, err = b.int32At(int(n.offset))
	case schema.Link:
		linked, ok := b.linked(n.graph, d.Schema)
		if !ok {
			return nil, nil
		}
		g, t = linked, schema.Named(d.Target)
		off, err = b.int32At(int(n.offset))
	case schema.Optional:
		l, err := b.optional(n.offset)
		if err != nil {
			return nil, err
		}
		if l.n < n.length {
			return nil, fmt.Errorf("%w: optional %s masks %d of %d elements", errs.ErrCorruptBuffer, n.name, l.n, n.length)
		}
		t, off, length = d.Inner, l.child, l.present
	case schema.OneOf:
		l, err := b.oneOf(n.offset, len(d.Children))
		if err != nil {
			return nil, err
		}
		if l.n < n.length {
			return nil, fmt.Errorf("%w: OneOf %s masks %d of %d elements", errs.ErrCorruptBuffer, n.name, l.n, n.length)
		}
		out := make([]node, len(d.Children))
		for i, child := range d.Children {
			if out[i], err = nodeOf(n.graph, child, l.offsets[i], l.lengths[i]); err != nil {
				return nil, err
			}
		}

		return out, nil
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	child, err := nodeOf(g, t, off, length)
	if err != nil {
		return nil, err
	}

	return []node{child}, nil
}

// optionalLayout is the decoded slot of an Optional node.
type optionalLayout struct {
	absent  []byte
	n       int
	present int
	child   int32
}

func (b *buffer) optional(offset int32) (optionalLayout, error) {
	slot, err := b.int32s(int(offset), 3)
	if err != nil {
		return optionalLayout{}, err
	}
	tree, n, err := b.mask(slot[0], slot[1])
	if err != nil {
		return optionalLayout{}, err
	}

	return optionalLayout{
		absent:  tree,
		n:       n,
		present: n - bitmask.Count(tree, n),
		child:   slot[2],
	}, nil
}

// forward maps every element of the Optional to its position in the child
// column, or -1 when absent.
func (l optionalLayout) forward() []int32 {
	return bitmask.ForwardMapIndexes(bitmask.Decode(l.absent, l.n), l.n, false)
}

// oneOfLayout is the decoded slot of a k-way OneOf node.
type oneOfLayout struct {
	layers  []bitmask.Layer
	n       int
	offsets []int32
	lengths []int
}

func (b *buffer) oneOf(offset int32, k int) (*oneOfLayout, error) {
	slot, err := b.int32s(int(offset), 3*(k-1)+1)
	if err != nil {
		return nil, err
	}

	trees := make([][]byte, k-1)
	n := 0
	for i := range trees {
		tree, size, err := b.mask(slot[3*i+1], slot[3*i+2])
		if err != nil {
			return nil, err
		}
		if i == 0 {
			n = size
		}
		trees[i] = tree
	}

	l := &oneOfLayout{
		layers:  bitmask.DecodeLayers(trees, n),
		n:       n,
		offsets: make([]int32, k),
		lengths: make([]int, k),
	}
	for i := range k - 1 {
		l.offsets[i] = slot[3*i]
		l.lengths[i] = len(l.layers[i].Members)
	}
	last := l.layers[k-2]
	l.offsets[k-1] = slot[3*(k-1)]
	l.lengths[k-1] = last.N - len(last.Members)

	return l, nil
}
