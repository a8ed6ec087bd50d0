package writer

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/arloliu/schemabin/bitmask"
	"github.com/arloliu/schemabin/encoding"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/lazy"
	"github.com/arloliu/schemabin/schema"
)

// node is one (type, column) block of the buffer.
type node struct {
	bucket string
	name   string
	typ    schema.Type
	graph  *schema.Graph
	values *lazy.Array[any]
	offset int32

	// children holds, by kind: one column per field (Tuple, NamedTuple), one
	// node per element (Array, Map), the present values (Optional), one node
	// per branch (OneOf) or the linked column (Link). A nil child is empty.
	children []*node
	lens     []int32
	masks    []*region
	keys     []*region
}

// region is a variable-length byte range placed after the node blocks.
type region struct {
	data   []byte
	offset int32
}

type refKey struct {
	graph *schema.Graph
	name  string
	id    schema.Identity
}

type refTarget struct {
	node  *node
	index int
}

// buildContext is the state of one Encode call: the per-type buckets, the
// identity registry used to resolve Ref slots and the expansion stack.
type buildContext struct {
	w         *Writer
	buckets   map[string][]*node
	order     []string
	refs      map[refKey]refTarget
	prefixes  map[*schema.Graph]string
	stack     []*node
	nodeCount int
	hasLinks  bool
}

func newBuildContext(w *Writer) *buildContext {
	return &buildContext{
		w:        w,
		buckets:  make(map[string][]*node),
		refs:     make(map[refKey]refTarget),
		prefixes: map[*schema.Graph]string{w.graph: ""},
	}
}

// spawn creates the node holding values as type name of graph g and queues
// it for expansion. An empty column has no node.
func (c *buildContext) spawn(g *schema.Graph, name string, values *lazy.Array[any]) (*node, error) {
	if values.Len() == 0 {
		return nil, nil
	}

	t, err := g.Lookup(name)
	if err != nil {
		return nil, err
	}

	// Columns are flattened once here, so the columns spawned from this node
	// index a plain slice instead of chaining getters per nesting level.
	flat := values.Collect()

	n := &node{
		bucket: c.bucketOf(g, name),
		name:   name,
		typ:    t,
		graph:  g,
		offset: -1,
	}

	if g.IsRefTarget(name) {
		for i, v := range flat {
			id, ok := schema.IdentityOf(v)
			if !ok {
				continue
			}
			key := refKey{graph: g, name: name, id: id}
			if _, seen := c.refs[key]; !seen {
				c.refs[key] = refTarget{node: n, index: i}
			}
		}
	}

	if fn, ok := c.w.transforms[name]; ok && g == c.w.graph {
		for i, v := range flat {
			if flat[i], err = fn(v); err != nil {
				return nil, fmt.Errorf("transform %s[%d]: %w", name, i, err)
			}
		}
	}
	n.values = lazy.FromSlice(flat, nil, nil)

	if _, ok := c.buckets[n.bucket]; !ok {
		c.order = append(c.order, n.bucket)
	}
	c.buckets[n.bucket] = append(c.buckets[n.bucket], n)
	c.stack = append(c.stack, n)
	c.nodeCount++

	return n, nil
}

func (c *buildContext) bucketOf(g *schema.Graph, name string) string {
	prefix, ok := c.prefixes[g]
	if !ok {
		prefix = "@" + strconv.Itoa(len(c.prefixes)) + ":"
		c.prefixes[g] = prefix
	}

	return prefix + name
}

// expand drains the expansion stack.
func (c *buildContext) expand() error {
	for len(c.stack) > 0 {
		n := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		if err := c.expandNode(n); err != nil {
			return err
		}
	}

	return nil
}

func (c *buildContext) expandNode(n *node) error {
	count := n.values.Len()

	switch d := n.typ.(type) {
	case schema.Primitive, schema.Ref:
		return nil

	case schema.Tuple:
		lists := make([][]any, count)
		for i := range count {
			v := n.values.At(i)
			items, ok := schema.AsList(v)
			if !ok || len(items) != len(d.Children) {
				return valueErr(n, i, v)
			}
			lists[i] = items
		}
		for col, child := range d.Children {
			column := lazy.New(func(i int) any { return lists[i][col] }, count)
			ch, err := c.spawn(n.graph, childName(child), column)
			if err != nil {
				return err
			}
			n.children = append(n.children, ch)
		}

	case schema.NamedTuple:
		for i := range count {
			v := n.values.At(i)
			rec, ok := v.(map[string]any)
			if !ok {
				return valueErr(n, i, v)
			}
			for key := range rec {
				if _, known := d.FieldIndex(key); !known {
					return fmt.Errorf("%w: %s[%d] has unknown field %q", errs.ErrValue, n.name, i, key)
				}
			}
		}
		for _, f := range d.Fields {
			column := lazy.Map(n.values, func(v any) any {
				return v.(map[string]any)[f.Name] //nolint:forcetypeassert
			})
			ch, err := c.spawn(n.graph, childName(f.Type), column)
			if err != nil {
				return err
			}
			n.children = append(n.children, ch)
		}

	case schema.Array:
		n.children = make([]*node, count)
		n.lens = make([]int32, count)
		for i := range count {
			v := n.values.At(i)
			items, ok := schema.AsList(v)
			if !ok {
				return valueErr(n, i, v)
			}
			ch, err := c.spawn(n.graph, childName(d.Element), lazy.FromSlice(items, nil, nil))
			if err != nil {
				return err
			}
			n.children[i] = ch
			n.lens[i] = int32(len(items)) //nolint:gosec
		}

	case schema.Map:
		n.children = make([]*node, count)
		n.lens = make([]int32, count)
		n.keys = make([]*region, count)
		for i := range count {
			v := n.values.At(i)
			m, ok := v.(map[string]any)
			if !ok {
				return valueErr(n, i, v)
			}
			keys := slices.Sorted(maps.Keys(m))
			vals := make([]any, len(keys))
			for j, k := range keys {
				vals[j] = m[k]
			}
			ch, err := c.spawn(n.graph, childName(d.Value), lazy.FromSlice(vals, nil, nil))
			if err != nil {
				return err
			}
			n.children[i] = ch
			n.lens[i] = int32(len(keys)) //nolint:gosec
			if len(keys) > 0 {
				n.keys[i] = &region{data: encoding.AppendKeys(make([]byte, 0, encoding.KeysSize(keys)), keys)}
			}
		}

	case schema.Optional:
		var absent []int
		present := make([]int32, 0, count)
		for i := range count {
			if n.values.At(i) == nil {
				absent = append(absent, i)
			} else {
				present = append(present, int32(i)) //nolint:gosec
			}
		}
		mask, err := bitmask.AppendEmbedded(nil, absent, count)
		if err != nil {
			return err
		}
		n.masks = []*region{{data: mask}}

		ch, err := c.spawn(n.graph, childName(d.Inner), lazy.View(n.values, present))
		if err != nil {
			return err
		}
		n.children = []*node{ch}

	case schema.OneOf:
		return c.expandOneOf(n, d)

	case schema.Link:
		linked, ok := n.graph.LinkedGraph(d.Schema)
		if !ok {
			return fmt.Errorf("%w: %q used by %s", errs.ErrUnresolvedLink, d.Schema, n.name)
		}
		c.hasLinks = true

		ch, err := c.spawn(linked, d.Target, n.values)
		if err != nil {
			return err
		}
		n.children = []*node{ch}

	default:
		return fmt.Errorf("%w: %s has unsupported descriptor %T", errs.ErrTypeDefinition, n.name, n.typ)
	}

	return nil
}

// expandOneOf classifies every value, first matching branch wins, and
// spawns one node per branch over the values assigned to it.
func (c *buildContext) expandOneOf(n *node, d schema.OneOf) error {
	count := n.values.Len()
	k := len(d.Children)

	disc := make([]int, count)
	unwrapped := make([]any, count)
	positions := make([][]int32, k)

	for i := range count {
		v := n.values.At(i)
		branch := -1
		if b, ok := v.(schema.Branch); ok {
			if b.Index < 0 || b.Index >= k {
				return fmt.Errorf("%w: %s[%d] forces branch %d of %d", errs.ErrValue, n.name, i, b.Index, k)
			}
			branch, v = b.Index, b.Value
		} else {
			for j, child := range d.Children {
				if n.graph.Check(childName(child), v) {
					branch = j
					break
				}
			}
		}
		if branch < 0 {
			return fmt.Errorf("%w: %s[%d] of type %T", errs.ErrNoBranch, n.name, i, v)
		}

		disc[i] = branch
		unwrapped[i] = v
		positions[branch] = append(positions[branch], int32(i)) //nolint:gosec
	}

	layers, err := bitmask.SplitOneOf(disc, k)
	if err != nil {
		return err
	}
	n.masks = make([]*region, len(layers))
	for b, layer := range layers {
		mask, err := bitmask.AppendEmbedded(nil, layer.Members, layer.N)
		if err != nil {
			return err
		}
		n.masks[b] = &region{data: mask}
	}

	n.children = make([]*node, k)
	for b, child := range d.Children {
		if len(positions[b]) == 0 {
			continue
		}
		ch, err := c.spawn(n.graph, childName(child), lazy.FromSlice(unwrapped, positions[b], nil))
		if err != nil {
			return err
		}
		n.children[b] = ch
	}

	return nil
}

func childName(t schema.Type) string {
	name, _ := t.(schema.Named)
	return string(name)
}

func valueErr(n *node, i int, v any) error {
	return fmt.Errorf("%w: %s[%d] cannot hold %T", errs.ErrValue, n.name, i, v)
}
