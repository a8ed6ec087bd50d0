package schema

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/internal/hash"
)

// Graph is an immutable, validated set of named type descriptors.
//
// Primitive names from the registry resolve in every graph without being
// declared. A Graph is safe for concurrent use once built; link registration
// is synchronized.
type Graph struct {
	types       map[string]Type
	order       []string
	entryPoints []string
	fingerprint uint64
	refTargets  map[string]bool

	linkMu sync.RWMutex
	links  map[string]*Graph
}

// Extend validates defs and builds a Graph.
//
// Inline child types are registered under generated names derived from their
// parent ("Entity.pos", "Pair#1", "List[]"). Every reference must resolve to
// a declared type or a registered primitive, OneOf needs at least two
// alternatives, and field names must be unique. entryPoints, when given, must
// name declared types.
func Extend(defs map[string]Type, entryPoints ...string) (*Graph, error) {
	g := &Graph{
		types: make(map[string]Type, len(defs)),
		links: make(map[string]*Graph),
	}

	names := slices.Sorted(maps.Keys(defs))
	for _, name := range names {
		if _, isPrim := LookupPrimitive(name); isPrim {
			return nil, fmt.Errorf("%w: %q shadows a primitive", errs.ErrDuplicateType, name)
		}
		if err := g.add(name, defs[name]); err != nil {
			return nil, err
		}
	}

	if err := g.validate(); err != nil {
		return nil, err
	}

	for _, ep := range entryPoints {
		if _, err := g.Lookup(ep); err != nil {
			return nil, fmt.Errorf("entry point: %w", err)
		}
	}
	g.entryPoints = slices.Clone(entryPoints)

	g.refTargets = make(map[string]bool)
	for _, name := range g.order {
		if ref, ok := g.types[name].(Ref); ok {
			g.refTargets[nameOf(ref.Target)] = true
		}
	}

	fp := hash.NewFingerprint()
	for _, name := range g.order {
		fp.Add(name, describe(g.types[name]))
	}
	g.fingerprint = fp.Sum64()

	return g, nil
}

// add registers t under name, flattening inline children with an explicit
// work list.
func (g *Graph) add(name string, t Type) error {
	type pending struct {
		name string
		t    Type
	}

	work := []pending{{name, t}}
	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]

		if _, exists := g.types[item.name]; exists {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateType, item.name)
		}

		child := func(suffix string, c Type) Type {
			if c == nil {
				return Named("")
			}
			if n, ok := c.(Named); ok {
				return n
			}
			gen := item.name + suffix
			work = append(work, pending{gen, c})

			return Named(gen)
		}

		var norm Type
		switch v := item.t.(type) {
		case nil:
			return fmt.Errorf("%w: %q has no descriptor", errs.ErrTypeDefinition, item.name)
		case Named:
			return fmt.Errorf("%w: %q is an alias of %q, aliases are not supported", errs.ErrTypeDefinition, item.name, string(v))
		case Primitive:
			if v.Codec == nil {
				return fmt.Errorf("%w: %q has no codec", errs.ErrTypeDefinition, item.name)
			}
			norm = v
		case Tuple:
			children := make([]Type, len(v.Children))
			for i, c := range v.Children {
				children[i] = child("#"+strconv.Itoa(i), c)
			}
			norm = Tuple{Children: children}
		case NamedTuple:
			fields := make([]Field, len(v.Fields))
			index := make(map[string]int, len(v.Fields))
			for i, f := range v.Fields {
				if f.Name == "" {
					return fmt.Errorf("%w: %q field %d has no name", errs.ErrTypeDefinition, item.name, i)
				}
				if _, dup := index[f.Name]; dup {
					return fmt.Errorf("%w: %q field %q declared twice", errs.ErrTypeDefinition, item.name, f.Name)
				}
				index[f.Name] = i
				fields[i] = Field{Name: f.Name, Type: child("."+f.Name, f.Type)}
			}
			norm = NamedTuple{Fields: fields, index: index}
		case Array:
			norm = Array{Element: child("[]", v.Element)}
		case Map:
			norm = Map{Value: child("{}", v.Value)}
		case Optional:
			norm = Optional{Inner: child("?", v.Inner)}
		case OneOf:
			if len(v.Children) < 2 {
				return fmt.Errorf("%w: OneOf %q needs at least 2 alternatives", errs.ErrTypeDefinition, item.name)
			}
			children := make([]Type, len(v.Children))
			for i, c := range v.Children {
				children[i] = child("|"+strconv.Itoa(i), c)
			}
			norm = OneOf{Children: children}
		case Ref:
			norm = Ref{Target: child("&", v.Target)}
		case Link:
			if v.Schema == "" || v.Target == "" {
				return fmt.Errorf("%w: link %q needs a schema key and a target", errs.ErrTypeDefinition, item.name)
			}
			norm = v
		default:
			return fmt.Errorf("%w: %q has unsupported descriptor %T", errs.ErrTypeDefinition, item.name, item.t)
		}

		g.types[item.name] = norm
		g.order = append(g.order, item.name)
	}

	return nil
}

// validate checks that every reference resolves.
func (g *Graph) validate() error {
	for _, name := range g.order {
		for _, c := range g.children(g.types[name]) {
			ref := nameOf(c)
			if _, err := g.Lookup(ref); err != nil {
				return fmt.Errorf("type %q: %w", name, err)
			}
		}
	}

	return nil
}

func (g *Graph) children(t Type) []Type {
	switch v := t.(type) {
	case Tuple:
		return v.Children
	case NamedTuple:
		return v.Children()
	case Array:
		return []Type{v.Element}
	case Map:
		return []Type{v.Value}
	case Optional:
		return []Type{v.Inner}
	case OneOf:
		return v.Children
	case Ref:
		return []Type{v.Target}
	default:
		return nil
	}
}

// Lookup returns the descriptor registered under name. Primitive names
// resolve through the primitive registry.
func (g *Graph) Lookup(name string) (Type, error) {
	if t, ok := g.types[name]; ok {
		return t, nil
	}
	if c, ok := LookupPrimitive(name); ok {
		return Primitive{Codec: c}, nil
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrTypeDefinition, name)
}

// MustLookup is Lookup for names already validated by Extend. It panics on an
// unknown name.
func (g *Graph) MustLookup(name string) Type {
	t, err := g.Lookup(name)
	if err != nil {
		panic(err)
	}

	return t
}

// Resolve returns the name and descriptor referenced by a normalized child.
func (g *Graph) Resolve(t Type) (string, Type, error) {
	name := nameOf(t)
	desc, err := g.Lookup(name)

	return name, desc, err
}

// IsRefTarget reports whether some Ref type of the graph points at name.
func (g *Graph) IsRefTarget(name string) bool {
	return g.refTargets[name]
}

// Names returns the declared type names, including generated ones, in
// registration order.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// EntryPoints returns the entry points passed to Extend.
func (g *Graph) EntryPoints() []string {
	return slices.Clone(g.entryPoints)
}

// Fingerprint returns an xxHash64 over the canonical form of every declared
// type. Graphs built from identical definitions share a fingerprint.
func (g *Graph) Fingerprint() uint64 {
	return g.fingerprint
}

// AddLink registers the graph that Link types with schema key resolve into.
func (g *Graph) AddLink(key string, linked *Graph) error {
	if key == "" || linked == nil {
		return fmt.Errorf("%w: link needs a key and a graph", errs.ErrUsage)
	}

	g.linkMu.Lock()
	defer g.linkMu.Unlock()
	g.links[key] = linked

	return nil
}

// LinkedGraph returns the graph registered under key.
func (g *Graph) LinkedGraph(key string) (*Graph, bool) {
	g.linkMu.RLock()
	defer g.linkMu.RUnlock()

	linked, ok := g.links[key]

	return linked, ok
}
