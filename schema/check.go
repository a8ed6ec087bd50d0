package schema

import (
	"reflect"
)

// Branch forces the OneOf alternative a value is written as, bypassing the
// check predicates.
type Branch struct {
	Index int
	Value any
}

// Check reports whether v has the shape of the named type. Primitives use
// their codec's check; compound types are checked structurally, all the way
// down. Ref slots accept any value with a stable identity, Link slots defer
// to the linked graph when one is registered.
//
// The walk keeps its own stack, so the depth of v is not bounded by the
// goroutine stack.
func (g *Graph) Check(name string, v any) bool {
	pending := &goal{g: g, name: name, v: v}
	var choices []choice

	for pending != nil {
		cur := pending
		pending = pending.next

		if cur.commit > 0 {
			// the alternative matched, later failures must not retry the OneOf
			choices = choices[:cur.commit-1]
			continue
		}

		next, alts, ok := cur.g.checkOne(cur.name, cur.v, pending)
		pending = next
		if ok && alts == nil {
			continue
		}
		if ok {
			choices = append(choices, choice{rest: pending, g: cur.g, alts: alts, v: cur.v})
		}

		// resume the newest OneOf that has an untried alternative
		for {
			if len(choices) == 0 {
				return false
			}
			c := &choices[len(choices)-1]
			if c.tried < len(c.alts) {
				alt := c.alts[c.tried]
				c.tried++
				marker := &goal{commit: len(choices), next: c.rest}
				pending = &goal{g: c.g, name: nameOf(alt), v: c.v, next: marker}

				break
			}
			choices = choices[:len(choices)-1]
		}
	}

	return true
}

// goal is one pending check. Goals form a persistent list, so a choice can
// restart from the goals that followed its OneOf.
type goal struct {
	g      *Graph
	name   string
	v      any
	commit int // non-zero marks the end of an alternative of choice commit-1
	next   *goal
}

// choice is a OneOf whose alternatives are tried in order.
type choice struct {
	rest  *goal
	g     *Graph
	alts  []Type
	v     any
	tried int
}

// checkOne checks the top level of v against the named type and pushes the
// checks of its parts onto pending. A OneOf returns its alternatives instead.
func (g *Graph) checkOne(name string, v any, pending *goal) (*goal, []Type, bool) {
	t, err := g.Lookup(name)
	if err != nil {
		return pending, nil, false
	}

	push := func(t Type, v any) {
		pending = &goal{g: g, name: nameOf(t), v: v, next: pending}
	}

	switch d := t.(type) {
	case Primitive:
		return pending, nil, d.Codec.Check(v)
	case Tuple:
		items, ok := AsList(v)
		if !ok || len(items) != len(d.Children) {
			return pending, nil, false
		}
		for i := len(items) - 1; i >= 0; i-- {
			push(d.Children[i], items[i])
		}
	case NamedTuple:
		rec, ok := v.(map[string]any)
		if !ok {
			return pending, nil, false
		}
		for key := range rec {
			if _, known := d.FieldIndex(key); !known {
				return pending, nil, false
			}
		}
		for i := len(d.Fields) - 1; i >= 0; i-- {
			push(d.Fields[i].Type, rec[d.Fields[i].Name])
		}
	case Array:
		items, ok := AsList(v)
		if !ok {
			return pending, nil, false
		}
		for i := len(items) - 1; i >= 0; i-- {
			push(d.Element, items[i])
		}
	case Map:
		m, ok := v.(map[string]any)
		if !ok {
			return pending, nil, false
		}
		for _, mv := range m {
			push(d.Value, mv)
		}
	case Optional:
		if v != nil {
			push(d.Inner, v)
		}
	case OneOf:
		b, ok := v.(Branch)
		if !ok {
			return pending, d.Children, true
		}
		if b.Index < 0 || b.Index >= len(d.Children) {
			return pending, nil, false
		}
		push(d.Children[b.Index], b.Value)
	case Ref:
		_, ok := IdentityOf(v)
		return pending, nil, ok
	case Link:
		linked, ok := g.LinkedGraph(d.Schema)
		if !ok {
			return pending, nil, v != nil
		}
		pending = &goal{g: linked, name: d.Target, v: v, next: pending}
	default:
		return pending, nil, false
	}

	return pending, nil, true
}

// AsList returns the elements of a list value. []any is returned as is; other
// slice and array kinds are boxed element by element.
func AsList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// Identity is a stable identity for a value referenced through Ref slots.
type Identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

// IdentityOf returns the identity of v. Maps, pointers and non-empty slices
// have an identity; everything else is compared by value and cannot be
// referenced.
func IdentityOf(v any) (Identity, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return Identity{}, false
		}

		return Identity{kind: rv.Kind(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return Identity{}, false
		}

		return Identity{kind: rv.Kind(), ptr: rv.Pointer(), len: rv.Len()}, true
	default:
		return Identity{}, false
	}
}
