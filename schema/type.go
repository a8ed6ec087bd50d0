package schema

import (
	"fmt"
	"strings"

	"github.com/arloliu/schemabin/format"
)

// Type is a schema type descriptor. The set of implementations is closed:
// Named, Primitive, Tuple, NamedTuple, Array, Map, Optional, OneOf, Ref and
// Link. Traversals switch exhaustively on the concrete type.
//
// Compound descriptors hold their children as Type values. Inside a Graph
// every child is a Named reference; inline children passed to Extend are
// registered under generated names first.
type Type interface {
	Kind() format.Kind
	isType()
}

// Named refers to another type by name.
type Named string

// Primitive is a fixed-size leaf encoded by a Codec.
type Primitive struct {
	Codec *Codec
}

// Tuple is an ordered list of positional children.
type Tuple struct {
	Children []Type
}

// Field is one member of a NamedTuple.
type Field struct {
	Name string
	Type Type
}

// NamedTuple is an ordered list of named children.
type NamedTuple struct {
	Fields []Field
	index  map[string]int
}

// Array is a variable-length list of Element values.
type Array struct {
	Element Type
}

// Map is a string-keyed dictionary of Value values.
type Map struct {
	Value Type
}

// Optional is an Inner value that may be absent.
type Optional struct {
	Inner Type
}

// OneOf is a tagged union. A value takes the first alternative whose check
// accepts it.
type OneOf struct {
	Children []Type
}

// Ref is a back-reference to a Target value written elsewhere in the same
// buffer.
type Ref struct {
	Target Type
}

// Link jumps into type Target of the schema registered under key Schema.
type Link struct {
	Schema string
	Target string
}

func (Named) Kind() format.Kind      { return 0 }
func (Primitive) Kind() format.Kind  { return format.KindPrimitive }
func (Tuple) Kind() format.Kind      { return format.KindTuple }
func (NamedTuple) Kind() format.Kind { return format.KindNamedTuple }
func (Array) Kind() format.Kind      { return format.KindArray }
func (Map) Kind() format.Kind        { return format.KindMap }
func (Optional) Kind() format.Kind   { return format.KindOptional }
func (OneOf) Kind() format.Kind      { return format.KindOneOf }
func (Ref) Kind() format.Kind        { return format.KindRef }
func (Link) Kind() format.Kind       { return format.KindLink }

func (Named) isType()      {}
func (Primitive) isType()  {}
func (Tuple) isType()      {}
func (NamedTuple) isType() {}
func (Array) isType()      {}
func (Map) isType()        {}
func (Optional) isType()   {}
func (OneOf) isType()      {}
func (Ref) isType()        {}
func (Link) isType()       {}

// TupleOf builds a Tuple. Children may be type names or inline types.
func TupleOf(children ...any) Tuple {
	return Tuple{Children: toTypes(children)}
}

// Fields builds a NamedTuple from alternating name / type pairs:
//
//	schema.Fields("id", "Uint32", "pos", schema.OptionalOf("Vec3"))
func Fields(pairs ...any) NamedTuple {
	fields := make([]Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		fields = append(fields, Field{Name: name, Type: toType(pairs[i+1])})
	}

	return NamedTuple{Fields: fields}
}

// ArrayOf builds an Array.
func ArrayOf(elem any) Array { return Array{Element: toType(elem)} }

// MapOf builds a Map.
func MapOf(value any) Map { return Map{Value: toType(value)} }

// OptionalOf builds an Optional.
func OptionalOf(inner any) Optional { return Optional{Inner: toType(inner)} }

// OneOfTypes builds a OneOf.
func OneOfTypes(children ...any) OneOf { return OneOf{Children: toTypes(children)} }

// RefTo builds a Ref.
func RefTo(target any) Ref { return Ref{Target: toType(target)} }

// LinkTo builds a Link into type target of the schema registered as key.
func LinkTo(key, target string) Link { return Link{Schema: key, Target: target} }

func toType(v any) Type {
	switch t := v.(type) {
	case string:
		return Named(t)
	case Type:
		return t
	default:
		return Named(fmt.Sprintf("<invalid %T>", v))
	}
}

func toTypes(vs []any) []Type {
	out := make([]Type, len(vs))
	for i, v := range vs {
		out[i] = toType(v)
	}

	return out
}

// FieldIndex returns the position of the named field.
func (t NamedTuple) FieldIndex(name string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[name]
		return i, ok
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return i, true
		}
	}

	return -1, false
}

// FieldNames returns the field names in declaration order.
func (t NamedTuple) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}

	return names
}

// Children returns the field types in declaration order.
func (t NamedTuple) Children() []Type {
	out := make([]Type, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = f.Type
	}

	return out
}

// nameOf returns the referenced name of a normalized child.
func nameOf(t Type) string {
	if n, ok := t.(Named); ok {
		return string(n)
	}

	return ""
}

// describe renders a normalized descriptor in a canonical form used for
// fingerprints and error messages.
func describe(t Type) string {
	var sb strings.Builder
	switch v := t.(type) {
	case Named:
		sb.WriteString(string(v))
	case Primitive:
		fmt.Fprintf(&sb, "prim(%s,%d)", v.Codec.Name, v.Codec.Size)
	case Tuple:
		sb.WriteString("tuple(")
		for i, c := range v.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(describe(c))
		}
		sb.WriteByte(')')
	case NamedTuple:
		sb.WriteString("fields(")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Name)
			sb.WriteByte(':')
			sb.WriteString(describe(f.Type))
		}
		sb.WriteByte(')')
	case Array:
		fmt.Fprintf(&sb, "array(%s)", describe(v.Element))
	case Map:
		fmt.Fprintf(&sb, "map(%s)", describe(v.Value))
	case Optional:
		fmt.Fprintf(&sb, "optional(%s)", describe(v.Inner))
	case OneOf:
		sb.WriteString("oneof(")
		for i, c := range v.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(describe(c))
		}
		sb.WriteByte(')')
	case Ref:
		fmt.Fprintf(&sb, "ref(%s)", describe(v.Target))
	case Link:
		fmt.Fprintf(&sb, "link(%s,%s)", v.Schema, v.Target)
	}

	return sb.String()
}
