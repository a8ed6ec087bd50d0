// Package schemabin provides a schema-driven binary format for structured
// values with a zero-copy, lazily evaluated reader.
//
// A schema is a graph of named types: primitives, tuples, named tuples,
// arrays, maps, optionals, tagged unions (OneOf), back-references (Ref) and
// cross-schema links. Values are written column by column: every field of a
// record column becomes its own column, absent optionals and union
// discriminants are stored as compact tree bitmasks, and refs point at a
// value written once elsewhere in the buffer.
//
// # Core Features
//
//   - Column layout with fixed-size slots and int32 offsets
//   - Succinct tree bitmasks for presence and n-way union discriminants
//   - Zero-copy navigation by key, with multi-valued cursors over columns
//   - Lazy filter, sort, find, reverse, slice and duplicate over cursors
//   - In-place typed views of primitive columns
//   - Optional body compression (None, Zstd, S2, LZ4)
//   - Schema fingerprint (xxHash64) checked when opening a buffer
//
// # Basic Usage
//
// Declaring a schema and encoding a value:
//
//	graph, _ := schemabin.ExtendSchema(map[string]schema.Type{
//	    "Scene": schema.Fields(
//	        "name", "String",
//	        "entities", schema.ArrayOf("Entity"),
//	    ),
//	    "Entity": schema.Fields(
//	        "id", "Uint32",
//	        "label", schema.OptionalOf("String"),
//	    ),
//	}, "Scene")
//
//	buf, _ := schemabin.EncodeWithSchema(scene, graph, "Scene")
//
// Reading it back:
//
//	r, _ := schemabin.CreateReader(buf, graph)
//	labels, _ := r.Get("entities", schemabin.AllValues, "label")
//	values, _ := labels.Value() // []any{"a", nil, "c"}
//
// # Package Structure
//
// This package wraps the schema, writer and reader packages for the common
// cases. Use those packages directly for options such as compression,
// transforms, logging and links.
package schemabin

import (
	"io"

	"github.com/arloliu/schemabin/reader"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/writer"
)

// Keys with a special meaning in Get.
const (
	AllValues = reader.AllValues
	AllKeys   = reader.AllKeys
	NullValue = reader.NullValue
)

// ExtendSchema validates type definitions and builds a schema graph.
//
// Inline child types are registered under generated names derived from
// their parent. entryPoints, when given, must name declared types.
//
// Example:
//
//	graph, err := schemabin.ExtendSchema(map[string]schema.Type{
//	    "Pair": schema.TupleOf("Int32", schema.OptionalOf("String")),
//	})
func ExtendSchema(defs map[string]schema.Type, entryPoints ...string) (*schema.Graph, error) {
	return schema.Extend(defs, entryPoints...)
}

// LoadSchema reads a YAML schema document. See schema.LoadYAML for the
// document format.
func LoadSchema(r io.Reader) (*schema.Graph, error) {
	return schema.LoadYAML(r)
}

// EncodeWithSchema encodes value as type root of graph.
//
// Parameters:
//   - value: The value tree (see the writer package for the Go shapes)
//   - graph: The schema graph
//   - root: The name of the root type
//   - opts: Optional writer configuration
//
// Returns:
//   - []byte: The encoded buffer, owned by the caller.
//   - error: ErrValue, ErrNoBranch, ErrRefIdentity, ErrUnresolvedRef or
//     ErrUnresolvedLink when the value does not fit the schema.
func EncodeWithSchema(value any, graph *schema.Graph, root string, opts ...writer.Option) ([]byte, error) {
	w, err := writer.New(graph, opts...)
	if err != nil {
		return nil, err
	}

	return w.Encode(value, root)
}

// CreateReader opens buf for navigation against graph.
//
// The header is validated and the schema fingerprint compared with the
// graph's. An uncompressed buffer is read in place and must not be modified
// while the reader is in use.
func CreateReader(buf []byte, graph *schema.Graph, opts ...reader.Option) (*reader.Reader, error) {
	return reader.New(buf, graph, opts...)
}

// Decode materializes the whole value stored in buf.
func Decode(buf []byte, graph *schema.Graph, opts ...reader.Option) (any, error) {
	r, err := reader.New(buf, graph, opts...)
	if err != nil {
		return nil, err
	}

	return r.Value()
}
