// Package reader navigates schemabin buffers without decoding them.
//
// A Reader is a cursor over one node of the buffer: a type, the byte offset
// of the node and either a single element index or an index map selecting
// many elements. Get derives a new cursor per key and never copies data:
//
//	r, err := reader.New(buf, graph)
//	names, err := r.Get("entities", reader.AllValues, "name")
//	values, err := names.Value() // []any{"a", "b", ...}
//
// Keys follow the type of the cursor:
//
//   - Tuple: an int position
//   - NamedTuple: a field name
//   - Array: an int index, a []int selection or AllValues
//   - Map: a string key, a []string selection, AllValues or AllKeys
//   - Optional: NullValue unwraps explicitly; any other key looks through
//
// Optional, Ref and Link cursors are transparent to Get: absent optional
// elements propagate as nil, refs resolve to the referenced element and
// links jump into the linked schema. A OneOf cursor becomes a
// BranchedReader, and navigating a multi-valued cursor into a per-element
// collection (Array, Map, or a Ref family spread over several nodes)
// produces a NestedReader with one child cursor per element.
//
// Value materializes the addressed elements with an explicit work stack:
// primitives as their Go types, Tuple and Array as []any, NamedTuple and Map
// as map[string]any with absent optional fields omitted. Within one Value
// call every referenced element is materialized once and shared.
//
// Dump and DumpBytes expose the memory of a primitive column in place when
// the selected indices are contiguous.
//
// Apply re-expresses filter, sort, find, reverse, slice and duplicate as
// cursor transformations: the result can be navigated further with Get.
//
// Readers are immutable and safe for concurrent use. The buffer must not be
// modified while readers derived from it are in use.
package reader
