// Package writer encodes value trees into schemabin buffers.
//
// Encoding runs in two phases. The expansion phase walks the value tree with
// an explicit stack, starting from a single root node, and spawns one node
// per (type, column) pair: a Tuple or NamedTuple projects each field of the
// whole column into its own child, an Array or Map spawns one child per
// element, an Optional keeps only its present values and a OneOf splits its
// values by branch. Every node lands in a per-type bucket. The layout phase
// then assigns every bucket its byte range and emits the slots, now that
// every child offset is known.
//
// Values are plain Go trees:
//
//   - primitives use their Go types (int32, float64, string, []float32 for
//     vectors, ...), any integer kind is accepted when it fits
//   - Tuple and Array values are slices, []any or any typed slice
//   - NamedTuple and Map values are map[string]any
//   - nil marks an absent Optional
//   - schema.Branch forces the alternative of a OneOf value
//   - Ref slots hold the referenced value itself; it must be a map, pointer
//     or non-empty slice that is written elsewhere in the same tree
//
// Basic usage:
//
//	w, err := writer.New(graph, writer.WithCompression(format.CompressionZstd))
//	if err != nil {
//	    return err
//	}
//	buf, err := w.Encode(scene, "Scene")
//
// A Writer holds only configuration; every Encode call builds its own
// state, so one Writer may encode concurrently from several goroutines.
package writer
