package reader

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/section"
	"github.com/arloliu/schemabin/writer"
)

func sceneGraph(t *testing.T) *schema.Graph {
	t.Helper()

	g, err := schema.Extend(map[string]schema.Type{
		"Scene": schema.Fields(
			"name", "String",
			"entities", schema.ArrayOf("Entity"),
			"focus", schema.OptionalOf(schema.RefTo("Entity")),
			"tags", schema.MapOf("Int32"),
			"groups", schema.ArrayOf(schema.ArrayOf("Int32")),
		),
		"Entity": schema.Fields(
			"id", "Uint32",
			"pos", "Vec3",
			"label", schema.OptionalOf("String"),
			"shape", schema.OneOfTypes("Circle", "Box", "Bool"),
		),
		"Circle": schema.Fields("radius", "Float32"),
		"Box":    schema.TupleOf("Float32", "Float32"),
	}, "Scene")
	require.NoError(t, err)

	return g
}

func sceneValue() map[string]any {
	a := map[string]any{"id": 1, "pos": []float32{0, 0, 0}, "label": "alpha", "shape": map[string]any{"radius": 1.5}}
	b := map[string]any{"id": 2, "pos": []float32{1, 2, 3}, "shape": []any{2.0, 3.0}}
	c := map[string]any{"id": 3, "pos": []float32{4, 5, 6}, "label": "gamma", "shape": true}
	d := map[string]any{"id": 4, "pos": []float32{7, 8, 9}, "label": "delta", "shape": map[string]any{"radius": 0.5}}

	return map[string]any{
		"name":     "demo",
		"entities": []any{a, b, c, d},
		"focus":    c,
		"tags":     map[string]any{"red": 1, "blue": 2},
		"groups":   []any{[]any{3, 1, 2}, []any{}, []any{5, 4}},
	}
}

func encode(t *testing.T, g *schema.Graph, v any, root string, opts ...writer.Option) []byte {
	t.Helper()

	w, err := writer.New(g, opts...)
	require.NoError(t, err)
	buf, err := w.Encode(v, root)
	require.NoError(t, err)

	return buf
}

func openScene(t *testing.T) *Reader {
	t.Helper()

	g := sceneGraph(t)
	r, err := New(encode(t, g, sceneValue(), "Scene"), g)
	require.NoError(t, err)

	return r
}

func get(t *testing.T, c Cursor, keys ...any) Cursor {
	t.Helper()

	next, err := c.Get(keys...)
	require.NoError(t, err)

	return next
}

func value(t *testing.T, c Cursor, keys ...any) any {
	t.Helper()

	v, err := get(t, c, keys...).Value()
	require.NoError(t, err)

	return v
}

func TestNew(t *testing.T) {
	g := sceneGraph(t)
	buf := encode(t, g, sceneValue(), "Scene")

	t.Run("root", func(t *testing.T) {
		r, err := New(buf, g)
		require.NoError(t, err)
		require.Equal(t, "Scene", r.TypeName())
		require.Equal(t, format.KindNamedTuple, r.Kind())
		require.False(t, r.IsMulti())
		require.Equal(t, 1, r.Len())
		require.False(t, r.buf.header.HasLinks())
	})

	t.Run("schema mismatch", func(t *testing.T) {
		other, err := schema.Extend(map[string]schema.Type{"Scene": schema.Fields("name", "String")})
		require.NoError(t, err)

		_, err = New(buf, other)
		require.ErrorIs(t, err, errs.ErrSchemaMismatch)

		_, err = New(buf, other, WithoutSchemaCheck())
		require.NoError(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := New(buf[:len(buf)-1], g)
		require.Error(t, err)

		_, err = New(buf[:10], g)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("nil graph", func(t *testing.T) {
		_, err := New(buf, nil)
		require.ErrorIs(t, err, errs.ErrUsage)
	})

	t.Run("invalid link option", func(t *testing.T) {
		_, err := New(buf, g, WithLinks(map[string]*schema.Graph{"": g}))
		require.ErrorIs(t, err, errs.ErrInvalidOption)
	})
}

func TestReader_Navigation(t *testing.T) {
	r := openScene(t)

	require.Equal(t, "demo", value(t, r, "name"))
	require.Equal(t, uint32(2), value(t, r, "entities", 1, "id"))
	require.Equal(t, []float32{4, 5, 6}, value(t, r, "entities", 2, "pos"))

	keys, err := r.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"name", "entities", "focus", "tags", "groups"}, keys)

	tests := []struct {
		name string
		keys []any
		err  error
	}{
		{"unknown field", []any{"nope"}, errs.ErrKeyAccess},
		{"field on primitive", []any{"name", "x"}, errs.ErrKeyAccess},
		{"string on array", []any{"entities", "x"}, errs.ErrKeyAccess},
		{"index out of range", []any{"entities", 9}, errs.ErrIndexOutOfRange},
		{"negative index", []any{"entities", -1}, errs.ErrIndexOutOfRange},
		{"selection out of range", []any{"entities", []int{0, 4}}, errs.ErrIndexOutOfRange},
		{"malformed key", []any{"entities", 1.5}, errs.ErrMalformedKey},
		{"all keys on array", []any{"entities", AllKeys}, errs.ErrKeyAccess},
		{"tuple position out of range", []any{"entities", 1, "shape", 2}, errs.ErrIndexOutOfRange},
		{"NullValue on non-optional", []any{"name", NullValue}, errs.ErrKeyAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Get(tt.keys...)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReader_MultiValues(t *testing.T) {
	r := openScene(t)

	ids := get(t, r, "entities", AllValues, "id")
	require.Equal(t, 4, ids.Len())
	require.Equal(t, []any{uint32(1), uint32(2), uint32(3), uint32(4)}, value(t, ids))

	picked := get(t, r, "entities", []int{3, 0}, "id")
	require.Equal(t, []any{uint32(4), uint32(1)}, value(t, picked))

	second, err := ids.At(1)
	require.NoError(t, err)
	require.Equal(t, uint32(2), value(t, second))

	_, err = ids.At(4)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestReader_Optional(t *testing.T) {
	r := openScene(t)

	require.Equal(t, []any{"alpha", nil, "gamma", "delta"}, value(t, r, "entities", AllValues, "label"))
	require.Nil(t, value(t, r, "entities", 1, "label"))
	require.Equal(t, "alpha", value(t, r, "entities", 0, "label", NullValue))

	// navigating through an absent element keeps it absent
	require.Nil(t, value(t, r, "entities", 1, "label", NullValue))
}

func TestReader_Map(t *testing.T) {
	r := openScene(t)

	require.Equal(t, int32(1), value(t, r, "tags", "red"))
	require.Equal(t, []any{"blue", "red"}, value(t, r, "tags", AllKeys))
	require.Equal(t, []any{int32(1), int32(2)}, value(t, r, "tags", []string{"red", "blue"}))
	require.Equal(t, []any{int32(2), int32(1)}, value(t, r, "tags", AllValues))

	tags := get(t, r, "tags").(*Reader)
	keys, err := tags.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"blue", "red"}, keys)

	_, err = r.Get("tags", "green")
	require.ErrorIs(t, err, errs.ErrKeyAccess)
	_, err = r.Get("tags", 0)
	require.ErrorIs(t, err, errs.ErrKeyAccess)
}

func TestReader_NestedArrays(t *testing.T) {
	r := openScene(t)

	groups := get(t, r, "groups", AllValues, AllValues)
	nested, ok := groups.(*NestedReader)
	require.True(t, ok)
	require.Equal(t, 3, nested.Len())
	require.Equal(t, []any{
		[]any{int32(3), int32(1), int32(2)},
		[]any{},
		[]any{int32(5), int32(4)},
	}, value(t, groups))

	require.Equal(t, []any{int32(3), int32(5)}, value(t, r, "groups", []int{0, 2}, 0))

	_, err := r.Get("groups", AllValues, 1)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestReader_Value(t *testing.T) {
	r := openScene(t)

	v, err := r.Value()
	require.NoError(t, err)

	scene := v.(map[string]any)
	entities := scene["entities"].([]any)
	require.Len(t, entities, 4)

	require.Equal(t, map[string]any{
		"id":    uint32(2),
		"pos":   []float32{1, 2, 3},
		"shape": []any{float32(2), float32(3)},
	}, entities[1])
	require.Equal(t, map[string]any{"radius": float32(1.5)}, entities[0].(map[string]any)["shape"])
	require.Equal(t, true, entities[2].(map[string]any)["shape"])
	require.Equal(t, map[string]any{"red": int32(1), "blue": int32(2)}, scene["tags"])

	// the focus ref and the entity it points at are one object
	focus := scene["focus"].(map[string]any)
	require.Equal(t, uint32(3), focus["id"])
	require.Equal(t, reflect.ValueOf(entities[2]).Pointer(), reflect.ValueOf(focus).Pointer())

	require.Equal(t, uint32(3), value(t, r, "focus", "id"))
}

func refGraph(t *testing.T) *schema.Graph {
	t.Helper()

	g, err := schema.Extend(map[string]schema.Type{
		"World": schema.Fields("rooms", schema.ArrayOf("Room"), "picks", schema.ArrayOf(schema.RefTo("Item"))),
		"Room":  schema.Fields("items", schema.ArrayOf("Item")),
		"Item":  schema.Fields("id", "Uint32"),
	})
	require.NoError(t, err)

	return g
}

func TestReader_RefAcrossNodes(t *testing.T) {
	g := refGraph(t)
	i1 := map[string]any{"id": 1}
	i2 := map[string]any{"id": 2}
	i3 := map[string]any{"id": 3}
	world := map[string]any{
		"rooms": []any{
			map[string]any{"items": []any{i1, i2}},
			map[string]any{"items": []any{i3}},
		},
		"picks": []any{i3, i1, i2},
	}

	r, err := New(encode(t, g, world, "World"), g)
	require.NoError(t, err)

	spread := get(t, r, "picks", AllValues, "id")
	require.IsType(t, &NestedReader{}, spread)
	require.Equal(t, []any{uint32(3), uint32(1), uint32(2)}, value(t, spread))

	same := get(t, r, "picks", []int{1, 2}, "id")
	require.IsType(t, &Reader{}, same)
	require.Equal(t, []any{uint32(1), uint32(2)}, value(t, same))

	v, err := r.Value()
	require.NoError(t, err)
	picks := v.(map[string]any)["picks"].([]any)
	rooms := v.(map[string]any)["rooms"].([]any)
	first := rooms[0].(map[string]any)["items"].([]any)[0]
	require.Equal(t, reflect.ValueOf(first).Pointer(), reflect.ValueOf(picks[1]).Pointer())
}

func TestReader_Links(t *testing.T) {
	defs := map[string]schema.Type{
		"Readings": schema.ArrayOf("Reading"),
		"Reading":  schema.Fields("value", "Float64", "unit", schema.LinkTo("units", "Unit")),
	}
	units, err := schema.Extend(map[string]schema.Type{
		"Unit": schema.Fields("symbol", "String", "scale", "Float64"),
	})
	require.NoError(t, err)

	linked, err := schema.Extend(defs)
	require.NoError(t, err)
	require.NoError(t, linked.AddLink("units", units))

	readings := []any{
		map[string]any{"value": 1.5, "unit": map[string]any{"symbol": "m", "scale": 1.0}},
		map[string]any{"value": 20.0, "unit": map[string]any{"symbol": "cm", "scale": 0.01}},
	}
	buf := encode(t, linked, readings, "Readings")

	t.Run("resolved through the graph", func(t *testing.T) {
		r, err := New(buf, linked)
		require.NoError(t, err)
		require.True(t, r.buf.header.HasLinks())
		require.Equal(t, []any{"m", "cm"}, value(t, r, AllValues, "unit", "symbol"))
		require.Equal(t, 0.01, value(t, r, 1, "unit", "scale"))
	})

	t.Run("unresolved", func(t *testing.T) {
		bare, err := schema.Extend(defs)
		require.NoError(t, err)

		r, err := New(buf, bare)
		require.NoError(t, err)

		_, err = r.Get(0, "unit", "symbol")
		require.ErrorIs(t, err, errs.ErrUnresolvedLink)

		ref, ok := value(t, r, 0, "unit").(LinkRef)
		require.True(t, ok)
		require.Equal(t, "units", ref.Schema)
		require.Equal(t, "Unit", ref.Type)
		require.GreaterOrEqual(t, ref.Offset, int32(0))
		require.Equal(t, int32(0), ref.Index)

		require.NoError(t, r.AddLink("units", units))
		require.Equal(t, "m", value(t, r, 0, "unit", "symbol"))
	})

	t.Run("resolved through options", func(t *testing.T) {
		bare, err := schema.Extend(defs)
		require.NoError(t, err)

		r, err := New(buf, bare, WithLinks(map[string]*schema.Graph{"units": units}))
		require.NoError(t, err)
		require.Equal(t, "cm", value(t, r, 1, "unit", "symbol"))
	})
}

func TestReader_Compressed(t *testing.T) {
	g := sceneGraph(t)
	plain, err := New(encode(t, g, sceneValue(), "Scene"), g)
	require.NoError(t, err)
	want, err := plain.Value()
	require.NoError(t, err)

	for _, c := range []format.CompressionType{format.CompressionZstd, format.CompressionS2, format.CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			r, err := New(encode(t, g, sceneValue(), "Scene", writer.WithCompression(c)), g)
			require.NoError(t, err)

			got, err := r.Value()
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestNestedReader_Empty(t *testing.T) {
	_, err := NewNestedReader()
	require.ErrorIs(t, err, errs.ErrEmptyNested)

	n, err := NewNestedReader(null, null)
	require.NoError(t, err)
	require.Equal(t, []any{nil, nil}, value(t, n))
}

func TestReader_CorruptBuffer(t *testing.T) {
	g, err := schema.Extend(map[string]schema.Type{
		"Root": schema.Fields(
			"u", schema.OneOfTypes("Bool", "Int32"),
			"weights", schema.ArrayOf("Float64"),
			"items", schema.ArrayOf("Item"),
		),
		"Item": schema.Fields("id", "Uint32", "note", schema.OptionalOf("String")),
	}, "Root")
	require.NoError(t, err)

	clean := encode(t, g, map[string]any{
		"u":       5,
		"weights": []any{1.5, 2.5},
		"items":   []any{map[string]any{"id": 1, "note": "a"}, map[string]any{"id": 2}},
	}, "Root")
	h, err := section.ParseHeader(clean)
	require.NoError(t, err)

	body := func(buf []byte) []byte { return buf[section.HeaderSize:] }
	u32 := func(buf []byte, off uint32) uint32 { return binary.LittleEndian.Uint32(body(buf)[off:]) }
	put := func(buf []byte, off, v uint32) { binary.LittleEndian.PutUint32(body(buf)[off:], v) }
	column := func(typ, field string) uint32 {
		d, err := g.Lookup(typ)
		require.NoError(t, err)
		col, ok := d.(schema.NamedTuple).FieldIndex(field)
		require.True(t, ok)

		return uint32(col * schema.PointerSize) //nolint:gosec
	}

	root := h.RootOffset
	items := u32(clean, root+column("Root", "items"))
	item := u32(clean, items)
	mask := u32(clean, u32(clean, item+column("Item", "note")))

	tests := []struct {
		name  string
		patch func(buf []byte)
		keys  []any
	}{
		{"empty OneOf column", func(buf []byte) { put(buf, root+column("Root", "u"), 0xffffffff) }, []any{"u"}},
		{"array length", func(buf []byte) { put(buf, u32(buf, root+column("Root", "weights"))+4, math.MaxInt32) }, []any{"weights", AllValues}},
		{"record array length", func(buf []byte) { put(buf, items+4, math.MaxInt32) }, []any{"items", AllValues, "id"}},
		{"optional mask length", func(buf []byte) {
			// uvarint 16383 over the original count and tree
			body(buf)[mask], body(buf)[mask+1] = 0xff, 0x7f
		}, []any{"items", 0, "note", NullValue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.Clone(clean)
			tt.patch(buf)

			r, err := New(buf, g)
			require.NoError(t, err)

			_, err = r.Get(tt.keys...)
			require.ErrorIs(t, err, errs.ErrCorruptBuffer)

			_, err = r.Value()
			require.ErrorIs(t, err, errs.ErrCorruptBuffer)
		})
	}
}
