package writer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/reader"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/section"
)

func testGraph(t *testing.T) *schema.Graph {
	t.Helper()

	g, err := schema.Extend(map[string]schema.Type{
		"Scene": schema.Fields(
			"name", "String",
			"entities", schema.ArrayOf("Entity"),
			"focus", schema.OptionalOf(schema.RefTo("Entity")),
		),
		"Entity": schema.Fields(
			"id", "Uint32",
			"shape", schema.OneOfTypes("Circle", "Box", "Bool"),
		),
		"Circle": schema.Fields("radius", "Float32"),
		"Box":    schema.TupleOf("Float32", "Float32"),
		"Point":  schema.Fields("x", "Float32", "y", "Float32"),
		"Path":   schema.ArrayOf("Point"),
		"Remote": schema.Fields("ref", schema.LinkTo("other", "Thing")),
	})
	require.NoError(t, err)

	return g
}

func entity(id int, shape any) map[string]any {
	return map[string]any{"id": id, "shape": shape}
}

func TestNew(t *testing.T) {
	g := testGraph(t)

	_, err := New(nil)
	require.ErrorIs(t, err, errs.ErrUsage)

	tests := []struct {
		name string
		opt  Option
		err  error
	}{
		{"buffer size", WithBufferSize(0), errs.ErrInvalidOption},
		{"nil transform", WithTransform("Point", nil), errs.ErrInvalidOption},
		{"transform on array", WithTransform("Path", func(v any) (any, error) { return v, nil }), errs.ErrInvalidOption},
		{"transform on unknown type", WithTransform("Nope", func(v any) (any, error) { return v, nil }), errs.ErrTypeDefinition},
		{"compression", WithCompression(format.CompressionType(99)), errs.ErrCompression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(g, tt.opt)
			require.ErrorIs(t, err, tt.err)
		})
	}

	w, err := New(g, WithBufferSize(64), WithLogger(nil), WithCompression(format.CompressionS2))
	require.NoError(t, err)
	require.Equal(t, 64, w.bufferSize)
	require.Equal(t, format.CompressionS2, w.compression)
	require.NotNil(t, w.logger)
}

func TestEncode_Header(t *testing.T) {
	g := testGraph(t)
	w, err := New(g)
	require.NoError(t, err)

	buf, err := w.Encode(map[string]any{"name": "s", "entities": []any{entity(1, true)}}, "Scene")
	require.NoError(t, err)

	h, err := section.ParseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(section.MagicV1Opt), h.MagicNumber())
	require.Equal(t, g.Fingerprint(), h.SchemaFingerprint)
	require.Equal(t, format.CompressionNone, h.Compression)
	require.Equal(t, uint32(0), h.RootOffset)
	require.Zero(t, h.StringTableOffset%schema.PointerSize)
	require.Equal(t, h.BodyLength, h.StoredLength)
	require.Len(t, buf, section.HeaderSize+int(h.BodyLength))
	require.False(t, h.HasLinks())
}

func TestEncode_Deterministic(t *testing.T) {
	g := testGraph(t)
	w, err := New(g)
	require.NoError(t, err)

	value := func() map[string]any {
		e := entity(7, map[string]any{"radius": 2})
		return map[string]any{"name": "d", "entities": []any{entity(1, []any{1, 2}), e}, "focus": e}
	}

	first, err := w.Encode(value(), "Scene")
	require.NoError(t, err)
	second, err := w.Encode(value(), "Scene")
	require.NoError(t, err)
	require.Equal(t, first, second)

	// integer literals land in float slots
	r, err := reader.New(first, g)
	require.NoError(t, err)
	shapes, err := r.Get("entities", reader.AllValues, "shape")
	require.NoError(t, err)
	v, err := shapes.Value()
	require.NoError(t, err)
	require.Equal(t, []any{
		[]any{float32(1), float32(2)},
		map[string]any{"radius": float32(2)},
	}, v)
}

func TestEncode_Errors(t *testing.T) {
	g := testGraph(t)
	w, err := New(g)
	require.NoError(t, err)

	stray := entity(9, true)

	tests := []struct {
		name  string
		value any
		root  string
		err   error
	}{
		{"unknown root", 1, "Nope", errs.ErrTypeDefinition},
		{"wrong primitive", map[string]any{"name": 5}, "Scene", errs.ErrValue},
		{"missing required field", map[string]any{"entities": []any{}}, "Scene", errs.ErrValue},
		{"unknown field", map[string]any{"name": "x", "extra": 1}, "Scene", errs.ErrValue},
		{"not a list", map[string]any{"name": "x", "entities": 3}, "Scene", errs.ErrValue},
		{"no branch", map[string]any{"name": "x", "entities": []any{entity(1, "round")}}, "Scene", errs.ErrNoBranch},
		{"branch out of range", map[string]any{"name": "x", "entities": []any{entity(1, schema.Branch{Index: 3, Value: true})}}, "Scene", errs.ErrValue},
		{"ref outside the tree", map[string]any{"name": "x", "entities": []any{entity(1, true)}, "focus": stray}, "Scene", errs.ErrUnresolvedRef},
		{"ref without identity", map[string]any{"name": "x", "entities": []any{entity(1, true)}, "focus": 5}, "Scene", errs.ErrRefIdentity},
		{"unresolved link", map[string]any{"ref": map[string]any{}}, "Remote", errs.ErrUnresolvedLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Encode(tt.value, tt.root)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEncode_ForcedBranch(t *testing.T) {
	g := testGraph(t)
	w, err := New(g)
	require.NoError(t, err)

	// the branch skips classification entirely
	buf, err := w.Encode(map[string]any{
		"name":     "b",
		"entities": []any{entity(1, schema.Branch{Index: 1, Value: []float32{1, 2}})},
	}, "Scene")
	require.NoError(t, err)

	r, err := reader.New(buf, g)
	require.NoError(t, err)
	shape, err := r.Get("entities", 0, "shape")
	require.NoError(t, err)
	br, err := reader.AsBranched(shape)
	require.NoError(t, err)
	require.Equal(t, []int{1}, br.Discriminator())
}

type point struct {
	X, Y float32
}

func TestEncode_Transform(t *testing.T) {
	g := testGraph(t)
	toRecord := func(v any) (any, error) {
		p, ok := v.(point)
		if !ok {
			return nil, errors.New("not a point")
		}

		return map[string]any{"x": p.X, "y": p.Y}, nil
	}

	w, err := New(g, WithTransform("Point", toRecord))
	require.NoError(t, err)

	buf, err := w.Encode([]any{point{1, 2}, point{3, 4}}, "Path")
	require.NoError(t, err)

	r, err := reader.New(buf, g)
	require.NoError(t, err)
	ys, err := r.Get(reader.AllValues, "y")
	require.NoError(t, err)
	v, err := ys.Value()
	require.NoError(t, err)
	require.Equal(t, []any{float32(2), float32(4)}, v)

	_, err = w.Encode([]any{"nope"}, "Path")
	require.ErrorContains(t, err, "not a point")
}

func TestEncode_DeepNesting(t *testing.T) {
	g, err := schema.Extend(map[string]schema.Type{
		"Node": schema.Fields("v", "Int32", "next", schema.OptionalOf("Node")),
	})
	require.NoError(t, err)

	const depth = 10000
	var head map[string]any
	for i := depth - 1; i >= 0; i-- {
		n := map[string]any{"v": i}
		if head != nil {
			n["next"] = head
		}
		head = n
	}

	w, err := New(g)
	require.NoError(t, err)
	buf, err := w.Encode(head, "Node")
	require.NoError(t, err)

	r, err := reader.New(buf, g)
	require.NoError(t, err)
	v, err := r.Value()
	require.NoError(t, err)

	cur, _ := v.(map[string]any)
	for i := range depth {
		require.NotNil(t, cur, "depth %d", i)
		require.Equal(t, int32(i), cur["v"]) //nolint:gosec
		cur, _ = cur["next"].(map[string]any)
	}
	require.Nil(t, cur)
}

func TestEncode_Logger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := testGraph(t)

	w, err := New(g, WithLogger(zap.New(core)), WithCompression(format.CompressionZstd))
	require.NoError(t, err)
	_, err = w.Encode(map[string]any{"name": "s", "entities": []any{entity(1, true)}}, "Scene")
	require.NoError(t, err)

	entries := logs.FilterMessage("encoded buffer").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "Scene", fields["root"])
	require.Equal(t, "Zstd", fields["compression"])
	require.Positive(t, fields["nodes"])
}
