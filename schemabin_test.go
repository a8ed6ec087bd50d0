package schemabin

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/reader"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/writer"
)

func zooGraph(t *testing.T) *schema.Graph {
	t.Helper()

	g, err := ExtendSchema(map[string]schema.Type{
		"Zoo": schema.Fields(
			"name", "String",
			"animals", schema.ArrayOf("Animal"),
			"star", schema.OptionalOf(schema.RefTo("Animal")),
			"weights", schema.ArrayOf("Float64"),
		),
		"Animal": schema.Fields(
			"name", "String",
			"age", schema.OptionalOf("Uint8"),
			"diet", schema.OneOfTypes("Herbivore", "Carnivore", "String"),
		),
		"Herbivore": schema.Fields("plants", schema.ArrayOf("String")),
		"Carnivore": schema.TupleOf("String", "Float32"),
	}, "Zoo")
	require.NoError(t, err)

	return g
}

func zooValue() map[string]any {
	tiger := map[string]any{"name": "tiger", "age": 7, "diet": []any{"meat", 9.5}}

	return map[string]any{
		"name": "city zoo",
		"animals": []any{
			map[string]any{"name": "zebra", "age": 4, "diet": map[string]any{"plants": []any{"grass", "leaves"}}},
			tiger,
			map[string]any{"name": "crow", "diet": "anything"},
		},
		"star":    tiger,
		"weights": []float64{310.5, 220, 0.4},
	}
}

func TestRoundTrip(t *testing.T) {
	g := zooGraph(t)

	for _, c := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(c.String(), func(t *testing.T) {
			buf, err := EncodeWithSchema(zooValue(), g, "Zoo", writer.WithCompression(c))
			require.NoError(t, err)

			got, err := Decode(buf, g)
			require.NoError(t, err)

			tiger := map[string]any{"name": "tiger", "age": uint8(7), "diet": []any{"meat", float32(9.5)}}
			want := map[string]any{
				"name": "city zoo",
				"animals": []any{
					map[string]any{
						"name": "zebra",
						"age":  uint8(4),
						"diet": map[string]any{"plants": []any{"grass", "leaves"}},
					},
					tiger,
					map[string]any{"name": "crow", "diet": "anything"},
				},
				"star":    tiger,
				"weights": []any{310.5, 220.0, 0.4},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("decoded value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateReader(t *testing.T) {
	g := zooGraph(t)
	buf, err := EncodeWithSchema(zooValue(), g, "Zoo")
	require.NoError(t, err)

	r, err := CreateReader(buf, g)
	require.NoError(t, err)
	require.Equal(t, "Zoo", r.TypeName())

	ages, err := r.Get("animals", AllValues, "age")
	require.NoError(t, err)
	v, err := ages.Value()
	require.NoError(t, err)
	require.Equal(t, []any{uint8(4), uint8(7), nil}, v)

	star, err := r.Get("star", NullValue, "name")
	require.NoError(t, err)
	v, err = star.Value()
	require.NoError(t, err)
	require.Equal(t, "tiger", v)

	weights, err := r.Get("weights", AllValues)
	require.NoError(t, err)
	view, err := weights.(*reader.Reader).Dump(format.Float64Array)
	require.NoError(t, err)
	require.Equal(t, []float64{310.5, 220, 0.4}, view)
}

func TestCreateReader_OtherSchema(t *testing.T) {
	g := zooGraph(t)
	buf, err := EncodeWithSchema(zooValue(), g, "Zoo")
	require.NoError(t, err)

	other, err := ExtendSchema(map[string]schema.Type{"Zoo": schema.Fields("name", "String")})
	require.NoError(t, err)

	_, err = CreateReader(buf, other)
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

const zooYAML = `
entryPoints: [Zoo]
types:
  Zoo:
    fields:
      name: String
      animals: {array: Animal}
      star: {optional: {ref: Animal}}
      weights: {array: Float64}
  Animal:
    fields:
      name: String
      age: {optional: Uint8}
      diet: {oneOf: [Herbivore, Carnivore, String]}
  Herbivore:
    fields:
      plants: {array: String}
  Carnivore:
    tuple: [String, Float32]
`

func TestLoadSchema(t *testing.T) {
	loaded, err := LoadSchema(strings.NewReader(zooYAML))
	require.NoError(t, err)
	require.Equal(t, zooGraph(t).Fingerprint(), loaded.Fingerprint())

	buf, err := EncodeWithSchema(zooValue(), loaded, "Zoo")
	require.NoError(t, err)

	// buffers written with the YAML graph open with the Go-declared one
	r, err := CreateReader(buf, zooGraph(t))
	require.NoError(t, err)
	names, err := r.Get("animals", AllValues, "name")
	require.NoError(t, err)
	v, err := names.Value()
	require.NoError(t, err)
	require.Equal(t, []any{"zebra", "tiger", "crow"}, v)
}

func TestLoadSchema_Invalid(t *testing.T) {
	_, err := LoadSchema(strings.NewReader("types:\n  A: {array: Missing}\n"))
	require.Error(t, err)
}
