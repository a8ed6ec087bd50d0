package schema

import (
	"fmt"
	"math"
	"sync"

	"github.com/arloliu/schemabin/endian"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
)

// StringSink receives strings during encoding and returns their position in
// the side string table.
type StringSink interface {
	AddString(s string) (uint32, error)
}

// StringSource resolves string table positions during decoding.
type StringSource interface {
	StringAt(offset uint32) (string, error)
}

// Codec encodes one primitive type into a fixed-size slot.
type Codec struct {
	// Name is the type name the codec is registered under.
	Name string
	// Size is the slot width in bytes.
	Size int
	// Array is the typed array kind matching the slot memory, or 0 if the
	// slot cannot be viewed as a typed array.
	Array format.ArrayKind
	// Put writes v into dst[:Size].
	Put func(dst []byte, v any, strs StringSink) error
	// Load reads a value from src[:Size].
	Load func(src []byte, strs StringSource) (any, error)
	// Check reports whether v can be written by Put.
	Check func(v any) bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Codec)
)

// RegisterPrimitive adds a codec to the process-wide registry. Registering a
// name twice is an error.
func RegisterPrimitive(c *Codec) error {
	if c == nil || c.Name == "" || c.Size <= 0 || c.Put == nil || c.Load == nil || c.Check == nil {
		return fmt.Errorf("%w: incomplete codec", errs.ErrTypeDefinition)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[c.Name]; exists {
		return fmt.Errorf("%w: primitive %q", errs.ErrDuplicateType, c.Name)
	}
	registry[c.Name] = c

	return nil
}

// LookupPrimitive returns the codec registered under name.
func LookupPrimitive(name string) (*Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[name]

	return c, ok
}

var le = endian.GetLittleEndianEngine()

func mustRegister(c *Codec) {
	if err := RegisterPrimitive(c); err != nil {
		panic(err)
	}
}

func init() {
	mustRegister(&Codec{
		Name:  "Bool",
		Size:  1,
		Array: format.Uint8Array,
		Put: func(dst []byte, v any, _ StringSink) error {
			b, ok := v.(bool)
			if !ok {
				return valueErr("Bool", v)
			}
			dst[0] = 0
			if b {
				dst[0] = 1
			}

			return nil
		},
		Load:  func(src []byte, _ StringSource) (any, error) { return src[0] != 0, nil },
		Check: func(v any) bool { _, ok := v.(bool); return ok },
	})

	registerInt("Int8", 1, format.Int8Array, math.MinInt8, math.MaxInt8,
		func(b []byte, x int64) { b[0] = byte(int8(x)) },
		func(b []byte) any { return int8(b[0]) })
	registerInt("Int16", 2, format.Int16Array, math.MinInt16, math.MaxInt16,
		func(b []byte, x int64) { le.PutUint16(b, uint16(int16(x))) },
		func(b []byte) any { return int16(le.Uint16(b)) })
	registerInt("Int32", 4, format.Int32Array, math.MinInt32, math.MaxInt32,
		func(b []byte, x int64) { le.PutUint32(b, uint32(int32(x))) },
		func(b []byte) any { return int32(le.Uint32(b)) })
	registerInt("Int64", 8, format.Int64Array, math.MinInt64, math.MaxInt64,
		func(b []byte, x int64) { le.PutUint64(b, uint64(x)) },
		func(b []byte) any { return int64(le.Uint64(b)) })

	registerUint("Uint8", 1, format.Uint8Array, math.MaxUint8,
		func(b []byte, x uint64) { b[0] = byte(x) },
		func(b []byte) any { return b[0] })
	registerUint("Uint16", 2, format.Uint16Array, math.MaxUint16,
		func(b []byte, x uint64) { le.PutUint16(b, uint16(x)) },
		func(b []byte) any { return le.Uint16(b) })
	registerUint("Uint32", 4, format.Uint32Array, math.MaxUint32,
		func(b []byte, x uint64) { le.PutUint32(b, uint32(x)) },
		func(b []byte) any { return le.Uint32(b) })
	registerUint("Uint64", 8, format.Uint64Array, math.MaxUint64,
		func(b []byte, x uint64) { le.PutUint64(b, x) },
		func(b []byte) any { return le.Uint64(b) })

	mustRegister(&Codec{
		Name:  "Float32",
		Size:  4,
		Array: format.Float32Array,
		Put: func(dst []byte, v any, _ StringSink) error {
			f, ok := toFloat(v)
			if !ok {
				return valueErr("Float32", v)
			}
			le.PutUint32(dst, math.Float32bits(float32(f)))

			return nil
		},
		Load:  func(src []byte, _ StringSource) (any, error) { return math.Float32frombits(le.Uint32(src)), nil },
		Check: func(v any) bool { _, ok := toFloat(v); return ok },
	})
	mustRegister(&Codec{
		Name:  "Float64",
		Size:  8,
		Array: format.Float64Array,
		Put: func(dst []byte, v any, _ StringSink) error {
			f, ok := toFloat(v)
			if !ok {
				return valueErr("Float64", v)
			}
			le.PutUint64(dst, math.Float64bits(f))

			return nil
		},
		Load:  func(src []byte, _ StringSource) (any, error) { return math.Float64frombits(le.Uint64(src)), nil },
		Check: func(v any) bool { _, ok := toFloat(v); return ok },
	})

	mustRegister(&Codec{
		Name: "String",
		Size: 4,
		Put: func(dst []byte, v any, strs StringSink) error {
			s, ok := v.(string)
			if !ok {
				return valueErr("String", v)
			}
			off, err := strs.AddString(s)
			if err != nil {
				return err
			}
			le.PutUint32(dst, off)

			return nil
		},
		Load: func(src []byte, strs StringSource) (any, error) {
			return strs.StringAt(le.Uint32(src))
		},
		Check: func(v any) bool { _, ok := v.(string); return ok },
	})

	registerVector("Vec2", 2)
	registerVector("Vec3", 3)
	registerVector("Vec4", 4)
	registerVector("Mat3", 9)
	registerVector("Mat4", 16)
}

func valueErr(name string, v any) error {
	return fmt.Errorf("%w: %T is not a valid %s", errs.ErrValue, v, name)
}

func registerInt(name string, size int, kind format.ArrayKind, lo, hi int64, put func([]byte, int64), load func([]byte) any) {
	check := func(v any) bool {
		x, ok := toInt(v)
		return ok && x >= lo && x <= hi
	}
	mustRegister(&Codec{
		Name:  name,
		Size:  size,
		Array: kind,
		Put: func(dst []byte, v any, _ StringSink) error {
			x, ok := toInt(v)
			if !ok || x < lo || x > hi {
				return valueErr(name, v)
			}
			put(dst, x)

			return nil
		},
		Load:  func(src []byte, _ StringSource) (any, error) { return load(src), nil },
		Check: check,
	})
}

func registerUint(name string, size int, kind format.ArrayKind, hi uint64, put func([]byte, uint64), load func([]byte) any) {
	mustRegister(&Codec{
		Name:  name,
		Size:  size,
		Array: kind,
		Put: func(dst []byte, v any, _ StringSink) error {
			x, ok := toUint(v)
			if !ok || x > hi {
				return valueErr(name, v)
			}
			put(dst, x)

			return nil
		},
		Load: func(src []byte, _ StringSource) (any, error) { return load(src), nil },
		Check: func(v any) bool {
			x, ok := toUint(v)
			return ok && x <= hi
		},
	})
}

// registerVector registers a packed float32 array of n components.
func registerVector(name string, n int) {
	toVec := func(v any) ([]float32, bool) {
		switch vec := v.(type) {
		case []float32:
			return vec, len(vec) == n
		case []float64:
			if len(vec) != n {
				return nil, false
			}
			out := make([]float32, n)
			for i, f := range vec {
				out[i] = float32(f)
			}

			return out, true
		default:
			return nil, false
		}
	}

	mustRegister(&Codec{
		Name:  name,
		Size:  4 * n,
		Array: format.Float32Array,
		Put: func(dst []byte, v any, _ StringSink) error {
			vec, ok := toVec(v)
			if !ok {
				return valueErr(name, v)
			}
			for i, f := range vec {
				le.PutUint32(dst[4*i:], math.Float32bits(f))
			}

			return nil
		},
		Load: func(src []byte, _ StringSource) (any, error) {
			out := make([]float32, n)
			for i := range out {
				out[i] = math.Float32frombits(le.Uint32(src[4*i:]))
			}

			return out, nil
		},
		Check: func(v any) bool { _, ok := toVec(v); return ok },
	})
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true //nolint:gosec
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

func toUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	default:
		i, ok := toInt(v)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

// toFloat accepts float kinds and every integer kind toInt or toUint accepts.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case uint64:
		return float64(x), true
	case uint:
		return float64(x), true
	default:
		i, ok := toInt(v)
		return float64(i), ok
	}
}
