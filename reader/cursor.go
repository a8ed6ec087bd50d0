package reader

import (
	"fmt"
	"strconv"

	"github.com/arloliu/schemabin/errs"
)

// Cursor is a position in a buffer: a *Reader, a *NestedReader, a
// *BranchedReader, a *KeysCursor or the cursor of an absent element.
type Cursor interface {
	// Get navigates one key at a time and returns the cursor reached.
	Get(keys ...any) (Cursor, error)
	// Value materializes the addressed elements. A multi-valued cursor
	// yields []any with nil for absent elements.
	Value() (any, error)
	// Len returns the number of addressed elements, 1 for a single cursor.
	Len() int
	// At returns the cursor of element i.
	At(i int) (Cursor, error)

	step(key any) (Cursor, error)
	enqueue(m *materializer, set func(any)) error
}

type sentinel uint8

const (
	// AllValues selects every element of an Array or every value of a Map.
	AllValues sentinel = iota + 1
	// AllKeys selects the keys of a Map.
	AllKeys
	// NullValue unwraps an Optional explicitly.
	NullValue
)

func (s sentinel) String() string {
	switch s {
	case AllValues:
		return "AllValues"
	case AllKeys:
		return "AllKeys"
	case NullValue:
		return "NullValue"
	default:
		return "sentinel(" + strconv.Itoa(int(s)) + ")"
	}
}

// walk applies keys to c in order.
func walk(c Cursor, keys []any) (Cursor, error) {
	var err error
	for depth, key := range keys {
		if c, err = c.step(key); err != nil {
			return nil, fmt.Errorf("key %d (%v): %w", depth, key, err)
		}
	}

	return c, nil
}

// nullCursor stands for an absent element. Navigating it yields another
// absent element.
type nullCursor struct{}

var null Cursor = nullCursor{}

func (nullCursor) Get(...any) (Cursor, error) { return null, nil }
func (nullCursor) Value() (any, error)        { return nil, nil }
func (nullCursor) Len() int                   { return 1 }
func (nullCursor) At(int) (Cursor, error)     { return null, nil }
func (nullCursor) step(any) (Cursor, error)   { return null, nil }

func (nullCursor) enqueue(_ *materializer, set func(any)) error {
	set(nil)
	return nil
}

// KeysCursor holds the keys of one Map element.
type KeysCursor struct {
	keys []string
}

// Keys returns the keys in their stored, sorted order.
func (k *KeysCursor) Keys() []string {
	return k.keys
}

func (k *KeysCursor) Get(keys ...any) (Cursor, error) {
	return walk(k, keys)
}

func (k *KeysCursor) step(key any) (Cursor, error) {
	return nil, fmt.Errorf("%w: map keys cannot be navigated with %v", errs.ErrKeyAccess, key)
}

// Value returns the keys as []any.
func (k *KeysCursor) Value() (any, error) {
	out := make([]any, len(k.keys))
	for i, key := range k.keys {
		out[i] = key
	}

	return out, nil
}

func (k *KeysCursor) Len() int {
	return len(k.keys)
}

// At returns a cursor whose value is key i.
func (k *KeysCursor) At(i int) (Cursor, error) {
	if i < 0 || i >= len(k.keys) {
		return nil, fmt.Errorf("%w: key %d of %d", errs.ErrIndexOutOfRange, i, len(k.keys))
	}

	return keyCursor(k.keys[i]), nil
}

func (k *KeysCursor) enqueue(_ *materializer, set func(any)) error {
	v, _ := k.Value()
	set(v)

	return nil
}

// keyCursor is one Map key.
type keyCursor string

func (k keyCursor) Get(keys ...any) (Cursor, error) { return walk(k, keys) }
func (k keyCursor) Value() (any, error)             { return string(k), nil }
func (keyCursor) Len() int                          { return 1 }
func (k keyCursor) At(int) (Cursor, error)          { return k, nil }

func (k keyCursor) step(key any) (Cursor, error) {
	return nil, fmt.Errorf("%w: map key %q cannot be navigated with %v", errs.ErrKeyAccess, string(k), key)
}

func (k keyCursor) enqueue(_ *materializer, set func(any)) error {
	set(string(k))
	return nil
}

// LinkRef is the value of a Link whose schema is not registered with the
// reader: the schema key, the target type and where its data starts.
type LinkRef struct {
	Schema string
	Type   string
	Offset int32
	Index  int32
}
