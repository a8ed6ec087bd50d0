// Package errs defines the sentinel errors returned by schemabin.
//
// Errors are grouped by the layer that reports them. Callers match them with
// errors.Is; most call sites wrap a sentinel with additional context.
package errs

import "errors"

// Schema definition errors.
var (
	ErrTypeDefinition = errors.New("schemabin: unknown or invalid type definition")
	ErrDuplicateType  = errors.New("schemabin: duplicate type name")
)

// Navigation and usage errors.
var (
	ErrKeyAccess       = errors.New("schemabin: key does not match cursor type")
	ErrIndexOutOfRange = errors.New("schemabin: index out of range")
	ErrMalformedKey    = errors.New("schemabin: malformed multi-key")
	ErrUsage           = errors.New("schemabin: invalid usage")
	ErrInvalidOption   = errors.New("schemabin: invalid option")
)

// Traversal errors.
var (
	ErrTraversal      = errors.New("schemabin: traversal invariant violated")
	ErrEmptyNested    = errors.New("schemabin: nested reader requires at least one child")
	ErrNotOneOf       = errors.New("schemabin: cursor is not a OneOf")
	ErrNotContiguous  = errors.New("schemabin: index set is not contiguous")
	ErrNotPrimitive   = errors.New("schemabin: cursor is not a primitive")
	ErrUnaligned      = errors.New("schemabin: primitive block is not aligned for zero-copy access")
	ErrUnresolvedLink = errors.New("schemabin: no linked reader registered for schema")
	ErrUnresolvedRef  = errors.New("schemabin: referenced value was not written")
)

// Write-time value errors.
var (
	ErrValue       = errors.New("schemabin: value does not match type")
	ErrNoBranch    = errors.New("schemabin: value matches no OneOf branch")
	ErrRefIdentity = errors.New("schemabin: value has no stable identity")
)

// Buffer errors.
var (
	ErrCorruptBuffer     = errors.New("schemabin: corrupt buffer")
	ErrInvalidHeaderSize = errors.New("schemabin: invalid header size")
	ErrInvalidMagic      = errors.New("schemabin: invalid magic number")
	ErrInvalidVersion    = errors.New("schemabin: unsupported format version")
	ErrSchemaMismatch    = errors.New("schemabin: buffer was written with a different schema")
	ErrCompression       = errors.New("schemabin: unsupported compression type")
)
