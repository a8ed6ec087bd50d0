// Package section defines the fixed-size header at the start of every
// schemabin buffer.
//
// # Buffer Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (32 bytes, fixed, never compressed)              │
//	├─────────────────────────────────────────────────────────┤
//	│ Body (possibly compressed as a whole)                   │
//	│  - Node blocks, 4-byte aligned, primitive blocks        │
//	│    aligned to their typed-array element size            │
//	│  - Bitmask regions and map key regions                  │
//	│  - String table                                         │
//	└─────────────────────────────────────────────────────────┘
//
// Every pointer stored in the body is an offset relative to the body start.
// The body begins at byte 32, so an 8-byte aligned buffer keeps every
// primitive block aligned in place.
//
// # Header Format
//
//	Bytes  | Field              | Type   | Description
//	-------|--------------------|--------|----------------------------------
//	0-1    | Options            | uint16 | Magic number and option bits
//	2      | Version            | uint8  | Format version
//	3      | CompressionType    | uint8  | Body compression
//	4-11   | SchemaFingerprint  | uint64 | Fingerprint of the writing schema
//	12-15  | RootOffset         | uint32 | Body offset of the root node
//	16-19  | StringTableOffset  | uint32 | Body offset of the string table
//	20-23  | RootTypeOffset     | uint32 | String table offset of the root type name
//	24-27  | BodyLength         | uint32 | Uncompressed body length
//	28-31  | StoredLength       | uint32 | Body length as stored after compression
//
// All header fields are little-endian.
package section
