// Package encoding provides the variable-length encodings stored next to the
// fixed-size node blocks of a buffer.
//
// Two layouts live here:
//
// String table - every String slot holds a uint32 offset into a table
// appended after the body. Each entry is a uvarint length followed by the
// UTF-8 bytes. Identical strings are stored once:
//
//	enc := encoding.NewStringTableEncoder()
//	off, _ := enc.AddString("red")   // 0
//	_, _ = enc.AddString("green")    // 4
//	again, _ := enc.AddString("red") // 0
//	table := enc.Bytes()             // 0x03 'r' 'e' 'd' 0x05 'g' 'r' 'e' 'e' 'n'
//
// Map keys - the keys region of a Map slot is the sorted key list, each key a
// uvarint length followed by its bytes:
//
//	region := encoding.AppendKeys(nil, []string{"a", "bc"}) // 0x01 'a' 0x02 'b' 'c'
//	keys, n, err := encoding.DecodeKeys(region, 2)
//
// Varint encoding follows Protocol Buffers: the MSB of every byte marks a
// continuation, so lengths below 128 cost one byte.
//
// # Thread Safety
//
// Encoders are not thread-safe. Decoders are read-only views and may be
// shared between goroutines.
package encoding
