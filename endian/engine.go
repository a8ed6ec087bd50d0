// Package endian provides byte order utilities for the schemabin buffer layout.
//
// The buffer format is little-endian throughout. EndianEngine combines the
// ByteOrder and AppendByteOrder interfaces from encoding/binary so slot readers
// and writers can use one value for both fixed-offset access and appends.
//
//	engine := endian.GetLittleEndianEngine()
//	offset := engine.Uint32(data[slot:])
//
// Zero-copy typed views (reader Dump) are only valid when the host byte order
// matches the buffer byte order; IsNativeLittleEndian reports that.
//
// All functions in this package are safe for concurrent use.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host stores integers little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// GetLittleEndianEngine returns the engine used by the buffer layout.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}
