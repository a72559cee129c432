// Package wire provides bounds-checked access to fixed-layout header fields.
//
// Every accessor reports whether the requested range lies inside the buffer,
// so callers never index past the end of a short capture.
package wire

import "encoding/binary"

// Window returns b[off:off+n] if the whole range is inside b.
func Window(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) || n > len(b)-off {
		return nil, false
	}
	return b[off : off+n : off+n], true
}

// Uint8 reads the byte at off.
func Uint8(b []byte, off int) (uint8, bool) {
	w, ok := Window(b, off, 1)
	if !ok {
		return 0, false
	}
	return w[0], true
}

// Uint16 reads a big-endian 16-bit value at off and returns it in host order.
func Uint16(b []byte, off int) (uint16, bool) {
	w, ok := Window(b, off, 2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(w), true
}

// Uint32 reads a big-endian 32-bit value at off and returns it in host order.
func Uint32(b []byte, off int) (uint32, bool) {
	w, ok := Window(b, off, 4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(w), true
}

// HighNibble returns the upper four bits of v.
func HighNibble(v uint8) uint8 { return v >> 4 }

// LowNibble returns the lower four bits of v.
func LowNibble(v uint8) uint8 { return v & 0x0f }
