// Package u29 implements the variable length 29-bit unsigned integer used throughout AMF3.
//
//	0x00000000 - 0x0000007F : 0xxxxxxx
//	0x00000080 - 0x00003FFF : 1xxxxxxx 0xxxxxxx
//	0x00004000 - 0x001FFFFF : 1xxxxxxx 1xxxxxxx 0xxxxxxx
//	0x00200000 - 0x1FFFFFFF : 1xxxxxxx 1xxxxxxx 1xxxxxxx xxxxxxxx
package u29

import (
	"github.com/torresjeff/amf"
)

// Max is the largest value that fits in a U29.
const Max uint32 = 1<<29 - 1

// Len returns the number of bytes v occupies on the wire. v must not exceed Max.
func Len(v uint32) int {
	switch {
	case v < 0x80:
		return 1
	case v < 0x4000:
		return 2
	case v < 0x200000:
		return 3
	default:
		return 4
	}
}

// Append appends the encoding of v to dst. Values above Max are a caller error and
// are reported as *amf.RangeError without touching dst.
func Append(dst []byte, v uint32) ([]byte, error) {
	if v > Max {
		return dst, &amf.RangeError{What: "U29", Value: int64(v), Min: 0, Max: int64(Max)}
	}
	switch Len(v) {
	case 1:
		return append(dst, byte(v)), nil
	case 2:
		return append(dst, byte(v>>7)|0x80, byte(v&0x7F)), nil
	case 3:
		return append(dst, byte(v>>14)|0x80, byte(v>>7)&0x7F|0x80, byte(v&0x7F)), nil
	default:
		// the 4th byte uses all 8 bits
		return append(dst, byte(v>>22)|0x80, byte(v>>15)&0x7F|0x80, byte(v>>8)&0x7F|0x80, byte(v)), nil
	}
}

// Read decodes the U29 starting at b[pos] and returns it with the number of bytes consumed.
func Read(b []byte, pos int) (uint32, int, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		if pos+i >= len(b) {
			return 0, 0, &amf.TruncatedError{Offset: pos + i, Need: 1, Have: 0, What: "U29"}
		}
		c := b[pos+i]
		if i == 3 {
			return v<<8 | uint32(c), 4, nil
		}
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	// unreachable, the loop always returns on its 4th iteration
	return v, 4, nil
}
