// Package amf holds what the AMF0 and AMF3 codecs share: version numbers and the error taxonomy.
//
// The codecs themselves live in the amf0 and amf3 packages, and the tree package bridges
// decoded values to an ordered tree that can be rendered as JSON or YAML for editing.
package amf

import "math"

const Version0 uint8 = 0
const Version3 uint8 = 3

// ValidVersion reports whether v is a supported AMF version.
func ValidVersion(v uint8) bool {
	return v == Version0 || v == Version3
}

// SameNumber compares two doubles the way AMF values are compared: numerically when both are
// finite, and by exact bit pattern otherwise, since NaN has many encodings and none is canonical.
func SameNumber(x, y float64) bool {
	if !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0) {
		return x == y
	}
	return math.Float64bits(x) == math.Float64bits(y)
}
