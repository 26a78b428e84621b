package amf

import (
	"math"
	"testing"
)

func TestSameNumber(t *testing.T) {
	nan1 := math.Float64frombits(0x7FF8000000000001)
	nan2 := math.Float64frombits(0x7FF8000000000002)
	sameNumberTests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"equal", 1.5, 1.5, true},
		{"different", 1.5, 2.5, false},
		{"signedZeros", 0, math.Copysign(0, -1), true},
		{"sameNaN", nan1, nan1, true},
		{"differentNaNs", nan1, nan2, false},
		{"infinities", math.Inf(1), math.Inf(1), true},
		{"oppositeInfinities", math.Inf(1), math.Inf(-1), false},
		{"nanAndNumber", nan1, 1, false},
	}
	for _, tt := range sameNumberTests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameNumber(tt.x, tt.y); got != tt.want {
				t.Errorf("SameNumber(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestValidVersion(t *testing.T) {
	for v := 0; v < 256; v++ {
		want := v == 0 || v == 3
		if got := ValidVersion(uint8(v)); got != want {
			t.Errorf("ValidVersion(%d) = %v", v, got)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	errorTests := []struct {
		err  error
		want string
	}{
		{&MarkerError{Version: 3, Offset: 4, Marker: 0x11}, "amf3: position 4: marker 0x11 not valid or not implemented"},
		{&UnsupportedError{Offset: -1, Feature: "array containing itself"}, "amf: array containing itself not supported"},
		{&TreeShapeError{Path: "$[0]", Reason: "missing value"}, "tree: $[0]: missing value"},
		{&DepthError{Offset: -1, Max: 512}, "amf: nesting deeper than 512 levels"},
		{&DepthError{Offset: 9, Max: 512}, "amf: position 9: nesting deeper than 512 levels"},
	}
	for _, tt := range errorTests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
