package u29

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
)

func TestAppend(t *testing.T) {
	appendTests := []struct {
		name string
		in   uint32
		out  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"oneByteMax", 0x7F, []byte{0x7F}},
		{"twoByteMin", 0x80, []byte{0x81, 0x00}},
		{"twoByteMax", 0x3FFF, []byte{0xFF, 0x7F}},
		{"threeByteMin", 0x4000, []byte{0x81, 0x80, 0x00}},
		{"threeByteMax", 0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{"fourByteMin", 0x200000, []byte{0x80, 0xC0, 0x80, 0x00}},
		{"fourByteMax", Max, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range appendTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Append(nil, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.out) {
				t.Errorf("got %x, want %x", got, tt.out)
			}
			if Len(tt.in) != len(tt.out) {
				t.Errorf("Len(%d) = %d, want %d", tt.in, Len(tt.in), len(tt.out))
			}
			v, n, err := Read(got, 0)
			if err != nil {
				t.Fatalf("unexpected error reading back: %v", err)
			}
			if v != tt.in || n != len(tt.out) {
				t.Errorf("read back (%d, %d), want (%d, %d)", v, n, tt.in, len(tt.out))
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	buf := make([]byte, 0, 4)
	for i := uint32(0); i <= Max; i += 51 {
		b, err := Append(buf[:0], i)
		if err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
		got, n, err := Read(b, 0)
		if err != nil {
			t.Fatalf("Read(%x): %v", b, err)
		}
		if got != i || n != len(b) {
			t.Fatalf("round trip of %d gave (%d, %d) from %x", i, got, n, b)
		}
	}
}

func TestAppend_OutOfRange(t *testing.T) {
	dst := []byte{0xAA}
	got, err := Append(dst, Max+1)
	var rangeErr *amf.RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *amf.RangeError, got %v", err)
	}
	if rangeErr.Value != int64(Max)+1 {
		t.Errorf("got value %d in error, want %d", rangeErr.Value, int64(Max)+1)
	}
	if !bytes.Equal(got, dst) {
		t.Errorf("dst was modified: %x", got)
	}
}

func TestRead_FourthByteIgnoresHighBit(t *testing.T) {
	// a 4th byte with its high bit set still terminates the value
	got, n, err := Read([]byte{0x80, 0x80, 0x80, 0x80, 0x01}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x80 || n != 4 {
		t.Errorf("got (%d, %d), want (128, 4)", got, n)
	}
}

func TestRead_Offset(t *testing.T) {
	got, n, err := Read([]byte{0xFF, 0xFF, 0x81, 0x00}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x80 || n != 2 {
		t.Errorf("got (%d, %d), want (128, 2)", got, n)
	}
}

func TestRead_Truncated(t *testing.T) {
	truncatedTests := []struct {
		name   string
		in     []byte
		offset int
	}{
		{"empty", []byte{}, 0},
		{"oneContinuation", []byte{0x81}, 1},
		{"threeContinuations", []byte{0x81, 0x81, 0x81}, 3},
	}

	for _, tt := range truncatedTests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(tt.in, 0)
			var truncErr *amf.TruncatedError
			if !errors.As(err, &truncErr) {
				t.Fatalf("expected *amf.TruncatedError, got %v", err)
			}
			if truncErr.Offset != tt.offset {
				t.Errorf("got offset %d, want %d", truncErr.Offset, tt.offset)
			}
		})
	}
}
