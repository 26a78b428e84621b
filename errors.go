package amf

import "fmt"

// MarkerError is returned when a leading type byte is not a marker the decoder understands.
type MarkerError struct {
	Version uint8
	Offset  int
	Marker  byte
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("amf%d: position %d: marker 0x%02x not valid or not implemented", e.Version, e.Offset, e.Marker)
}

// TruncatedError is returned when the buffer ends before a declared length or count is satisfied.
type TruncatedError struct {
	Offset int
	Need   int
	Have   int
	What   string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("amf: position %d: truncated %s, need %d bytes but only %d remain", e.Offset, e.What, e.Need, e.Have)
}

// ReferenceError is returned when a reference index does not point at an already populated table slot.
type ReferenceError struct {
	Offset int
	Table  string
	Index  uint32
	Size   int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("amf3: position %d: %s reference %d out of range (table has %d entries)", e.Offset, e.Table, e.Index, e.Size)
}

// UnsupportedError is returned for format features this package deliberately does not implement,
// such as externalizable AMF3 traits.
type UnsupportedError struct {
	Offset  int
	Feature string
}

func (e *UnsupportedError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("amf: %s not supported", e.Feature)
	}
	return fmt.Sprintf("amf: position %d: %s not supported", e.Offset, e.Feature)
}

// RangeError is returned when a value does not fit the field it is being encoded into.
type RangeError struct {
	What  string
	Value int64
	Min   int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("amf: %s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

// TreeShapeError is returned when a tree node matches none of the sentinel conventions,
// or when a value cannot be represented as a tree.
type TreeShapeError struct {
	Path   string
	Reason string
}

func (e *TreeShapeError) Error() string {
	if e.Path == "" {
		return "tree: " + e.Reason
	}
	return fmt.Sprintf("tree: %s: %s", e.Path, e.Reason)
}

// DepthError is returned when values nest deeper than the configured maximum.
// A negative Offset means the input has no byte positions, as with YAML trees.
type DepthError struct {
	Offset int
	Max    int
}

func (e *DepthError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("amf: nesting deeper than %d levels", e.Max)
	}
	return fmt.Sprintf("amf: position %d: nesting deeper than %d levels", e.Offset, e.Max)
}
