package amf3

import (
	"bytes"

	"github.com/torresjeff/amf"
)

// Equal reports whether a and b hold the same data. Doubles compare bit for bit when they
// are not finite. Traits are compared by content, so objects decoded separately from the
// same class compare equal. Cyclic graphs are handled.
func Equal(a, b Value) bool {
	return equal(a, b, make(map[[2]Value]bool))
}

// TraitEqual reports whether two traits describe the same shape.
func TraitEqual(a, b *Trait) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.ClassName != b.ClassName || a.Dynamic != b.Dynamic || len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i] != b.Members[i] {
			return false
		}
	}
	return true
}

func equal(a, b Value, seen map[[2]Value]bool) bool {
	switch x := a.(type) {
	case Undefined, Null, Boolean, Integer, String:
		return a == b
	case Double:
		y, ok := b.(Double)
		return ok && amf.SameNumber(float64(x), float64(y))
	case *ByteArray:
		y, ok := b.(*ByteArray)
		return ok && (x == y || x != nil && y != nil && bytes.Equal(x.Data, y.Data))
	case *Date:
		y, ok := b.(*Date)
		return ok && (x == y || x != nil && y != nil && amf.SameNumber(x.Millis, y.Millis))
	case *Array:
		y, ok := b.(*Array)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if x == y || seen[[2]Value{x, y}] {
			return true
		}
		seen[[2]Value{x, y}] = true
		return membersEqual(x.Associative, y.Associative, seen) && valuesEqual(x.Dense, y.Dense, seen)
	case *Object:
		y, ok := b.(*Object)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if x == y || seen[[2]Value{x, y}] {
			return true
		}
		seen[[2]Value{x, y}] = true
		return TraitEqual(x.Trait, y.Trait) && valuesEqual(x.Sealed, y.Sealed, seen) && membersEqual(x.Dynamic, y.Dynamic, seen)
	default:
		return false
	}
}

func valuesEqual(a, b []Value, seen map[[2]Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], seen) {
			return false
		}
	}
	return true
}

func membersEqual(a, b []Member, seen map[[2]Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !equal(a[i].Value, b[i].Value, seen) {
			return false
		}
	}
	return true
}
