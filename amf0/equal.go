package amf0

import (
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/amf3"
)

// Equal reports whether a and b hold the same data. Numbers and dates compare bit for bit when
// they are not finite.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && amf.SameNumber(float64(x), float64(y))
	case Date:
		y, ok := b.(Date)
		return ok && x.TimeZone == y.TimeZone && amf.SameNumber(x.Millis, y.Millis)
	case AVMPlus:
		y, ok := b.(AVMPlus)
		return ok && amf3.Equal(x.Value, y.Value)
	case *Object:
		y, ok := b.(*Object)
		return ok && (x == y || x != nil && y != nil && membersEqual(x.Members, y.Members))
	case *TypedObject:
		y, ok := b.(*TypedObject)
		return ok && (x == y || x != nil && y != nil && x.ClassName == y.ClassName && membersEqual(x.Members, y.Members))
	case *ECMAArray:
		y, ok := b.(*ECMAArray)
		return ok && (x == y || x != nil && y != nil && x.AssociativeCount == y.AssociativeCount && membersEqual(x.Members, y.Members))
	case *StrictArray:
		y, ok := b.(*StrictArray)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if len(x.Values) != len(y.Values) {
			return false
		}
		for i := range x.Values {
			if !Equal(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return a == b
	}
}

func membersEqual(a, b []Member) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
