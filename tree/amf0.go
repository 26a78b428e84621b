package tree

import (
	"math"

	"github.com/torresjeff/amf/amf0"
	"github.com/torresjeff/amf/amf3"
)

// FromAMF0 converts an AMF0 value to a tree.
func FromAMF0(v amf0.Value) (*Node, error) {
	return fromAMF0(v, "$")
}

func fromAMF0(v amf0.Value, path string) (*Node, error) {
	switch v := v.(type) {
	case amf0.Number:
		return numberNode(float64(v), AMF0NonFinite), nil
	case amf0.Boolean:
		return NewBool(bool(v)), nil
	case amf0.String:
		if err := checkString(path, string(v)); err != nil {
			return nil, err
		}
		return NewString(string(v)), nil
	case amf0.LongString:
		return NewMap(Field{AMF0LongString, NewString(string(v))}), nil
	case amf0.Null:
		return NewNull(), nil
	case amf0.Undefined:
		return NewString(AMF0Undefined), nil
	case amf0.Unsupported:
		return NewString(AMF0Unsupported), nil
	case amf0.ObjectEnd:
		return NewString(AMF0ObjectEnd), nil
	case amf0.Reference:
		return NewMap(Field{AMF0Reference, NewInt(int64(v))}), nil
	case amf0.Date:
		return NewMap(
			Field{AMF0Date, numberNode(v.Millis, AMF0NonFinite)},
			Field{AMF0TimeZone, NewInt(int64(v.TimeZone))},
		), nil
	case amf0.AVMPlus:
		inner, err := fromAMF3(v.Value, childPath(path, AMF0AVMPlus), make(map[amf3.Value]bool))
		if err != nil {
			return nil, err
		}
		return NewMap(Field{AMF0AVMPlus, inner}), nil
	case *amf0.Object:
		return membersFromAMF0(path, v.Members)
	case *amf0.TypedObject:
		n, err := membersFromAMF0(path, v.Members)
		if err != nil {
			return nil, err
		}
		n.Map = append([]Field{{AMF0ClassName, NewString(v.ClassName)}}, n.Map...)
		return n, nil
	case *amf0.ECMAArray:
		n, err := membersFromAMF0(path, v.Members)
		if err != nil {
			return nil, err
		}
		n.Map = append([]Field{{AMF0ArrayLen, NewInt(int64(v.AssociativeCount))}}, n.Map...)
		return n, nil
	case *amf0.StrictArray:
		items := make([]*Node, 0, len(v.Values))
		for i, e := range v.Values {
			n, err := fromAMF0(e, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		}
		return NewList(items...), nil
	}
	return nil, shapeError(path, "cannot represent AMF0 value of type %T", v)
}

func membersFromAMF0(path string, members []amf0.Member) (*Node, error) {
	fields := make([]Field, 0, len(members))
	for _, m := range members {
		p := childPath(path, m.Key)
		if err := checkString(p, m.Key); err != nil {
			return nil, err
		}
		n, err := fromAMF0(m.Value, p)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{m.Key, n})
	}
	return NewMap(fields...), nil
}

// ToAMF0 converts a tree back to an AMF0 value. Ints and floats both become Numbers.
func ToAMF0(n *Node) (amf0.Value, error) {
	return toAMF0(n, "$")
}

func toAMF0(n *Node, path string) (amf0.Value, error) {
	if n == nil {
		return nil, shapeError(path, "missing value")
	}
	switch n.Kind {
	case KindNull:
		return amf0.Null{}, nil
	case KindBool:
		return amf0.Boolean(n.Bool), nil
	case KindInt:
		return amf0.Number(float64(n.Int)), nil
	case KindFloat:
		return amf0.Number(n.Float), nil
	case KindString:
		switch n.Str {
		case AMF0Undefined:
			return amf0.Undefined{}, nil
		case AMF0Unsupported:
			return amf0.Unsupported{}, nil
		case AMF0ObjectEnd:
			return amf0.ObjectEnd{}, nil
		}
		if IsReserved(n.Str) {
			return nil, shapeError(path, "unrecognized sentinel %q", n.Str)
		}
		return amf0.String(n.Str), nil
	case KindList:
		if isTagged(n, AMF0NonFinite) {
			f, err := parseNonFinite(path, n)
			if err != nil {
				return nil, err
			}
			return amf0.Number(f), nil
		}
		values := make([]amf0.Value, 0, len(n.List))
		for i, item := range n.List {
			v, err := toAMF0(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &amf0.StrictArray{Values: values}, nil
	case KindMap:
		return mapToAMF0(n, path)
	}
	return nil, shapeError(path, "unknown node kind %d", n.Kind)
}

func mapToAMF0(n *Node, path string) (amf0.Value, error) {
	sentinels, fields, err := splitFields(path, n.Map)
	if err != nil {
		return nil, err
	}

	// Scalars spelled as single-purpose maps.
	if len(fields) == 0 {
		switch {
		case only(sentinels, AMF0Reference):
			idx := sentinels[AMF0Reference]
			if idx.Kind != KindInt || idx.Int < 0 || idx.Int > math.MaxUint16 {
				return nil, shapeError(childPath(path, AMF0Reference), "expected an index in [0, 65535]")
			}
			return amf0.Reference(idx.Int), nil
		case only(sentinels, AMF0LongString):
			s := sentinels[AMF0LongString]
			if s.Kind != KindString {
				return nil, shapeError(childPath(path, AMF0LongString), "expected a string, got %s", s.Kind)
			}
			return amf0.LongString(s.Str), nil
		case only(sentinels, AMF0Date), only(sentinels, AMF0Date, AMF0TimeZone):
			return dateToAMF0(path, sentinels)
		case only(sentinels, AMF0AVMPlus):
			v, err := toAMF3(sentinels[AMF0AVMPlus], childPath(path, AMF0AVMPlus), newTraitInterner())
			if err != nil {
				return nil, err
			}
			return amf0.AVMPlus{Value: v}, nil
		}
	}

	members, err := membersToAMF0(path, fields)
	if err != nil {
		return nil, err
	}
	switch {
	case len(sentinels) == 0:
		return &amf0.Object{Members: members}, nil
	case only(sentinels, AMF0ClassName):
		name := sentinels[AMF0ClassName]
		if name.Kind != KindString {
			return nil, shapeError(childPath(path, AMF0ClassName), "expected a string, got %s", name.Kind)
		}
		return &amf0.TypedObject{ClassName: name.Str, Members: members}, nil
	case only(sentinels, AMF0ArrayLen):
		count := sentinels[AMF0ArrayLen]
		if count.Kind != KindInt || count.Int < 0 || count.Int > math.MaxUint32 {
			return nil, shapeError(childPath(path, AMF0ArrayLen), "expected a count in [0, 4294967295]")
		}
		return &amf0.ECMAArray{AssociativeCount: uint32(count.Int), Members: members}, nil
	}
	return nil, shapeError(path, "map with keys %v matches no AMF0 convention", sortedKeys(sentinels))
}

func dateToAMF0(path string, sentinels map[string]*Node) (amf0.Value, error) {
	ms, err := number(childPath(path, AMF0Date), sentinels[AMF0Date], AMF0NonFinite)
	if err != nil {
		return nil, err
	}
	var tz int64
	if n, ok := sentinels[AMF0TimeZone]; ok {
		if n.Kind != KindInt || n.Int < math.MinInt16 || n.Int > math.MaxInt16 {
			return nil, shapeError(childPath(path, AMF0TimeZone), "expected a time zone offset in [-32768, 32767]")
		}
		tz = n.Int
	}
	return amf0.Date{Millis: ms, TimeZone: int16(tz)}, nil
}

func membersToAMF0(path string, fields []Field) ([]amf0.Member, error) {
	members := make([]amf0.Member, 0, len(fields))
	for _, f := range fields {
		v, err := toAMF0(f.Value, childPath(path, f.Key))
		if err != nil {
			return nil, err
		}
		members = append(members, amf0.Member{Key: f.Key, Value: v})
	}
	return members, nil
}
