package tree

import (
	"encoding/base64"

	"github.com/torresjeff/amf/amf3"
)

// FromAMF3 converts an AMF3 value to a tree. Instances shared by several fields are written out
// in full at each place; a value that contains itself cannot be represented.
func FromAMF3(v amf3.Value) (*Node, error) {
	return fromAMF3(v, "$", make(map[amf3.Value]bool))
}

// active holds the complex values on the path from the root to the current one.
func fromAMF3(v amf3.Value, path string, active map[amf3.Value]bool) (*Node, error) {
	switch v := v.(type) {
	case amf3.Undefined:
		return NewString(AMF3Undefined), nil
	case amf3.Null:
		return NewNull(), nil
	case amf3.Boolean:
		return NewBool(bool(v)), nil
	case amf3.Integer:
		return NewInt(int64(v)), nil
	case amf3.Double:
		return numberNode(float64(v), AMF3NonFinite), nil
	case amf3.String:
		if err := checkString(path, string(v)); err != nil {
			return nil, err
		}
		return NewString(string(v)), nil
	case *amf3.ByteArray:
		if v == nil {
			break
		}
		return NewMap(Field{AMF3ByteArray, NewString(base64.StdEncoding.EncodeToString(v.Data))}), nil
	case *amf3.Date:
		if v == nil {
			break
		}
		return NewMap(Field{AMF3Date, numberNode(v.Millis, AMF3NonFinite)}), nil
	case *amf3.Array:
		if v == nil {
			break
		}
		if active[v] {
			return nil, shapeError(path, "array contains itself")
		}
		active[v] = true
		defer delete(active, v)
		return arrayFromAMF3(v, path, active)
	case *amf3.Object:
		if v == nil || v.Trait == nil {
			break
		}
		if active[v] {
			return nil, shapeError(path, "object of class %q contains itself", v.Trait.ClassName)
		}
		active[v] = true
		defer delete(active, v)
		return objectFromAMF3(v, path, active)
	}
	return nil, shapeError(path, "cannot represent AMF3 value %#v", v)
}

func arrayFromAMF3(a *amf3.Array, path string, active map[amf3.Value]bool) (*Node, error) {
	dense := make([]*Node, 0, len(a.Dense))
	for i, e := range a.Dense {
		p := indexPath(path, i)
		if len(a.Associative) > 0 {
			p = indexPath(childPath(path, AMF3Dense), i)
		}
		n, err := fromAMF3(e, p, active)
		if err != nil {
			return nil, err
		}
		dense = append(dense, n)
	}
	if len(a.Associative) == 0 {
		return NewList(dense...), nil
	}
	assoc, err := membersFromAMF3(childPath(path, AMF3Associative), a.Associative, active)
	if err != nil {
		return nil, err
	}
	return NewMap(Field{AMF3Associative, assoc}, Field{AMF3Dense, NewList(dense...)}), nil
}

func objectFromAMF3(o *amf3.Object, path string, active map[amf3.Value]bool) (*Node, error) {
	t := o.Trait
	if len(o.Sealed) != len(t.Members) {
		return nil, shapeError(path, "object of class %q has %d sealed values for %d sealed members", t.ClassName, len(o.Sealed), len(t.Members))
	}
	fields := make([]Field, 0, len(t.Members)+2)
	fields = append(fields, Field{AMF3Class, NewString(t.ClassName)})
	for i, name := range t.Members {
		p := childPath(path, name)
		if err := checkString(p, name); err != nil {
			return nil, err
		}
		n, err := fromAMF3(o.Sealed[i], p, active)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{name, n})
	}
	if t.Dynamic {
		dyn, err := membersFromAMF3(childPath(path, AMF3Dynamic), o.Dynamic, active)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{AMF3Dynamic, dyn})
	}
	return NewMap(fields...), nil
}

func membersFromAMF3(path string, members []amf3.Member, active map[amf3.Value]bool) (*Node, error) {
	fields := make([]Field, 0, len(members))
	for _, m := range members {
		p := childPath(path, m.Key)
		if err := checkString(p, m.Key); err != nil {
			return nil, err
		}
		n, err := fromAMF3(m.Value, p, active)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{m.Key, n})
	}
	return NewMap(fields...), nil
}

// traitInterner hands out one *amf3.Trait per distinct trait so that the encoder writes
// trait references for objects of the same class.
type traitInterner struct {
	traits []*amf3.Trait
}

func newTraitInterner() *traitInterner {
	return &traitInterner{}
}

func (ti *traitInterner) intern(t *amf3.Trait) *amf3.Trait {
	for _, known := range ti.traits {
		if amf3.TraitEqual(known, t) {
			return known
		}
	}
	ti.traits = append(ti.traits, t)
	return t
}

// ToAMF3 converts a tree back to an AMF3 value. Int nodes become Integers and float nodes
// Doubles. Objects whose class, dynamic flag and sealed member names agree share one trait.
func ToAMF3(n *Node) (amf3.Value, error) {
	return toAMF3(n, "$", newTraitInterner())
}

func toAMF3(n *Node, path string, traits *traitInterner) (amf3.Value, error) {
	if n == nil {
		return nil, shapeError(path, "missing value")
	}
	switch n.Kind {
	case KindNull:
		return amf3.Null{}, nil
	case KindBool:
		return amf3.Boolean(n.Bool), nil
	case KindInt:
		if n.Int < int64(amf3.MinInt) || n.Int > int64(amf3.MaxInt) {
			return nil, shapeError(path, "integer %d does not fit in 29 bits, write it as a float", n.Int)
		}
		return amf3.Integer(n.Int), nil
	case KindFloat:
		return amf3.Double(n.Float), nil
	case KindString:
		if n.Str == AMF3Undefined {
			return amf3.Undefined{}, nil
		}
		if IsReserved(n.Str) {
			return nil, shapeError(path, "unrecognized sentinel %q", n.Str)
		}
		return amf3.String(n.Str), nil
	case KindList:
		if isTagged(n, AMF3NonFinite) {
			f, err := parseNonFinite(path, n)
			if err != nil {
				return nil, err
			}
			return amf3.Double(f), nil
		}
		dense, err := listToAMF3(n, path, traits)
		if err != nil {
			return nil, err
		}
		return &amf3.Array{Dense: dense}, nil
	case KindMap:
		return mapToAMF3(n, path, traits)
	}
	return nil, shapeError(path, "unknown node kind %d", n.Kind)
}

func listToAMF3(n *Node, path string, traits *traitInterner) ([]amf3.Value, error) {
	values := make([]amf3.Value, 0, len(n.List))
	for i, item := range n.List {
		v, err := toAMF3(item, indexPath(path, i), traits)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func mapToAMF3(n *Node, path string, traits *traitInterner) (amf3.Value, error) {
	sentinels, fields, err := splitFields(path, n.Map)
	if err != nil {
		return nil, err
	}

	if _, ok := sentinels[AMF3Class]; ok {
		if !only(sentinels, AMF3Class) && !only(sentinels, AMF3Class, AMF3Dynamic) {
			return nil, shapeError(path, "object with keys %v matches no AMF3 convention", sortedKeys(sentinels))
		}
		return objectToAMF3(path, sentinels, fields, traits)
	}
	if len(fields) > 0 {
		return nil, shapeError(path, "map with ordinary keys needs %s or an AMF0 conversion", AMF3Class)
	}

	switch {
	case only(sentinels, AMF3Associative), only(sentinels, AMF3Dense), only(sentinels, AMF3Associative, AMF3Dense):
		a := &amf3.Array{}
		if assoc, ok := sentinels[AMF3Associative]; ok {
			if a.Associative, err = membersToAMF3(childPath(path, AMF3Associative), assoc, traits); err != nil {
				return nil, err
			}
		}
		if dense, ok := sentinels[AMF3Dense]; ok {
			p := childPath(path, AMF3Dense)
			if dense.Kind != KindList {
				return nil, shapeError(p, "expected a list, got %s", dense.Kind)
			}
			if a.Dense, err = listToAMF3(dense, p, traits); err != nil {
				return nil, err
			}
		}
		return a, nil
	case only(sentinels, AMF3ByteArray):
		p := childPath(path, AMF3ByteArray)
		s := sentinels[AMF3ByteArray]
		if s.Kind != KindString {
			return nil, shapeError(p, "expected a base64 string, got %s", s.Kind)
		}
		data, err := base64.StdEncoding.DecodeString(s.Str)
		if err != nil {
			return nil, shapeError(p, "invalid base64: %v", err)
		}
		return &amf3.ByteArray{Data: data}, nil
	case only(sentinels, AMF3Date):
		ms, err := number(childPath(path, AMF3Date), sentinels[AMF3Date], AMF3NonFinite)
		if err != nil {
			return nil, err
		}
		return &amf3.Date{Millis: ms}, nil
	}
	return nil, shapeError(path, "map with keys %v matches no AMF3 convention", sortedKeys(sentinels))
}

func objectToAMF3(path string, sentinels map[string]*Node, fields []Field, traits *traitInterner) (amf3.Value, error) {
	class := sentinels[AMF3Class]
	if class.Kind != KindString {
		return nil, shapeError(childPath(path, AMF3Class), "expected a class name, got %s", class.Kind)
	}
	trait := &amf3.Trait{ClassName: class.Str, Members: make([]string, 0, len(fields))}
	sealed := make([]amf3.Value, 0, len(fields))
	for _, f := range fields {
		v, err := toAMF3(f.Value, childPath(path, f.Key), traits)
		if err != nil {
			return nil, err
		}
		trait.Members = append(trait.Members, f.Key)
		sealed = append(sealed, v)
	}

	var dynamic []amf3.Member
	if dyn, ok := sentinels[AMF3Dynamic]; ok {
		trait.Dynamic = true
		var err error
		if dynamic, err = membersToAMF3(childPath(path, AMF3Dynamic), dyn, traits); err != nil {
			return nil, err
		}
	}
	return &amf3.Object{Trait: traits.intern(trait), Sealed: sealed, Dynamic: dynamic}, nil
}

// membersToAMF3 converts the map node n into associative entries or dynamic members.
func membersToAMF3(path string, n *Node, traits *traitInterner) ([]amf3.Member, error) {
	if n.Kind != KindMap {
		return nil, shapeError(path, "expected a map, got %s", n.Kind)
	}
	members := make([]amf3.Member, 0, len(n.Map))
	for _, f := range n.Map {
		p := childPath(path, f.Key)
		if f.Key == "" {
			return nil, shapeError(p, "empty member names cannot be encoded")
		}
		if IsReserved(f.Key) {
			return nil, shapeError(p, "unrecognized sentinel key %q", f.Key)
		}
		v, err := toAMF3(f.Value, p, traits)
		if err != nil {
			return nil, err
		}
		members = append(members, amf3.Member{Key: f.Key, Value: v})
	}
	return members, nil
}
