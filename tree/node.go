// Package tree converts AMF values to and from an ordered tree of plain scalars, lists and
// maps, the form editing tools work with. References, traits and non-finite numbers have no
// plain-tree equivalent and are spelled with the sentinel keys and strings of sentinel.go.
package tree

import (
	"github.com/torresjeff/amf"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is one node of the tree. Only the field matching Kind is meaningful.
// Map keeps its fields in insertion order.
type Node struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	List  []*Node
	Map   []Field
}

// Field is one key/value pair of a map node.
type Field struct {
	Key   string
	Value *Node
}

func NewNull() *Node              { return &Node{Kind: KindNull} }
func NewBool(b bool) *Node        { return &Node{Kind: KindBool, Bool: b} }
func NewInt(i int64) *Node        { return &Node{Kind: KindInt, Int: i} }
func NewFloat(f float64) *Node    { return &Node{Kind: KindFloat, Float: f} }
func NewString(s string) *Node    { return &Node{Kind: KindString, Str: s} }
func NewList(items ...*Node) *Node { return &Node{Kind: KindList, List: items} }
func NewMap(fields ...Field) *Node { return &Node{Kind: KindMap, Map: fields} }

// Get returns the value of the first field called key of a map node.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindMap {
		return nil, false
	}
	for _, f := range n.Map {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Equal reports whether two trees are identical, field order included.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindNull:
		return true
	case KindBool:
		return n.Bool == o.Bool
	case KindInt:
		return n.Int == o.Int
	case KindFloat:
		return amf.SameNumber(n.Float, o.Float)
	case KindString:
		return n.Str == o.Str
	case KindList:
		if len(n.List) != len(o.List) {
			return false
		}
		for i := range n.List {
			if !n.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(n.Map) != len(o.Map) {
			return false
		}
		for i := range n.Map {
			if n.Map[i].Key != o.Map[i].Key || !n.Map[i].Value.Equal(o.Map[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
