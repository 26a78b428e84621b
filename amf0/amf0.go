// Package amf0 decodes and encodes AMF0 values.
//
// AMF0 has no reference tables of its own: a Reference marker is kept as the raw index it
// carries and resolving it is left to the caller, which knows what the index refers to.
package amf0

import (
	"github.com/torresjeff/amf/amf3"
)

const (
	TypeNumber        byte = 0x00
	TypeBoolean       byte = 0x01
	TypeString        byte = 0x02
	TypeObject        byte = 0x03
	TypeMovieClip     byte = 0x04 // reserved, not supported
	TypeNull          byte = 0x05
	TypeUndefined     byte = 0x06
	TypeReference     byte = 0x07
	TypeECMAArray     byte = 0x08
	TypeObjectEnd     byte = 0x09
	TypeStrictArray   byte = 0x0A
	TypeDate          byte = 0x0B
	TypeLongString    byte = 0x0C
	TypeUnsupported   byte = 0x0D
	TypeRecordSet     byte = 0x0E // reserved, not supported
	TypeXMLDocument   byte = 0x0F // not supported
	TypeTypedObject   byte = 0x10
	TypeAVMPlusObject byte = 0x11
)

// MaxStringLength is the longest String or member name; longer text needs a LongString.
const MaxStringLength = 0xFFFF

// Value is any AMF0 value. The concrete types are Number, Boolean, String, LongString, Null,
// Undefined, Unsupported, ObjectEnd, Reference, Date, AVMPlus, *Object, *TypedObject,
// *ECMAArray and *StrictArray.
type Value interface {
	Marker() byte
}

type Number float64

func (Number) Marker() byte { return TypeNumber }

type Boolean bool

func (Boolean) Marker() byte { return TypeBoolean }

type String string

func (String) Marker() byte { return TypeString }

// LongString is a string written with a 32-bit length.
type LongString string

func (LongString) Marker() byte { return TypeLongString }

type Null struct{}

func (Null) Marker() byte { return TypeNull }

type Undefined struct{}

func (Undefined) Marker() byte { return TypeUndefined }

type Unsupported struct{}

func (Unsupported) Marker() byte { return TypeUnsupported }

// ObjectEnd is a bare end-of-object marker. Inside objects the marker only appears as part of
// the empty-name terminator and never becomes a member.
type ObjectEnd struct{}

func (ObjectEnd) Marker() byte { return TypeObjectEnd }

// Reference is the index carried by a reference marker.
type Reference uint16

func (Reference) Marker() byte { return TypeReference }

// Date is milliseconds since the Unix epoch plus the time zone field, which writers are
// supposed to leave at zero but which is kept as read.
type Date struct {
	Millis   float64
	TimeZone int16
}

func (Date) Marker() byte { return TypeDate }

// AVMPlus wraps an AMF3 value embedded in an AMF0 stream.
type AVMPlus struct {
	Value amf3.Value
}

func (AVMPlus) Marker() byte { return TypeAVMPlusObject }

// Member is a named value of an object, typed object or ECMA array.
type Member struct {
	Key   string
	Value Value
}

type Object struct {
	Members []Member
}

func (*Object) Marker() byte { return TypeObject }

// Get returns the first member called key.
func (o *Object) Get(key string) (Value, bool) { return lookup(o.Members, key) }

type TypedObject struct {
	ClassName string
	Members   []Member
}

func (*TypedObject) Marker() byte { return TypeTypedObject }

func (o *TypedObject) Get(key string) (Value, bool) { return lookup(o.Members, key) }

// ECMAArray is an associative array. AssociativeCount is written exactly as given; files in the
// wild carry zero here while still listing members, so it is not derived from Members.
type ECMAArray struct {
	AssociativeCount uint32
	Members          []Member
}

func (*ECMAArray) Marker() byte { return TypeECMAArray }

func (a *ECMAArray) Get(key string) (Value, bool) { return lookup(a.Members, key) }

// NewECMAArray returns an ECMA array whose associative count matches its members.
func NewECMAArray(members ...Member) *ECMAArray {
	return &ECMAArray{AssociativeCount: uint32(len(members)), Members: members}
}

type StrictArray struct {
	Values []Value
}

func (*StrictArray) Marker() byte { return TypeStrictArray }

func lookup(members []Member, key string) (Value, bool) {
	for _, m := range members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}
