// Package amf3 decodes and encodes AMF3 values, including the string, trait and object
// reference tables the format uses to deduplicate repeated data.
package amf3

// MaxInt and MinInt bound the values an Integer can carry on the wire (29-bit two's complement).
const MaxInt int32 = 268435455
const MinInt int32 = -268435456

const UTF8Empty byte = 0x01

const (
	TypeUndefined    byte = 0x00
	TypeNull         byte = 0x01
	TypeFalse        byte = 0x02
	TypeTrue         byte = 0x03
	TypeInteger      byte = 0x04
	TypeDouble       byte = 0x05
	TypeString       byte = 0x06
	TypeXmlDoc       byte = 0x07 // not supported
	TypeDate         byte = 0x08
	TypeArray        byte = 0x09
	TypeObject       byte = 0x0A
	TypeXml          byte = 0x0B // not supported
	TypeByteArray    byte = 0x0C
	TypeVectorInt    byte = 0x0D // not supported
	TypeVectorUint   byte = 0x0E // not supported
	TypeVectorDouble byte = 0x0F // not supported
	TypeVectorObject byte = 0x10 // not supported
	TypeDictionary   byte = 0x11 // not supported
)

// Value is any AMF3 value. The concrete types are Undefined, Null, Boolean, Integer, Double,
// String, *Array, *Object, *ByteArray and *Date.
//
// Complex values are pointers: two fields holding the same pointer are the same instance and
// encode as one full value plus a reference.
type Value interface {
	Marker() byte
}

type Undefined struct{}

func (Undefined) Marker() byte { return TypeUndefined }

type Null struct{}

func (Null) Marker() byte { return TypeNull }

type Boolean bool

func (b Boolean) Marker() byte {
	if b {
		return TypeTrue
	}
	return TypeFalse
}

// Integer is a signed integer in [MinInt, MaxInt].
type Integer int32

func (Integer) Marker() byte { return TypeInteger }

type Double float64

func (Double) Marker() byte { return TypeDouble }

type String string

func (String) Marker() byte { return TypeString }

// Member is a named value: an associative array entry or a dynamic object member.
type Member struct {
	Key   string
	Value Value
}

// Trait describes the shape of an object: its class name (empty for anonymous objects),
// whether it accepts dynamic members and the order of its sealed members.
// Objects decoded from the same trait declaration share one *Trait.
type Trait struct {
	ClassName string
	Dynamic   bool
	Members   []string
}

// Object is an instance of a Trait. Sealed holds one value per Trait.Members entry, in order.
// Dynamic is only allowed when the trait is dynamic.
type Object struct {
	Trait   *Trait
	Sealed  []Value
	Dynamic []Member
}

func (*Object) Marker() byte { return TypeObject }

// NewObject returns an object of the given trait with every sealed member set to Undefined.
func NewObject(trait *Trait) *Object {
	sealed := make([]Value, len(trait.Members))
	for i := range sealed {
		sealed[i] = Undefined{}
	}
	return &Object{Trait: trait, Sealed: sealed}
}

// Get looks a member up by name, sealed members first.
func (o *Object) Get(name string) (Value, bool) {
	for i, m := range o.Trait.Members {
		if m == name && i < len(o.Sealed) {
			return o.Sealed[i], true
		}
	}
	for _, m := range o.Dynamic {
		if m.Key == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Array has an associative part, written first on the wire, and a dense part.
type Array struct {
	Associative []Member
	Dense       []Value
}

func (*Array) Marker() byte { return TypeArray }

func (a *Array) empty() bool {
	return len(a.Associative) == 0 && len(a.Dense) == 0
}

type ByteArray struct {
	Data []byte
}

func (*ByteArray) Marker() byte { return TypeByteArray }

// Date is a point in time as milliseconds since the Unix epoch, UTC.
type Date struct {
	Millis float64
}

func (*Date) Marker() byte { return TypeDate }

// signExtend turns the 29-bit two's complement wire form of an integer into an int32.
func signExtend(u uint32) int32 {
	return int32(u<<3) >> 3
}
