package amf3

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/config"
	"github.com/torresjeff/amf/internal/u29"
	"go.uber.org/zap"
)

// maxHeaderValue is the largest count or index that fits in a U29 next to one flag bit.
const maxHeaderValue = u29.Max >> 1

// Encode encodes v into its AMF3 form.
// Strings repeat as references by value; arrays, objects, byte arrays, dates and traits repeat
// as references only when the very same pointer appears again. Empty arrays are never written
// as references.
func Encode(v Value, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	e := &encoder{
		refs:       newWriteTables(),
		inProgress: make(map[*Array]bool),
		logger:     o.sessionLogger("encode"),
	}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	e.logger.Debug("encoded value",
		zap.Int("bytes", len(e.buf)),
		zap.Int("strings", len(e.refs.strings)),
		zap.Int("traits", len(e.refs.traits)),
		zap.Int("objects", len(e.refs.objects)))
	return e.buf, nil
}

type encoder struct {
	buf   []byte
	depth int
	refs  *writeTables
	// arrays are registered after their elements, so one that contains itself
	// would otherwise recurse forever
	inProgress map[*Array]bool
	logger     *zap.Logger
}

func (e *encoder) encode(v Value) error {
	switch v := v.(type) {
	case Undefined:
		e.buf = append(e.buf, TypeUndefined)
	case Null:
		e.buf = append(e.buf, TypeNull)
	case Boolean:
		e.buf = append(e.buf, v.Marker())
	case Integer:
		return e.encodeInt(v)
	case Double:
		e.encodeDouble(float64(v))
	case String:
		e.buf = append(e.buf, TypeString)
		return e.encodeString(string(v))
	case *Date:
		if v == nil {
			return errors.New("amf3: cannot encode a nil *Date")
		}
		return e.encodeDate(v)
	case *ByteArray:
		if v == nil {
			return errors.New("amf3: cannot encode a nil *ByteArray")
		}
		return e.encodeByteArray(v)
	case *Array:
		if v == nil {
			return errors.New("amf3: cannot encode a nil *Array")
		}
		return e.nested(func() error { return e.encodeArray(v) })
	case *Object:
		if v == nil {
			return errors.New("amf3: cannot encode a nil *Object")
		}
		return e.nested(func() error { return e.encodeObject(v) })
	default:
		return errors.Errorf("amf3: cannot encode type %T", v)
	}
	return nil
}

func (e *encoder) nested(encode func() error) error {
	if e.depth >= config.MaxNestingDepth {
		return &amf.DepthError{Offset: len(e.buf), Max: config.MaxNestingDepth}
	}
	e.depth++
	err := encode()
	e.depth--
	return err
}

func (e *encoder) encodeU29(v uint32) error {
	var err error
	e.buf, err = u29.Append(e.buf, v)
	return err
}

// encodeHeader writes a count or length with the low "value" flag set.
func (e *encoder) encodeHeader(n int, what string) error {
	if n < 0 || int64(n) > int64(maxHeaderValue) {
		return &amf.RangeError{What: what, Value: int64(n), Min: 0, Max: int64(maxHeaderValue)}
	}
	return e.encodeU29(uint32(n)<<1 | 1)
}

// encodeRef writes a reference to an earlier table entry, the "value" flag cleared.
func (e *encoder) encodeRef(index uint32) error {
	return e.encodeU29(index << 1)
}

func (e *encoder) encodeInt(i Integer) error {
	if int32(i) < MinInt || int32(i) > MaxInt {
		return &amf.RangeError{What: "AMF3 integer", Value: int64(i), Min: int64(MinInt), Max: int64(MaxInt)}
	}
	e.buf = append(e.buf, TypeInteger)
	return e.encodeU29(uint32(i) & u29.Max)
}

func (e *encoder) encodeDouble(f float64) {
	var p [9]byte
	p[0] = TypeDouble
	binary.BigEndian.PutUint64(p[1:], math.Float64bits(f))
	e.buf = append(e.buf, p[:]...)
}

// encodeString writes s without a marker, as a reference when an equal string was written before.
func (e *encoder) encodeString(s string) error {
	if s == "" {
		e.buf = append(e.buf, UTF8Empty)
		return nil
	}
	if index, ok := e.refs.strings[s]; ok {
		return e.encodeRef(index)
	}
	if err := e.encodeHeader(len(s), "string length"); err != nil {
		return err
	}
	e.refs.addString(s)
	e.buf = append(e.buf, s...)
	return nil
}

// encodeObjectRef writes a reference if v was written before and reports whether it did.
func (e *encoder) encodeObjectRef(v Value, kind string) (bool, error) {
	index, ok := e.refs.objects[v]
	if !ok {
		return false, nil
	}
	e.logger.Debug("emitted object reference", zap.String("kind", kind), zap.Uint32("index", index), zap.Int("position", len(e.buf)))
	return true, e.encodeRef(index)
}

func (e *encoder) encodeMembers(members []Member, what string) error {
	for _, m := range members {
		if m.Key == "" {
			return errors.Errorf("amf3: %s with an empty name cannot be encoded, the empty name ends the list", what)
		}
		if err := e.encodeString(m.Key); err != nil {
			return err
		}
		if err := e.encode(m.Value); err != nil {
			return errors.Wrapf(err, "amf3: member %q", m.Key)
		}
	}
	return e.encodeString("")
}

func (e *encoder) encodeArray(a *Array) error {
	e.buf = append(e.buf, TypeArray)
	if found, err := e.encodeObjectRef(a, "array"); found || err != nil {
		return err
	}
	if e.inProgress[a] {
		return &amf.UnsupportedError{Offset: -1, Feature: "array containing itself"}
	}
	e.inProgress[a] = true
	defer delete(e.inProgress, a)

	if err := e.encodeHeader(len(a.Dense), "array length"); err != nil {
		return err
	}
	if err := e.encodeMembers(a.Associative, "associative array entry"); err != nil {
		return err
	}
	for i, v := range a.Dense {
		if err := e.encode(v); err != nil {
			return errors.Wrapf(err, "amf3: array element %d", i)
		}
	}
	// Empty arrays stay out of the table; existing readers expect every occurrence in full.
	if !a.empty() {
		e.refs.addObject(a)
	}
	return nil
}

func (e *encoder) encodeObject(o *Object) error {
	e.buf = append(e.buf, TypeObject)
	if found, err := e.encodeObjectRef(o, "object"); found || err != nil {
		return err
	}
	t := o.Trait
	if t == nil {
		return errors.New("amf3: object has no trait")
	}
	if len(o.Sealed) != len(t.Members) {
		return errors.Errorf("amf3: object of class %q has %d sealed values for %d sealed members", t.ClassName, len(o.Sealed), len(t.Members))
	}
	if !t.Dynamic && len(o.Dynamic) > 0 {
		return errors.Errorf("amf3: object of sealed class %q has dynamic members", t.ClassName)
	}

	if index, ok := e.refs.traits[t]; ok {
		// U29O-traits-ref: index, then 0 (trait reference), then 1 (not an object reference)
		if int64(index) > int64(u29.Max>>2) {
			return &amf.RangeError{What: "trait reference", Value: int64(index), Min: 0, Max: int64(u29.Max >> 2)}
		}
		if err := e.encodeU29(index<<2 | 0x01); err != nil {
			return err
		}
	} else {
		// U29O-traits: sealed count, dynamic flag, 0 (not externalizable), 1 (inline trait), 1 (not an object reference)
		if int64(len(t.Members)) > int64(u29.Max>>4) {
			return &amf.RangeError{What: "sealed member count", Value: int64(len(t.Members)), Min: 0, Max: int64(u29.Max >> 4)}
		}
		header := uint32(len(t.Members))<<4 | 0x03
		if t.Dynamic {
			header |= 0x08
		}
		if err := e.encodeU29(header); err != nil {
			return err
		}
		if err := e.encodeString(t.ClassName); err != nil {
			return err
		}
		for _, name := range t.Members {
			if err := e.encodeString(name); err != nil {
				return err
			}
		}
		e.refs.addTrait(t)
		e.logger.Debug("registered trait", zap.Int("index", len(e.refs.traits)-1), zap.String("class", t.ClassName))
	}
	e.refs.addObject(o)

	for i, v := range o.Sealed {
		if err := e.encode(v); err != nil {
			return errors.Wrapf(err, "amf3: sealed member %q", t.Members[i])
		}
	}
	if t.Dynamic {
		return e.encodeMembers(o.Dynamic, "dynamic member")
	}
	return nil
}

func (e *encoder) encodeByteArray(ba *ByteArray) error {
	e.buf = append(e.buf, TypeByteArray)
	if found, err := e.encodeObjectRef(ba, "byte array"); found || err != nil {
		return err
	}
	if err := e.encodeHeader(len(ba.Data), "byte array length"); err != nil {
		return err
	}
	e.buf = append(e.buf, ba.Data...)
	e.refs.addObject(ba)
	return nil
}

func (e *encoder) encodeDate(date *Date) error {
	e.buf = append(e.buf, TypeDate)
	if found, err := e.encodeObjectRef(date, "date"); found || err != nil {
		return err
	}
	if err := e.encodeHeader(0, "date header"); err != nil {
		return err
	}
	var p [8]byte
	binary.BigEndian.PutUint64(p[:], math.Float64bits(date.Millis))
	e.buf = append(e.buf, p[:]...)
	e.refs.addObject(date)
	return nil
}
