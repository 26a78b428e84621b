package amf0

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/amf3"
	"github.com/torresjeff/amf/config"
	"go.uber.org/zap"
)

// Encode encodes v into its AMF0 form. Objects, typed objects and ECMA arrays are closed with
// the three byte end sequence 0x00 0x00 0x09.
func Encode(v Value, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	e := &encoder{logger: o.sessionLogger("encode"), embedded: o.logger}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	e.logger.Debug("encoded value", zap.Int("bytes", len(e.buf)))
	return e.buf, nil
}

type encoder struct {
	buf      []byte
	depth    int
	logger   *zap.Logger
	embedded *zap.Logger
}

func (e *encoder) encode(v Value) error {
	switch v := v.(type) {
	case Number:
		e.encodeNumber(float64(v))
	case Boolean:
		e.encodeBoolean(bool(v))
	case String:
		if len(v) > MaxStringLength {
			return &amf.RangeError{What: "string length", Value: int64(len(v)), Min: 0, Max: MaxStringLength}
		}
		e.buf = append(e.buf, TypeString)
		return e.encodeUTF8(string(v))
	case LongString:
		if int64(len(v)) > math.MaxUint32 {
			return &amf.RangeError{What: "long string length", Value: int64(len(v)), Min: 0, Max: math.MaxUint32}
		}
		e.buf = append(e.buf, TypeLongString)
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
		e.buf = append(e.buf, v...)
	case Null, Undefined, Unsupported, ObjectEnd:
		e.buf = append(e.buf, v.Marker())
	case Reference:
		e.buf = append(e.buf, TypeReference)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(v))
	case Date:
		e.encodeDate(v)
	case AVMPlus:
		return e.encodeAVMPlus(v)
	case *Object:
		if v == nil {
			return errors.New("amf0: cannot encode a nil *Object")
		}
		return e.nested(func() error {
			e.buf = append(e.buf, TypeObject)
			return e.encodeMembers(v.Members)
		})
	case *TypedObject:
		if v == nil {
			return errors.New("amf0: cannot encode a nil *TypedObject")
		}
		if len(v.ClassName) > MaxStringLength {
			return &amf.RangeError{What: "class name length", Value: int64(len(v.ClassName)), Min: 0, Max: MaxStringLength}
		}
		return e.nested(func() error {
			e.buf = append(e.buf, TypeTypedObject)
			if err := e.encodeUTF8(v.ClassName); err != nil {
				return err
			}
			return errors.Wrapf(e.encodeMembers(v.Members), "amf0: typed object %q", v.ClassName)
		})
	case *ECMAArray:
		if v == nil {
			return errors.New("amf0: cannot encode a nil *ECMAArray")
		}
		return e.nested(func() error {
			e.buf = append(e.buf, TypeECMAArray)
			e.buf = binary.BigEndian.AppendUint32(e.buf, v.AssociativeCount)
			return e.encodeMembers(v.Members)
		})
	case *StrictArray:
		if v == nil {
			return errors.New("amf0: cannot encode a nil *StrictArray")
		}
		return e.nested(func() error { return e.encodeStrictArray(v) })
	default:
		return errors.Errorf("amf0: cannot encode type %T", v)
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

func (e *encoder) encodeNumber(number float64) {
	var buf [9]byte
	buf[0] = TypeNumber
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(number))
	e.buf = append(e.buf, buf[:]...)
}

func (e *encoder) encodeBoolean(b bool) {
	var buf [2]byte
	buf[0] = TypeBoolean
	if b {
		buf[1] = 1
	}
	e.buf = append(e.buf, buf[:]...)
}

// encodeUTF8 writes s with a 16-bit length prefix and no marker.
func (e *encoder) encodeUTF8(s string) error {
	if len(s) > MaxStringLength {
		return &amf.RangeError{What: "member name length", Value: int64(len(s)), Min: 0, Max: MaxStringLength}
	}
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) encodeDate(date Date) {
	var buf [11]byte
	buf[0] = TypeDate
	binary.BigEndian.PutUint64(buf[1:9], math.Float64bits(date.Millis))
	binary.BigEndian.PutUint16(buf[9:], uint16(date.TimeZone))
	e.buf = append(e.buf, buf[:]...)
}

func (e *encoder) encodeObjectEnd() {
	e.buf = append(e.buf, 0x00, 0x00, TypeObjectEnd)
}

func (e *encoder) encodeMembers(members []Member) error {
	for _, m := range members {
		if _, isEnd := m.Value.(ObjectEnd); isEnd && m.Key == "" {
			return errors.New("amf0: a member with an empty name and an ObjectEnd value would end the object early")
		}
		if err := e.encodeUTF8(m.Key); err != nil {
			return err
		}
		if err := e.encode(m.Value); err != nil {
			return errors.Wrapf(err, "amf0: member %q", m.Key)
		}
	}
	e.encodeObjectEnd()
	return nil
}

func (e *encoder) encodeStrictArray(arr *StrictArray) error {
	if int64(len(arr.Values)) > math.MaxUint32 {
		return &amf.RangeError{What: "strict array length", Value: int64(len(arr.Values)), Min: 0, Max: math.MaxUint32}
	}
	e.buf = append(e.buf, TypeStrictArray)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(arr.Values)))
	for i, v := range arr.Values {
		if err := e.encode(v); err != nil {
			return errors.Wrapf(err, "amf0: array element %d", i)
		}
	}
	return nil
}

func (e *encoder) encodeAVMPlus(v AVMPlus) error {
	e.logger.Debug("switching to AMF3", zap.Int("position", len(e.buf)))
	b, err := amf3.Encode(v.Value, amf3.WithLogger(e.embedded))
	if err != nil {
		return err
	}
	e.buf = append(e.buf, TypeAVMPlusObject)
	e.buf = append(e.buf, b...)
	return nil
}
