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

// Decode decodes the AMF0 value starting at b[*pos] and advances *pos past it.
// On error *pos is left untouched. Strings are copied out of b.
func Decode(b []byte, pos *int, opts ...Option) (Value, error) {
	o := newOptions(opts)
	d := &decoder{b: b, pos: *pos, logger: o.sessionLogger("decode"), embedded: o.logger}
	v, err := d.readValue()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("decoded value", zap.Int("start", *pos), zap.Int("end", d.pos))
	*pos = d.pos
	return v, nil
}

type decoder struct {
	b      []byte
	pos    int
	depth  int
	logger *zap.Logger
	// handed to the AMF3 decoder for AVM+ values
	embedded *zap.Logger
}

func (d *decoder) readValue() (Value, error) {
	start := d.pos
	marker, err := d.readByte("marker")
	if err != nil {
		return nil, err
	}

	switch marker {
	case TypeNumber:
		f, err := d.readDouble()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case TypeBoolean:
		c, err := d.readByte("boolean")
		if err != nil {
			return nil, err
		}
		return Boolean(c != 0), nil
	case TypeString:
		s, err := d.readUTF8()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeLongString:
		n, err := d.readU32("long string length")
		if err != nil {
			return nil, err
		}
		p, err := d.readBytes(int(n), "long string")
		if err != nil {
			return nil, err
		}
		return LongString(p), nil
	case TypeNull:
		return Null{}, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeUnsupported:
		return Unsupported{}, nil
	case TypeObjectEnd:
		return ObjectEnd{}, nil
	case TypeReference:
		p, err := d.readBytes(2, "reference")
		if err != nil {
			return nil, err
		}
		return Reference(binary.BigEndian.Uint16(p)), nil
	case TypeDate:
		return d.readDate()
	case TypeObject:
		return d.nested(start, d.readObject)
	case TypeTypedObject:
		return d.nested(start, d.readTypedObject)
	case TypeECMAArray:
		return d.nested(start, d.readECMAArray)
	case TypeStrictArray:
		return d.nested(start, d.readStrictArray)
	case TypeAVMPlusObject:
		d.logger.Debug("switching to AMF3", zap.Int("position", start))
		v, err := amf3.Decode(d.b, &d.pos, amf3.WithLogger(d.embedded))
		if err != nil {
			return nil, err
		}
		return AVMPlus{Value: v}, nil
	default:
		return nil, &amf.MarkerError{Version: amf.Version0, Offset: start, Marker: marker}
	}
}

func (d *decoder) nested(start int, read func() (Value, error)) (Value, error) {
	if d.depth >= config.MaxNestingDepth {
		return nil, &amf.DepthError{Offset: start, Max: config.MaxNestingDepth}
	}
	d.depth++
	v, err := read()
	d.depth--
	return v, err
}

func (d *decoder) readBytes(n int, what string) ([]byte, error) {
	if have := len(d.b) - d.pos; n > have {
		return nil, &amf.TruncatedError{Offset: d.pos, Need: n, Have: have, What: what}
	}
	p := d.b[d.pos : d.pos+n]
	d.pos += n
	return p, nil
}

func (d *decoder) readByte(what string) (byte, error) {
	p, err := d.readBytes(1, what)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (d *decoder) readU32(what string) (uint32, error) {
	p, err := d.readBytes(4, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (d *decoder) readDouble() (float64, error) {
	p, err := d.readBytes(8, "number")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
}

// readUTF8 reads a string prefixed with its 16-bit length, as used by strings, member names
// and class names.
func (d *decoder) readUTF8() (string, error) {
	p, err := d.readBytes(2, "string length")
	if err != nil {
		return "", err
	}
	p, err = d.readBytes(int(binary.BigEndian.Uint16(p)), "string")
	if err != nil {
		return "", err
	}
	return string(p), nil
}

func (d *decoder) readDate() (Value, error) {
	ms, err := d.readDouble()
	if err != nil {
		return nil, err
	}
	p, err := d.readBytes(2, "time zone")
	if err != nil {
		return nil, err
	}
	return Date{Millis: ms, TimeZone: int16(binary.BigEndian.Uint16(p))}, nil
}

// readMembers reads name/value pairs until the empty name followed by the object end marker.
func (d *decoder) readMembers() ([]Member, error) {
	var members []Member
	for {
		key, err := d.readUTF8()
		if err != nil {
			return nil, err
		}
		if key == "" && d.pos < len(d.b) && d.b[d.pos] == TypeObjectEnd {
			d.pos++
			return members, nil
		}
		v, err := d.readValue()
		if err != nil {
			return nil, errors.Wrapf(err, "amf0: member %q", key)
		}
		members = append(members, Member{Key: key, Value: v})
	}
}

func (d *decoder) readObject() (Value, error) {
	members, err := d.readMembers()
	if err != nil {
		return nil, err
	}
	return &Object{Members: members}, nil
}

func (d *decoder) readTypedObject() (Value, error) {
	className, err := d.readUTF8()
	if err != nil {
		return nil, err
	}
	members, err := d.readMembers()
	if err != nil {
		return nil, errors.Wrapf(err, "amf0: typed object %q", className)
	}
	return &TypedObject{ClassName: className, Members: members}, nil
}

func (d *decoder) readECMAArray() (Value, error) {
	count, err := d.readU32("associative count")
	if err != nil {
		return nil, err
	}
	members, err := d.readMembers()
	if err != nil {
		return nil, err
	}
	if int(count) != len(members) {
		d.logger.Debug("ECMA array count differs from its members", zap.Uint32("count", count), zap.Int("members", len(members)))
	}
	return &ECMAArray{AssociativeCount: count, Members: members}, nil
}

func (d *decoder) readStrictArray() (Value, error) {
	count, err := d.readU32("array count")
	if err != nil {
		return nil, err
	}
	capacity := int(count)
	if have := len(d.b) - d.pos; int64(count) > int64(have) {
		capacity = have
	}
	arr := &StrictArray{Values: make([]Value, 0, capacity)}
	for i := uint32(0); i < count; i++ {
		v, err := d.readValue()
		if err != nil {
			return nil, errors.Wrapf(err, "amf0: array element %d", i)
		}
		arr.Values = append(arr.Values, v)
	}
	return arr, nil
}
