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

// Decode decodes the AMF3 value starting at b[*pos] and advances *pos past it.
// Reference tables start empty and are discarded when Decode returns. On error *pos is left
// untouched. Strings and byte arrays are copied out of b.
func Decode(b []byte, pos *int, opts ...Option) (Value, error) {
	o := newOptions(opts)
	d := &decoder{b: b, pos: *pos, logger: o.sessionLogger("decode")}
	v, err := d.readValue()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("decoded value",
		zap.Int("start", *pos),
		zap.Int("end", d.pos),
		zap.Int("strings", len(d.refs.strings)),
		zap.Int("traits", len(d.refs.traits)),
		zap.Int("objects", len(d.refs.objects)))
	*pos = d.pos
	return v, nil
}

type decoder struct {
	b      []byte
	pos    int
	depth  int
	refs   readTables
	logger *zap.Logger
}

func (d *decoder) readValue() (Value, error) {
	start := d.pos
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch marker {
	case TypeUndefined:
		return Undefined{}, nil
	case TypeNull:
		return Null{}, nil
	case TypeFalse:
		return Boolean(false), nil
	case TypeTrue:
		return Boolean(true), nil
	case TypeInteger:
		u, err := d.readU29()
		if err != nil {
			return nil, err
		}
		return Integer(signExtend(u)), nil
	case TypeDouble:
		f, err := d.readDouble()
		if err != nil {
			return nil, err
		}
		return Double(f), nil
	case TypeString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeDate:
		return d.readDate()
	case TypeArray:
		return d.nested(start, d.readArray)
	case TypeObject:
		return d.nested(start, d.readObject)
	case TypeByteArray:
		return d.readByteArray()
	default:
		return nil, &amf.MarkerError{Version: amf.Version3, Offset: start, Marker: marker}
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

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.b) {
		return 0, &amf.TruncatedError{Offset: d.pos, Need: 1, Have: 0, What: "marker"}
	}
	c := d.b[d.pos]
	d.pos++
	return c, nil
}

func (d *decoder) readBytes(n int, what string) ([]byte, error) {
	if have := len(d.b) - d.pos; n > have {
		return nil, &amf.TruncatedError{Offset: d.pos, Need: n, Have: have, What: what}
	}
	p := d.b[d.pos : d.pos+n]
	d.pos += n
	return p, nil
}

func (d *decoder) readU29() (uint32, error) {
	v, n, err := u29.Read(d.b, d.pos)
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readDouble() (float64, error) {
	p, err := d.readBytes(8, "double")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
}

// remaining caps slice preallocation by what the buffer could possibly hold,
// since every value takes at least one byte.
func (d *decoder) remaining(n uint32) int {
	if have := len(d.b) - d.pos; int64(n) > int64(have) {
		return have
	}
	return int(n)
}

// readString reads a string that may be a reference into the string table.
// The empty string is never added to the table.
func (d *decoder) readString() (string, error) {
	start := d.pos
	h, err := d.readU29()
	if err != nil {
		return "", err
	}
	if h&1 == 0 {
		return d.refs.lookupString(start, h>>1)
	}
	n := int(h >> 1)
	if n == 0 {
		return "", nil
	}
	p, err := d.readBytes(n, "string")
	if err != nil {
		return "", err
	}
	s := string(p)
	d.refs.strings = append(d.refs.strings, s)
	return s, nil
}

// readMembers reads name/value pairs up to the empty name that closes them.
func (d *decoder) readMembers() ([]Member, error) {
	var members []Member
	for {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		if key == "" {
			return members, nil
		}
		v, err := d.readValue()
		if err != nil {
			return nil, errors.Wrapf(err, "amf3: member %q", key)
		}
		members = append(members, Member{Key: key, Value: v})
	}
}

func (d *decoder) readReference(start int, h uint32, kind string) (Value, error) {
	v, err := d.refs.lookupObject(start, h>>1)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("resolved object reference", zap.String("kind", kind), zap.Uint32("index", h>>1), zap.Int("position", start))
	return v, nil
}

// readArray reads the associative part first, then the dense part. The array only becomes
// referenceable once both are read.
func (d *decoder) readArray() (Value, error) {
	start := d.pos
	h, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return d.readReference(start, h, "array")
	}
	count := h >> 1

	arr := &Array{}
	if arr.Associative, err = d.readMembers(); err != nil {
		return nil, err
	}
	arr.Dense = make([]Value, 0, d.remaining(count))
	for i := uint32(0); i < count; i++ {
		v, err := d.readValue()
		if err != nil {
			return nil, errors.Wrapf(err, "amf3: array element %d", i)
		}
		arr.Dense = append(arr.Dense, v)
	}
	d.refs.objects = append(d.refs.objects, arr)
	return arr, nil
}

// readObject resolves the object's trait (object reference, trait reference or inline trait),
// registers the object and only then reads its members, so members may refer back to it.
func (d *decoder) readObject() (Value, error) {
	start := d.pos
	h, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return d.readReference(start, h, "object")
	}
	h >>= 1

	var trait *Trait
	if h&1 == 0 {
		if trait, err = d.refs.lookupTrait(start, h>>1); err != nil {
			return nil, err
		}
		d.logger.Debug("resolved trait reference", zap.Uint32("index", h>>1), zap.String("class", trait.ClassName))
	} else {
		h >>= 1
		if h&1 == 1 {
			return nil, &amf.UnsupportedError{Offset: start, Feature: "externalizable trait"}
		}
		h >>= 1
		trait = &Trait{Dynamic: h&1 == 1}
		count := h >> 1
		if trait.ClassName, err = d.readString(); err != nil {
			return nil, err
		}
		trait.Members = make([]string, 0, d.remaining(count))
		for i := uint32(0); i < count; i++ {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			trait.Members = append(trait.Members, name)
		}
		d.refs.traits = append(d.refs.traits, trait)
		d.logger.Debug("registered trait",
			zap.Int("index", len(d.refs.traits)-1),
			zap.String("class", trait.ClassName),
			zap.Bool("dynamic", trait.Dynamic),
			zap.Int("sealed", len(trait.Members)))
	}

	obj := &Object{Trait: trait, Sealed: make([]Value, 0, len(trait.Members))}
	d.refs.objects = append(d.refs.objects, obj)

	for _, name := range trait.Members {
		v, err := d.readValue()
		if err != nil {
			return nil, errors.Wrapf(err, "amf3: sealed member %q", name)
		}
		obj.Sealed = append(obj.Sealed, v)
	}
	if trait.Dynamic {
		if obj.Dynamic, err = d.readMembers(); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (d *decoder) readByteArray() (Value, error) {
	start := d.pos
	h, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return d.readReference(start, h, "byte array")
	}
	p, err := d.readBytes(int(h>>1), "byte array")
	if err != nil {
		return nil, err
	}
	ba := &ByteArray{Data: append([]byte(nil), p...)}
	d.refs.objects = append(d.refs.objects, ba)
	return ba, nil
}

func (d *decoder) readDate() (Value, error) {
	start := d.pos
	h, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return d.readReference(start, h, "date")
	}
	ms, err := d.readDouble()
	if err != nil {
		return nil, err
	}
	date := &Date{Millis: ms}
	d.refs.objects = append(d.refs.objects, date)
	return date, nil
}
