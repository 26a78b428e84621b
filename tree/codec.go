package tree

import (
	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/amf0"
	"github.com/torresjeff/amf/amf3"
	"go.uber.org/zap"
)

// Decode decodes one value of the given AMF version starting at b[*pos] and returns it as a
// tree. *pos is advanced past the value only when both decoding and conversion succeed.
// logger may be nil.
func Decode(b []byte, pos *int, version uint8, logger *zap.Logger) (*Node, error) {
	p := *pos
	var n *Node
	switch version {
	case amf.Version0:
		v, err := amf0.Decode(b, &p, amf0.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if n, err = FromAMF0(v); err != nil {
			return nil, err
		}
	case amf.Version3:
		v, err := amf3.Decode(b, &p, amf3.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if n, err = FromAMF3(v); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported AMF version %d", version)
	}
	*pos = p
	return n, nil
}

// Encode converts a tree to a value of the given AMF version and encodes it.
func Encode(n *Node, version uint8, logger *zap.Logger) ([]byte, error) {
	switch version {
	case amf.Version0:
		v, err := ToAMF0(n)
		if err != nil {
			return nil, err
		}
		return amf0.Encode(v, amf0.WithLogger(logger))
	case amf.Version3:
		v, err := ToAMF3(n)
		if err != nil {
			return nil, err
		}
		return amf3.Encode(v, amf3.WithLogger(logger))
	default:
		return nil, errors.Errorf("unsupported AMF version %d", version)
	}
}
