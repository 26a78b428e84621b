package tree

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/config"
)

// MarshalJSON writes the tree as JSON with map fields in order. Floats always carry a decimal
// point or an exponent so that ParseJSON reads them back as floats.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node, path string) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case KindInt:
		buf.WriteString(strconv.FormatInt(n.Int, 10))
	case KindFloat:
		s, err := formatFloat(path, n.Float)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case KindString:
		return writeJSONString(buf, n.Str)
	case KindList:
		buf.WriteByte('[')
		for i, item := range n.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, indexPath(path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, f := range n.Map {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value, childPath(path, f.Key)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return shapeError(path, "unknown node kind %d", n.Kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func formatFloat(path string, f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", shapeError(path, "non-finite float %v has no text form, use the non-finite list", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

// ParseJSON reads a tree from JSON. Comments and trailing commas are allowed. Numbers written
// with a decimal point or an exponent become float nodes, the rest int nodes.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	n, err := readJSON(dec, "$", 0)
	if err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, errors.Wrap(err, "tree: after the top-level value")
		}
		return nil, errors.Errorf("tree: unexpected %v after the top-level value", tok)
	}
	return n, nil
}

func readJSON(dec *json.Decoder, path string, depth int) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "tree: %s", path)
	}

	switch tok := tok.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(tok), nil
	case string:
		return NewString(tok), nil
	case json.Number:
		return parseNumber(path, string(tok))
	case json.Delim:
		if depth >= config.MaxNestingDepth {
			return nil, &amf.DepthError{Offset: int(dec.InputOffset()), Max: config.MaxNestingDepth}
		}
		if tok == '[' {
			return readJSONList(dec, path, depth+1)
		}
		return readJSONMap(dec, path, depth+1)
	}
	return nil, errors.Errorf("tree: %s: unexpected token %v", path, tok)
}

func readJSONList(dec *json.Decoder, path string, depth int) (*Node, error) {
	n := NewList()
	for dec.More() {
		item, err := readJSON(dec, indexPath(path, len(n.List)), depth)
		if err != nil {
			return nil, err
		}
		n.List = append(n.List, item)
	}
	_, err := dec.Token()
	return n, errors.Wrapf(err, "tree: %s", path)
}

func readJSONMap(dec *json.Decoder, path string, depth int) (*Node, error) {
	n := NewMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "tree: %s", path)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("tree: %s: expected a member name, got %v", path, tok)
		}
		value, err := readJSON(dec, childPath(path, key), depth)
		if err != nil {
			return nil, err
		}
		n.Map = append(n.Map, Field{key, value})
	}
	_, err := dec.Token()
	return n, errors.Wrapf(err, "tree: %s", path)
}

func parseNumber(path, s string) (*Node, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return NewInt(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, shapeError(path, "invalid number %q", s)
	}
	return NewFloat(f), nil
}
