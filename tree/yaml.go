package tree

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/config"
	"gopkg.in/yaml.v3"
)

// maxYAMLNodes bounds how many nodes one document may expand to through aliases.
const maxYAMLNodes = 1 << 20

// MarshalYAML renders the tree as a yaml.Node so that map fields keep their order and
// every scalar keeps its kind.
func (n *Node) MarshalYAML() (interface{}, error) {
	return toYAML(n, "$")
}

func toYAML(n *Node, path string) (*yaml.Node, error) {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	switch n.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool)}, nil
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.Int, 10)}, nil
	case KindFloat:
		s, err := formatFloat(path, n.Float)
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}, nil
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}, nil
	case KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range n.List {
			y, err := toYAML(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, y)
		}
		return seq, nil
	case KindMap:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range n.Map {
			y, err := toYAML(f.Value, childPath(path, f.Key))
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}, y)
		}
		return m, nil
	}
	return nil, shapeError(path, "unknown node kind %d", n.Kind)
}

// UnmarshalYAML reads a tree from a YAML node. Plain scalars resolve the usual YAML way;
// quoted ones are always strings.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	r := &yamlReader{}
	parsed, err := r.read(value, "$", 0)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

type yamlReader struct {
	nodes int
}

func (r *yamlReader) read(y *yaml.Node, path string, depth int) (*Node, error) {
	if r.nodes++; r.nodes > maxYAMLNodes {
		return nil, errors.Errorf("tree: %s: document expands to more than %d nodes", path, maxYAMLNodes)
	}
	if depth > config.MaxNestingDepth {
		return nil, &amf.DepthError{Offset: -1, Max: config.MaxNestingDepth}
	}

	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NewNull(), nil
		}
		return r.read(y.Content[0], path, depth)
	case yaml.AliasNode:
		return r.read(y.Alias, path, depth+1)
	case yaml.ScalarNode:
		return readYAMLScalar(y, path)
	case yaml.SequenceNode:
		n := NewList()
		for i, c := range y.Content {
			item, err := r.read(c, indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			n.List = append(n.List, item)
		}
		return n, nil
	case yaml.MappingNode:
		n := NewMap()
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, shapeError(path, "line %d: map keys must be scalars", k.Line)
			}
			value, err := r.read(y.Content[i+1], childPath(path, k.Value), depth+1)
			if err != nil {
				return nil, err
			}
			n.Map = append(n.Map, Field{k.Value, value})
		}
		return n, nil
	}
	return nil, shapeError(path, "line %d: unsupported YAML node", y.Line)
}

func readYAMLScalar(y *yaml.Node, path string) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, errors.Wrapf(err, "tree: %s", path)
		}
		return NewBool(b), nil
	case "!!int":
		var i int64
		if err := y.Decode(&i); err == nil {
			return NewInt(i), nil
		}
		fallthrough
	case "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, errors.Wrapf(err, "tree: %s", path)
		}
		return NewFloat(f), nil
	case "!!str", "!!timestamp":
		return NewString(y.Value), nil
	}
	return nil, shapeError(path, "line %d: unsupported YAML tag %s", y.Line, y.ShortTag())
}
