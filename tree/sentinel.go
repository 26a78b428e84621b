package tree

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/torresjeff/amf"
)

// AMF0 vocabulary.
const (
	AMF0Undefined   = "HFW_undefinedXXX"
	AMF0Unsupported = "HFW_unsupportedXXX"
	AMF0ObjectEnd   = "HFW_objectEndXXX"
	AMF0NonFinite   = "HFW_nonFiniteXXX"
	AMF0Reference   = "HFW_referenceXXX"
	AMF0ArrayLen    = "HFW_ArrayLenXXX"
	AMF0ClassName   = "HFW_classNameXXX"
	AMF0LongString  = "HFW_longStringXXX"
	AMF0Date        = "HFW_dateXXX"
	AMF0TimeZone    = "HFW_timeZoneXXX"
	AMF0AVMPlus     = "HFW_avmplusXXX"
)

// AMF3 vocabulary.
const (
	AMF3Undefined   = "AMF3_UNDEFINED"
	AMF3NonFinite   = "AMF3_DOUBLE_NAN"
	AMF3Associative = "AMF3_ARRAY_ASSOCIATIVE"
	AMF3Dense       = "AMF3_ARRAY_DENSE"
	AMF3Class       = "AMF3_OBJECT_CLASS"
	AMF3Dynamic     = "AMF3_OBJECT_DYNAMIC"
	AMF3ByteArray   = "AMF3_BYTE_ARRAY"
	AMF3Date        = "AMF3_DATE"
)

// IsReserved reports whether s is shaped like a sentinel, known or not. Such strings cannot be
// carried as ordinary data since reading the tree back would mistake them for markup.
func IsReserved(s string) bool {
	if len(s) > len("HFW_XXX") && strings.HasPrefix(s, "HFW_") && strings.HasSuffix(s, "XXX") {
		return true
	}
	rest := strings.TrimPrefix(s, "AMF3_")
	if rest == s || rest == "" {
		return false
	}
	for _, c := range rest {
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

func shapeError(path, format string, args ...interface{}) error {
	return &amf.TreeShapeError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func childPath(path, key string) string {
	return path + "." + strconv.Quote(key)
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// checkString rejects ordinary data that would read back as a sentinel.
func checkString(path, s string) error {
	if IsReserved(s) {
		return shapeError(path, "string %q collides with the sentinel vocabulary", s)
	}
	return nil
}

// nonFinite spells a NaN or infinity as its eight big-endian bytes behind a tag.
func nonFinite(tag string, f float64) *Node {
	bits := math.Float64bits(f)
	items := make([]*Node, 0, 9)
	items = append(items, NewString(tag))
	for i := 0; i < 8; i++ {
		items = append(items, NewInt(int64(byte(bits>>(56-8*i)))))
	}
	return NewList(items...)
}

// isTagged reports whether n is a list whose first element is the string tag.
func isTagged(n *Node, tag string) bool {
	return n.Kind == KindList && len(n.List) > 0 && n.List[0].Kind == KindString && n.List[0].Str == tag
}

func parseNonFinite(path string, n *Node) (float64, error) {
	if len(n.List) != 9 {
		return 0, shapeError(path, "%s needs exactly 8 bytes, got %d", n.List[0].Str, len(n.List)-1)
	}
	var bits uint64
	for i, b := range n.List[1:] {
		if b.Kind != KindInt || b.Int < 0 || b.Int > 0xFF {
			return 0, shapeError(indexPath(path, i+1), "expected a byte value")
		}
		bits = bits<<8 | uint64(b.Int)
	}
	return math.Float64frombits(bits), nil
}

// number turns a float node, an int node or a tagged non-finite list into a float64.
func number(path string, n *Node, tag string) (float64, error) {
	switch {
	case n.Kind == KindFloat:
		return n.Float, nil
	case n.Kind == KindInt:
		return float64(n.Int), nil
	case isTagged(n, tag):
		return parseNonFinite(path, n)
	}
	return 0, shapeError(path, "expected a number, got %s", n.Kind)
}

// numberNode is the inverse of number.
func numberNode(f float64, tag string) *Node {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nonFinite(tag, f)
	}
	return NewFloat(f)
}

// splitFields separates the sentinel keys of a map from its ordinary members. Sentinel keys
// must be unique, ordinary ones are kept in order.
func splitFields(path string, fields []Field) (map[string]*Node, []Field, error) {
	sentinels := make(map[string]*Node)
	var members []Field
	for _, f := range fields {
		if f.Value == nil {
			return nil, nil, shapeError(childPath(path, f.Key), "missing value")
		}
		if !IsReserved(f.Key) {
			members = append(members, f)
			continue
		}
		if _, dup := sentinels[f.Key]; dup {
			return nil, nil, shapeError(childPath(path, f.Key), "duplicate sentinel key")
		}
		sentinels[f.Key] = f.Value
	}
	return sentinels, members, nil
}

// only reports whether the sentinel keys found in a map are exactly keys.
func only(sentinels map[string]*Node, keys ...string) bool {
	if len(sentinels) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := sentinels[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(sentinels map[string]*Node) []string {
	keys := make([]string, 0, len(sentinels))
	for k := range sentinels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
