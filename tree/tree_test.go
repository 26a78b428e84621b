package tree

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"github.com/torresjeff/amf/amf0"
	"github.com/torresjeff/amf/amf3"
)

func mustJSON(t *testing.T, n *Node) string {
	t.Helper()
	b, err := n.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	return string(b)
}

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	n, err := ParseJSON([]byte(s))
	if err != nil {
		t.Fatalf("ParseJSON(%s) failed: %v", s, err)
	}
	return n
}

func wantShapeError(t *testing.T, err error) {
	t.Helper()
	var shapeErr *amf.TreeShapeError
	if !errors.As(err, &shapeErr) {
		t.Errorf("expected *amf.TreeShapeError, got %v", err)
	}
}

func TestAMF0_SentinelFidelity(t *testing.T) {
	sentinelTests := []struct {
		name string
		in   amf0.Value
		json string
	}{
		{"number", amf0.Number(1.5), `1.5`},
		{"wholeNumber", amf0.Number(2), `2.0`},
		{"nan", amf0.Number(math.Float64frombits(0x7FF8000000000000)), `["HFW_nonFiniteXXX",127,248,0,0,0,0,0,0]`},
		{"string", amf0.String("x"), `"x"`},
		{"undefined", amf0.Undefined{}, `"HFW_undefinedXXX"`},
		{"unsupported", amf0.Unsupported{}, `"HFW_unsupportedXXX"`},
		{"objectEnd", amf0.ObjectEnd{}, `"HFW_objectEndXXX"`},
		{"reference", amf0.Reference(3), `{"HFW_referenceXXX":3}`},
		{"ecmaArray", &amf0.ECMAArray{AssociativeCount: 5, Members: []amf0.Member{{Key: "k", Value: amf0.String("v")}}},
			`{"HFW_ArrayLenXXX":5,"k":"v"}`},
		{"typedObject", &amf0.TypedObject{ClassName: "Pt", Members: []amf0.Member{{Key: "x", Value: amf0.Number(1)}}},
			`{"HFW_classNameXXX":"Pt","x":1.0}`},
		{"object", &amf0.Object{Members: []amf0.Member{{Key: "b", Value: amf0.Null{}}, {Key: "a", Value: amf0.Boolean(true)}}},
			`{"b":null,"a":true}`},
		{"emptyObject", &amf0.Object{}, `{}`},
		{"strictArray", &amf0.StrictArray{Values: []amf0.Value{amf0.Null{}, amf0.Boolean(true)}}, `[null,true]`},
		{"longString", amf0.LongString("ab"), `{"HFW_longStringXXX":"ab"}`},
		{"date", amf0.Date{Millis: 1000, TimeZone: -60}, `{"HFW_dateXXX":1000.0,"HFW_timeZoneXXX":-60}`},
		{"avmplus", amf0.AVMPlus{Value: amf3.Integer(5)}, `{"HFW_avmplusXXX":5}`},
	}

	for _, tt := range sentinelTests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := FromAMF0(tt.in)
			if err != nil {
				t.Fatalf("FromAMF0 failed: %v", err)
			}
			if got := mustJSON(t, n); got != tt.json {
				t.Errorf("tree\n got: %s\nwant: %s", got, tt.json)
			}
			back, err := ToAMF0(mustParse(t, tt.json))
			if err != nil {
				t.Fatalf("ToAMF0 failed: %v", err)
			}
			if !amf0.Equal(back, tt.in) {
				t.Errorf("converted back to %#v, want %#v", back, tt.in)
			}
		})
	}
}

func TestAMF3_SentinelFidelity(t *testing.T) {
	sentinelTests := []struct {
		name string
		in   amf3.Value
		json string
	}{
		{"undefined", amf3.Undefined{}, `"AMF3_UNDEFINED"`},
		{"integer", amf3.Integer(-3), `-3`},
		{"double", amf3.Double(3), `3.0`},
		{"infinity", amf3.Double(math.Inf(1)), `["AMF3_DOUBLE_NAN",127,240,0,0,0,0,0,0]`},
		{"denseArray", &amf3.Array{Dense: []amf3.Value{amf3.String("a")}}, `["a"]`},
		{"emptyArray", &amf3.Array{}, `[]`},
		{"mixedArray", &amf3.Array{
			Associative: []amf3.Member{{Key: "k", Value: amf3.Null{}}},
			Dense:       []amf3.Value{amf3.Boolean(false)},
		}, `{"AMF3_ARRAY_ASSOCIATIVE":{"k":null},"AMF3_ARRAY_DENSE":[false]}`},
		{"sealedObject", &amf3.Object{
			Trait:  &amf3.Trait{ClassName: "Pt", Members: []string{"x"}},
			Sealed: []amf3.Value{amf3.Integer(1)},
		}, `{"AMF3_OBJECT_CLASS":"Pt","x":1}`},
		{"dynamicObject", &amf3.Object{
			Trait:   &amf3.Trait{Dynamic: true},
			Dynamic: []amf3.Member{{Key: "d", Value: amf3.String("v")}},
		}, `{"AMF3_OBJECT_CLASS":"","AMF3_OBJECT_DYNAMIC":{"d":"v"}}`},
		{"byteArray", &amf3.ByteArray{Data: []byte{1, 2, 3}}, `{"AMF3_BYTE_ARRAY":"AQID"}`},
		{"date", &amf3.Date{Millis: 1.5}, `{"AMF3_DATE":1.5}`},
	}

	for _, tt := range sentinelTests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := FromAMF3(tt.in)
			if err != nil {
				t.Fatalf("FromAMF3 failed: %v", err)
			}
			if got := mustJSON(t, n); got != tt.json {
				t.Errorf("tree\n got: %s\nwant: %s", got, tt.json)
			}
			back, err := ToAMF3(mustParse(t, tt.json))
			if err != nil {
				t.Fatalf("ToAMF3 failed: %v", err)
			}
			if !amf3.Equal(back, tt.in) {
				t.Errorf("converted back to %#v, want %#v", back, tt.in)
			}
		})
	}
}

func TestToAMF_RejectsUnknownShapes(t *testing.T) {
	amf0Tests := []struct {
		name string
		json string
	}{
		{"unknownString", `"HFW_somethingXXX"`},
		{"unknownKey", `{"HFW_somethingXXX":1}`},
		{"amf3KeyInAMF0", `{"AMF3_DATE":1}`},
		{"nestedUnknown", `[{"a":"HFW_fooXXX"}]`},
		{"referenceWithMembers", `{"HFW_referenceXXX":1,"a":null}`},
		{"referenceOutOfRange", `{"HFW_referenceXXX":65536}`},
		{"classNameNotString", `{"HFW_classNameXXX":1}`},
		{"classAndArrayLen", `{"HFW_classNameXXX":"A","HFW_ArrayLenXXX":0}`},
		{"duplicateSentinel", `{"HFW_classNameXXX":"A","HFW_classNameXXX":"B"}`},
		{"shortNonFinite", `["HFW_nonFiniteXXX",1,2]`},
		{"nonFiniteNotByte", `["HFW_nonFiniteXXX",1,2,3,4,5,6,7,256]`},
		{"timeZoneOutOfRange", `{"HFW_dateXXX":0,"HFW_timeZoneXXX":40000}`},
	}
	for _, tt := range amf0Tests {
		t.Run("amf0/"+tt.name, func(t *testing.T) {
			_, err := ToAMF0(mustParse(t, tt.json))
			wantShapeError(t, err)
		})
	}

	amf3Tests := []struct {
		name string
		json string
	}{
		{"unknownString", `"AMF3_VECTOR"`},
		{"amf0String", `"HFW_undefinedXXX"`},
		{"plainMap", `{"a":1}`},
		{"objectAndArray", `{"AMF3_OBJECT_CLASS":"","AMF3_ARRAY_DENSE":[]}`},
		{"unknownKey", `{"AMF3_OBJECT_CLASS":"","AMF3_EXTRA":1}`},
		{"denseNotList", `{"AMF3_ARRAY_DENSE":{}}`},
		{"associativeWithMembers", `{"AMF3_ARRAY_ASSOCIATIVE":{},"a":1}`},
		{"emptyDynamicKey", `{"AMF3_OBJECT_CLASS":"","AMF3_OBJECT_DYNAMIC":{"":1}}`},
		{"badBase64", `{"AMF3_BYTE_ARRAY":"!!"}`},
		{"integerTooLarge", `268435456`},
		{"dateNotNumber", `{"AMF3_DATE":"now"}`},
	}
	for _, tt := range amf3Tests {
		t.Run("amf3/"+tt.name, func(t *testing.T) {
			_, err := ToAMF3(mustParse(t, tt.json))
			wantShapeError(t, err)
		})
	}
}

func TestFromAMF_RejectsCollisions(t *testing.T) {
	collisionTests := []struct {
		name string
		conv func() error
	}{
		{"amf0String", func() error { _, err := FromAMF0(amf0.String("HFW_undefinedXXX")); return err }},
		{"amf0Key", func() error {
			_, err := FromAMF0(&amf0.Object{Members: []amf0.Member{{Key: "HFW_classNameXXX", Value: amf0.Null{}}}})
			return err
		}},
		{"amf3String", func() error { _, err := FromAMF3(amf3.String("AMF3_UNDEFINED")); return err }},
		{"amf3SealedName", func() error {
			_, err := FromAMF3(&amf3.Object{Trait: &amf3.Trait{Members: []string{"AMF3_DATE"}}, Sealed: []amf3.Value{amf3.Null{}}})
			return err
		}},
		{"amf3InsideAMF0", func() error { _, err := FromAMF0(amf0.AVMPlus{Value: amf3.String("HFW_fooXXX")}); return err }},
	}
	for _, tt := range collisionTests {
		t.Run(tt.name, func(t *testing.T) {
			wantShapeError(t, tt.conv())
		})
	}
}

func TestFromAMF3_SharedAndCyclic(t *testing.T) {
	shared := &amf3.Array{Dense: []amf3.Value{amf3.Integer(1)}}
	n, err := FromAMF3(&amf3.Array{Dense: []amf3.Value{shared, shared}})
	if err != nil {
		t.Fatalf("shared instance: %v", err)
	}
	if got, want := mustJSON(t, n), `[[1],[1]]`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	pos := 0
	self, err := amf3.Decode([]byte{0x0A, 0x0B, 0x01, 0x09, 's', 'e', 'l', 'f', 0x0A, 0x00, 0x01}, &pos)
	if err != nil {
		t.Fatalf("decoding self reference: %v", err)
	}
	_, err = FromAMF3(self)
	wantShapeError(t, err)
}

func TestToAMF3_InternsTraits(t *testing.T) {
	n := mustParse(t, `[{"AMF3_OBJECT_CLASS":"","a":1},{"AMF3_OBJECT_CLASS":"","a":2}]`)
	v, err := ToAMF3(n)
	if err != nil {
		t.Fatalf("ToAMF3 failed: %v", err)
	}
	dense := v.(*amf3.Array).Dense
	if dense[0].(*amf3.Object).Trait != dense[1].(*amf3.Object).Trait {
		t.Error("equal traits were not shared")
	}
	got, err := amf3.Encode(v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x09, 0x05, 0x01, 0x0A, 0x13, 0x01, 0x03, 'a', 0x04, 0x01, 0x0A, 0x01, 0x04, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("encoded\n got: %x\nwant: %x", got, want)
	}
}

func TestDecodeEncode(t *testing.T) {
	t.Run("amf0", func(t *testing.T) {
		b := []byte{0xFF, 0x02, 0x00, 0x01, 'a'}
		pos := 1
		n, err := Decode(b, &pos, amf.Version0, nil)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if n.Kind != KindString || n.Str != "a" || pos != len(b) {
			t.Errorf("got %s %q at %d", n.Kind, n.Str, pos)
		}
		out, err := Encode(n, amf.Version0, nil)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if !bytes.Equal(out, b[1:]) {
			t.Errorf("encoded %x, want %x", out, b[1:])
		}
	})

	t.Run("amf3", func(t *testing.T) {
		b := []byte{0x0C, 0x05, 0xAB, 0xCD}
		pos := 0
		n, err := Decode(b, &pos, amf.Version3, nil)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got, want := mustJSON(t, n), `{"AMF3_BYTE_ARRAY":"q80="}`; got != want {
			t.Errorf("got %s, want %s", got, want)
		}
		out, err := Encode(n, amf.Version3, nil)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if !bytes.Equal(out, b) {
			t.Errorf("encoded %x, want %x", out, b)
		}
	})

	t.Run("conversionFailureKeepsCursor", func(t *testing.T) {
		b := append([]byte{0x02, 0x00, 0x10}, "HFW_undefinedXXX"...)
		pos := 0
		_, err := Decode(b, &pos, amf.Version0, nil)
		wantShapeError(t, err)
		if pos != 0 {
			t.Errorf("cursor moved to %d", pos)
		}
	})

	t.Run("unsupportedVersion", func(t *testing.T) {
		pos := 0
		if _, err := Decode([]byte{0x05}, &pos, 7, nil); err == nil {
			t.Error("expected an error for version 7")
		}
		if _, err := Encode(NewNull(), 7, nil); err == nil {
			t.Error("expected an error for version 7")
		}
	})
}

func TestIsReserved(t *testing.T) {
	reservedTests := []struct {
		in   string
		want bool
	}{
		{"HFW_undefinedXXX", true},
		{"HFW_anythingXXX", true},
		{"AMF3_UNDEFINED", true},
		{"AMF3_NEW_THING", true},
		{"HFW_XXX", false},
		{"HFW_undefined", false},
		{"AMF3_", false},
		{"AMF3_lower", false},
		{"AMF3_V2", false},
		{"hello", false},
		{"", false},
	}
	for _, tt := range reservedTests {
		if got := IsReserved(tt.in); got != tt.want {
			t.Errorf("IsReserved(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNode_GetAndEqual(t *testing.T) {
	n := NewMap(Field{"a", NewInt(1)}, Field{"b", NewList(NewFloat(math.NaN()), NewString("s"))})
	if v, ok := n.Get("a"); !ok || v.Int != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := n.Get("missing"); ok {
		t.Error("Get(missing) reported a field")
	}
	if _, ok := NewList().Get("a"); ok {
		t.Error("Get on a list reported a field")
	}
	same := NewMap(Field{"a", NewInt(1)}, Field{"b", NewList(NewFloat(math.NaN()), NewString("s"))})
	if !n.Equal(same) {
		t.Error("identical trees compare unequal")
	}
	if NewInt(1).Equal(NewFloat(1)) {
		t.Error("int and float nodes compare equal")
	}
	reordered := NewMap(Field{"b", same.Map[1].Value}, Field{"a", NewInt(1)})
	if n.Equal(reordered) {
		t.Error("field order ignored")
	}
}
