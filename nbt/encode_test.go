package nbt

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/yehan2002/is/v2"
)

func TestEncode(t *testing.T) { is.SuiteP(t, &encodeTest{}) }

type encodeTest struct{}

func allKinds() Named {
	inner, _ := NewCompound(
		Named{Name: "y", Tag: Short(-2)},
		Named{Name: "nested", Tag: List{Elem: KindEnd}},
	)
	return Named{Name: "root", Tag: Compound{
		{Name: "byte", Tag: Byte(-128)},
		{Name: "short", Tag: Short(math.MaxInt16)},
		{Name: "int", Tag: Int(math.MinInt32)},
		{Name: "long", Tag: Long(math.MaxInt64)},
		{Name: "float", Tag: Float(1.5)},
		{Name: "nan", Tag: Double(math.NaN())},
		{Name: "bytes", Tag: ByteArray{0, 1, 0xFF}},
		{Name: "string", Tag: String("héllo \x00 \U0001F600")},
		{Name: "ints", Tag: IntArray{-1, 0, 1}},
		{Name: "longs", Tag: LongArray{math.MinInt64, 7}},
		{Name: "empty", Tag: IntArray{}},
		{Name: "list", Tag: List{Elem: KindCompound, Items: []Tag{inner, Compound{}}}},
		{Name: "lists", Tag: List{Elem: KindList, Items: []Tag{List{Elem: KindInt, Items: []Tag{Int(3)}}}}},
		{Name: "", Tag: String("")},
	}}
}

func (*encodeTest) TestRoundtrip(is is.Is) {
	root := allKinds()
	b, err := Encode(root)
	is(err == nil, "unexpected error: %s", err)

	decoded, n, err := Decode(b)
	is(err == nil, "unexpected error: %s", err)
	is(n == len(b), "incorrect number of bytes used")
	is(decoded.Name == root.Name, "incorrect root name")
	is(Equal(decoded.Tag, root.Tag), "decoded value differs from encoded value")

	again, err := Encode(decoded)
	is(err == nil, "unexpected error: %s", err)
	is(bytes.Equal(b, again), "re-encoding produced different bytes")
	is(len(b) == 3+len("root")+Size(root.Tag), "Size does not match the encoded length")
}

func (*encodeTest) TestModifiedUTF8(is is.Is) {
	b, err := Encode(Named{Tag: String("a\x00\U0001F600")})
	is(err == nil, "unexpected error: %s", err)
	expected := []byte{0x08, 0x00, 0x00, 0x00, 0x09, 'a', 0xC0, 0x80, 0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}
	is(bytes.Equal(b, expected), "incorrect encoding % x", b)

	root, _, err := Decode(b)
	is(err == nil, "unexpected error: %s", err)
	is(root.Tag == String("a\x00\U0001F600"), "incorrect decoded value %q", root.Tag)
}

func (*encodeTest) TestLoneSurrogate(is is.Is) {
	s, _, ok := decodeModifiedUTF8([]byte{'a', 0xED, 0xA0, 0xBD, 'b'})
	is(ok, "lone surrogates should be accepted")
	is(s == "a\uFFFDb", "incorrect value %q", s)
}

func (*encodeTest) TestEnd(is is.Is) {
	b, err := Encode(Named{Tag: End{}})
	is(err == nil, "unexpected error: %s", err)
	is(bytes.Equal(b, []byte{0x00}), "incorrect encoding % x", b)

	_, err = Encode(Named{})
	is(err != nil, "nil root should be rejected")
}

func (*encodeTest) TestListMismatch(is is.Is) {
	root := Named{Tag: Compound{{Name: "a", Tag: List{Elem: KindInt, Items: []Tag{Int(1), Byte(2)}}}}}
	_, err := Encode(root)
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)

	var e *EncodeError
	is(errors.As(err, &e), "expected an *EncodeError")
	is(e.Path == "a[1]", "incorrect path %q", e.Path)
}

func (*encodeTest) TestEndListWithItems(is is.Is) {
	_, err := Encode(Named{Tag: List{Elem: KindEnd, Items: []Tag{Int(1)}}})
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
}

func (*encodeTest) TestLongString(is is.Is) {
	_, err := Encode(Named{Tag: Compound{{Name: "s", Tag: String(strings.Repeat("a", MaxStringLen+1))}}})
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)

	_, err = Encode(Named{Tag: String(strings.Repeat("a", MaxStringLen))})
	is(err == nil, "string of MaxStringLen bytes should be accepted: %s", err)
}

func (*encodeTest) TestEncodeAll(is is.Is) {
	roots := []Named{{Name: "a", Tag: Byte(1)}, {Tag: End{}}, {Name: "b", Tag: Int(2)}}
	b, err := EncodeAll(roots...)
	is(err == nil, "unexpected error: %s", err)

	decoded, err := DecodeAll(b)
	is(err == nil, "unexpected error: %s", err)
	is(len(decoded) == len(roots), "incorrect number of documents")
	for i := range roots {
		is(decoded[i].Name == roots[i].Name && Equal(decoded[i].Tag, roots[i].Tag), "document %d differs", i)
	}
}

func (*encodeTest) TestWriteTo(is is.Is) {
	root := allKinds()
	var buf bytes.Buffer
	n, err := root.WriteTo(&buf)
	is(err == nil, "unexpected error: %s", err)
	is(n == int64(buf.Len()), "incorrect length returned")

	b, _ := Encode(root)
	is(bytes.Equal(b, buf.Bytes()), "WriteTo and Encode differ")
}

func (*encodeTest) TestAppendEncode(is is.Is) {
	prefix := []byte{1, 2, 3}
	b, err := AppendEncode(prefix, Named{Name: "x", Tag: Byte(1)})
	is(err == nil, "unexpected error: %s", err)
	is(bytes.Equal(b, []byte{1, 2, 3, 0x01, 0x00, 0x01, 'x', 0x01}), "incorrect encoding % x", b)

	b, err = AppendEncode(prefix, Named{Tag: List{Elem: Kind(99)}})
	is(err != nil, "invalid list kind should be rejected")
	is(bytes.Equal(b, prefix), "dst should be returned unchanged")
}

func (*encodeTest) TestArrays(is is.Is) {
	root := Named{Tag: Compound{
		{Name: "i", Tag: IntArray{1, -2}},
		{Name: "l", Tag: LongArray{1<<40 | 5, -1}},
	}}
	expected := []byte{
		0x0A, 0x00, 0x00,
		0x0B, 0x00, 0x01, 'i', 0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x01, 0xFF, 0xFF, 0xFF, 0xFE,
		0x0C, 0x00, 0x01, 'l', 0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x05,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0x00,
	}

	// a prefix makes sure arrays are written after the existing data
	b, err := AppendEncode([]byte{0xAA}, root)
	is(err == nil, "unexpected error: %s", err)
	is.Equal(b, append([]byte{0xAA}, expected...), "arrays should be big endian")

	decoded, n, err := Decode(expected)
	is(err == nil && n == len(expected), "unexpected error: %v", err)
	is(Equal(decoded.Tag, root.Tag), "decoded arrays do not match")
}
