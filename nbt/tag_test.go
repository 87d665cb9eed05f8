package nbt

import (
	"errors"
	"math"
	"testing"

	"github.com/yehan2002/is/v2"
)

func TestTag(t *testing.T) { is.SuiteP(t, &tagTest{}) }

type tagTest struct{}

func (*tagTest) TestConstructors(is is.Is) {
	_, err := NewByte(math.MaxInt8 + 1)
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)
	b, err := NewByte(math.MinInt8)
	is(err == nil && b == math.MinInt8, "unexpected error: %s", err)

	_, err = NewShort(math.MinInt16 - 1)
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)
	_, err = NewInt(math.MaxInt32 + 1)
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)
	i, err := NewInt(math.MaxInt32)
	is(err == nil && i == math.MaxInt32, "unexpected error: %s", err)

	_, err = NewFloat(math.MaxFloat64)
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)
	_, err = NewFloat(math.Inf(1))
	is(err == nil, "infinity should be accepted: %s", err)

	_, err = NewString("\xff")
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)

	src := []byte{1, 2, 3}
	arr, err := NewByteArray(src)
	is(err == nil, "unexpected error: %s", err)
	src[0] = 9
	is(arr[0] == 1, "NewByteArray should copy its input")
}

func (*tagTest) TestList(is is.Is) {
	var l List
	is(l.Append(Int(1)) == nil, "empty list should adopt the element kind")
	is(l.Elem == KindInt, "incorrect element kind %s", l.Elem)
	is(errors.Is(l.Append(Byte(1)), ErrKindMismatch), "mismatched element should be rejected")
	is(errors.Is(l.Append(End{}), ErrKindMismatch), "TAG_End element should be rejected")
	is(l.Len() == 1, "incorrect length")

	_, err := l.Index(1)
	is(errors.Is(err, ErrNoSuchMember), "expected ErrNoSuchMember, got %v", err)
	v, err := l.Index(0)
	is(err == nil && Equal(v, Int(1)), "incorrect element")

	_, err = NewList(KindString, String("a"), Int(1))
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
	_, err = NewList(Kind(13))
	is(errors.Is(err, ErrInvalidTagKind), "expected ErrInvalidTagKind, got %v", err)
}

func (*tagTest) TestCompound(is is.Is) {
	_, err := NewCompound(Named{Name: "a", Tag: Byte(1)}, Named{Name: "a", Tag: Byte(2)})
	is(errors.Is(err, ErrDuplicateMember), "expected ErrDuplicateMember, got %v", err)
	_, err = NewCompound(Named{Name: "a"})
	is(errors.Is(err, ErrValueOutOfRange), "expected ErrValueOutOfRange, got %v", err)

	c, err := NewCompound(Named{Name: "a", Tag: Byte(1)}, Named{Name: "b", Tag: String("x")})
	is(err == nil, "unexpected error: %s", err)

	_, err = c.GetInt("a")
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
	_, err = c.GetInt("missing")
	is(errors.Is(err, ErrNoSuchMember), "expected ErrNoSuchMember, got %v", err)
	s, err := c.GetString("b")
	is(err == nil && s == "x", "incorrect value %q", s)

	is(c.Put("c", Int(3)) == nil, "unexpected error")
	is(c.Put("a", Long(4)) == nil, "unexpected error")
	is.Equal(c.Names(), []string{"a", "b", "c"}, "incorrect member order")
	l, err := c.GetLong("a")
	is(err == nil && l == 4, "Put should replace the existing member")

	is(c.Delete("b"), "Delete should report removed members")
	is(!c.Delete("b"), "Delete should not report missing members")
	is.Equal(c.Names(), []string{"a", "c"}, "incorrect member order")
}

func (*tagTest) TestPutDuplicates(is is.Is) {
	c := Compound{{Name: "a", Tag: Byte(1)}, {Name: "b", Tag: Byte(2)}, {Name: "a", Tag: Byte(3)}}
	is(c.Put("a", Byte(4)) == nil, "unexpected error")
	is.Equal(c.Names(), []string{"a", "b"}, "duplicates should be collapsed")
	v, _ := c.GetByte("a")
	is(v == 4, "incorrect value %d", v)
}

func (*tagTest) TestFind(is is.Is) {
	c := Compound{{Name: "Level", Tag: Compound{{Name: "xPos", Tag: Int(-3)}}}}
	v, err := c.Find("Level", "xPos")
	is(err == nil && Equal(v, Int(-3)), "incorrect value")

	_, err = c.Find("Level", "xPos", "deeper")
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
	_, err = c.Find("Level", "zPos")
	is(errors.Is(err, ErrNoSuchMember), "expected ErrNoSuchMember, got %v", err)
}

func (*tagTest) TestAccessors(is is.Is) {
	_, err := AsInt(Byte(1))
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
	_, err = AsCompound(nil)
	is(errors.Is(err, ErrKindMismatch), "expected ErrKindMismatch, got %v", err)
	v, err := AsDouble(Double(2.5))
	is(err == nil && v == 2.5, "incorrect value")
}

func (*tagTest) TestKind(is is.Is) {
	is(KindLongArray.String() == "TAG_Long_Array", "incorrect name %s", KindLongArray)
	is(Kind(13).String() == "TAG_Unknown(13)", "incorrect name %s", Kind(13))
	is(!Kind(13).Valid(), "kind 13 should be invalid")
}

func (*tagTest) TestEqual(is is.Is) {
	is(!Equal(List{Elem: KindInt}, List{Elem: KindByte}), "lists with different kinds should differ")
	is(Equal(ByteArray(nil), ByteArray{}), "nil and empty arrays should be equal")
	is(!Equal(Int(1), Long(1)), "tags of different kinds should differ")
	is(!Equal(Compound{{Name: "a", Tag: Int(1)}}, Compound{{Name: "b", Tag: Int(1)}}), "names should be compared")
	is(Equal(Float(float32(math.NaN())), Float(float32(math.NaN()))), "identical NaN should be equal")
}
