package nbt

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxStringLen the maximum length of an encoded string in bytes.
const MaxStringLen = math.MaxUint16

// Tag a single NBT value.
// The set of implementations is closed; a type switch over the types in this
// package is always exhaustive.
type Tag interface {
	// Kind returns the kind of this tag.
	Kind() Kind
	tag()
}

// Named a tag together with its name.
// Compound members and document roots are named.
type Named struct {
	Name string
	Tag  Tag
}

type (
	// End the value of a document that only contains a TAG_End.
	// It is never stored in lists or compounds.
	End struct{}
	// Byte a signed 8-bit integer.
	Byte int8
	// Short a signed 16-bit integer.
	Short int16
	// Int a signed 32-bit integer.
	Int int32
	// Long a signed 64-bit integer.
	Long int64
	// Float an IEEE-754 32-bit float.
	Float float32
	// Double an IEEE-754 64-bit float.
	Double float64
	// ByteArray a length-prefixed array of bytes.
	ByteArray []byte
	// String a length-prefixed modified UTF-8 string.
	String string
	// IntArray a length-prefixed array of signed 32-bit integers.
	IntArray []int32
	// LongArray a length-prefixed array of signed 64-bit integers.
	LongArray []int64
)

// List an ordered sequence of unnamed tags of the same kind.
type List struct {
	// Elem the kind of every element.
	// This is only allowed to be KindEnd if the list is empty.
	Elem  Kind
	Items []Tag
}

func (End) Kind() Kind       { return KindEnd }
func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (ByteArray) Kind() Kind { return KindByteArray }
func (String) Kind() Kind    { return KindString }
func (List) Kind() Kind      { return KindList }
func (Compound) Kind() Kind  { return KindCompound }
func (IntArray) Kind() Kind  { return KindIntArray }
func (LongArray) Kind() Kind { return KindLongArray }

func (End) tag()       {}
func (Byte) tag()      {}
func (Short) tag()     {}
func (Int) tag()       {}
func (Long) tag()      {}
func (Float) tag()     {}
func (Double) tag()    {}
func (ByteArray) tag() {}
func (String) tag()    {}
func (List) tag()      {}
func (Compound) tag()  {}
func (IntArray) tag()  {}
func (LongArray) tag() {}

func outOfRange(k Kind, v interface{}) error {
	return fmt.Errorf("%w: %v does not fit in %s", ErrValueOutOfRange, v, k)
}

// NewByte returns v as a Byte.
func NewByte(v int64) (Byte, error) {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, outOfRange(KindByte, v)
	}
	return Byte(v), nil
}

// NewShort returns v as a Short.
func NewShort(v int64) (Short, error) {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, outOfRange(KindShort, v)
	}
	return Short(v), nil
}

// NewInt returns v as an Int.
func NewInt(v int64) (Int, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, outOfRange(KindInt, v)
	}
	return Int(v), nil
}

// NewFloat returns v as a Float.
// Finite values that overflow a float32 are rejected, infinities and NaN are kept.
func NewFloat(v float64) (Float, error) {
	if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
		return 0, outOfRange(KindFloat, v)
	}
	return Float(v), nil
}

// NewString returns s as a String.
// s must be valid UTF-8 and no longer than MaxStringLen bytes once encoded.
func NewString(s string) (String, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: string is not valid utf-8", ErrValueOutOfRange)
	}
	if n := modifiedUTF8Len(s); n > MaxStringLen {
		return "", fmt.Errorf("%w: string is %d bytes long", ErrValueOutOfRange, n)
	}
	return String(s), nil
}

// NewByteArray returns a copy of b as a ByteArray.
func NewByteArray(b []byte) (ByteArray, error) {
	if int64(len(b)) > math.MaxInt32 {
		return nil, outOfRange(KindByteArray, len(b))
	}
	return append(ByteArray(nil), b...), nil
}

// NewIntArray returns a copy of v as an IntArray.
func NewIntArray(v []int32) (IntArray, error) {
	if int64(len(v)) > math.MaxInt32 {
		return nil, outOfRange(KindIntArray, len(v))
	}
	return append(IntArray(nil), v...), nil
}

// NewLongArray returns a copy of v as a LongArray.
func NewLongArray(v []int64) (LongArray, error) {
	if int64(len(v)) > math.MaxInt32 {
		return nil, outOfRange(KindLongArray, len(v))
	}
	return append(LongArray(nil), v...), nil
}

// NewList creates a list of the given element kind.
func NewList(elem Kind, items ...Tag) (List, error) {
	l := List{Elem: elem}
	if !elem.Valid() {
		return l, fmt.Errorf("%w: list of %s", ErrInvalidTagKind, elem)
	}
	for _, t := range items {
		if err := l.Append(t); err != nil {
			return List{}, err
		}
	}
	return l, nil
}

// Len returns the number of elements in the list.
func (l List) Len() int { return len(l.Items) }

// Index returns the element at i.
func (l List) Index(i int) (Tag, error) {
	if i < 0 || i >= len(l.Items) {
		return nil, fmt.Errorf("%w: index %d of %s with %d elements", ErrNoSuchMember, i, l.Elem, len(l.Items))
	}
	return l.Items[i], nil
}

// Append adds t to the end of the list.
// An empty list of KindEnd adopts the kind of the first appended element.
func (l *List) Append(t Tag) error {
	if t == nil {
		return fmt.Errorf("%w: nil list element", ErrValueOutOfRange)
	}
	k := t.Kind()
	if k == KindEnd {
		return fmt.Errorf("%w: TAG_End cannot be stored in a list", ErrKindMismatch)
	}
	if l.Elem == KindEnd && len(l.Items) == 0 {
		l.Elem = k
	}
	if k != l.Elem {
		return fmt.Errorf("%w: cannot append %s to a list of %s", ErrKindMismatch, k, l.Elem)
	}
	l.Items = append(l.Items, t)
	return nil
}
