package nbt

import (
	"fmt"
	"math"
)

func mismatch(t Tag, want Kind) error {
	if t == nil {
		return fmt.Errorf("%w: nil tag, not %s", ErrKindMismatch, want)
	}
	return fmt.Errorf("%w: %s, not %s", ErrKindMismatch, t.Kind(), want)
}

// AsByte returns the value of a TAG_Byte.
func AsByte(t Tag) (int8, error) {
	if v, ok := t.(Byte); ok {
		return int8(v), nil
	}
	return 0, mismatch(t, KindByte)
}

// AsShort returns the value of a TAG_Short.
func AsShort(t Tag) (int16, error) {
	if v, ok := t.(Short); ok {
		return int16(v), nil
	}
	return 0, mismatch(t, KindShort)
}

// AsInt returns the value of a TAG_Int.
func AsInt(t Tag) (int32, error) {
	if v, ok := t.(Int); ok {
		return int32(v), nil
	}
	return 0, mismatch(t, KindInt)
}

// AsLong returns the value of a TAG_Long.
func AsLong(t Tag) (int64, error) {
	if v, ok := t.(Long); ok {
		return int64(v), nil
	}
	return 0, mismatch(t, KindLong)
}

// AsFloat returns the value of a TAG_Float.
func AsFloat(t Tag) (float32, error) {
	if v, ok := t.(Float); ok {
		return float32(v), nil
	}
	return 0, mismatch(t, KindFloat)
}

// AsDouble returns the value of a TAG_Double.
func AsDouble(t Tag) (float64, error) {
	if v, ok := t.(Double); ok {
		return float64(v), nil
	}
	return 0, mismatch(t, KindDouble)
}

// AsString returns the value of a TAG_String.
func AsString(t Tag) (string, error) {
	if v, ok := t.(String); ok {
		return string(v), nil
	}
	return "", mismatch(t, KindString)
}

// AsByteArray returns the value of a TAG_Byte_Array.
func AsByteArray(t Tag) ([]byte, error) {
	if v, ok := t.(ByteArray); ok {
		return v, nil
	}
	return nil, mismatch(t, KindByteArray)
}

// AsIntArray returns the value of a TAG_Int_Array.
func AsIntArray(t Tag) ([]int32, error) {
	if v, ok := t.(IntArray); ok {
		return v, nil
	}
	return nil, mismatch(t, KindIntArray)
}

// AsLongArray returns the value of a TAG_Long_Array.
func AsLongArray(t Tag) ([]int64, error) {
	if v, ok := t.(LongArray); ok {
		return v, nil
	}
	return nil, mismatch(t, KindLongArray)
}

// AsList returns the value of a TAG_List.
func AsList(t Tag) (List, error) {
	if v, ok := t.(List); ok {
		return v, nil
	}
	return List{}, mismatch(t, KindList)
}

// AsCompound returns the value of a TAG_Compound.
func AsCompound(t Tag) (Compound, error) {
	if v, ok := t.(Compound); ok {
		return v, nil
	}
	return nil, mismatch(t, KindCompound)
}

// Equal reports whether a and b are the same tree.
// Member and element order is significant, nil and empty values are equal
// and floating point values are compared by their bits.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch a := a.(type) {
	case End:
		return true
	case Byte:
		return a == b.(Byte)
	case Short:
		return a == b.(Short)
	case Int:
		return a == b.(Int)
	case Long:
		return a == b.(Long)
	case Float:
		return math.Float32bits(float32(a)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(a)) == math.Float64bits(float64(b.(Double)))
	case String:
		return a == b.(String)
	case ByteArray:
		return string(a) == string(b.(ByteArray))
	case IntArray:
		o := b.(IntArray)
		if len(a) != len(o) {
			return false
		}
		for i := range a {
			if a[i] != o[i] {
				return false
			}
		}
		return true
	case LongArray:
		o := b.(LongArray)
		if len(a) != len(o) {
			return false
		}
		for i := range a {
			if a[i] != o[i] {
				return false
			}
		}
		return true
	case List:
		o := b.(List)
		if a.Elem != o.Elem || len(a.Items) != len(o.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], o.Items[i]) {
				return false
			}
		}
		return true
	case Compound:
		o := b.(Compound)
		if len(a) != len(o) {
			return false
		}
		for i := range a {
			if a[i].Name != o[i].Name || !Equal(a[i].Tag, o[i].Tag) {
				return false
			}
		}
		return true
	}
	return false
}
