package nbt

import "strconv"

// Kind the type id of a tag.
type Kind byte

// tag kinds in wire order
const (
	KindEnd Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
	KindIntArray
	KindLongArray
)

var kindNames = [...]string{
	KindEnd:       "TAG_End",
	KindByte:      "TAG_Byte",
	KindShort:     "TAG_Short",
	KindInt:       "TAG_Int",
	KindLong:      "TAG_Long",
	KindFloat:     "TAG_Float",
	KindDouble:    "TAG_Double",
	KindByteArray: "TAG_Byte_Array",
	KindString:    "TAG_String",
	KindList:      "TAG_List",
	KindCompound:  "TAG_Compound",
	KindIntArray:  "TAG_Int_Array",
	KindLongArray: "TAG_Long_Array",
}

// Valid returns if k is one of the 13 defined kinds.
func (k Kind) Valid() bool { return k <= KindLongArray }

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "TAG_Unknown(" + strconv.Itoa(int(k)) + ")"
}

// width returns the encoded size of a scalar of this kind.
// It returns 0 for kinds that do not have a fixed size.
func (k Kind) width() int {
	switch k {
	case KindByte:
		return 1
	case KindShort:
		return 2
	case KindInt, KindFloat:
		return 4
	case KindLong, KindDouble:
		return 8
	}
	return 0
}

// minSize the smallest number of bytes a payload of this kind can occupy.
func (k Kind) minSize() int {
	switch k {
	case KindEnd:
		return 0
	case KindByteArray, KindIntArray, KindLongArray:
		return 4
	case KindString:
		return 2
	case KindList:
		return 5
	case KindCompound:
		return 1
	}
	return k.width()
}
