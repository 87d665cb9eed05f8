package nbt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/valyala/bytebufferpool"
	"github.com/yehan2002/fastbytes/v2"
)

// Encode returns the encoding of the document root.
// All errors are of type *EncodeError.
func Encode(root Named) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var err error
	if buf.B, err = AppendEncode(buf.B[:0], root); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.B...), nil
}

// EncodeAll returns the encoding of the given documents, one after the other.
func EncodeAll(roots ...Named) (b []byte, err error) {
	for _, root := range roots {
		if b, err = AppendEncode(b, root); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AppendEncode appends the encoding of the document root to dst.
// dst is returned unmodified if an error occurs.
func AppendEncode(dst []byte, root Named) ([]byte, error) {
	if root.Tag == nil {
		return dst, &EncodeError{Err: ErrValueOutOfRange, msg: "nil root"}
	}
	if root.Tag.Kind() == KindEnd {
		return append(dst, byte(KindEnd)), nil
	}

	e := encoder{buf: dst}
	if err := e.writeNamed(root, ""); err != nil {
		return dst, err
	}
	return e.buf, nil
}

// WriteTo writes the encoding of n to w.
func (n Named) WriteTo(w io.Writer) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var err error
	if buf.B, err = AppendEncode(buf.B[:0], n); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

type encoder struct {
	buf []byte
}

// grow extends the buffer by n bytes and returns the added bytes.
func (e *encoder) grow(n int) []byte {
	start := len(e.buf)
	e.buf = slices.Grow(e.buf, n)[:start+n]
	return e.buf[start:]
}

func (e *encoder) writeNamed(n Named, path string) error {
	if n.Tag == nil || n.Tag.Kind() == KindEnd {
		return &EncodeError{Path: path, Err: ErrValueOutOfRange, msg: "member has no value"}
	}
	e.buf = append(e.buf, byte(n.Tag.Kind()))
	if err := e.writeString(n.Name, path); err != nil {
		return err
	}
	return e.writePayload(n.Tag, path)
}

func (e *encoder) writeString(s string, path string) error {
	n := modifiedUTF8Len(s)
	if n > MaxStringLen {
		return &EncodeError{Path: path, Err: ErrValueOutOfRange, msg: fmt.Sprintf("string is %d bytes long", n)}
	}
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(n))
	e.buf = appendModifiedUTF8(e.buf, s)
	return nil
}

func (e *encoder) writeCount(n int, path string) error {
	if int64(n) > math.MaxInt32 {
		return &EncodeError{Path: path, Err: ErrValueOutOfRange, msg: fmt.Sprintf("%d elements", n)}
	}
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
	return nil
}

func (e *encoder) writePayload(t Tag, path string) error {
	switch t := t.(type) {
	case Byte:
		e.buf = append(e.buf, byte(t))
	case Short:
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(t))
	case Int:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(t))
	case Long:
		e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(t))
	case Float:
		e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(float32(t)))
	case Double:
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(float64(t)))
	case String:
		return e.writeString(string(t), path)
	case ByteArray:
		if err := e.writeCount(len(t), path); err != nil {
			return err
		}
		e.buf = append(e.buf, t...)
	case IntArray:
		if err := e.writeCount(len(t), path); err != nil {
			return err
		}
		fastbytes.BigEndian.FromI32(t, e.grow(4*len(t)))
	case LongArray:
		if err := e.writeCount(len(t), path); err != nil {
			return err
		}
		fastbytes.BigEndian.FromI64(t, e.grow(8*len(t)))
	case List:
		return e.writeList(t, path)
	case Compound:
		return e.writeCompound(t, path)
	default:
		return &EncodeError{Path: path, Err: ErrValueOutOfRange, msg: fmt.Sprintf("%T cannot be encoded here", t)}
	}
	return nil
}

func (e *encoder) writeList(l List, path string) error {
	if !l.Elem.Valid() {
		return &EncodeError{Path: path, Err: ErrValueOutOfRange, msg: fmt.Sprintf("list of %s", l.Elem)}
	}
	if l.Elem == KindEnd && len(l.Items) != 0 {
		return &EncodeError{Path: path, Err: ErrKindMismatch, msg: "non-empty list of TAG_End"}
	}

	e.buf = append(e.buf, byte(l.Elem))
	if err := e.writeCount(len(l.Items), path); err != nil {
		return err
	}
	for i, item := range l.Items {
		itemPath := path + "[" + strconv.Itoa(i) + "]"
		if item == nil {
			return &EncodeError{Path: itemPath, Err: ErrValueOutOfRange, msg: "nil element"}
		}
		if item.Kind() != l.Elem {
			return &EncodeError{Path: itemPath, Err: ErrKindMismatch, msg: fmt.Sprintf("%s in a list of %s", item.Kind(), l.Elem)}
		}
		if err := e.writePayload(item, itemPath); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeCompound(c Compound, path string) error {
	var seen map[string]struct{}
	if len(c) > 1 {
		seen = make(map[string]struct{}, len(c))
	}
	for _, m := range c {
		memberPath := m.Name
		if path != "" {
			memberPath = path + "." + m.Name
		}
		if seen != nil {
			if _, ok := seen[m.Name]; ok {
				return &EncodeError{Path: memberPath, Err: ErrDuplicateMember}
			}
			seen[m.Name] = struct{}{}
		}
		if err := e.writeNamed(m, memberPath); err != nil {
			return err
		}
	}
	e.buf = append(e.buf, byte(KindEnd))
	return nil
}
