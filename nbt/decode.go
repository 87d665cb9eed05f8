package nbt

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/yehan2002/fastbytes/v2"
)

// DefaultMaxDepth the default limit on the nesting of lists and compounds.
const DefaultMaxDepth = 512

type decodeConfig struct {
	maxDepth int
}

// DecodeOption configures Decode and DecodeAll.
type DecodeOption func(*decodeConfig)

// WithMaxDepth sets the maximum nesting depth of lists and compounds.
// Values less than 1 select DefaultMaxDepth.
func WithMaxDepth(depth int) DecodeOption {
	return func(c *decodeConfig) { c.maxDepth = depth }
}

func newDecodeConfig(opts []DecodeOption) decodeConfig {
	cfg := decodeConfig{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxDepth < 1 {
		cfg.maxDepth = DefaultMaxDepth
	}
	return cfg
}

// Decode decodes the document at the start of b.
// It returns the root tag and the number of bytes used. Bytes after the
// document are not read.
// All errors are of type *SyntaxError.
func Decode(b []byte, opts ...DecodeOption) (root Named, n int, err error) {
	d := decoder{buf: b, cfg: newDecodeConfig(opts)}
	if root, err = d.readRoot(); err != nil {
		return Named{}, 0, err
	}
	return root, d.off, nil
}

// DecodeAll decodes consecutive documents until b is used up.
func DecodeAll(b []byte, opts ...DecodeOption) (roots []Named, err error) {
	d := decoder{buf: b, cfg: newDecodeConfig(opts)}
	for d.off < len(d.buf) {
		var root Named
		if root, err = d.readRoot(); err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

type decoder struct {
	buf   []byte
	off   int
	depth int
	cfg   decodeConfig
}

func (d *decoder) fail(off int, k Kind, err error, format string, args ...interface{}) error {
	return &SyntaxError{Offset: int64(off), Kind: k, Err: err, msg: fmt.Sprintf(format, args...)}
}

// take returns the next n bytes.
func (d *decoder) take(n int, k Kind) ([]byte, error) {
	if n > len(d.buf)-d.off {
		return nil, d.fail(d.off, k, ErrTruncatedInput, "need %d bytes, have %d", n, len(d.buf)-d.off)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) readKind(k Kind) (Kind, error) {
	off := d.off
	b, err := d.take(1, k)
	if err != nil {
		return 0, err
	}
	if kind := Kind(b[0]); kind.Valid() {
		return kind, nil
	}
	return 0, d.fail(off, k, ErrInvalidTagKind, "kind byte %d", b[0])
}

func (d *decoder) readRoot() (root Named, err error) {
	var k Kind
	if k, err = d.readKind(KindEnd); err != nil {
		return
	}
	if k == KindEnd {
		return Named{Tag: End{}}, nil
	}
	if root.Name, err = d.readString(k); err != nil {
		return
	}
	root.Tag, err = d.readPayload(k)
	return
}

func (d *decoder) readString(k Kind) (string, error) {
	b, err := d.take(2, k)
	if err != nil {
		return "", err
	}
	off := d.off
	if b, err = d.take(int(binary.BigEndian.Uint16(b)), k); err != nil {
		return "", err
	}
	s, bad, ok := decodeModifiedUTF8(b)
	if !ok {
		return "", d.fail(off+bad, k, ErrInvalidEncoding, "byte %#02x", b[bad])
	}
	return s, nil
}

// readCount reads a signed 32-bit element count.
// size is the smallest encoded size of an element and is used to reject counts
// that cannot fit in the remaining input before anything is allocated.
func (d *decoder) readCount(k Kind, size int) (int, error) {
	off := d.off
	b, err := d.take(4, k)
	if err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(b))
	if n < 0 {
		return 0, d.fail(off, k, ErrInvalidCount, "count %d", n)
	}
	if remaining := int64(len(d.buf) - d.off); int64(n)*int64(size) > remaining {
		return 0, d.fail(d.off, k, ErrTruncatedInput, "%d elements need at least %d bytes, have %d", n, int64(n)*int64(size), remaining)
	}
	return int(n), nil
}

func (d *decoder) enter(k Kind) error {
	if d.depth >= d.cfg.maxDepth {
		return d.fail(d.off, k, ErrMaxDepthExceeded, "limit is %d", d.cfg.maxDepth)
	}
	d.depth++
	return nil
}

func (d *decoder) readPayload(k Kind) (Tag, error) {
	switch k {
	case KindByte:
		b, err := d.take(1, k)
		if err != nil {
			return nil, err
		}
		return Byte(b[0]), nil
	case KindShort:
		b, err := d.take(2, k)
		if err != nil {
			return nil, err
		}
		return Short(binary.BigEndian.Uint16(b)), nil
	case KindInt:
		b, err := d.take(4, k)
		if err != nil {
			return nil, err
		}
		return Int(binary.BigEndian.Uint32(b)), nil
	case KindLong:
		b, err := d.take(8, k)
		if err != nil {
			return nil, err
		}
		return Long(binary.BigEndian.Uint64(b)), nil
	case KindFloat:
		b, err := d.take(4, k)
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case KindDouble:
		b, err := d.take(8, k)
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case KindString:
		s, err := d.readString(k)
		return String(s), err
	case KindByteArray:
		n, err := d.readCount(k, 1)
		if err != nil || n == 0 {
			return ByteArray(nil), err
		}
		b, _ := d.take(n, k)
		return append(ByteArray(nil), b...), nil
	case KindIntArray:
		n, err := d.readCount(k, 4)
		if err != nil || n == 0 {
			return IntArray(nil), err
		}
		b, _ := d.take(n*4, k)
		v := make(IntArray, n)
		fastbytes.BigEndian.ToI32(b, v)
		return v, nil
	case KindLongArray:
		n, err := d.readCount(k, 8)
		if err != nil || n == 0 {
			return LongArray(nil), err
		}
		b, _ := d.take(n*8, k)
		v := make(LongArray, n)
		fastbytes.BigEndian.ToI64(b, v)
		return v, nil
	case KindList:
		return d.readList()
	case KindCompound:
		return d.readCompound()
	}
	return nil, d.fail(d.off, k, ErrInvalidTagKind, "%s has no payload", k)
}

func (d *decoder) readList() (Tag, error) {
	if err := d.enter(KindList); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	kindOffset := d.off
	elem, err := d.readKind(KindList)
	if err != nil {
		return nil, err
	}
	n, err := d.readCount(KindList, elem.minSize())
	if err != nil {
		return nil, err
	}

	l := List{Elem: elem}
	if n == 0 {
		return l, nil
	}
	if elem == KindEnd {
		return nil, d.fail(kindOffset, KindList, ErrInvalidTagKind, "list of %d %s elements", n, elem)
	}

	l.Items = make([]Tag, n)
	for i := range l.Items {
		if l.Items[i], err = d.readPayload(elem); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (d *decoder) readCompound() (Tag, error) {
	if err := d.enter(KindCompound); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	var c Compound
	for {
		k, err := d.readKind(KindCompound)
		if err != nil {
			return nil, err
		}
		if k == KindEnd {
			return c, nil
		}

		var m Named
		if m.Name, err = d.readString(k); err != nil {
			return nil, err
		}
		if m.Tag, err = d.readPayload(k); err != nil {
			return nil, err
		}
		c = append(c, m)
	}
}
