package anvil

import (
	"encoding/binary"
	"io"
	"sync"
)

var sectionPool = sync.Pool{New: func() interface{} { return &section{} }}

type section [SectionSize]byte

func (b *section) Free() { sectionPool.Put(b) }

// Buffer a reuseable buffer that holds a compressed chunk.
// The buffer is made of whole sections so it can be written to a region file
// without copying.
type Buffer struct {
	length   int64
	compress CompressMethod
	external bool
	buf      []*section
}

// Write appends data to this buffer.
// This never returns an error.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if b.buf == nil {
		b.grow()
		// reserve space for the chunk header
		b.length = entryHeaderSize
	}

	for n < len(p) {
		idx, offset := b.length>>sectionShift, b.length&sectionSizeMask
		if idx >= int64(len(b.buf)) {
			b.grow()
		}
		c := copy(b.buf[idx][offset:], p[n:])
		n += c
		b.length += int64(c)
	}
	return n, nil
}

// CompressMethod sets the compression method used by the data in the buffer.
// This is only used to set the compression byte in the header.
// Callers must compress the data before writing it to this buffer.
// If this is not called, DefaultCompression is used.
func (b *Buffer) CompressMethod(c CompressMethod) { b.compress = c }

func (b *Buffer) header() {
	if b.buf == nil {
		b.grow()
		b.length = entryHeaderSize
	}
	if b.compress == 0 {
		b.compress = DefaultCompression
	}
	binary.BigEndian.PutUint32(b.buf[0][:4], uint32(b.length-4))
	b.buf[0][4] = byte(b.compress)
	if b.external {
		b.buf[0][4] |= externalMask
	}
}

// WriteAt writes this buffer to the given writer at the given position.
// The data is prefixed with the 5 byte chunk header, which holds the length of
// the data and the compression method used, and is zero padded to a whole number of sections.
func (b *Buffer) WriteAt(w io.WriterAt, off int64) error {
	b.header()

	// clear whatever a previous user of the last section left behind
	if tail := b.length & sectionSizeMask; tail != 0 {
		last := b.buf[len(b.buf)-1]
		clear(last[tail:])
	}

	for _, s := range b.buf[:b.Sections()] {
		if _, err := w.WriteAt(s[:], off); err != nil {
			return err
		}
		off += SectionSize
	}
	return nil
}

// WriteTo writes the compressed data without the chunk header to w.
// This is the format used by external chunk files.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	remaining := b.length - entryHeaderSize
	start := int64(entryHeaderSize)
	for i := 0; remaining > 0 && i < len(b.buf); i++ {
		end := int64(SectionSize)
		if end-start > remaining {
			end = start + remaining
		}
		var c int
		c, err = w.Write(b.buf[i][start:end])
		n += int64(c)
		if err != nil {
			return n, err
		}
		remaining -= end - start
		start = 0
	}
	return n, nil
}

// Free frees the buffer for reuse.
func (b *Buffer) Free() {
	for _, s := range b.buf {
		s.Free()
	}
	*b = Buffer{}
}

// Len returns the length of the buffer.
// This includes the length of the header.
// If the buffer is completely empty other than the header this returns 0.
func (b *Buffer) Len() int {
	if b.length == entryHeaderSize {
		return 0
	}
	return int(b.length)
}

// Sections returns the number of sections needed to store the buffer in a region file.
func (b *Buffer) Sections() uint { return sections(uint(b.length)) }

func (b *Buffer) grow() { b.buf = append(b.buf, sectionPool.Get().(*section)) }

// externalHeader returns the single section stored in the region file for a
// chunk that is stored in an external file.
func (b *Buffer) externalHeader() *Buffer {
	h := &Buffer{compress: b.compress, external: true}
	h.grow()
	h.length = entryHeaderSize
	return h
}
