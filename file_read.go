package anvil

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/FireworkMC/anvil/v2/nbt"
	"github.com/valyala/bytebufferpool"
)

// Read reads the decompressed data of the chunk at x,z to `r`.
// `r` must not retain the reader passed to it.
// If the chunk does not exist this returns ErrNotExist.
func (f *File) Read(x, z uint8, r io.ReaderFrom) (n int64, err error) {
	n, err = f.readTo(x, z, r)
	return n, chunkErr("read", f.pos.Chunk(x, z), err)
}

// ReadChunk reads and decodes the chunk at x,z.
// If the chunk does not exist, exists is false and err is nil.
// Decoding errors are returned as a *ChunkError that wraps the *nbt.SyntaxError.
func (f *File) ReadChunk(x, z uint8) (root nbt.Named, exists bool, err error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err = f.readTo(x, z, buf); err != nil {
		if err == ErrNotExist {
			return root, false, nil
		}
		return root, false, chunkErr("read", f.pos.Chunk(x, z), err)
	}

	if root, _, err = nbt.Decode(buf.B); err != nil {
		return nbt.Named{}, false, chunkErr("read", f.pos.Chunk(x, z), err)
	}
	return root, true, nil
}

func (f *File) readTo(x, z uint8, r io.ReaderFrom) (n int64, err error) {
	f.mux.RLock()
	defer f.mux.RUnlock()

	var src io.ReadCloser
	if src, err = f.reader(x, z); err != nil {
		return 0, err
	}

	n, err = r.ReadFrom(src)
	if closeErr := src.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// reader returns a reader that decompresses the chunk at x,z.
// The caller must hold the read lock until the reader is closed.
func (f *File) reader(x, z uint8) (io.ReadCloser, error) {
	if f.header == nil {
		return nil, ErrClosed
	}
	if x > 31 || z > 31 {
		return nil, fmt.Errorf("anvil: invalid chunk position (%d,%d)", x, z)
	}

	entry := f.header.Get(x, z)
	if !entry.Exists() {
		return nil, ErrNotExist
	}
	if f.header.Corrupted(x, z) || int64(entry.end())*SectionSize > f.size {
		return nil, fmt.Errorf("%w: chunk data at section %d (%d sections) is outside of the file", ErrCorrupted, entry.offset, entry.sectors)
	}

	length, method, external, err := f.readEntryHeader(entry)
	if err != nil {
		return nil, err
	}

	if !external {
		return method.decompressor(io.NewSectionReader(f.read, entry.Offset()*SectionSize+entryHeaderSize, length))
	}

	if f.external == nil {
		return nil, ErrExternal
	}
	src, err := f.external.ReadExternal(f.pos.Chunk(x, z))
	if err != nil {
		return nil, err
	}
	dec, err := method.decompressor(src)
	if err != nil {
		src.Close()
		return nil, err
	}
	return &externalReader{ReadCloser: dec, file: src}, nil
}

// readEntryHeader reads the 5 byte header that precedes the chunk data.
func (f *File) readEntryHeader(entry *Entry) (length int64, method CompressMethod, external bool, err error) {
	var header [entryHeaderSize]byte
	var n int
	if n, err = f.read.ReadAt(header[:], entry.Offset()*SectionSize); n != entryHeaderSize {
		if err == nil || err == io.EOF {
			err = fmt.Errorf("%w: chunk header at section %d is truncated", ErrCorrupted, entry.offset)
		}
		return 0, 0, false, err
	}

	// the first 4 bytes in the header holds the length of the data as a big endian uint32
	// and includes the compression byte.
	length = int64(binary.BigEndian.Uint32(header[:]))
	if length == 0 || length+4 > entry.Sectors()*SectionSize {
		return 0, 0, false, fmt.Errorf("%w: chunk length %d does not fit in %d sections", ErrCorrupted, length, entry.sectors)
	}

	// the top bit of the 5th byte of the header indicates if the entry is stored externally
	external = header[4]&externalMask != 0
	// the lower bits hold the compression method used to compress the data
	method = CompressMethod(header[4] &^ externalMask)
	return length - 1, method, external, nil
}

// externalReader closes the external file after the decompressor.
type externalReader struct {
	io.ReadCloser
	file io.Closer
}

func (e *externalReader) Close() error {
	err := e.ReadCloser.Close()
	if closeErr := e.file.Close(); err == nil {
		err = closeErr
	}
	return err
}
