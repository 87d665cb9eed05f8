package anvil

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/FireworkMC/anvil/v2/nbt"
	"github.com/valyala/bytebufferpool"
	"github.com/yehan2002/errors"
)

// maxEntrySections the largest chunk that can be stored inside a region file.
const maxEntrySections = 255

var now = time.Now

// Write updates the data for the entry at x,z to the given buffer.
// The given buffer is compressed and written to the region file.
// The compression method used can be changed using the [File.CompressionMethod] method.
// If the data does not fit in 255 sections after compression, the data is stored externally.
// Calling this function with an empty buffer is the equivalent of calling [File.Remove](x,z).
func (f *File) Write(x, z uint8, b []byte) error {
	return chunkErr("write", f.pos.Chunk(x, z), f.store(x, z, b))
}

// WriteChunk encodes root and writes it to the entry at x,z.
func (f *File) WriteChunk(x, z uint8, root nbt.Named) (err error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if buf.B, err = nbt.AppendEncode(buf.B[:0], root); err != nil {
		return chunkErr("write", f.pos.Chunk(x, z), err)
	}
	return f.Write(x, z, buf.B)
}

// Remove removes the given entry from the file.
func (f *File) Remove(x, z uint8) (err error) {
	if err = f.checkPos(x, z); err == nil {
		f.mux.Lock()
		defer f.mux.Unlock()
		if err = f.checkWritable(); err == nil {
			err = f.remove(x, z)
		}
	}
	return chunkErr("write", f.pos.Chunk(x, z), err)
}

func (f *File) checkPos(x, z uint8) error {
	if x > 31 || z > 31 {
		return fmt.Errorf("anvil: invalid chunk position (%d,%d)", x, z)
	}
	return nil
}

func (f *File) checkWritable() error {
	if f.header == nil {
		return ErrClosed
	}
	if f.write == nil {
		return ErrReadOnly
	}
	return nil
}

func (f *File) store(x, z uint8, b []byte) (err error) {
	if err = f.checkPos(x, z); err != nil {
		return
	}

	f.mux.Lock()
	defer f.mux.Unlock()

	if err = f.checkWritable(); err != nil {
		return
	}

	if len(b) == 0 {
		return f.remove(x, z)
	}

	if err = f.initCompression(); err != nil {
		return
	}

	var buf *Buffer
	if buf, err = f.compress(b); err != nil {
		return fmt.Errorf("anvil: error compressing data: %w", err)
	}
	defer buf.Free()

	wasExternal, external := f.isExternal(x, z), buf.Sections() > maxEntrySections
	if external {
		if f.external == nil {
			return ErrExternal
		}
		if err = f.external.WriteExternal(f.pos.Chunk(x, z), buf); err != nil {
			return err
		}
		// only the chunk header is stored in the region file
		buf = buf.externalHeader()
		defer buf.Free()
	}

	size := buf.Sections()
	var offset uint
	if offset, err = f.allocate(x, z, size); err != nil {
		return err
	}

	if err = buf.WriteAt(f.write, int64(offset)*SectionSize); err != nil {
		return errors.Wrap("anvil: unable to write entry data", err)
	}
	if err = f.write.Sync(); err != nil {
		return errors.Wrap("anvil: unable to write entry data", err)
	}

	if err = f.updateHeader(x, z, Entry{offset: uint32(offset), sectors: uint8(size), timestamp: uint32(now().Unix())}); err != nil {
		return err
	}
	if wasExternal && !external {
		return f.external.RemoveExternal(f.pos.Chunk(x, z))
	}
	return nil
}

// allocate returns the offset where an entry of `size` sections should be written.
// The current location of the entry is reused if it is large enough,
// otherwise the first free gap is used before the file is grown.
// The header is not modified; the space used by the current entry is only
// released by updateHeader once the new data has been written.
func (f *File) allocate(x, z uint8, size uint) (offset uint, err error) {
	old := *f.header.Get(x, z)
	if old.Exists() && !f.header.Corrupted(x, z) && uint(old.sectors) >= size {
		return uint(old.offset), nil
	}

	var found bool
	if offset, found = f.header.FindSpace(size, uint(f.size>>sectionShift)); found {
		return offset, nil
	}
	if offset, err = f.growFile(size); err != nil {
		return 0, errors.Wrap("anvil: unable to grow file", err)
	}
	return offset, nil
}

// isExternal returns if the entry at x,z is stored in an external file.
func (f *File) isExternal(x, z uint8) bool {
	entry := f.header.Get(x, z)
	if f.external == nil || !entry.Exists() || f.header.Corrupted(x, z) {
		return false
	}
	_, _, external, err := f.readEntryHeader(entry)
	return err == nil && external
}

func (f *File) remove(x, z uint8) (err error) {
	if entry := f.header.Get(x, z); !entry.Exists() {
		return nil
	}
	if f.isExternal(x, z) {
		if err = f.external.RemoveExternal(f.pos.Chunk(x, z)); err != nil {
			return err
		}
	}
	return f.updateHeader(x, z, Entry{})
}

// initCompression selects DefaultCompression if no method has been set.
func (f *File) initCompression() (err error) {
	if f.cm == 0 {
		var c compressor
		if c, err = DefaultCompression.compressor(); err == nil {
			f.cm, f.c = DefaultCompression, c
		}
	}
	return
}

// compress compresses the given byte slice and writes it to a Buffer.
func (f *File) compress(b []byte) (buf *Buffer, err error) {
	buf = &Buffer{}
	buf.CompressMethod(f.cm)

	f.c.Reset(buf)

	if _, err = f.c.Write(b); err == nil {
		if err = f.c.Close(); err == nil {
			return buf, nil
		}
	}

	buf.Free()
	return nil, err
}

// growFile grows the file to fit `size` more sections.
func (f *File) growFile(size uint) (offset uint, err error) {
	fileSize := f.size

	// make space for the header if the file does not have one.
	if fileSize < HeaderSize {
		fileSize = HeaderSize
	}

	offset = sections(uint(fileSize))
	if offset > maxOffset {
		return 0, fmt.Errorf("anvil: region file is full")
	}

	newSize := int64(offset+size) * SectionSize // insure the file size is a multiple of 4096 bytes
	if err = f.write.Truncate(newSize); err == nil {
		f.size = newSize
	}
	return
}

// updateHeader sets the entry at x,z and writes it to both header tables.
// The in-memory entry is restored if the header cannot be written.
func (f *File) updateHeader(x, z uint8, e Entry) (err error) {
	old, corrupt := *f.header.Get(x, z), f.header.Corrupted(x, z)
	if err = f.header.Set(x, z, e); err != nil {
		return err
	}
	defer func() {
		if err != nil && !corrupt {
			f.header.Set(x, z, old)
		}
	}()

	headerOffset := int64(index(x, z)) << 2

	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], e.location())
	if _, err = f.write.WriteAt(tmp[:], headerOffset); err != nil {
		return errors.Wrap("anvil: unable to update header", err)
	}

	binary.BigEndian.PutUint32(tmp[:], e.timestamp)
	if _, err = f.write.WriteAt(tmp[:], headerOffset+SectionSize); err != nil {
		return errors.Wrap("anvil: unable to update timestamp", err)
	}

	return errors.Wrap("anvil: unable to update header", f.write.Sync())
}
