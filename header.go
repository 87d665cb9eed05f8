package anvil

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/yehan2002/errors"
	"github.com/yehan2002/fastbytes/v2"
)

const (
	sectionSizeMask = SectionSize - 1
	sectionShift    = 12
	entryHeaderSize = 5

	// Entries the number of entries in a region file
	Entries = 32 * 32
	// SectionSize the size of a section
	SectionSize = 1 << sectionShift
	// HeaderSize the size of the location and timestamp tables.
	HeaderSize = 2 * SectionSize
	// MaxFileSections the maximum number of sections a file can contain
	MaxFileSections = 2 + 255*Entries
	// maxOffset the largest offset that fits in a location entry.
	maxOffset = 1<<24 - 1
)

var headerPool = sync.Pool{New: func() interface{} { return &[Entries]Entry{} }}

// sections returns the minimum number of sections to store the given number of bytes
func sections(v uint) uint { return (v + sectionSizeMask) >> sectionShift }

// Entry an entry in the region header
type Entry struct {
	offset    uint32
	sectors   uint8
	timestamp uint32
}

// Exists returns if the entry is present.
// Only an entry with both a zero offset and a zero size is absent.
func (e Entry) Exists() bool { return e.offset != 0 || e.sectors != 0 }

// Offset is the offset of the entry in the region file (in sections).
// To get the offset in bytes, multiply this value by [SectionSize].
func (e Entry) Offset() int64 { return int64(e.offset) }

// Sectors the number of sections used by this entry.
// If the chunk is stored in an external file, this is the single section
// that holds the chunk header.
func (e Entry) Sectors() int64 { return int64(e.sectors) }

// Timestamp returns when the entry was last modified as the number of
// seconds since January 1, 1970 UTC.
func (e Entry) Timestamp() uint32 { return e.timestamp }

// Modified returns when the entry was last modified.
func (e Entry) Modified() time.Time { return time.Unix(int64(e.timestamp), 0) }

func (e Entry) location() uint32 { return e.offset<<8 | uint32(e.sectors) }

// end returns the first section after this entry.
func (e Entry) end() uint { return uint(e.offset) + uint(e.sectors) }

// Header the header of a region file.
type Header struct {
	entries *[Entries]Entry
	// used the sections used by entries and the header.
	used *bitset.BitSet
	// corrupt entries that point into the header or outside of the file.
	// These do not occupy space in `used`.
	corrupt *bitset.BitSet
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	h := &Header{entries: headerPool.Get().(*[Entries]Entry)}
	h.clear()
	return h
}

func (h *Header) clear() {
	*h.entries = [Entries]Entry{}
	if h.used == nil {
		h.used, h.corrupt = bitset.New(Entries), bitset.New(Entries)
	}
	h.used.ClearAll()
	h.corrupt.ClearAll()
	h.used.Set(0).Set(1)
}

// Get gets the entry at the given x,z coords.
// If the given x,z values are not between 0 and 31 (inclusive) this panics.
func (h *Header) Get(x, z uint8) *Entry {
	if x > 31 || z > 31 {
		panic(fmt.Errorf("anvil/Header: Get: invalid position (%d,%d)", x, z))
	}
	return &h.entries[index(x, z)]
}

// Lookup returns the entry for the chunk at x,z.
// Only the lower 5 bits of x and z are used, so both absolute and local chunk
// coordinates can be passed.
func (h *Header) Lookup(x, z int32) Entry {
	return h.entries[index(uint8(x&0x1f), uint8(z&0x1f))]
}

// Corrupted returns if the entry at x,z points into the header or
// outside of the file it was loaded from.
func (h *Header) Corrupted(x, z uint8) bool { return h.corrupt.Test(uint(index(x, z))) }

// Set updates the entry at x,z and marks the space used by the entry as used.
// Setting an absent entry is the same as calling Remove.
func (h *Header) Set(x, z uint8, e Entry) error {
	if !e.Exists() {
		return h.Remove(x, z)
	}
	if e.offset < 2 || e.sectors == 0 || e.offset > maxOffset {
		return fmt.Errorf("anvil/Header: Set: invalid entry (offset %d, sectors %d)", e.offset, e.sectors)
	}

	old := h.Get(x, z)
	if err := h.freeSpace(x, z); err != nil {
		return err
	}

	if err := h.markSpace(e); err != nil {
		// restore the previous entry
		if old.Exists() && !h.Corrupted(x, z) {
			h.markSpace(*old)
		}
		return err
	}

	h.corrupt.Clear(uint(index(x, z)))
	*old = e
	return nil
}

// Remove removes the given entry from the header and marks the space used
// by the given entry as unused.
func (h *Header) Remove(x, z uint8) error {
	if err := h.freeSpace(x, z); err != nil {
		return err
	}
	h.corrupt.Clear(uint(index(x, z)))
	*h.Get(x, z) = Entry{}
	return nil
}

// markSpace marks the space used by the given entry as used.
func (h *Header) markSpace(e Entry) error {
	for pos := uint(e.offset); pos < e.end(); pos++ {
		if h.used.Test(pos) {
			return fmt.Errorf("%w: entry overlaps with another entry", ErrCorrupted)
		}
	}
	for pos := uint(e.offset); pos < e.end(); pos++ {
		h.used.Set(pos)
	}
	return nil
}

// freeSpace marks the space used by the entry at x,z as unused.
func (h *Header) freeSpace(x, z uint8) error {
	e := h.Get(x, z)
	if !e.Exists() || h.Corrupted(x, z) {
		return nil
	}

	for pos := uint(e.offset); pos < e.end(); pos++ {
		if !h.used.Test(pos) {
			return fmt.Errorf("anvil/Header: inconsistent usage of space")
		}
		h.used.Clear(pos)
	}
	return nil
}

// FindSpace finds the first free gap of at least `size` sections that
// ends before `limit`.
func (h *Header) FindSpace(size, limit uint) (offset uint, found bool) {
	// the first two section are used for the header
	offset = 2
	for offset+size <= limit {
		next, ok := h.used.NextSet(offset)
		if !ok || next > limit {
			next = limit
		}
		if next-offset >= size {
			return offset, true
		}
		if offset, ok = h.used.NextClear(next); !ok {
			break
		}
	}
	return 0, false
}

// Free frees the header and puts it into the pool.
// Callers must not use the header after calling this.
func (h *Header) Free() {
	if h.entries != nil {
		headerPool.Put(h.entries)
		h.entries = nil
	}
}

// load reads the header from the given arrays.
// See the comment on [LoadHeader].
func (h *Header) load(location, timestamps *[Entries]uint32, fileSections uint) error {
	if fileSections == 0 {
		fileSections = maxOffset + 255
	}

	for i := 0; i < Entries; i++ {
		e := Entry{offset: location[i] >> 8, sectors: uint8(location[i]), timestamp: timestamps[i]}
		h.entries[i] = e

		if !e.Exists() {
			continue
		}
		if e.offset < 2 || e.sectors == 0 || e.end() > fileSections {
			h.corrupt.Set(uint(i))
			continue
		}
		if err := h.markSpace(e); err != nil {
			return fmt.Errorf("%w: entry %d at section %d overlaps with another entry", ErrCorrupted, i, e.offset)
		}
	}
	return nil
}

// Write writes the header to the given arrays.
func (h *Header) Write(location, timestamps *[Entries]uint32) {
	for i, e := range h.entries {
		location[i] = e.location()
		timestamps[i] = e.timestamp
	}
}

// MarshalBinary returns the 8192 byte on-disk form of the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	var location, timestamps [Entries]uint32
	h.Write(&location, &timestamps)

	b := make([]byte, HeaderSize)
	fastbytes.BigEndian.FromU32(location[:], b[:SectionSize])
	fastbytes.BigEndian.FromU32(timestamps[:], b[SectionSize:])
	return b, nil
}

// ParseHeader parses the header stored in the first 8192 bytes of b.
// `fileSections` is the number of sections in the file the header was read from.
// Entries that do not fit in the file are kept but reported by [Header.Corrupted].
// If `fileSections` is 0 entries are not checked against the file size.
func ParseHeader(b []byte, fileSections uint) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	var location, timestamps [Entries]uint32
	fastbytes.BigEndian.ToU32(b[:SectionSize], location[:])
	fastbytes.BigEndian.ToU32(b[SectionSize:HeaderSize], timestamps[:])
	return LoadHeader(&location, &timestamps, fileSections)
}

// ReadHeader reads a header from the given reader.
// See [ParseHeader] for the meaning of `fileSections`.
func ReadHeader(r io.ReaderAt, fileSections uint) (h *Header, err error) {
	var location, timestamps [Entries]uint32
	if err = readUint32Section(r, location[:], 0); err == nil {
		if err = readUint32Section(r, timestamps[:], SectionSize); err == nil {
			return LoadHeader(&location, &timestamps, fileSections)
		}
	}
	return nil, err
}

// LoadHeader reads the header from the given arrays.
// `location` should contain the size and position of entries, with the least significant byte
// being the number of sections used by the entry and the rest containing the
// offset where the entry starts.
// `timestamps` should be an array of timestamps when the entries were last modified
// as the number of seconds since January 1, 1970 UTC.
// This function expects `location`, `timestamps` to be in the hosts byte order.
// Overlapping entries cause [ErrCorrupted] to be returned.
func LoadHeader(location, timestamps *[Entries]uint32, fileSections uint) (h *Header, err error) {
	h = NewHeader()
	if err = h.load(location, timestamps, fileSections); err != nil {
		h.Free()
		return nil, err
	}
	return h, nil
}

// readUint32Section reads a 4096 byte section at the given offset into the given uint32 slice.
func readUint32Section(r io.ReaderAt, dst []uint32, offset int64) error {
	tmp := sectionPool.Get().(*section)
	defer tmp.Free()

	n, err := r.ReadAt(tmp[:], offset)
	if n == SectionSize {
		fastbytes.BigEndian.ToU32(tmp[:], dst)
		return nil
	}
	if err == nil || err == io.EOF {
		return fmt.Errorf("%w: header ends at byte %d", ErrTruncated, offset+int64(n))
	}
	return errors.Wrap("anvil: unable to read file header", err)
}
