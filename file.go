package anvil

import (
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/FireworkMC/anvil/v2/nbt"
	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

// Region is implemented by region files opened with [OpenFile] or [Anvil.File].
type Region interface {
	Read(x, z uint8, r io.ReaderFrom) (int64, error)
	ReadChunk(x, z uint8) (nbt.Named, bool, error)
	Write(x, z uint8, b []byte) error
	WriteChunk(x, z uint8, root nbt.Named) error
	Remove(x, z uint8) error
	Info(x, z uint8) (Entry, bool)
	Chunks() []ChunkPos
	CompressionMethod(m CompressMethod) error
	Close() error
}

var _ Region = &File{}
var _ Region = &cachedFile{}

// File is a single region file.
type File struct {
	mux    sync.RWMutex
	pos    RegionPos
	header *Header
	size   int64

	read  reader
	write writer

	// external stores chunks that do not fit in 255 sections.
	// This is nil if the file was not opened through an [Anvil].
	external externalStore

	c  compressor
	cm CompressMethod

	cache    *Anvil
	useCount atomic.Int32
}

// OpenFile opens the given region file.
// If readonly is set any attempts to modify the file will return an error.
// If any data is stored in external files, any attempt to read it will return ErrExternal.
// If an attempt is made to write a data that is over 1MB after compression, ErrExternal will be returned.
// To allow reading and writing to external files use `Open` instead.
func OpenFile(path string, readonly bool) (f *File, err error) {
	return OpenFileFs(fs, path, readonly)
}

// OpenFileFs is the same as [OpenFile] but opens the file from the given filesystem.
func OpenFileFs(fs afero.Fs, path string, readonly bool) (f *File, err error) {
	var r reader
	var size int64
	if r, size, err = openFile(fs, path, Settings{ReadOnly: readonly}); err != nil {
		return nil, err
	}

	// files with unusual names are still readable, their chunks are just reported relative to region 0,0.
	pos, _ := ParseRegionName(filepath.Base(path))
	if f, err = newFile(pos, r, size, readonly, nil); err != nil {
		r.Close()
	}
	return
}

// NewFile reads a region file from r.
// The file can only be modified if r also implements `WriteAt`, `Sync` and `Truncate`
// and readonly is not set.
// If r implements io.Closer it is closed when the file is closed.
func NewFile(r io.ReaderAt, size int64, readonly bool) (*File, error) {
	rc, ok := r.(reader)
	if !ok {
		rc = &noopReadAtCloser{r}
	}
	return newFile(RegionPos{}, rc, size, readonly, nil)
}

func newFile(pos RegionPos, r reader, size int64, readonly bool, ext externalStore) (f *File, err error) {
	f = &File{pos: pos, read: r, size: size, external: ext}
	if w, ok := r.(writer); ok && !readonly {
		f.write = w
	}

	if size == 0 { // fast path for empty files
		f.header = NewHeader()
		return f, nil
	}

	if f.header, err = ReadHeader(r, uint(size>>sectionShift)); err != nil {
		return nil, err
	}
	return f, nil
}

// Pos returns the position of the region file.
func (f *File) Pos() RegionPos { return f.pos }

// Info gets information stored in the region header for the given entry.
func (f *File) Info(x, z uint8) (entry Entry, exists bool) {
	f.mux.RLock()
	defer f.mux.RUnlock()
	if f.header == nil {
		return
	}
	entry = *f.header.Get(x&0x1f, z&0x1f)
	return entry, entry.Exists()
}

// Chunks returns the absolute positions of all chunks present in the file
// in the order they are stored in the header.
func (f *File) Chunks() (chunks []ChunkPos) {
	f.mux.RLock()
	defer f.mux.RUnlock()
	if f.header == nil {
		return nil
	}
	for i, e := range f.header.entries {
		if e.Exists() {
			chunks = append(chunks, f.pos.Chunk(uint8(i&0x1f), uint8(i>>5)))
		}
	}
	return chunks
}

// Header returns a copy of the region header.
func (f *File) Header() (*Header, error) {
	f.mux.RLock()
	defer f.mux.RUnlock()
	if f.header == nil {
		return nil, ErrClosed
	}

	var location, timestamps [Entries]uint32
	f.header.Write(&location, &timestamps)
	return LoadHeader(&location, &timestamps, uint(f.size>>sectionShift))
}

// CompressionMethod sets the compression method to be used by the writer
func (f *File) CompressionMethod(m CompressMethod) (err error) {
	var c compressor
	if c, err = m.compressor(); err == nil {
		f.mux.Lock()
		f.cm, f.c = m, c
		f.mux.Unlock()
	}
	return
}

// Close closes the file.
// Calling Close more than once returns ErrClosed.
func (f *File) Close() (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.header == nil {
		return ErrClosed
	}

	if f.write != nil {
		err = errors.Wrap("anvil: unable to sync file", f.write.Sync())
	}
	if closeErr := f.read.Close(); err == nil {
		err = errors.Wrap("anvil: unable to close file", closeErr)
	}
	f.header.Free()
	f.header = nil
	return
}
