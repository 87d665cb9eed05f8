package anvil

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

var fs afero.Fs = &afero.OsFs{}

// reader an interface that implements io.ReadAt and io.Closer
type reader interface {
	io.ReaderAt
	io.Closer
}

type noopReadAtCloser struct{ io.ReaderAt }

func (r *noopReadAtCloser) Close() error { return nil }

// writer a writer to modify a region file.
type writer interface {
	io.WriterAt
	Sync() error
	Truncate(size int64) error
}

var _ writer = afero.File(nil)

func openFile(fs afero.Fs, path string, settings Settings) (r reader, size int64, err error) {
	var fileFlags int

	if settings.ReadOnly {
		fileFlags = os.O_RDONLY
	} else {
		fileFlags = os.O_RDWR | os.O_CREATE
	}

	if settings.Sync {
		fileFlags |= os.O_SYNC
	}

	var f afero.File
	if f, err = fs.OpenFile(path, fileFlags, 0666); err != nil {
		return nil, 0, errors.Wrap("anvil: unable to open file", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, errors.Wrap("anvil: unable to stat file", err)
	}

	return f, info.Size(), nil
}

// externalStore stores chunks that are too large to fit in a region file.
type externalStore interface {
	ReadExternal(c ChunkPos) (r io.ReadCloser, err error)
	WriteExternal(c ChunkPos, b *Buffer) (err error)
	RemoveExternal(c ChunkPos) (err error)
}

// dir stores external chunks as separate files next to the region files.
type dir struct {
	fs     afero.Fs
	format string
}

// ReadExternal opens the external file for the given chunk.
func (d *dir) ReadExternal(c ChunkPos) (r io.ReadCloser, err error) {
	var f afero.File
	if f, err = d.fs.Open(fmt.Sprintf(d.format, c.X, c.Z)); err != nil {
		return nil, errors.Wrap("anvil: unable to open external file", err)
	}
	return f, nil
}

// WriteExternal writes the compressed data in b to the external file for the given chunk.
func (d *dir) WriteExternal(c ChunkPos, b *Buffer) (err error) {
	var f afero.File
	if f, err = d.fs.Create(fmt.Sprintf(d.format, c.X, c.Z)); err != nil {
		return errors.Wrap("anvil: unable to create external file", err)
	}
	if _, err = b.WriteTo(f); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrap("anvil: unable to write external file", err)
}

// RemoveExternal removes the external file for the given chunk if it exists.
func (d *dir) RemoveExternal(c ChunkPos) error {
	err := d.fs.Remove(fmt.Sprintf(d.format, c.X, c.Z))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap("anvil: unable to remove external file", err)
	}
	return nil
}
