package anvil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/FireworkMC/anvil/v2/nbt"
	lru "github.com/hashicorp/golang-lru/simplelru"
	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

// Settings settings
type Settings struct {
	// Readonly if the file should be opened in readonly mode.
	// If this is set, all write operation will return [ErrReadOnly].
	// Default: false
	ReadOnly bool
	// Sync if the file should be opened for synchronous I/O.
	// Default: false
	Sync bool

	// The cache size for [Anvil].
	// If this value is -1 the cache will be disabled.
	// Default: 20
	CacheSize int

	// The formatting string to be used to generate the file name for a region file
	AnvilFmt string
	// The formatting string to be used to generate the file name for a chunk that is stored
	// separately from a region file.
	ChunkFmt string

	fs afero.Fs
}

var defaultSettings = Settings{
	CacheSize: 20,
	AnvilFmt:  "r.%d.%d.mca",
	ChunkFmt:  "c.%d.%d.mcc",
}

// Anvil a directory of region files.
// Chunks are addressed by their absolute position and the region files
// that hold them are opened on demand.
type Anvil struct {
	inUse map[RegionPos]*File

	lru *lru.LRU

	settings Settings
	external *dir
	closed   bool

	mux sync.RWMutex
}

// Read reads the chunk data for the given location.
func (a *Anvil) Read(chunkX, chunkZ int32, read io.ReaderFrom) (n int64, err error) {
	c := ChunkPos{chunkX, chunkZ}
	var f *File
	if f, err = a.get(c.Region()); err == nil {
		if f == nil {
			return 0, chunkErr("read", c, ErrNotExist)
		}
		defer a.free(f)
		x, z := c.Local()
		n, err = f.Read(x, z, read)
	}
	return
}

// ReadChunk reads and decodes the chunk at the given location.
// If the chunk does not exist, exists is false and err is nil.
func (a *Anvil) ReadChunk(chunkX, chunkZ int32) (root nbt.Named, exists bool, err error) {
	c := ChunkPos{chunkX, chunkZ}
	var f *File
	if f, err = a.get(c.Region()); err == nil && f != nil {
		defer a.free(f)
		x, z := c.Local()
		root, exists, err = f.ReadChunk(x, z)
	}
	return
}

// Write writes the chunk data for the given location
func (a *Anvil) Write(chunkX, chunkZ int32, p []byte) (err error) {
	return a.modify(ChunkPos{chunkX, chunkZ}, func(f *File, x, z uint8) error { return f.Write(x, z, p) })
}

// WriteChunk encodes root and writes it to the given location.
func (a *Anvil) WriteChunk(chunkX, chunkZ int32, root nbt.Named) (err error) {
	return a.modify(ChunkPos{chunkX, chunkZ}, func(f *File, x, z uint8) error { return f.WriteChunk(x, z, root) })
}

// Remove removes the chunk at the given location.
func (a *Anvil) Remove(chunkX, chunkZ int32) (err error) {
	return a.modify(ChunkPos{chunkX, chunkZ}, func(f *File, x, z uint8) error { return f.Remove(x, z) })
}

func (a *Anvil) modify(c ChunkPos, fn func(f *File, x, z uint8) error) (err error) {
	if a.settings.ReadOnly {
		return chunkErr("write", c, ErrReadOnly)
	}
	var f *File
	if f, err = a.get(c.Region()); err == nil {
		defer a.free(f)
		x, z := c.Local()
		err = fn(f, x, z)
	}
	return
}

// Info gets information stored in the region header for the given chunk.
func (a *Anvil) Info(chunkX, chunkZ int32) (entry Entry, exists bool, err error) {
	c := ChunkPos{chunkX, chunkZ}
	var f *File
	if f, err = a.get(c.Region()); err == nil && f != nil {
		defer a.free(f)
		x, z := c.Local()
		entry, exists = f.Info(x, z)
	}
	return
}

// File opens the region file at rgX, rgZ.
// Callers must close the returned file for it to be returned to the cache.
// If the directory is read-only and the file does not exist this returns ErrNotExist.
func (a *Anvil) File(rgX, rgZ int32) (r Region, err error) {
	f, err := a.get(RegionPos{rgX, rgZ})
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotExist
	}
	return &cachedFile{File: f}, nil
}

// Regions returns the positions of all region files in the directory.
func (a *Anvil) Regions() (regions []RegionPos, err error) {
	infos, err := afero.ReadDir(a.settings.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap("anvil: unable to list region files", err)
	}

	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		var pos RegionPos
		if _, scanErr := fmt.Sscanf(info.Name(), a.settings.AnvilFmt, &pos.X, &pos.Z); scanErr != nil {
			continue
		}
		// only keep names the format produces, r.01.0.mca scans as region 1,0.
		if fmt.Sprintf(a.settings.AnvilFmt, pos.X, pos.Z) == info.Name() {
			regions = append(regions, pos)
		}
	}
	return regions, nil
}

// Close closes all cached region files.
// Files that are still in use are closed when they are released.
func (a *Anvil) Close() (err error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true

	if a.lru != nil {
		for a.lru.Len() > 0 {
			if _, v, ok := a.lru.RemoveOldest(); ok {
				if closeErr := v.(*File).Close(); err == nil {
					err = closeErr
				}
			}
		}
	}
	return
}

// get gets the region file for the given position.
// If the directory is read-only and the file does not exist, this returns nil
// without an error.
func (a *Anvil) get(rg RegionPos) (f *File, err error) {
	a.mux.RLock()
	if a.closed {
		a.mux.RUnlock()
		return nil, ErrClosed
	}
	f, ok := a.getFile(rg)
	a.mux.RUnlock()

	if ok {
		return f, nil
	}

	a.mux.Lock()
	defer a.mux.Unlock()
	// check if the file was opened while we were waiting for the mux
	if f, ok = a.getFile(rg); ok {
		return f, nil
	}

	if a.lru != nil {
		// check if the file is in the lru cache
		if v, ok := a.lru.Get(rg); ok {
			a.lru.Remove(rg)
			f = v.(*File)
		}
	}

	// file wasn't in the cache. read file from the disk
	if f == nil {
		filename := fmt.Sprintf(a.settings.AnvilFmt, rg.X, rg.Z)
		if a.settings.ReadOnly {
			if _, statErr := a.settings.fs.Stat(filename); os.IsNotExist(statErr) {
				return nil, nil
			}
		}

		var r reader
		var size int64
		if r, size, err = openFile(a.settings.fs, filename, a.settings); err != nil {
			return nil, err
		}
		if f, err = newFile(rg, r, size, a.settings.ReadOnly, a.external); err != nil {
			r.Close()
			return nil, err
		}
		f.cache = a
	}

	f.useCount.Add(1)
	a.inUse[rg] = f
	return f, nil
}

func (a *Anvil) free(f *File) (err error) {
	a.mux.RLock()
	newCount := f.useCount.Add(-1)
	a.mux.RUnlock()

	if newCount != 0 {
		return
	}

	a.mux.Lock()
	defer a.mux.Unlock()
	if f.useCount.Load() != 0 {
		return
	}

	delete(a.inUse, f.pos)
	if a.lru == nil || a.closed {
		// cache is disabled. close the file
		return f.Close()
	}

	// evict the oldest file from the lru if adding a new element will cause a element to be evicted
	// We do this to insure the file gets closed properly and to free all associated resources.
	// We cannot use EvictCallback since there is no way to handle error that occur while closing the file.
	if a.lru.Len() == a.settings.CacheSize {
		if _, old, ok := a.lru.RemoveOldest(); ok {
			if err = old.(*File).Close(); err != nil {
				err = errors.Wrap("anvil.Anvil: error occurred while evicting file", err)
			}
		}
	}

	if evicted := a.lru.Add(f.pos, f); evicted {
		// This should never happen since we manually evicted the oldest element
		panic("anvil.Anvil: File was incorrectly evicted")
	}
	return
}

func (a *Anvil) getFile(rg RegionPos) (f *File, ok bool) {
	f, ok = a.inUse[rg]
	if ok {
		f.useCount.Add(1)
	}
	return
}

// Open opens the given directory.
func Open(path string, opt ...Settings) (c *Anvil, err error) {
	if path, err = filepath.Abs(path); err == nil {
		var info os.FileInfo
		if info, err = fs.Stat(path); err == nil {
			if !info.IsDir() {
				return nil, errors.Error("anvil: Open: " + path + " is not a directory")
			}
			return OpenFs(afero.NewBasePathFs(fs, path), opt...)
		}
	}
	return
}

// OpenFs opens the given directory.
func OpenFs(fs afero.Fs, opt ...Settings) (c *Anvil, err error) {
	settings := getSettings(opt, fs)

	cache := Anvil{inUse: map[RegionPos]*File{}, settings: settings}
	cache.external = &dir{fs: fs, format: settings.ChunkFmt}

	if settings.CacheSize > 0 {
		if cache.lru, err = lru.NewLRU(settings.CacheSize, nil); err != nil {
			return nil, err
		}
	}

	return &cache, nil
}

func getSettings(s []Settings, fs afero.Fs) Settings {
	var settings = defaultSettings

	if len(s) == 1 {
		settings = s[0]

		if settings.CacheSize == 0 {
			settings.CacheSize = defaultSettings.CacheSize
		}

		if settings.AnvilFmt == "" {
			settings.AnvilFmt = defaultSettings.AnvilFmt
		}

		if settings.ChunkFmt == "" {
			settings.ChunkFmt = defaultSettings.ChunkFmt
		}
	}

	settings.fs = fs

	return settings
}
