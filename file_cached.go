package anvil

import (
	"io"
	"sync"

	"github.com/FireworkMC/anvil/v2/nbt"
)

// cachedFile a region file that is owned by an [Anvil].
// Closing it returns the file to the cache instead of closing it.
type cachedFile struct {
	*File

	closeMux sync.RWMutex
	closed   bool
}

// Close releases the file.
// This function can be called multiple times.
// This will block until all Read and Write calls return.
func (c *cachedFile) Close() (err error) {
	c.closeMux.Lock()
	defer c.closeMux.Unlock()

	if !c.closed {
		err = c.File.cache.free(c.File)
		c.closed = true
	}

	return
}

// Read reads the entry at x,z to the given `reader`.
// `reader` must not retain the [io.Reader] passed to it.
func (c *cachedFile) Read(x, z uint8, reader io.ReaderFrom) (n int64, err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return 0, ErrClosed
	}

	return c.File.Read(x, z, reader)
}

// ReadChunk reads and decodes the entry at x,z.
func (c *cachedFile) ReadChunk(x, z uint8) (root nbt.Named, exists bool, err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return root, false, ErrClosed
	}

	return c.File.ReadChunk(x, z)
}

// Write updates the data for the entry at x,z to the given buffer.
func (c *cachedFile) Write(x, z uint8, b []byte) (err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return ErrClosed
	}

	return c.File.Write(x, z, b)
}

// WriteChunk encodes root and writes it to the entry at x,z.
func (c *cachedFile) WriteChunk(x, z uint8, root nbt.Named) (err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return ErrClosed
	}

	return c.File.WriteChunk(x, z, root)
}

// Remove removes the given entry from the file.
func (c *cachedFile) Remove(x, z uint8) (err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return ErrClosed
	}

	return c.File.Remove(x, z)
}

// CompressionMethod sets the compression method to be used by the writer.
func (c *cachedFile) CompressionMethod(m CompressMethod) (err error) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return ErrClosed
	}

	return c.File.CompressionMethod(m)
}

// Info gets information stored in the region header for the given entry.
func (c *cachedFile) Info(x, z uint8) (entry Entry, exists bool) {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return
	}
	return c.File.Info(x, z)
}

// Chunks returns the absolute positions of all chunks present in the file.
func (c *cachedFile) Chunks() []ChunkPos {
	c.closeMux.RLock()
	defer c.closeMux.RUnlock()
	if c.closed {
		return nil
	}
	return c.File.Chunks()
}
