package anvil

import (
	"fmt"

	"github.com/yehan2002/errors"
)

const (
	// ErrExternal returned if the chunk is stored in an external file.
	// This error is only returned if the region file was opened as a single file.
	ErrExternal = errors.Error("anvil: chunk is in separate file")
	// ErrNotExist returned if the chunk does not exist.
	ErrNotExist = errors.Error("anvil: chunk does not exist")
	// ErrCorrupted the given file contains invalid/corrupted data
	ErrCorrupted = errors.Error("anvil: corrupted file")
	// ErrTruncated the file is too short to contain a region header.
	ErrTruncated = errors.Error("anvil: truncated header")
	// ErrUnsupportedCompression the chunk uses an unknown compression scheme.
	ErrUnsupportedCompression = errors.Error("anvil: unsupported compression method")
	// ErrDecompression the compressed chunk data is malformed.
	ErrDecompression = errors.Error("anvil: unable to decompress chunk")
	// ErrClosed the given file has already been closed
	ErrClosed = errors.Error("anvil: file closed")
	// ErrReadOnly the file was opened in readonly mode.
	ErrReadOnly = errors.Error("anvil: file is opened in read-only mode")
)

// ChunkError an error that occurred while reading or writing a single chunk.
type ChunkError struct {
	// X, Z the absolute position of the chunk.
	X, Z int32
	// Op the operation that failed. Either "read" or "write".
	Op  string
	Err error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("anvil: %s chunk (%d, %d): %s", e.Op, e.X, e.Z, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

func chunkErr(op string, c ChunkPos, err error) error {
	if err == nil {
		return nil
	}
	return &ChunkError{X: c.X, Z: c.Z, Op: op, Err: err}
}
