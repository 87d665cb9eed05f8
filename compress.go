package anvil

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// CompressMethod the compression method used for compressing chunk data
type CompressMethod byte

// DefaultCompression the default compression method to be used
const DefaultCompression = CompressionZlib

// supported methods
const (
	CompressionGzip CompressMethod = 1 + iota
	CompressionZlib
	CompressionNone

	externalMask = 0x80
)

func (c CompressMethod) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("unsupported(%d)", byte(c))
	}
}

// Valid returns if the compression method is supported.
func (c CompressMethod) Valid() bool { return c >= CompressionGzip && c <= CompressionNone }

type resetReader interface {
	io.ReadCloser
	Reset(io.Reader) error
}

// zlibReader wraps the zlib reader so it can be reset without a dictionary.
type zlibReader struct{ io.ReadCloser }

func (z *zlibReader) Reset(r io.Reader) error { return z.ReadCloser.(zlib.Resetter).Reset(r, nil) }

var (
	gzipReaders = decompressorPool{open: func(src io.Reader) (resetReader, error) { return gzip.NewReader(src) }}
	zlibReaders = decompressorPool{open: func(src io.Reader) (resetReader, error) {
		r, err := zlib.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &zlibReader{r}, nil
	}}
)

// decompressorPool a pool of readers that can be used to decompress data.
type decompressorPool struct {
	sync.Pool
	open func(io.Reader) (resetReader, error)
}

func (d *decompressorPool) get(src io.Reader) (io.ReadCloser, error) {
	var r resetReader
	var err error
	if v := d.Pool.Get(); v != nil {
		r = v.(resetReader)
		if err = r.Reset(src); err != nil {
			d.Pool.Put(r)
		}
	} else {
		r, err = d.open(src)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return &decompressor{r: r, pool: d}, nil
}

// decompressor returns a reader that decompresses src.
// Callers must close the returned reader after use for it to be reused.
func (c CompressMethod) decompressor(src io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzipReaders.get(src)
	case CompressionZlib:
		return zlibReaders.get(src)
	case CompressionNone:
		return io.NopCloser(src), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, byte(c))
}

// decompressor reports read errors as ErrDecompression and returns the
// underlying reader to its pool when closed.
type decompressor struct {
	r    resetReader
	pool *decompressorPool
}

func (d *decompressor) Read(p []byte) (n int, err error) {
	if d.r == nil {
		return 0, ErrClosed
	}
	if n, err = d.r.Read(p); err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return
}

func (d *decompressor) Close() (err error) {
	if d.r != nil {
		err = d.r.Close()
		d.pool.Put(d.r)
		d.r = nil
	}
	return
}

// compressor returns a compressor for the compression method.
// Callers should reuse the returned compressor and should only
// create a new one when the compression method changes.
func (c CompressMethod) compressor() (compressor, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriter(io.Discard), nil
	case CompressionZlib:
		return zlib.NewWriter(io.Discard), nil
	case CompressionNone:
		return &noopCompressor{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, byte(c))
}

type compressor interface {
	io.WriteCloser
	Reset(io.Writer)
}

// noopCompressor a compressor that does nothing.
type noopCompressor struct{ dst io.Writer }

var _ compressor = &noopCompressor{}

func (n *noopCompressor) Write(p []byte) (int, error) { return n.dst.Write(p) }
func (n *noopCompressor) Close() error                { return nil }
func (n *noopCompressor) Reset(w io.Writer)           { n.dst = w }
