package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/FireworkMC/anvil/v2/nbt"
	"github.com/spf13/afero"
	"github.com/yehan2002/is/v2"
)

type fileTest struct{}

func TestFile(t *testing.T) { is.Suite(t, &fileTest{}) }

// testChunk is a compound with a single byte x=127.
var testChunk = []byte{0x0A, 0x00, 0x00, 0x01, 0x00, 0x01, 'x', 0x7F, 0x00}

// regionWith returns a region file with a single chunk at 0,0 that is stored at section 2.
func regionWith(payload []byte, scheme byte, sectors uint8, fileSections int) []byte {
	b := make([]byte, fileSections*SectionSize)
	binary.BigEndian.PutUint32(b, 2<<8|uint32(sectors))
	if len(b) >= HeaderSize+entryHeaderSize {
		binary.BigEndian.PutUint32(b[HeaderSize:], uint32(len(payload)+1))
		b[HeaderSize+4] = scheme
		copy(b[HeaderSize+entryHeaderSize:], payload)
	}
	return b
}

func newTestFile(is is.Is, b []byte) *File {
	f, err := NewFile(bytes.NewReader(b), int64(len(b)), true)
	is(err == nil, "unexpected error while opening file: %s", err)
	return f
}

func (*fileTest) TestAbsent(is is.Is) {
	f := newTestFile(is, make([]byte, HeaderSize))
	defer f.Close()

	root, exists, err := f.ReadChunk(3, 4)
	is(err == nil && !exists, "absent chunks are not an error: %v", err)
	is(root.Tag == nil, "absent chunks should not have a value")

	_, err = f.Read(3, 4, &bytes.Buffer{})
	is(errors.Is(err, ErrNotExist), "expected ErrNotExist, got %v", err)
	is(len(f.Chunks()) == 0, "empty file should not contain any chunks")
}

func (*fileTest) TestUncompressed(is is.Is) {
	f := newTestFile(is, regionWith(testChunk, byte(CompressionNone), 1, 3))
	defer f.Close()

	root, exists, err := f.ReadChunk(0, 0)
	is(err == nil && exists, "unexpected error: %v", err)
	c, err := nbt.AsCompound(root.Tag)
	is(err == nil, "root should be a compound")
	v, err := c.GetByte("x")
	is(err == nil && v == 127, "incorrect value %d", v)

	var buf bytes.Buffer
	n, err := f.Read(0, 0, &buf)
	is(err == nil, "unexpected error: %s", err)
	is(n == int64(len(testChunk)) && bytes.Equal(buf.Bytes(), testChunk), "incorrect raw data")
}

func (*fileTest) TestCompressed(is is.Is) {
	for _, method := range compressionMethods {
		c, err := method.compressor()
		is(err == nil, "unexpected error: %s", err)
		var compressed bytes.Buffer
		c.Reset(&compressed)
		c.Write(testChunk)
		c.Close()

		f := newTestFile(is, regionWith(compressed.Bytes(), byte(method), 1, 3))
		root, exists, err := f.ReadChunk(0, 0)
		is(err == nil && exists, "%s: unexpected error: %v", method, err)
		v, _ := root.Tag.(nbt.Compound).GetByte("x")
		is(v == 127, "%s: incorrect value %d", method, v)
		f.Close()
	}
}

func (*fileTest) TestBounds(is is.Is) {
	// the entry claims a section that is not in the file
	f := newTestFile(is, regionWith(nil, 0, 1, 2))
	_, _, err := f.ReadChunk(0, 0)
	is(errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
	f.Close()

	// the entry claims 5 sections, the file only has 1 after the header
	f = newTestFile(is, regionWith(testChunk, byte(CompressionNone), 5, 3))
	_, _, err = f.ReadChunk(0, 0)
	is(errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
	f.Close()

	// the chunk length is larger than the entry
	b := regionWith(testChunk, byte(CompressionNone), 1, 3)
	binary.BigEndian.PutUint32(b[HeaderSize:], SectionSize)
	f = newTestFile(is, b)
	_, _, err = f.ReadChunk(0, 0)
	is(errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
	f.Close()

	// zero length
	binary.BigEndian.PutUint32(b[HeaderSize:], 0)
	f = newTestFile(is, b)
	_, _, err = f.ReadChunk(0, 0)
	is(errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
	f.Close()
}

func (*fileTest) TestUnsupportedCompression(is is.Is) {
	f := newTestFile(is, regionWith(testChunk, 4, 1, 3))
	defer f.Close()

	_, _, err := f.ReadChunk(0, 0)
	is(errors.Is(err, ErrUnsupportedCompression), "expected ErrUnsupportedCompression, got %v", err)

	var chunkErr *ChunkError
	is(errors.As(err, &chunkErr), "expected a *ChunkError")
	is(chunkErr.X == 0 && chunkErr.Z == 0 && chunkErr.Op == "read", "incorrect error %+v", chunkErr)
}

func (*fileTest) TestDecompressionFailure(is is.Is) {
	for _, method := range []CompressMethod{CompressionGzip, CompressionZlib} {
		f := newTestFile(is, regionWith([]byte{1, 2, 3, 4, 5, 6, 7, 8}, byte(method), 1, 3))
		_, _, err := f.ReadChunk(0, 0)
		is(errors.Is(err, ErrDecompression), "%s: expected ErrDecompression, got %v", method, err)
		f.Close()
	}
}

func (*fileTest) TestSyntaxError(is is.Is) {
	f := newTestFile(is, regionWith([]byte{0x0A, 0x00, 0x00, 0x0D}, byte(CompressionNone), 1, 3))
	defer f.Close()

	_, _, err := f.ReadChunk(0, 0)
	var syntaxErr *nbt.SyntaxError
	is(errors.As(err, &syntaxErr), "expected a *nbt.SyntaxError, got %v", err)
	is(errors.Is(err, nbt.ErrInvalidTagKind), "expected ErrInvalidTagKind, got %v", err)
}

func (*fileTest) TestReadOnly(is is.Is) {
	f := newTestFile(is, regionWith(testChunk, byte(CompressionNone), 1, 3))
	defer f.Close()

	is(errors.Is(f.Write(0, 0, []byte{1}), ErrReadOnly), "writes should fail")
	is(errors.Is(f.Remove(0, 0), ErrReadOnly), "removes should fail")
}

func (*fileTest) TestTruncatedHeader(is is.Is) {
	_, err := NewFile(bytes.NewReader(make([]byte, 100)), 100, true)
	is(errors.Is(err, ErrTruncated), "expected ErrTruncated, got %v", err)
}

func (*fileTest) TestOverlap(is is.Is) {
	b := regionWith(testChunk, byte(CompressionNone), 1, 3)
	binary.BigEndian.PutUint32(b[4:], 2<<8|1)
	_, err := NewFile(bytes.NewReader(b), int64(len(b)), true)
	is(errors.Is(err, ErrCorrupted), "expected ErrCorrupted, got %v", err)
}

func (*fileTest) TestChunks(is is.Is) {
	fs := afero.NewMemMapFs()
	f, err := OpenFileFs(fs, "/world/region/r.1.-1.mca", false)
	is(err == nil, "unexpected error: %s", err)
	defer f.Close()

	is(f.Pos() == RegionPos{1, -1}, "incorrect region position %v", f.Pos())
	is(f.Write(3, 0, []byte{1}) == nil, "unexpected error")
	is(f.Write(0, 2, []byte{2}) == nil, "unexpected error")
	is.Equal(f.Chunks(), []ChunkPos{{35, -32}, {32, -30}}, "incorrect chunk positions")
}

func (*fileTest) TestTimestamp(is is.Is) {
	defer func(old func() time.Time) { now = old }(now)
	now = func() time.Time { return time.Unix(1700000000, 0) }

	fs := afero.NewMemMapFs()
	f, err := OpenFileFs(fs, "/r.0.0.mca", false)
	is(err == nil, "unexpected error: %s", err)
	is(f.Write(1, 1, []byte{1}) == nil, "unexpected error")
	f.Close()

	f, err = OpenFileFs(fs, "/r.0.0.mca", true)
	is(err == nil, "unexpected error: %s", err)
	defer f.Close()
	entry, exists := f.Info(1, 1)
	is(exists && entry.Timestamp() == 1700000000, "incorrect timestamp %d", entry.Timestamp())
}

func (*fileTest) TestClose(is is.Is) {
	f := newTestFile(is, regionWith(testChunk, byte(CompressionNone), 1, 3))
	is(f.Close() == nil, "unexpected error")
	is(errors.Is(f.Close(), ErrClosed), "closing twice should fail")

	_, _, err := f.ReadChunk(0, 0)
	is(errors.Is(err, ErrClosed), "expected ErrClosed, got %v", err)
	_, exists := f.Info(0, 0)
	is(!exists, "closed files have no entries")
}

func (*fileTest) TestParseRegionName(is is.Is) {
	pos, err := ParseRegionName("r.-12.7.mca")
	is(err == nil && pos == RegionPos{-12, 7}, "incorrect position %v: %v", pos, err)
	pos, err = ParseRegionName("r.0.0.mcr")
	is(err == nil && pos == RegionPos{}, "incorrect position %v: %v", pos, err)

	for _, name := range []string{"r.0.mca", "c.0.0.mcc", "r.a.0.mca", "r.99999999999.0.mca", "level.dat"} {
		_, err = ParseRegionName(name)
		is(err != nil, "%q should not be a valid name", name)
	}
}

func (*fileTest) TestPositions(is is.Is) {
	c := ChunkPos{-1, 33}
	is(c.Region() == RegionPos{-1, 1}, "incorrect region %v", c.Region())
	x, z := c.Local()
	is(x == 31 && z == 1, "incorrect local position %d,%d", x, z)
	is(c.Region().Chunk(x, z) == c, "Chunk should be the inverse of Local")
}
