package nbt

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"github.com/valyala/bytebufferpool"
	"github.com/yehan2002/errors"
)

// Unpack reads a stand-alone NBT file from r.
// Gzip and zlib compressed input is decompressed; anything else is returned as is.
// This works because the first byte of an uncompressed document is a kind byte
// and never looks like the first byte of a gzip or zlib stream.
func Unpack(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap("nbt: unable to read file", err)
	}

	src := io.Reader(br)
	switch {
	case len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(br); err != nil {
			return nil, errors.Wrap("nbt: invalid gzip stream", err)
		}
		defer zr.Close()
		src = zr
	case len(magic) == 2 && magic[0] == 0x78 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0:
		var zr io.ReadCloser
		if zr, err = zlib.NewReader(br); err != nil {
			return nil, errors.Wrap("nbt: invalid zlib stream", err)
		}
		defer zr.Close()
		src = zr
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err = buf.ReadFrom(src); err != nil {
		return nil, errors.Wrap("nbt: unable to decompress file", err)
	}
	return append([]byte(nil), buf.B...), nil
}

// ReadFile reads every document stored in the named file.
func ReadFile(fs afero.Fs, name string, opts ...DecodeOption) ([]Named, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.Wrap("nbt: unable to open file", err)
	}
	defer f.Close()

	b, err := Unpack(f)
	if err != nil {
		return nil, err
	}
	return DecodeAll(b, opts...)
}

// WriteFile writes the given documents to the named file.
// If compress is set the file is gzip compressed, which is what the game
// expects for level.dat and player data.
func WriteFile(fs afero.Fs, name string, compress bool, roots ...Named) (err error) {
	var b []byte
	if b, err = EncodeAll(roots...); err != nil {
		return err
	}

	var f afero.File
	if f, err = fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666); err != nil {
		return errors.Wrap("nbt: unable to create file", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = errors.Wrap("nbt: unable to close file", closeErr)
		}
	}()

	if !compress {
		_, err = f.Write(b)
		return errors.Wrap("nbt: unable to write file", err)
	}

	zw := gzip.NewWriter(f)
	if _, err = zw.Write(b); err == nil {
		err = zw.Close()
	}
	return errors.Wrap("nbt: unable to write file", err)
}
