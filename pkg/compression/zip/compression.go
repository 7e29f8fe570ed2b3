// Package zip packs a single save file into a zip container.
package zip

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"io"
)

const Ext = ".zip"

// MaxEntrySize caps what Read inflates.
const MaxEntrySize = 64 << 20

var (
	ErrorNotFound    = errors.New("not found")
	ErrorInvalidName = errors.New("invalid name")
	ErrorTooLarge    = errors.New("entry is too large")
)

// Compress compresses the bytes (a single file) with a name specified into a ZIP file (as bytes).
func Compress(data []byte, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrorInvalidName
	}
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	z, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err = z.Write(data); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read reads the first file of a ZIP archive from the bytes array.
// It will return un-compressed data and the name of that file.
func Read(zd []byte) ([]byte, string, error) {
	r, err := zip.NewReader(bytes.NewReader(zd), int64(len(zd)))
	if err != nil {
		return nil, "", err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", err
		}
		b, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
		_ = rc.Close()
		if err != nil {
			return nil, "", err
		}
		if len(b) > MaxEntrySize {
			return nil, "", ErrorTooLarge
		}
		return b, f.FileInfo().Name(), nil
	}
	return nil, "", ErrorNotFound
}
