package media

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
	"github.com/spf13/afero"
)

var ErrNoROMFile = errors.New("no cartridge file found in archive")

var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06}
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21}
)

type format int

const (
	formatRaw format = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

func detect(header []byte) format {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}
	return formatRaw
}

// read returns the cartridge bytes of path, unpacking archives,
// and the archive entry name if there was one.
func (l *Loader) read(path string) ([]byte, string, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("unable to read file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("unable to seek to start of file: %w", err)
	}

	switch detect(header[:n]) {
	case formatZIP:
		return l.fromZIP(f)
	case format7z:
		return l.from7z(f)
	case formatGzip:
		return l.fromGzip(f, path)
	case formatRAR:
		return l.fromRAR(f)
	}
	data, err := limitedRead(f)
	return data, "", err
}

func (l *Loader) isROMFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range l.extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func size(f afero.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (l *Loader) fromZIP(f afero.File) ([]byte, string, error) {
	sz, err := size(f)
	if err != nil {
		return nil, "", err
	}
	r, err := zip.NewReader(f, sz)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open zip: %w", err)
	}
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() || !l.isROMFile(zf.Name) {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s in archive: %w", zf.Name, err)
		}
		data, err := limitedRead(rc)
		_ = rc.Close()
		return data, filepath.Base(zf.Name), err
	}
	return nil, "", ErrNoROMFile
}

func (l *Loader) from7z(f afero.File) ([]byte, string, error) {
	sz, err := size(f)
	if err != nil {
		return nil, "", err
	}
	r, err := sevenzip.NewReader(f, sz)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open 7z: %w", err)
	}
	for _, sf := range r.File {
		if sf.FileInfo().IsDir() || !l.isROMFile(sf.Name) {
			continue
		}
		rc, err := sf.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s in archive: %w", sf.Name, err)
		}
		data, err := limitedRead(rc)
		_ = rc.Close()
		return data, filepath.Base(sf.Name), err
	}
	return nil, "", ErrNoROMFile
}

func (l *Loader) fromRAR(f afero.File) ([]byte, string, error) {
	r, err := rardecode.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open rar: %w", err)
	}
	for {
		h, err := r.Next()
		if err == io.EOF {
			return nil, "", ErrNoROMFile
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read rar entry: %w", err)
		}
		if h.IsDir || !l.isROMFile(h.Name) {
			continue
		}
		data, err := limitedRead(r)
		return data, filepath.Base(h.Name), err
	}
}

// fromGzip reads a plain .gz cartridge or the first cartridge of a .tar.gz.
func (l *Loader) fromGzip(f afero.File, path string) ([]byte, string, error) {
	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".tar.gz") && !strings.HasSuffix(lower, ".tgz") {
		data, err := limitedRead(gr)
		return data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), err
	}

	tr := tar.NewReader(gr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil, "", ErrNoROMFile
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read tar entry: %w", err)
		}
		if h.Typeflag != tar.TypeReg || !l.isROMFile(h.Name) {
			continue
		}
		data, err := limitedRead(tr)
		return data, filepath.Base(h.Name), err
	}
}

// limitedRead reads up to one byte past the cartridge limit
// so oversized files are refused without loading them whole.
func limitedRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxCartridgeSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read file: %w", err)
	}
	if len(data) > MaxCartridgeSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
