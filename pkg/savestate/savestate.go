// Package savestate encodes full snapshots of a running session.
//
// The file is a fixed 8-byte magic token followed by the engine state,
// the disc reader state and the colour palette, each of a fixed size.
// There is no version field: a file is valid when its magic and total
// length match.
package savestate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic opens every save state file.
const Magic = "CMDEFSS\x00"

var (
	ErrMagic  = errors.New("save state magic mismatch")
	ErrShort  = errors.New("save state is truncated")
	ErrLength = errors.New("save state has a wrong length")
	ErrLayout = errors.New("snapshot does not match the layout")
)

// Format is a save state file format.
type Format interface {
	// Size is the exact file size.
	Size() int
	Encode(w io.Writer, s *Snapshot) error
	Decode(r io.Reader, size int64, s *Snapshot) error
}

// Snapshot holds the backup buffers a state is made of.
type Snapshot struct {
	Engine  []byte
	Reader  []byte
	Palette []uint32
}

// Layout is the fixed, unversioned format.
type Layout struct {
	Engine  int
	Reader  int
	Colours int
}

var _ Format = Layout{}

// NewSnapshot allocates backup buffers for the layout.
func (l Layout) NewSnapshot() *Snapshot {
	return &Snapshot{
		Engine:  make([]byte, l.Engine),
		Reader:  make([]byte, l.Reader),
		Palette: make([]uint32, l.Colours),
	}
}

func (l Layout) Size() int { return len(Magic) + l.Engine + l.Reader + 4*l.Colours }

func (l Layout) fits(s *Snapshot) bool {
	return s != nil && len(s.Engine) == l.Engine && len(s.Reader) == l.Reader && len(s.Palette) == l.Colours
}

// Encode writes the magic and the three buffers.
func (l Layout) Encode(w io.Writer, s *Snapshot) error {
	if !l.fits(s) {
		return ErrLayout
	}
	cw := &countWriter{w: w}
	_, _ = io.WriteString(cw, Magic)
	_, _ = cw.Write(s.Engine)
	_, _ = cw.Write(s.Reader)
	_ = binary.Write(cw, binary.LittleEndian, s.Palette)
	if cw.err != nil {
		return cw.err
	}
	if cw.n != int64(l.Size()) {
		return fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, cw.n, l.Size())
	}
	return nil
}

// Decode reads a state of the given file size into s.
// On error s may be partially filled, so s must not be live state.
func (l Layout) Decode(r io.Reader, size int64, s *Snapshot) error {
	if !l.fits(s) {
		return ErrLayout
	}
	if size < int64(l.Size()) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShort, size, l.Size())
	}
	if size != int64(l.Size()) {
		return fmt.Errorf("%w: %d, want %d", ErrLength, size, l.Size())
	}

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return short(err)
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return ErrMagic
	}
	if _, err := io.ReadFull(r, s.Engine); err != nil {
		return short(err)
	}
	if _, err := io.ReadFull(r, s.Reader); err != nil {
		return short(err)
	}
	if err := binary.Read(r, binary.LittleEndian, s.Palette); err != nil {
		return short(err)
	}
	return nil
}

// Marshal is Encode into memory.
func (l Layout) Marshal(s *Snapshot) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, l.Size()))
	if err := l.Encode(buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from memory.
func (l Layout) Unmarshal(data []byte, s *Snapshot) error {
	return l.Decode(bytes.NewReader(data), int64(len(data)), s)
}

// CopyTo copies all buffers of s into dst of the same layout.
func (s *Snapshot) CopyTo(dst *Snapshot) {
	copy(dst.Engine, s.Engine)
	copy(dst.Reader, s.Reader)
	copy(dst.Palette, s.Palette)
}

func short(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShort
	}
	return err
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
