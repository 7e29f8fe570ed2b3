package media

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxCartridgeSize is the cartridge address space of the console.
	MaxCartridgeSize = 0x800000

	regionOffset = 0x1F0
	regionSize   = 3
)

var (
	ErrEmpty    = errors.New("cartridge is empty")
	ErrTooLarge = errors.New("cartridge exceeds 8 MiB")
)

// NewCartridge makes a cartridge image out of raw file bytes.
// The data is copied, so the returned image exclusively owns its buffer.
func NewCartridge(path string, data []byte) (*Image, error) {
	if len(data) < 1 {
		return nil, ErrEmpty
	}
	if len(data) > MaxCartridgeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	rom := make([]byte, len(data)+len(data)%2)
	copy(rom, data)

	img := &Image{Kind: Cartridge, Path: path, rom: rom, fileSize: len(data)}
	if len(data) >= regionOffset+regionSize {
		img.header = true
		img.region = fragment(rom[regionOffset : regionOffset+regionSize])
	}
	Swap16(rom)
	return img, nil
}

// fragment reads a header field the way a C string would be read.
func fragment(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

// Swap16 exchanges the bytes of every 16-bit word in place.
// The file stores words big-endian, the engine wants them in host order.
// A trailing odd byte is left alone.
func Swap16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}
