// Package media loads cartridge and disc images and decides how to boot them.
package media

import (
	"path/filepath"
	"strings"
)

type Kind int

const (
	Cartridge Kind = iota
	Disc
)

func (k Kind) String() string {
	if k == Disc {
		return "disc"
	}
	return "cartridge"
}

// Image is the loaded program. Exactly one is active per session.
type Image struct {
	Kind Kind
	// Path is the file the image was loaded from,
	// save file names are derived from it.
	Path string
	// Entry is the file name inside an archive, if any.
	Entry string

	rom      []byte
	fileSize int
	region   string
	header   bool
}

func (i *Image) IsDisc() bool           { return i.Kind == Disc }
func (i *Image) RegionFragment() string { return i.region }

// HasRegionHeader tells whether the file reaches the region field at all.
func (i *Image) HasRegionHeader() bool { return i.header }

// ROM is the normalized cartridge buffer, nil for discs or released images.
func (i *Image) ROM() []byte { return i.rom }

// Size is the engine visible (padded) size.
func (i *Image) Size() int { return len(i.rom) }

// FileSize is the size before padding.
func (i *Image) FileSize() int { return i.fileSize }

// Release drops the cartridge buffer.
func (i *Image) Release() { i.rom = nil }

// Stem is the base file name with its final extension removed.
func (i *Image) Stem() string { return Stem(i.Path) }

// Stem strips the directory and the final extension of a path.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
