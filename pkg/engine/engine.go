// Package engine is the contract between the front end and an emulation core.
//
// The core drives a frame and calls back into the front end for everything
// that touches the host: colours, pixels, input, audio, disc access,
// save files and logging.
package engine

import "github.com/mdfront/mdfront/pkg/region"

const (
	// TotalColours is 4 palette lines of 16 colours, in normal, shadow and highlight.
	TotalColours = 16 * 4 * 3

	MaxScanlineWidth = 320
	MaxScanlines     = 480

	// SectorWords is the size of one data sector in 16-bit words.
	SectorWords = 2048 / 2

	Players = 2
)

type Button int

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonA
	ButtonB
	ButtonC
	ButtonX
	ButtonY
	ButtonZ
	ButtonStart
	ButtonMode
	ButtonMax
)

var buttonNames = [ButtonMax]string{"up", "down", "left", "right", "a", "b", "c", "x", "y", "z", "start", "mode"}

func (b Button) String() string {
	if b < 0 || b >= ButtonMax {
		return "unknown"
	}
	return buttonNames[b]
}

// ButtonByName is the reverse of Button.String.
func ButtonByName(name string) (Button, bool) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), true
		}
	}
	return ButtonMax, false
}

// CDDAMode is how a CD audio track is played.
type CDDAMode int

const (
	PlayAll CDDAMode = iota
	PlayOnce
	PlayRepeat
)

// Generator fills buf with frames of audio.
type Generator func(buf []int16, frames int)

// Callbacks is implemented by the front end and held by the engine.
// All calls happen on the frame loop goroutine, inside Iterate.
type Callbacks interface {
	ColourUpdated(index int, colour uint16)
	ScanlineRendered(scanline int, pixels []byte, left, right, width, height int)
	InputRequested(player int, button Button) bool

	FMAudioToBeGenerated(frames int, generate Generator)
	PSGAudioToBeGenerated(frames int, generate Generator)
	PCMAudioToBeGenerated(frames int, generate Generator)
	CDDAAudioToBeGenerated(frames int, generate Generator)

	CDSeeked(sector uint32)
	CDSectorRead(buf []uint16)
	CDTrackSeeked(track uint16, mode CDDAMode) bool
	CDAudioRead(buf []int16, frames int) int

	SaveFileOpenedForReading(name string) bool
	// SaveFileRead returns the next byte or -1 when there is no more data.
	SaveFileRead() int
	SaveFileOpenedForWriting(name string) bool
	SaveFileWritten(b byte)
	SaveFileClosed()
	SaveFileRemoved(name string) bool
	SaveFileSizeObtained(name string) (size int64, ok bool)

	Log(msg string)
}

// Engine is the emulation core as seen by the front end.
type Engine interface {
	SetCallbacks(cb Callbacks)
	Configure(conf region.Config)
	// SetCartridge hands over a normalized cartridge image,
	// nil detaches the current one.
	SetCartridge(rom []byte)
	Reset(cdBoot bool)
	// Iterate runs exactly one frame.
	Iterate()

	// StateSize is the fixed size of the engine state.
	StateSize() int
	SaveState(dst []byte)
	LoadState(src []byte)

	// SaveRAM is the live external RAM of the cartridge, sliced to its used size.
	SaveRAM() (buf []byte, nonVolatile bool)
}

// Disc is the disc reader as seen by the front end and the engine callbacks.
type Disc interface {
	Open(path string) error
	Close()
	IsOpen() bool
	// IsMegaCDGame checks the boot sector signature.
	IsMegaCDGame() bool
	SeekToSector(sector uint32) bool
	ReadSector(buf []uint16)
	PlayAudio(track uint16, mode CDDAMode) bool
	ReadAudio(buf []int16, frames int) int

	StateSize() int
	SaveState(dst []byte)
	LoadState(src []byte)
}
