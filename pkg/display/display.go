// Package display presents finished frames on the host.
package display

import (
	"fmt"

	"github.com/mdfront/mdfront/pkg/engine"
)

// Frame is an ARGB8888 picture, lines are engine.MaxScanlineWidth apart.
type Frame struct {
	Pix           []uint32
	Width, Height int
}

func NewFrame() *Frame {
	return &Frame{Pix: make([]uint32, engine.MaxScanlineWidth*engine.MaxScanlines)}
}

func (f *Frame) Line(y int) []uint32 {
	o := y * engine.MaxScanlineWidth
	return f.Pix[o : o+engine.MaxScanlineWidth]
}

func (f *Frame) At(x, y int) uint32 { return f.Pix[y*engine.MaxScanlineWidth+x] }

type Display interface {
	Present(f *Frame) error
	Close() error
}

// Headless shows nothing.
type Headless struct{ frames uint64 }

func (h *Headless) Present(*Frame) error { h.frames++; return nil }
func (h *Headless) Close() error         { return nil }
func (h *Headless) Frames() uint64       { return h.frames }

const (
	Terminal = "terminal"
	None     = "headless"
)

// ErrUnknown is returned for a bad display name.
type ErrUnknown string

func (e ErrUnknown) Error() string { return fmt.Sprintf("unknown display %q", string(e)) }
