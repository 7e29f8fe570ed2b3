// Package nullcore is a small deterministic engine.
//
// It draws a test pattern, plays a tone and moves a cursor with the pad.
// It drives every front end callback the way a real core does, which makes
// it useful for tests and for running the front end without a core.
package nullcore

import (
	"encoding/binary"
	"fmt"

	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/region"
)

const (
	MaxSRAM = 0x10000
	// BRAMSize is the internal backup RAM of the disc unit.
	BRAMSize = 0x2000
	BRAMFile = "internal.brm"

	sampleRate = 48000
	width      = engine.MaxScanlineWidth
	headerSize = 32

	stateSize = headerSize + MaxSRAM + BRAMSize
)

var _ engine.Engine = (*Core)(nil)

type state struct {
	frame    uint32
	x, y     int16
	phase    uint32
	audioAcc uint32
	noise    uint32
	buttons  uint32
	cdBoot   bool
	bramDirt bool
	sram     [MaxSRAM]byte
	bram     [BRAMSize]byte
}

type Core struct {
	cb   engine.Callbacks
	conf region.Config

	rom      []byte
	sramSize int
	sramNV   bool

	st     state
	pixels [width]byte
	sector [engine.SectorWords]uint16
}

func New() *Core { return &Core{} }

func (c *Core) SetCallbacks(cb engine.Callbacks) { c.cb = cb }
func (c *Core) Configure(conf region.Config)     { c.conf = conf }
func (c *Core) StateSize() int                   { return stateSize }

// SetCartridge takes the rom in 16-bit native order,
// the save RAM is described at 0x1B0 of the header.
func (c *Core) SetCartridge(rom []byte) {
	c.rom = rom
	c.sramSize, c.sramNV = sramInfo(rom)
	clear(c.st.sram[:])
}

func (c *Core) SaveRAM() ([]byte, bool) {
	return c.st.sram[:c.sramSize], c.sramNV && c.sramSize > 0
}

// header byte at i in file order
func at(rom []byte, i int) byte { return rom[i^1] }

func sramInfo(rom []byte) (int, bool) {
	if len(rom) < 0x1BC || at(rom, 0x1B0) != 'R' || at(rom, 0x1B1) != 'A' {
		return 0, false
	}
	be32 := func(o int) uint32 {
		return uint32(at(rom, o))<<24 | uint32(at(rom, o+1))<<16 | uint32(at(rom, o+2))<<8 | uint32(at(rom, o+3))
	}
	start, end := be32(0x1B4), be32(0x1B8)
	if end < start {
		return 0, false
	}
	return int(min(end-start+1, MaxSRAM)), at(rom, 0x1B2)&0x40 != 0
}

func (c *Core) Reset(cdBoot bool) {
	sram := c.st.sram
	c.st = state{cdBoot: cdBoot, noise: 1, x: width / 2, y: 100, sram: sram}
	c.logf("reset, cd boot %v, %v", cdBoot, c.conf)

	for i := 0; i < engine.TotalColours; i++ {
		c.cb.ColourUpdated(i, colour(i))
	}
	if cdBoot {
		c.cb.CDSeeked(0)
		c.cb.CDSectorRead(c.sector[:])
		c.loadBRAM()
	}
}

// colour is a 0x0BGR value of the palette entry
func colour(i int) uint16 {
	v := uint16(i & 0xF)
	switch i / 64 {
	case 1: // shadow
		v >>= 1
	case 2: // highlight
		v = 8 + v>>1
	}
	line := (i / 16) % 4
	r, g, b := v, v, v
	switch line {
	case 1:
		g, b = 0, 0
	case 2:
		r, b = 0, 0
	case 3:
		r, g = 0, 0
	}
	return b<<8 | g<<4 | r
}

func (c *Core) lines() int {
	if c.conf.Standard == region.PAL {
		return 240
	}
	return 224
}

func (c *Core) Iterate() {
	c.input()
	c.video()
	c.audio()
	if c.st.cdBoot && c.st.frame%600 == 599 && c.st.bramDirt {
		c.storeBRAM()
	}
	c.st.frame++
}

func (c *Core) input() {
	var b uint32
	for p := 0; p < engine.Players; p++ {
		for k := engine.Button(0); k < engine.ButtonMax; k++ {
			if c.cb.InputRequested(p, k) {
				b |= 1 << (uint(p)*16 + uint(k))
			}
		}
	}
	c.st.buttons = b

	h := c.lines()
	switch {
	case b&(1<<engine.ButtonLeft) != 0 && c.st.x > 0:
		c.st.x--
	case b&(1<<engine.ButtonRight) != 0 && int(c.st.x) < width-1:
		c.st.x++
	}
	switch {
	case b&(1<<engine.ButtonUp) != 0 && c.st.y > 0:
		c.st.y--
	case b&(1<<engine.ButtonDown) != 0 && int(c.st.y) < h-1:
		c.st.y++
	}
	if b&(1<<engine.ButtonStart) != 0 && c.sramSize > 0 {
		c.st.sram[int(c.st.frame)%c.sramSize] = byte(c.st.frame)
	}
	if b&(1<<engine.ButtonMode) != 0 && c.st.cdBoot {
		c.st.bram[int(c.st.frame)%BRAMSize] = byte(c.st.frame)
		c.st.bramDirt = true
	}
}

func (c *Core) video() {
	h := c.lines()
	for y := 0; y < h; y++ {
		for x := range c.pixels {
			c.pixels[x] = byte((x/20+y/16+int(c.st.frame)/8)%16 + 16*((y/56)%4))
		}
		if dy := y - int(c.st.y); dy >= -2 && dy <= 2 {
			for x := max(int(c.st.x)-2, 0); x <= min(int(c.st.x)+2, width-1); x++ {
				c.pixels[x] = 15 + 128
			}
		}
		c.cb.ScanlineRendered(y, c.pixels[:], 0, width, width, h)
	}
}

func (c *Core) audioFrames() int {
	num, den := uint32(sampleRate*1001), uint32(60000)
	if c.conf.Standard == region.PAL {
		num, den = sampleRate, 50
	}
	c.st.audioAcc += num
	n := c.st.audioAcc / den
	c.st.audioAcc %= den
	return int(n)
}

func (c *Core) audio() {
	frames := c.audioFrames()
	// 440 Hz square, quiet
	c.cb.FMAudioToBeGenerated(frames, func(buf []int16, n int) {
		for i := 0; i < n; i++ {
			v := int16(2000)
			if (c.st.phase*880/sampleRate)%2 == 1 {
				v = -2000
			}
			c.st.phase = (c.st.phase + 1) % sampleRate
			buf[i*2], buf[i*2+1] = v, v
		}
	})
	c.cb.PSGAudioToBeGenerated(frames, func(buf []int16, n int) {
		for i := 0; i < n; i++ {
			if c.st.buttons&(1<<engine.ButtonA) == 0 {
				buf[i] = 0
				continue
			}
			bit := (c.st.noise ^ c.st.noise>>1) & 1
			c.st.noise = c.st.noise>>1 | bit<<14
			buf[i] = int16(c.st.noise&1)*600 - 300
		}
	})
	if !c.st.cdBoot {
		return
	}
	c.cb.PCMAudioToBeGenerated(frames, func(buf []int16, n int) { clear(buf[:n*2]) })
	c.cb.CDDAAudioToBeGenerated(frames, func(buf []int16, n int) {
		got := min(max(c.cb.CDAudioRead(buf, n), 0), n)
		clear(buf[got*2 : n*2])
	})
}

func (c *Core) loadBRAM() {
	size, ok := c.cb.SaveFileSizeObtained(BRAMFile)
	if !ok || size != BRAMSize || !c.cb.SaveFileOpenedForReading(BRAMFile) {
		c.logf("no backup ram")
		return
	}
	defer c.cb.SaveFileClosed()
	for i := range c.st.bram {
		b := c.cb.SaveFileRead()
		if b < 0 {
			c.logf("backup ram is short")
			return
		}
		c.st.bram[i] = byte(b)
	}
}

func (c *Core) storeBRAM() {
	if !c.cb.SaveFileOpenedForWriting(BRAMFile) {
		return
	}
	for _, b := range c.st.bram {
		c.cb.SaveFileWritten(b)
	}
	c.cb.SaveFileClosed()
	c.st.bramDirt = false
}

func (c *Core) logf(format string, args ...any) {
	if c.cb != nil {
		c.cb.Log(fmt.Sprintf(format, args...))
	}
}

func (c *Core) SaveState(dst []byte) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], c.st.frame)
	le.PutUint16(dst[4:], uint16(c.st.x))
	le.PutUint16(dst[6:], uint16(c.st.y))
	le.PutUint32(dst[8:], c.st.phase)
	le.PutUint32(dst[12:], c.st.audioAcc)
	le.PutUint32(dst[16:], c.st.noise)
	le.PutUint32(dst[20:], c.st.buttons)
	dst[24], dst[25] = flag(c.st.cdBoot), flag(c.st.bramDirt)
	clear(dst[26:headerSize])
	copy(dst[headerSize:], c.st.sram[:])
	copy(dst[headerSize+MaxSRAM:], c.st.bram[:])
}

func (c *Core) LoadState(src []byte) {
	le := binary.LittleEndian
	c.st.frame = le.Uint32(src[0:])
	c.st.x = int16(le.Uint16(src[4:]))
	c.st.y = int16(le.Uint16(src[6:]))
	c.st.phase = le.Uint32(src[8:])
	c.st.audioAcc = le.Uint32(src[12:])
	c.st.noise = le.Uint32(src[16:])
	c.st.buttons = le.Uint32(src[20:])
	c.st.cdBoot, c.st.bramDirt = src[24] != 0, src[25] != 0
	copy(c.st.sram[:], src[headerSize:])
	copy(c.st.bram[:], src[headerSize+MaxSRAM:])
}

// Frame is the number of frames since the last reset.
func (c *Core) Frame() uint32 { return c.st.frame }

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
