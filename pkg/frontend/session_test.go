package frontend

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/mdfront/mdfront/pkg/display"
	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/engine/nullcore"
	"github.com/mdfront/mdfront/pkg/input"
	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/mdfront/mdfront/pkg/region"
	"github.com/mdfront/mdfront/pkg/savestate"
	"github.com/mdfront/mdfront/pkg/storage"
	"github.com/spf13/afero"
)

const sramBytes = 16

// rom is a cartridge in file order with battery-backed save RAM
// and the region field set to r.
func rom(r string) []byte { return romWith(r, 0xF8) }

// romWith sets the save RAM type byte, 0x40 marks it battery-backed.
func romWith(r string, kind byte) []byte {
	b := make([]byte, 0x400)
	copy(b[0x1B0:], "RA")
	b[0x1B2], b[0x1B3] = kind, 0x20
	copy(b[0x1B4:], []byte{0x00, 0x20, 0x00, 0x00})
	copy(b[0x1B8:], []byte{0x00, 0x20, 0x00, sramBytes - 1})
	copy(b[0x1F0:], r)
	return b
}

// script hands out prepared input frames, then empty ones.
type script struct {
	frames []input.Frame
	closed bool
}

func (s *script) Poll() input.Frame {
	if len(s.frames) == 0 {
		return input.Frame{}
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f
}
func (s *script) Close() error { s.closed = true; return nil }

func press(b engine.Button) input.Frame {
	var f input.Frame
	f.Buttons[0] = 1 << uint(b)
	return f
}

func act(a ...input.Action) input.Frame { return input.Frame{Actions: a} }

type sink struct {
	queued  int
	samples int
	bufs    [][]int16
	closed  bool
}

func (s *sink) Queue(p []int16) {
	s.queued++
	s.samples += len(p)
	s.bufs = append(s.bufs, append([]int16(nil), p...))
}
func (s *sink) Close() error { s.closed = true; return nil }

type stats struct {
	ops     map[string]int
	fails   int
	loads   int
	dropped int
}

func (s *stats) StateOp(op string, err error) {
	if s.ops == nil {
		s.ops = map[string]int{}
	}
	s.ops[op]++
	if err != nil {
		s.fails++
	}
}
func (s *stats) MediaLoaded()  { s.loads++ }
func (s *stats) AudioDropped() { s.dropped++ }

type fixture struct {
	fs    afero.Fs
	core  *nullcore.Core
	in    *script
	sink  *sink
	disp  *display.Headless
	stats *stats
	s     *Session
}

func newFixture(t *testing.T, o Options) *fixture {
	t.Helper()
	f := &fixture{
		fs:    afero.NewMemMapFs(),
		core:  nullcore.New(),
		in:    &script{},
		sink:  &sink{},
		disp:  &display.Headless{},
		stats: &stats{},
	}
	if err := f.fs.MkdirAll("/saves", 0755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		"/roms/game.bin":     rom("U"),
		"/roms/euro.md":      rom("E"),
		"/roms/volatile.bin": romWith("U", 0xA0),
		"/roms/bad.bin":      {},
	} {
		if err := afero.WriteFile(f.fs, name, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	o.Fs, o.Engine = f.fs, f.core
	o.Storage = storage.NewStateStorage(f.fs, locator.At("/saves"))
	o.SaveFiles = storage.NewSaveFiles(f.fs, locator.At("/saves"), logger.Nop())
	o.Input, o.Sink, o.Display, o.Stats = f.in, f.sink, f.disp, f.stats
	f.s = New(o, logger.Nop())
	return f
}

func (f *fixture) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !f.s.Tick() {
			t.Fatalf("tick %d stopped the session", i)
		}
	}
}

func TestLoadResolvesRegion(t *testing.T) {
	tests := []struct {
		path     string
		override region.Override
		want     region.Config
		frame    time.Duration
	}{
		{path: "/roms/game.bin", want: region.Config{Territory: region.Overseas, Standard: region.NTSC}, frame: 16_683_333},
		{path: "/roms/euro.md", want: region.Config{Territory: region.Overseas, Standard: region.PAL}, frame: 20 * time.Millisecond},
		{path: "/roms/euro.md", override: region.Japan, want: region.Config{Territory: region.Domestic, Standard: region.NTSC}, frame: 16_683_333},
	}
	for _, tt := range tests {
		f := newFixture(t, Options{Region: tt.override})
		if err := f.s.Load(tt.path); err != nil {
			t.Fatal(err)
		}
		if f.s.Config() != tt.want {
			t.Errorf("%v: expected %v, got %v", tt.path, tt.want, f.s.Config())
		}
		if f.s.FrameDuration() != tt.frame {
			t.Errorf("%v: frame %v", tt.path, f.s.FrameDuration())
		}
		if f.stats.loads != 1 {
			t.Errorf("media loads = %d", f.stats.loads)
		}
	}
}

func TestLoadFailureLeavesSessionEmpty(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/missing.bin"); err == nil {
		t.Fatalf("expected an error")
	}
	if f.s.Image() != nil {
		t.Errorf("no image expected")
	}
	f.run(t, 3)
	if f.disp.Frames() != 0 {
		t.Errorf("nothing should be presented, got %d frames", f.disp.Frames())
	}
	if err := f.s.SaveState(); !errors.Is(err, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", err)
	}
}

func TestFailedLoadKeepsRunningMedia(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.run(t, 5)

	for _, path := range []string{"/roms/missing.bin", "/roms/bad.bin"} {
		if err := f.s.Load(path); err == nil {
			t.Fatalf("%v: expected an error", path)
		}
		if f.s.Image() == nil || f.s.Image().Path != "/roms/game.bin" {
			t.Fatalf("%v: the running media was dropped", path)
		}
	}
	f.run(t, 5)
	if f.core.Frame() != 10 || f.disp.Frames() != 10 {
		t.Errorf("frames: core %d, presented %d", f.core.Frame(), f.disp.Frames())
	}
	if err := f.s.SaveState(); err != nil {
		t.Errorf("state save after a failed load: %v", err)
	}
}

func TestReloadAfterRewrite(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	path := filepath.Join(dir, "game.bin")
	if err := afero.WriteFile(fs, path, rom("U"), 0644); err != nil {
		t.Fatal(err)
	}
	core := nullcore.New()
	s := New(Options{
		Fs:         fs,
		Engine:     core,
		Storage:    storage.NewStateStorage(fs, locator.At(dir)),
		WatchMedia: true,
	}, logger.Nop())
	defer func() { _ = s.Close() }()
	if err := s.Load(path); err != nil {
		t.Fatal(err)
	}

	// a copy tool truncates first
	if err := afero.WriteFile(fs, path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		s.Tick()
		if s.Image() == nil {
			t.Fatalf("the session lost its media after the truncation")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := afero.WriteFile(fs, path, rom("E"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.Config().Standard != region.PAL {
		if time.Now().After(deadline) {
			t.Fatalf("the rewritten media was not reloaded")
		}
		s.Tick()
		time.Sleep(10 * time.Millisecond)
	}
	if s.Image() == nil || s.Image().Size() != len(rom("E")) {
		t.Errorf("unexpected media after the rewrite")
	}
}

func TestDroppedAudioRepeatsLastMix(t *testing.T) {
	f := newFixture(t, Options{})
	gated := &gatedCore{Core: f.core}
	f.s = New(Options{
		Fs:      f.fs,
		Engine:  gated,
		Storage: storage.NewStateStorage(f.fs, locator.At("/saves")),
		Sink:    f.sink,
		Stats:   f.stats,
	}, logger.Nop())
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}

	f.run(t, 1)
	gated.gate.drop = true
	f.run(t, 1)
	gated.gate.drop = false
	f.run(t, 1)

	if f.sink.queued != 3 || f.stats.dropped != 1 {
		t.Fatalf("queued %d, dropped %d", f.sink.queued, f.stats.dropped)
	}
	first, again := f.sink.bufs[0], f.sink.bufs[1]
	if len(first) == 0 || !slices.Equal(first, again) {
		t.Errorf("a dropped frame should repeat the previous mix: %d vs %d samples", len(first), len(again))
	}
	if len(f.sink.bufs[2]) == 0 {
		t.Errorf("mixing should resume after the drop")
	}
}

// fmGate asks for no FM audio while drop is set.
type fmGate struct {
	engine.Callbacks
	drop bool
}

func (g *fmGate) FMAudioToBeGenerated(frames int, gen engine.Generator) {
	if g.drop {
		frames = 0
	}
	g.Callbacks.FMAudioToBeGenerated(frames, gen)
}

type gatedCore struct {
	*nullcore.Core
	gate fmGate
}

func (c *gatedCore) SetCallbacks(cb engine.Callbacks) {
	c.gate.Callbacks = cb
	c.Core.SetCallbacks(&c.gate)
}

func TestTick(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.run(t, 60)

	if f.core.Frame() != 60 || f.disp.Frames() != 60 {
		t.Errorf("frames: core %d, presented %d", f.core.Frame(), f.disp.Frames())
	}
	if f.sink.queued != 60 || f.stats.dropped != 0 {
		t.Errorf("audio: queued %d, dropped %d", f.sink.queued, f.stats.dropped)
	}
	if f.sink.samples != 48048*2 {
		t.Errorf("expected %d samples, got %d", 48048*2, f.sink.samples)
	}
	fr := f.s.Frame()
	if fr.Width != engine.MaxScanlineWidth || fr.Height != 224 {
		t.Errorf("frame is %dx%d", fr.Width, fr.Height)
	}
	if fr.At(0, 0)>>24 != 0xFF {
		t.Errorf("pixels must be opaque, got %08x", fr.At(0, 0))
	}

	f.in.frames = []input.Frame{act(input.Exit)}
	if f.s.Tick() {
		t.Errorf("exit should stop the session")
	}
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.run(t, 10)

	f.in.frames = []input.Frame{act(input.SaveState)}
	f.run(t, 1)
	saved := f.core.Frame()
	if ok, _ := afero.Exists(f.fs, "/saves/game.state"); !ok {
		t.Fatalf("no state file")
	}
	f.run(t, 20)

	f.in.frames = []input.Frame{act(input.LoadState)}
	f.run(t, 1)
	// both ticks run a frame after the state operation
	if f.core.Frame() != saved {
		t.Errorf("expected frame %d, got %d", saved, f.core.Frame())
	}
	if f.stats.ops["save"] != 1 || f.stats.ops["load"] != 1 || f.stats.fails != 0 {
		t.Errorf("state ops %v, %d failed", f.stats.ops, f.stats.fails)
	}
}

func TestBadStateKeepsSession(t *testing.T) {
	tests := []struct {
		name string
		data func(good []byte) []byte
		err  error
	}{
		{name: "short", data: func(g []byte) []byte { return g[:len(g)-1] }, err: savestate.ErrShort},
		{name: "long", data: func(g []byte) []byte { return append(g, 0) }, err: savestate.ErrLength},
		{name: "magic", data: func(g []byte) []byte { g[0] = 'X'; return g }, err: savestate.ErrMagic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			if err := f.s.Load("/roms/game.bin"); err != nil {
				t.Fatal(err)
			}
			f.run(t, 5)
			if err := f.s.SaveState(); err != nil {
				t.Fatal(err)
			}
			good, _ := afero.ReadFile(f.fs, "/saves/game.state")
			_ = afero.WriteFile(f.fs, "/saves/game.state", tt.data(append([]byte(nil), good...)), 0644)

			f.run(t, 5)
			palette := append([]uint32(nil), f.s.Palette()...)
			f.s.ColourUpdated(0, 0x0FFF)
			want := f.s.Palette()[0]

			if err := f.s.LoadState(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if f.core.Frame() != 10 {
				t.Errorf("engine state changed, frame %d", f.core.Frame())
			}
			if f.s.Palette()[0] != want || f.s.Palette()[1] != palette[1] {
				t.Errorf("palette changed")
			}
		})
	}
}

func TestSlots(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.in.frames = []input.Frame{act(input.PrevSlot), act(input.SaveState), act(input.NextSlot, input.NextSlot)}
	f.run(t, 3)
	if f.s.Slot() != 1 {
		t.Errorf("expected slot 1, got %d", f.s.Slot())
	}
	if ok, _ := afero.Exists(f.fs, "/saves/game.state9"); !ok {
		t.Errorf("slot 9 file is missing")
	}
	if err := f.s.LoadState(); err == nil {
		t.Errorf("slot 1 is empty, load should fail")
	}
}

func TestSRAMPersists(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.in.frames = make([]input.Frame, 5)
	f.in.frames = append(f.in.frames, press(engine.ButtonStart))
	f.run(t, 6)
	if err := f.s.Close(); err != nil {
		t.Fatal(err)
	}
	if !f.in.closed || !f.sink.closed {
		t.Errorf("collaborators were not closed")
	}
	data, err := afero.ReadFile(f.fs, "/saves/game.srm")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != sramBytes || data[5] != 5 {
		t.Fatalf("unexpected save ram %v", data)
	}

	core := nullcore.New()
	s := New(Options{
		Fs:      f.fs,
		Engine:  core,
		Storage: storage.NewStateStorage(f.fs, locator.At("/saves")),
	}, logger.Nop())
	if err := s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	if buf, _ := core.SaveRAM(); string(buf) != string(data) {
		t.Errorf("save ram was not restored: %v", buf)
	}
}

func TestLoadPersistsOutgoingSRAM(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.in.frames = make([]input.Frame, 5)
	f.in.frames = append(f.in.frames, press(engine.ButtonStart))
	f.run(t, 6)

	if err := f.s.Load("/roms/euro.md"); err != nil {
		t.Fatal(err)
	}
	data, err := afero.ReadFile(f.fs, "/saves/game.srm")
	if err != nil {
		t.Fatalf("outgoing save ram was not written: %v", err)
	}
	if len(data) != sramBytes || data[5] != 5 {
		t.Errorf("unexpected save ram %v", data)
	}
	buf, nv := f.core.SaveRAM()
	if !nv || len(buf) != sramBytes {
		t.Fatalf("euro save ram: %d bytes, battery %v", len(buf), nv)
	}
	if slices.ContainsFunc(buf, func(b byte) bool { return b != 0 }) {
		t.Errorf("new cartridge inherited save ram %v", buf)
	}
}

func TestVolatileSRAMIsNotWritten(t *testing.T) {
	f := newFixture(t, Options{AutosaveSec: 1})
	if err := f.s.Load("/roms/volatile.bin"); err != nil {
		t.Fatal(err)
	}
	f.in.frames = make([]input.Frame, 5)
	f.in.frames = append(f.in.frames, press(engine.ButtonStart))
	f.run(t, 120)
	if buf, nv := f.core.SaveRAM(); nv || buf[5] != 5 {
		t.Fatalf("expected dirty volatile ram, battery %v", nv)
	}
	if err := f.s.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(f.fs, "/saves/volatile.srm"); ok {
		t.Errorf("volatile save ram was written")
	}
}

func TestAutosave(t *testing.T) {
	f := newFixture(t, Options{AutosaveSec: 1})
	if err := f.s.Load("/roms/game.bin"); err != nil {
		t.Fatal(err)
	}
	f.run(t, 59)
	if ok, _ := afero.Exists(f.fs, "/saves/game.srm"); ok {
		t.Fatalf("autosave too early")
	}
	f.run(t, 1)
	if ok, _ := afero.Exists(f.fs, "/saves/game.srm"); !ok {
		t.Errorf("no autosave after a second")
	}
}

func TestARGB(t *testing.T) {
	tests := []struct {
		in   uint16
		want uint32
	}{
		{in: 0x0000, want: 0xFF000000},
		{in: 0x0FFF, want: 0xFFFFFFFF},
		{in: 0x000F, want: 0xFFFF0000},
		{in: 0x00F0, want: 0xFF00FF00},
		{in: 0x0F00, want: 0xFF0000FF},
		{in: 0x0421, want: 0xFF112244},
	}
	for _, tt := range tests {
		if got := ARGB(tt.in); got != tt.want {
			t.Errorf("ARGB(%04x) = %08x, want %08x", tt.in, got, tt.want)
		}
	}
}
