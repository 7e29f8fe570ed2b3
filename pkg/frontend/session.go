// Package frontend is the running session: it owns the media, the engine
// and every host collaborator, and it runs one frame per scheduler tick.
package frontend

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/gofrs/uuid"
	"github.com/mdfront/mdfront/pkg/audio"
	"github.com/mdfront/mdfront/pkg/display"
	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/input"
	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/mdfront/mdfront/pkg/media"
	"github.com/mdfront/mdfront/pkg/region"
	"github.com/mdfront/mdfront/pkg/savestate"
	"github.com/mdfront/mdfront/pkg/storage"
	"github.com/spf13/afero"
)

var ErrNoMedia = errors.New("no media loaded")

// Stats receives session events, see monitoring.Metrics.
type Stats interface {
	StateOp(op string, err error)
	MediaLoaded()
	AudioDropped()
}

type Options struct {
	Fs      afero.Fs
	Engine  engine.Engine
	Disc    engine.Disc
	Storage storage.Storage
	// SaveFiles backs the engine save file calls.
	SaveFiles *storage.SaveFiles
	Sink      audio.Sink
	Display   display.Display
	Input     input.Source
	Stats     Stats

	Region      region.Override
	AutosaveSec int
	WatchMedia  bool
	Extensions  []string
}

type Session struct {
	id uuid.UUID

	engine  engine.Engine
	disc    engine.Disc
	loader  *media.Loader
	store   storage.Storage
	saves   *storage.SaveFiles
	sink    audio.Sink
	display display.Display
	in      input.Source
	stats   Stats

	override    region.Override
	autosaveSec int
	watchMedia  bool

	image   *media.Image
	path    string
	conf    region.Config
	palette [engine.TotalColours]uint32
	frame   *display.Frame
	input   input.Frame
	mixer   *audio.Mixer

	layout  savestate.Layout
	scratch *savestate.Snapshot
	slot    int

	frames  uint64
	exit    bool
	watcher *Watcher

	log  *logger.Logger
	core *logger.Sink
	cd   *logger.Logger
}

// New makes a session with nothing loaded.
func New(o Options, log *logger.Logger) *Session {
	if o.Engine == nil {
		panic("frontend: no engine")
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Disc == nil {
		o.Disc = noDisc{}
	}
	if o.Storage == nil {
		o.Storage = storage.NewStateStorage(o.Fs, locator.Location{})
	}
	if o.SaveFiles == nil {
		o.SaveFiles = storage.NewSaveFiles(o.Fs, locator.Location{}, log)
	}
	if o.Sink == nil {
		o.Sink = audio.None{}
	}
	if o.Display == nil {
		o.Display = &display.Headless{}
	}
	if o.Input == nil {
		o.Input = input.None{}
	}
	if o.Stats == nil {
		o.Stats = noStats{}
	}

	id := uuid.Must(uuid.NewV4())
	log = log.Extend(log.With().Str("m", "session").Str("sid", id.String()[:8]))
	s := &Session{
		id:          id,
		engine:      o.Engine,
		disc:        o.Disc,
		store:       o.Storage,
		saves:       o.SaveFiles,
		sink:        o.Sink,
		display:     o.Display,
		in:          o.Input,
		stats:       o.Stats,
		override:    o.Region,
		autosaveSec: o.AutosaveSec,
		watchMedia:  o.WatchMedia,
		frame:       display.NewFrame(),
		mixer:       audio.NewMixer(log.Module("audio")),
		log:         log,
		core:        logger.NewSink(log, "core", logger.InfoLevel),
		cd:          log.Module("cd"),
	}
	var disc engine.Disc
	if _, ok := o.Disc.(noDisc); !ok {
		disc = o.Disc
	}
	s.loader = media.NewLoader(o.Fs, disc, o.Extensions, log.Module("media"))
	s.engine.SetCallbacks(s)
	return s
}

func (s *Session) ID() string               { return s.id.String() }
func (s *Session) Image() *media.Image      { return s.image }
func (s *Session) Config() region.Config    { return s.conf }
func (s *Session) Frame() *display.Frame    { return s.frame }
func (s *Session) Slot() int                { return s.slot }
func (s *Session) Palette() []uint32        { return s.palette[:] }
func (s *Session) Storage() storage.Storage { return s.store }

// Load replaces the running media with the file at path and boots it.
// The save RAM of the outgoing cartridge is written first.
// A failed load keeps the running media, a session without one stays empty.
func (s *Session) Load(path string) error {
	var disc []byte
	if s.image != nil && s.image.IsDisc() {
		disc = make([]byte, s.disc.StateSize())
		s.disc.SaveState(disc)
	}

	img, err := s.loader.Load(path)
	if err != nil {
		s.reopenDisc(disc)
		return fmt.Errorf("load %v: %w", path, err)
	}
	s.stats.MediaLoaded()
	s.unload()
	s.image = img
	s.store.SetMainSaveName(img.Stem())

	s.conf = region.Resolve(s.override, img, s.log)
	s.engine.Configure(s.conf)
	s.engine.SetCartridge(img.ROM())
	s.restoreSRAM()
	s.engine.Reset(img.IsDisc())

	layout := savestate.Layout{Engine: s.engine.StateSize(), Reader: s.disc.StateSize(), Colours: engine.TotalColours}
	if layout != s.layout || s.scratch == nil {
		s.layout, s.scratch = layout, layout.NewSnapshot()
	}
	s.frames = 0

	if s.watchMedia && (s.watcher == nil || s.path != path) {
		s.watch(path)
	}
	s.path = path
	s.log.Info().Str("media", img.Path).Str("kind", img.Kind.String()).Str("region", s.conf.String()).Msg("booted")
	return nil
}

// reopenDisc puts the running disc back after a failed load went through the reader.
func (s *Session) reopenDisc(state []byte) {
	if state == nil || s.disc.IsOpen() {
		return
	}
	if err := s.disc.Open(s.image.Path); err != nil {
		s.log.Error().Err(err).Msg("running disc is gone")
		s.image.Release()
		s.image = nil
		return
	}
	s.disc.LoadState(state)
}

func (s *Session) watch(path string) {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	w, err := NewWatcher(path, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("media watch is off")
		return
	}
	s.watcher = w
}

// unload writes the save RAM and drops the current media.
// The disc reader already holds the next media, so it is left alone.
func (s *Session) unload() {
	if s.image == nil {
		return
	}
	if err := s.flushSRAM(); err != nil {
		s.log.Error().Err(err).Msg("save ram was not written")
	}
	s.engine.SetCartridge(nil)
	s.image.Release()
	s.image = nil
}

// Reset restarts the engine keeping the media and the region.
func (s *Session) Reset() {
	if s.image == nil {
		return
	}
	s.log.Info().Msg("soft reset")
	s.engine.Reset(s.image.IsDisc())
}

func (s *Session) restoreSRAM() {
	buf, nv := s.engine.SaveRAM()
	if !nv || len(buf) == 0 || !s.store.Enabled() {
		return
	}
	path, err := s.store.GetSRAMPath()
	if err != nil {
		return
	}
	data, err := s.store.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Debug().Str("path", path).Msg("no save ram yet")
	case err != nil:
		s.log.Warn().Err(err).Msg("save ram was not read")
	default:
		n := copy(buf, data)
		s.log.Debug().Int("size", n).Str("path", path).Msg("save ram read")
	}
}

// flushSRAM writes battery-backed save RAM, volatile RAM is never written.
func (s *Session) flushSRAM() error {
	buf, nv := s.engine.SaveRAM()
	if !nv || len(buf) == 0 || !s.store.Enabled() {
		return nil
	}
	path, err := s.store.GetSRAMPath()
	if err != nil {
		return err
	}
	if err = s.store.Save(path, buf); err == nil {
		s.log.Debug().Int("size", len(buf)).Str("path", path).Msg("save ram written")
	}
	return err
}

// SaveState writes a snapshot of the session into the current slot.
func (s *Session) SaveState() (err error) {
	defer func() { s.stats.StateOp("save", err) }()
	if s.image == nil {
		return ErrNoMedia
	}
	path, err := s.store.GetSavePath(s.slot)
	if err != nil {
		return err
	}
	s.engine.SaveState(s.scratch.Engine)
	s.disc.SaveState(s.scratch.Reader)
	copy(s.scratch.Palette, s.palette[:])

	data, err := s.layout.Marshal(s.scratch)
	if err != nil {
		return err
	}
	if err = s.store.Save(path, data); err != nil {
		return err
	}
	s.log.Info().Int("slot", s.slot).Str("path", path).Msg("state saved")
	return nil
}

// LoadState restores the snapshot of the current slot.
// A bad file leaves the session as it was.
func (s *Session) LoadState() (err error) {
	defer func() { s.stats.StateOp("load", err) }()
	if s.image == nil {
		return ErrNoMedia
	}
	path, err := s.store.GetSavePath(s.slot)
	if err != nil {
		return err
	}
	data, err := s.store.Load(path)
	if err != nil {
		return err
	}
	if err = s.layout.Unmarshal(data, s.scratch); err != nil {
		return fmt.Errorf("%v: %w", path, err)
	}
	s.engine.LoadState(s.scratch.Engine)
	s.disc.LoadState(s.scratch.Reader)
	copy(s.palette[:], s.scratch.Palette)
	s.log.Info().Int("slot", s.slot).Str("path", path).Msg("state loaded")
	return nil
}

// SetSlot selects the save state slot, wrapping around.
func (s *Session) SetSlot(n int) {
	const slots = storage.MaxSlot + 1
	s.slot = ((n % slots) + slots) % slots
	s.log.Info().Int("slot", s.slot).Msg("state slot")
}

// Close writes the save RAM and releases every collaborator.
func (s *Session) Close() error {
	if s.image != nil && s.image.IsDisc() {
		s.disc.Close()
	}
	s.unload()
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
		s.watcher = nil
	}
	errs = append(errs, s.in.Close(), s.sink.Close(), s.display.Close())
	s.log.Debug().Uint64("frames", s.frames).Msg("session closed")
	return errors.Join(errs...)
}

type noStats struct{}

func (noStats) StateOp(string, error) {}
func (noStats) MediaLoaded()          {}
func (noStats) AudioDropped()         {}

type noDisc struct{}

func (noDisc) Open(string) error                      { return errors.ErrUnsupported }
func (noDisc) Close()                                 {}
func (noDisc) IsOpen() bool                           { return false }
func (noDisc) IsMegaCDGame() bool                     { return false }
func (noDisc) SeekToSector(uint32) bool               { return false }
func (noDisc) ReadSector(buf []uint16)                { clear(buf) }
func (noDisc) PlayAudio(uint16, engine.CDDAMode) bool { return false }
func (noDisc) ReadAudio([]int16, int) int             { return 0 }
func (noDisc) StateSize() int                         { return 0 }
func (noDisc) SaveState([]byte)                       {}
func (noDisc) LoadState([]byte)                       {}
