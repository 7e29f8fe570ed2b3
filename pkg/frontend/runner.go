package frontend

import (
	"time"

	"github.com/mdfront/mdfront/pkg/input"
	"github.com/mdfront/mdfront/pkg/scheduler"
)

var _ scheduler.Task = (*Session)(nil)

// FrameDuration is the frame budget of the loaded media.
func (s *Session) FrameDuration() time.Duration { return s.conf.FrameDuration() }

// Tick runs one frame: input, engine, audio and video.
// It returns false once the user asked to quit.
func (s *Session) Tick() bool {
	if s.watcher != nil && s.watcher.Changed() {
		s.log.Info().Msg("media changed, reloading")
		if err := s.Load(s.path); err != nil {
			s.log.Error().Err(err).Msg("reload failed")
		}
	}

	s.input = s.in.Poll()
	for _, a := range s.input.Actions {
		s.act(a)
	}
	if s.exit {
		return false
	}
	if s.image == nil {
		return true
	}

	s.mixer.Begin()
	s.engine.Iterate()
	// a dropped frame repeats the last mix
	if !s.mixer.End() {
		s.stats.AudioDropped()
	}
	s.sink.Queue(s.mixer.Output())
	if err := s.display.Present(s.frame); err != nil {
		s.log.Warn().Err(err).Msg("present")
	}

	s.frames++
	s.autosave()
	return true
}

func (s *Session) act(a input.Action) {
	switch a {
	case input.Exit:
		s.exit = true
	case input.Reset:
		s.Reset()
	case input.SaveState:
		if err := s.SaveState(); err != nil {
			s.log.Error().Err(err).Msg("state save failed")
		}
	case input.LoadState:
		if err := s.LoadState(); err != nil {
			s.log.Error().Err(err).Msg("state load failed")
		}
	case input.NextSlot:
		s.SetSlot(s.slot + 1)
	case input.PrevSlot:
		s.SetSlot(s.slot - 1)
	}
}

// autosave flushes the save RAM every autosaveSec seconds of play.
func (s *Session) autosave() {
	if s.autosaveSec <= 0 {
		return
	}
	if s.frames%uint64(s.autosaveSec*s.conf.FPS()) != 0 {
		return
	}
	if err := s.flushSRAM(); err != nil {
		s.log.Error().Err(err).Msg("autosave failed")
	}
}
