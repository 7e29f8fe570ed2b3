package frontend

import (
	"github.com/mdfront/mdfront/pkg/audio"
	"github.com/mdfront/mdfront/pkg/engine"
)

var _ engine.Callbacks = (*Session)(nil)

// ARGB turns a 0x0BGR engine colour into ARGB8888.
func ARGB(c uint16) uint32 {
	r := uint32(c & 0xF)
	g := uint32(c >> 4 & 0xF)
	b := uint32(c >> 8 & 0xF)
	return 0xFF000000 | r<<20 | r<<16 | g<<12 | g<<8 | b<<4 | b
}

func (s *Session) ColourUpdated(index int, colour uint16) {
	if index >= 0 && index < len(s.palette) {
		s.palette[index] = ARGB(colour)
	}
}

func (s *Session) ScanlineRendered(y int, pixels []byte, left, right, width, height int) {
	if y < 0 || y >= engine.MaxScanlines || width > engine.MaxScanlineWidth {
		return
	}
	s.frame.Width, s.frame.Height = width, height
	right = min(right, len(pixels), engine.MaxScanlineWidth)
	line := s.frame.Line(y)
	for x := max(left, 0); x < right; x++ {
		line[x] = s.palette[int(pixels[x])%len(s.palette)]
	}
}

func (s *Session) InputRequested(player int, b engine.Button) bool {
	return s.input.Pressed(player, b)
}

func (s *Session) FMAudioToBeGenerated(frames int, g engine.Generator) {
	s.mixer.Generate(audio.FM, frames, g)
}

func (s *Session) PSGAudioToBeGenerated(frames int, g engine.Generator) {
	s.mixer.Generate(audio.PSG, frames, g)
}

func (s *Session) PCMAudioToBeGenerated(frames int, g engine.Generator) {
	s.mixer.Generate(audio.PCM, frames, g)
}

func (s *Session) CDDAAudioToBeGenerated(frames int, g engine.Generator) {
	s.mixer.Generate(audio.CDDA, frames, g)
}

func (s *Session) CDSeeked(sector uint32) {
	if !s.disc.SeekToSector(sector) {
		s.cd.Warn().Uint32("sector", sector).Msg("seek failed")
	}
}

func (s *Session) CDSectorRead(buf []uint16) { s.disc.ReadSector(buf) }

func (s *Session) CDTrackSeeked(track uint16, mode engine.CDDAMode) bool {
	return s.disc.PlayAudio(track, mode)
}

func (s *Session) CDAudioRead(buf []int16, frames int) int { return s.disc.ReadAudio(buf, frames) }

// save files fail quietly, the engine goes on without them

func (s *Session) SaveFileOpenedForReading(name string) bool {
	if err := s.saves.OpenRead(name); err != nil {
		s.log.Debug().Err(err).Str("file", name).Msg("save file read")
		return false
	}
	return true
}

func (s *Session) SaveFileRead() int { return s.saves.Read() }

func (s *Session) SaveFileOpenedForWriting(name string) bool {
	if err := s.saves.OpenWrite(name); err != nil {
		s.log.Debug().Err(err).Str("file", name).Msg("save file write")
		return false
	}
	return true
}

func (s *Session) SaveFileWritten(b byte) { s.saves.Write(b) }
func (s *Session) SaveFileClosed()        { _ = s.saves.Close() }

func (s *Session) SaveFileRemoved(name string) bool {
	if err := s.saves.Remove(name); err != nil {
		s.log.Debug().Err(err).Str("file", name).Msg("save file remove")
		return false
	}
	return true
}

func (s *Session) SaveFileSizeObtained(name string) (int64, bool) {
	n, err := s.saves.Size(name)
	return n, err == nil
}

func (s *Session) Log(msg string) { s.core.Log(msg) }
