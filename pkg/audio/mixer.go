// Package audio turns the per-category sample requests of the engine into
// one interleaved stereo buffer per frame and hands it to a host sink.
package audio

import (
	"math"

	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/logger"
)

const (
	SampleRate = 48000
	Channels   = 2

	// MaxFramesPerFrame is the most audio one video frame can carry,
	// reached at the lowest refresh rate.
	MaxFramesPerFrame = SampleRate / 50
)

// Category is a sound source of the console.
type Category int

const (
	FM Category = iota
	PSG
	PCM
	CDDA
	categories
)

var (
	categoryNames    = [categories]string{"fm", "psg", "pcm", "cdda"}
	categoryChannels = [categories]int{2, 1, 2, 2}
)

func (c Category) String() string {
	if c < 0 || c >= categories {
		return "unknown"
	}
	return categoryNames[c]
}

// Channels is the number of interleaved channels the category generates.
func (c Category) Channels() int { return categoryChannels[c] }

// Mixer collects one frame of audio.
//
// Every frame is Begin, any number of Generate calls, then End.
// A frame with a request for no audio or for more than MaxFramesPerFrame
// is dropped and the previous output stays as it was.
type Mixer struct {
	scratch   [categories][]int16
	requested [categories]int
	overflow  []int16
	spoiled   bool

	out    []int16
	frames int

	dropped uint64
	log     *logger.Logger
}

func NewMixer(log *logger.Logger) *Mixer {
	m := Mixer{out: make([]int16, MaxFramesPerFrame*Channels), log: log}
	for c := range m.scratch {
		m.scratch[c] = make([]int16, MaxFramesPerFrame*categoryChannels[c])
	}
	return &m
}

// Begin starts a new frame.
func (m *Mixer) Begin() {
	m.requested = [categories]int{}
	m.spoiled = false
}

// Generate lets gen fill frames of the category.
// An empty or oversized request spoils the frame, the oversized one
// still gets a buffer to write into.
func (m *Mixer) Generate(c Category, frames int, gen engine.Generator) {
	if c < 0 || c >= categories || gen == nil {
		return
	}
	if frames <= 0 {
		m.spoiled = true
		return
	}
	n := frames * categoryChannels[c]
	if frames > MaxFramesPerFrame {
		m.spoiled = true
		if cap(m.overflow) < n {
			m.overflow = make([]int16, n)
		}
		gen(m.overflow[:n], frames)
		return
	}
	buf := m.scratch[c][:n]
	clear(buf)
	gen(buf, frames)
	m.requested[c] = max(m.requested[c], frames)
}

// End mixes the frame into the output buffer.
// It reports false when the frame was dropped.
func (m *Mixer) End() bool {
	frames := 0
	for _, f := range m.requested {
		frames = max(frames, f)
	}
	if frames == 0 || frames > MaxFramesPerFrame || m.spoiled {
		m.dropped++
		m.log.Debug().Int("frames", frames).Bool("spoiled", m.spoiled).Msg("audio frame dropped")
		return false
	}

	out := m.out[:frames*Channels]
	var acc [Channels]int32
	for i := 0; i < frames; i++ {
		acc = [Channels]int32{}
		for c := range m.scratch {
			if i >= m.requested[c] {
				continue
			}
			if categoryChannels[c] == 1 {
				s := int32(m.scratch[c][i])
				acc[0] += s
				acc[1] += s
				continue
			}
			acc[0] += int32(m.scratch[c][i*2])
			acc[1] += int32(m.scratch[c][i*2+1])
		}
		out[i*2], out[i*2+1] = clamp(acc[0]), clamp(acc[1])
	}
	m.frames = frames
	return true
}

// Output is the last completed mix, interleaved stereo.
func (m *Mixer) Output() []int16 { return m.out[:m.frames*Channels] }

// Frames is the length of Output in stereo frames.
func (m *Mixer) Frames() int { return m.frames }

// Dropped counts frames thrown away by End.
func (m *Mixer) Dropped() uint64 { return m.dropped }

func clamp(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
