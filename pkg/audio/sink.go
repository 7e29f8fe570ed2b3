package audio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mdfront/mdfront/pkg/logger"
)

// Sink plays mixed frames on the host.
type Sink interface {
	// Queue takes interleaved stereo samples, it must not block the frame loop.
	Queue(samples []int16)
	Close() error
}

const (
	SinkOto  = "oto"
	SinkNone = "none"
)

var ErrUnknownSink = errors.New("unknown audio sink")

// None discards audio.
type None struct{}

func (None) Queue([]int16) {}
func (None) Close() error  { return nil }

// Open makes the named sink. A host device that fails to open
// falls back to None, audio is never a reason to stop.
func Open(name string, bufferMs int, log *logger.Logger) (Sink, error) {
	switch strings.ToLower(name) {
	case SinkNone, "":
		return None{}, nil
	case SinkOto:
		s, err := NewOtoSink(bufferMs)
		if err != nil {
			log.Warn().Err(err).Msg("no audio device, sound is off")
			return None{}, nil
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownSink, name)
}

// ToBytes converts samples into little-endian 16-bit PCM, reusing dst.
func ToBytes(dst []byte, samples []int16) []byte {
	dst = dst[:0]
	for _, s := range samples {
		dst = append(dst, byte(s), byte(s>>8))
	}
	return dst
}
