package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// one oto context per process
var (
	otoCtx  *oto.Context
	otoOnce sync.Once
	otoErr  error
)

func otoContext(bufferMs int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(bufferMs) * time.Millisecond,
		})
		if otoErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoErr
}

// OtoSink plays audio on the default output device.
// oto pulls from the ring on its own goroutine.
type OtoSink struct {
	player *oto.Player
	ring   *Ring
	bytes  []byte
}

func NewOtoSink(bufferMs int) (*OtoSink, error) {
	if bufferMs <= 0 {
		bufferMs = 50
	}
	ctx, err := otoContext(bufferMs)
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	// four buffers of latency before the oldest audio is dropped
	ring := NewRing(4 * bufferMs * SampleRate / 1000 * Channels * 2)
	player := ctx.NewPlayer(ring)
	player.SetBufferSize(bufferMs * SampleRate / 1000 * Channels * 2)
	player.Play()
	return &OtoSink{player: player, ring: ring, bytes: make([]byte, 0, MaxFramesPerFrame*Channels*2)}, nil
}

func (o *OtoSink) Queue(samples []int16) {
	if len(samples) == 0 {
		return
	}
	o.bytes = ToBytes(o.bytes, samples)
	o.ring.Write(o.bytes)
}

// Buffered is the audio not yet played, in bytes.
func (o *OtoSink) Buffered() int { return o.ring.Buffered() + o.player.BufferedSize() }

func (o *OtoSink) Close() error {
	o.ring.Close()
	return o.player.Close()
}
