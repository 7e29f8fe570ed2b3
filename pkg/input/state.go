package input

import (
	"sync"
	"time"

	"github.com/mdfront/mdfront/pkg/engine"
)

// Frame is the input of one frame.
type Frame struct {
	Buttons [engine.Players]uint16
	// Actions pressed since the last poll, in order.
	Actions []Action
}

func (f *Frame) Pressed(player int, b engine.Button) bool {
	if player < 0 || player >= engine.Players || b < 0 || b >= engine.ButtonMax {
		return false
	}
	return f.Buttons[player]&(1<<uint(b)) != 0
}

// Source gives the input of the next frame.
type Source interface {
	Poll() Frame
	Close() error
}

// None is a source without keys.
type None struct{}

func (None) Poll() Frame  { return Frame{} }
func (None) Close() error { return nil }

// State collects key presses from a reader goroutine.
// Hosts without key release events hold a key for the release time
// after its last press.
type State struct {
	mu      sync.Mutex
	keymap  Keymap
	release time.Duration
	now     func() time.Time

	held    map[string]time.Time
	up      map[string]bool
	actions []Action
}

func NewState(km Keymap, release time.Duration) *State {
	return &State{keymap: km, release: release, now: time.Now, held: map[string]time.Time{}, up: map[string]bool{}}
}

// Press records a key press, unknown keys are ignored.
func (s *State) Press(key string) {
	b, ok := s.keymap[key]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Action != Hold {
		s.actions = append(s.actions, b.Action)
		return
	}
	s.held[key] = s.now()
	delete(s.up, key)
}

// Release lets a key go for hosts that know it.
// The key still counts for the next poll, so taps are never lost.
func (s *State) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.held[key]; ok {
		s.up[key] = true
	}
}

func (s *State) Poll() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f Frame
	now := s.now()
	for key, t := range s.held {
		b := s.keymap[key]
		f.Buttons[b.Player] |= 1 << uint(b.Button)
		if s.up[key] || (s.release > 0 && now.Sub(t) >= s.release) {
			delete(s.held, key)
			delete(s.up, key)
		}
	}
	f.Actions, s.actions = s.actions, nil
	return f
}

func (s *State) Close() error { return nil }
