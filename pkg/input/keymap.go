// Package input turns host key presses into pad buttons and front end actions.
package input

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mdfront/mdfront/pkg/engine"
)

// Action is what a key does.
type Action int

const (
	Hold Action = iota // hold a pad button
	Reset
	Exit
	SaveState
	LoadState
	NextSlot
	PrevSlot
)

var actionNames = map[string]Action{
	"reset": Reset,
	"exit":  Exit,
	"save":  SaveState,
	"load":  LoadState,
	"slot+": NextSlot,
	"slot-": PrevSlot,
}

func (a Action) String() string {
	for k, v := range actionNames {
		if v == a {
			return k
		}
	}
	return "hold"
}

type Binding struct {
	Action Action
	Player int
	Button engine.Button
}

// Keymap maps key names, as the key sources report them, to bindings.
type Keymap map[string]Binding

func hold(b engine.Button) Binding { return Binding{Action: Hold, Button: b} }

// DefaultKeymap is the classic keyboard layout for player one.
func DefaultKeymap() Keymap {
	return Keymap{
		"up":     hold(engine.ButtonUp),
		"down":   hold(engine.ButtonDown),
		"left":   hold(engine.ButtonLeft),
		"right":  hold(engine.ButtonRight),
		"q":      hold(engine.ButtonX),
		"w":      hold(engine.ButtonY),
		"e":      hold(engine.ButtonZ),
		"a":      hold(engine.ButtonA),
		"s":      hold(engine.ButtonB),
		"d":      hold(engine.ButtonC),
		"f":      hold(engine.ButtonMode),
		"enter":  hold(engine.ButtonStart),
		"tab":    {Action: Reset},
		"esc":    {Action: Exit},
		"ctrl+c": {Action: Exit},
		"f5":     {Action: SaveState},
		"f8":     {Action: LoadState},
		"f6":     {Action: PrevSlot},
		"f7":     {Action: NextSlot},
	}
}

// ParseBinding reads an action name or a pad button,
// e.g. "start", "p2.a" or "reset".
func ParseBinding(s string) (Binding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := actionNames[s]; ok {
		return Binding{Action: a}, nil
	}
	player := 0
	if p, rest, ok := strings.Cut(s, "."); ok && strings.HasPrefix(p, "p") {
		n, err := strconv.Atoi(p[1:])
		if err != nil || n < 1 || n > engine.Players {
			return Binding{}, fmt.Errorf("bad player in %q", s)
		}
		player, s = n-1, rest
	}
	b, ok := engine.ButtonByName(s)
	if !ok {
		return Binding{}, fmt.Errorf("unknown binding %q", s)
	}
	return Binding{Action: Hold, Player: player, Button: b}, nil
}

// NewKeymap builds a keymap from key-binding pairs,
// an empty set gives the default map.
func NewKeymap(keys map[string]string) (Keymap, error) {
	if len(keys) == 0 {
		return DefaultKeymap(), nil
	}
	km := make(Keymap, len(keys))
	for k, v := range keys {
		b, err := ParseBinding(v)
		if err != nil {
			return nil, err
		}
		km[strings.ToLower(k)] = b
	}
	return km, nil
}
