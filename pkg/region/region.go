// Package region derives the session timing configuration
// from an explicit override or the cartridge header.
package region

import (
	"fmt"
	"strings"
	"time"

	"github.com/mdfront/mdfront/pkg/logger"
)

// Territory is what the console reports to the running program.
type Territory int

const (
	Overseas Territory = iota
	Domestic
)

func (t Territory) String() string {
	if t == Domestic {
		return "domestic"
	}
	return "overseas"
}

// Standard is the TV refresh standard.
type Standard int

const (
	NTSC Standard = iota // 60 Hz class
	PAL                  // 50 Hz class
)

func (s Standard) String() string {
	if s == PAL {
		return "PAL"
	}
	return "NTSC"
}

const (
	// NTSCFrame is one frame at 60000/1001 Hz.
	NTSCFrame = time.Duration(int64(time.Second) * 1001 / 60000)
	PALFrame  = time.Second / 50
)

// Config is the resolved session configuration,
// immutable until the next media load.
type Config struct {
	Territory Territory
	Standard  Standard
}

func (c Config) String() string { return c.Territory.String() + "/" + c.Standard.String() }

// FrameDuration is the wall-clock budget of one frame.
func (c Config) FrameDuration() time.Duration {
	if c.Standard == PAL {
		return PALFrame
	}
	return NTSCFrame
}

// FPS is the integer frame rate used for second-based bookkeeping.
func (c Config) FPS() int {
	if c.Standard == PAL {
		return 50
	}
	return 60
}

// Override is a region forced by the user.
type Override int

const (
	Unspecified Override = iota
	US
	Japan
	Europe
)

// Default is used whenever nothing better is known.
var Default = US.Config()

func (o Override) String() string {
	switch o {
	case US:
		return "U"
	case Japan:
		return "J"
	case Europe:
		return "E"
	}
	return ""
}

// Config maps a region to the console configuration.
func (o Override) Config() Config {
	switch o {
	case Japan:
		return Config{Territory: Domestic, Standard: NTSC}
	case Europe:
		return Config{Territory: Overseas, Standard: PAL}
	default:
		return Config{Territory: Overseas, Standard: NTSC}
	}
}

// ParseOverride accepts one of u, j, e in any case.
func ParseOverride(s string) (Override, error) {
	switch strings.ToUpper(s) {
	case "":
		return Unspecified, nil
	case "U":
		return US, nil
	case "J":
		return Japan, nil
	case "E":
		return Europe, nil
	}
	return Unspecified, fmt.Errorf("region must be u, j, or e, got %q", s)
}

// Set and Type make an Override usable as a command line flag value.
func (o *Override) Set(s string) error {
	v, err := ParseOverride(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o *Override) Type() string { return "U|J|E" }

// Media is what resolution needs to know about the loaded media.
type Media interface {
	IsDisc() bool
	// HasRegionHeader is false when the image is too small for the region field.
	HasRegionHeader() bool
	RegionFragment() string
}

// Detect looks for region markers in a header fragment.
// US wins over Japan, Japan wins over Europe.
func Detect(fragment string) (Override, bool) {
	switch {
	case strings.ContainsRune(fragment, 'U'):
		return US, true
	case strings.ContainsRune(fragment, 'J'):
		return Japan, true
	case strings.ContainsRune(fragment, 'E'):
		return Europe, true
	}
	return Unspecified, false
}

// Resolve picks the session configuration. An override always wins,
// discs are never autodetected.
func Resolve(o Override, m Media, log *logger.Logger) Config {
	if o != Unspecified {
		return o.Config()
	}
	if m == nil {
		return Default
	}
	if m.IsDisc() {
		log.Warn().Msg("region autodetection not implemented for cd mode, defaulting to us")
		return Default
	}
	if !m.HasRegionHeader() {
		log.Warn().Msg("rom too small to include region header info, defaulting to us")
		return Default
	}
	fragment := m.RegionFragment()
	r, ok := Detect(fragment)
	if !ok {
		log.Warn().Str("header", fragment).Msg("unable to autodetect region, defaulting to us")
		return Default
	}
	return r.Config()
}
