// Package config holds the settings of the front end.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mdfront/mdfront/pkg/os"
	"github.com/mdfront/mdfront/pkg/region"
)

const (
	DisplayTerminal = "terminal"
	DisplayHeadless = "headless"
)

type Config struct {
	Emulator   Emulator
	Audio      Audio
	Video      Video
	Input      Input
	Monitoring Monitoring
	Debug      bool
}

type Emulator struct {
	// Storage overrides the dir next to the binary, {user} is the home dir.
	Storage string
	// Region forces u, j or e, empty autodetects.
	Region          string
	AutosaveSec     int
	SaveCompression bool
	// WatchMedia reloads the media when its file changes.
	WatchMedia bool
	// Extensions of cartridge files looked for in archives.
	Extensions []string `default:"[.md,.bin,.gen]"`
}

type Audio struct {
	// Sink is oto or none.
	Sink     string `default:"oto"`
	BufferMs int    `default:"50"`
}

type Video struct {
	// Display is terminal or headless.
	Display string `default:"terminal"`
}

type Input struct {
	// Keys maps key names to actions, empty keeps the default layout.
	Keys map[string]string
	// ReleaseMs is how long a key counts as held after its last press.
	ReleaseMs int `default:"120"`
}

type Monitoring struct {
	Port          int `default:"6601"`
	URLPrefix     string
	MetricEnabled bool `json:"metric_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled }

// NewConfig loads the config from path, see LoadConfig.
func NewConfig(path string) (conf Config, err error) {
	if err = LoadConfig(&conf, path); err != nil {
		return conf, err
	}
	if err = conf.expandSpecialTags(); err != nil {
		return conf, err
	}
	err = conf.fixValues()
	return conf, err
}

// RegionOverride is the parsed Emulator.Region.
func (c *Config) RegionOverride() region.Override {
	o, _ := region.ParseOverride(c.Emulator.Region)
	return o
}

// expandSpecialTags replaces all the special tags in the config.
func (c *Config) expandSpecialTags() error {
	tag := "{user}"
	for _, dir := range []*string{&c.Emulator.Storage} {
		if *dir == "" || !strings.Contains(*dir, tag) {
			continue
		}
		userHomeDir, err := os.GetUserHome()
		if err != nil {
			return fmt.Errorf("couldn't read user home directory, %w", err)
		}
		*dir = strings.Replace(*dir, tag, userHomeDir, -1)
		*dir = filepath.FromSlash(*dir)
	}
	return nil
}

// fixValues checks and normalizes values otherwise hard to validate externally.
func (c *Config) fixValues() error {
	if _, err := region.ParseOverride(c.Emulator.Region); err != nil {
		return err
	}
	c.Video.Display = strings.ToLower(c.Video.Display)
	switch c.Video.Display {
	case DisplayTerminal, DisplayHeadless:
	default:
		return fmt.Errorf("unknown display %q", c.Video.Display)
	}
	if c.Emulator.AutosaveSec < 0 {
		c.Emulator.AutosaveSec = 0
	}
	for i, ext := range c.Emulator.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Emulator.Extensions[i] = "." + ext
		}
	}
	return nil
}
