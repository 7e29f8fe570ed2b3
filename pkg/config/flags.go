package config

import (
	"fmt"

	"github.com/mdfront/mdfront/pkg/region"
	"github.com/spf13/pflag"
)

// Options are the command line switches.
type Options struct {
	Help     bool
	Region   region.Override
	Log      bool
	Headless bool
	Path     string

	fs *pflag.FlagSet
}

// WithFlags defines the switches in fs.
func (o *Options) WithFlags(fs *pflag.FlagSet) {
	o.fs = fs
	fs.BoolVarP(&o.Help, "help", "h", false, "print this message")
	fs.VarP(&o.Region, "region", "r", "force the region (u, j or e)")
	fs.BoolVarP(&o.Log, "log", "l", false, "enable log output")
	fs.BoolVarP(&o.Headless, "headless", "x", false, "toggle the display mode")
	fs.StringVarP(&o.Path, "conf", "c", o.Path, "config file path")
}

// Apply puts the switches given on the command line over the config.
func (o *Options) Apply(c *Config) {
	if o.fs == nil {
		return
	}
	if o.fs.Changed("region") {
		c.Emulator.Region = o.Region.String()
	}
	if o.Log {
		c.Debug = true
	}
	if o.Headless {
		if c.Video.Display == DisplayHeadless {
			c.Video.Display = DisplayTerminal
		} else {
			c.Video.Display = DisplayHeadless
		}
	}
}

func (o *Options) String() string {
	return fmt.Sprintf("region=%v log=%v headless=%v conf=%q", o.Region, o.Log, o.Headless, o.Path)
}
