package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mdfront/mdfront/pkg/region"
	"github.com/spf13/pflag"
)

func TestConfigDefaults(t *testing.T) {
	var out Config
	if err := LoadConfigEnv(&out); err != nil {
		t.Fatal(err)
	}
	if out.Audio.Sink != "oto" || out.Audio.BufferMs != 50 || out.Video.Display != DisplayTerminal {
		t.Errorf("wrong defaults %+v", out)
	}
	if len(out.Emulator.Extensions) != 3 {
		t.Errorf("wrong default extensions %v", out.Emulator.Extensions)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	data := []byte("emulator:\n  autosaveSec: 15\n  region: j\naudio:\n  sink: none\ninput:\n  keys:\n    z: a\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MDFRONT_AUDIO_BUFFERMS", "80")

	conf, err := NewConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Emulator.AutosaveSec != 15 || conf.Audio.Sink != "none" {
		t.Errorf("file values not loaded: %+v", conf)
	}
	if conf.Audio.BufferMs != 80 {
		t.Errorf("env value not loaded: %v", conf.Audio.BufferMs)
	}
	if conf.RegionOverride() != region.Japan {
		t.Errorf("expected japan, got %v", conf.RegionOverride())
	}
	if conf.Input.Keys["z"] != "a" {
		t.Errorf("key map not loaded: %v", conf.Input.Keys)
	}
}

func TestConfigBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "region", data: "emulator:\n  region: x\n"},
		{name: "display", data: "video:\n  display: window\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewConfig(path); err == nil {
				t.Errorf("bad %v must fail", tt.name)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Errorf("an explicit missing file must fail")
	}
}

func TestExpandSpecialTags(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	c := Config{Emulator: Emulator{Storage: "{user}/saves"}}
	if err := c.expandSpecialTags(); err != nil {
		t.Fatal(err)
	}
	if c.Emulator.Storage != filepath.Join(home, "saves") {
		t.Errorf("got %v", c.Emulator.Storage)
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		display string
		region  string
		debug   bool
		err     bool
	}{
		{name: "none", display: DisplayTerminal},
		{name: "all", args: []string{"-r", "E", "-l", "-x"}, display: DisplayHeadless, region: "E", debug: true},
		{name: "long", args: []string{"--region=u", "--headless"}, display: DisplayHeadless, region: "U"},
		{name: "bad region", args: []string{"-r", "k"}, err: true},
		{name: "unknown", args: []string{"--fast"}, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts Options
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			fs.SetOutput(nopWriter{})
			opts.WithFlags(fs)
			err := fs.Parse(tt.args)
			if (err != nil) != tt.err {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.err)
			}
			if err != nil {
				return
			}
			c := Config{Video: Video{Display: DisplayTerminal}}
			opts.Apply(&c)
			if c.Video.Display != tt.display || c.Emulator.Region != tt.region || c.Debug != tt.debug {
				t.Errorf("got %+v", c)
			}
		})
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
