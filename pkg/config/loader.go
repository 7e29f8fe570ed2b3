package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkyr/fig"
)

const EnvPrefix = "MDFRONT"

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file or its dir.
// Reads and puts environment variables with the prefix MDFRONT_.
// Params from the config should be in uppercase separated with _.
// Without a file only the defaults and the environment are used.
func LoadConfig(config any, path string) error {
	opts := []fig.Option{fig.UseEnv(EnvPrefix)}
	if isFile(path) {
		opts = append(opts, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)))
		return fig.Load(config, opts...)
	}

	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs")
		if exe, err := os.Executable(); err == nil {
			dirs = append(dirs, filepath.Join(filepath.Dir(exe), "configs"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".mdfront"))
		}
	}
	err := fig.Load(config, append(opts, fig.Dirs(dirs...))...)
	if errors.Is(err, fig.ErrFileNotFound) && path == "" {
		return LoadConfigEnv(config)
	}
	return err
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

func isFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}
