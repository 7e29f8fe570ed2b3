// Package locator finds the directory persistent files are anchored to.
//
// The directory is the one holding the running binary, so saves are found
// next to it no matter what the working directory of the process is.
package locator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("executable location not found")

// Location is a resolved storage directory.
// The zero value means persistence is unavailable.
type Location struct {
	dir string
}

// At makes a Location from a known directory (a configured override).
func At(dir string) Location {
	if dir == "" {
		return Location{}
	}
	return Location{dir: filepath.Clean(dir)}
}

func (l Location) Dir() string    { return l.dir }
func (l Location) IsSet() bool    { return l.dir != "" }
func (l Location) String() string { return l.dir }

// Join builds a path inside the location, or "" when it is unset.
func (l Location) Join(name string) string {
	if !l.IsSet() {
		return ""
	}
	return filepath.Join(l.dir, name)
}

// Env is what the lookup needs from the process environment.
type Env struct {
	// Getwd returns the current working directory.
	Getwd func() (string, error)
	// Path is the PATH-like list of directories.
	Path string
}

// HostEnv reads the environment of the current process.
func HostEnv() Env { return Env{Getwd: os.Getwd, Path: os.Getenv("PATH")} }

// Find resolves the directory of the program invoked as argv0.
//
//   - absolute argv0: canonicalized, its parent taken;
//   - argv0 with a separator: resolved against the working dir first;
//   - bare name: searched in every PATH entry, first readable file wins.
//
// It is meant to run once at startup.
func Find(argv0 string, env Env) (Location, error) {
	if argv0 == "" {
		return Location{}, ErrNotFound
	}

	if filepath.IsAbs(argv0) {
		return parentOf(argv0)
	}

	if strings.ContainsRune(argv0, filepath.Separator) || strings.ContainsRune(argv0, '/') {
		if env.Getwd == nil {
			return Location{}, ErrNotFound
		}
		wd, err := env.Getwd()
		if err != nil {
			return Location{}, err
		}
		return parentOf(filepath.Join(wd, argv0))
	}

	for _, dir := range filepath.SplitList(env.Path) {
		if dir == "" {
			continue
		}
		if loc, err := parentOf(filepath.Join(dir, argv0)); err == nil {
			return loc, nil
		}
	}
	return Location{}, ErrNotFound
}

// parentOf canonicalizes path and returns its dir if path is a readable file.
func parentOf(path string) (Location, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return Location{}, err
	}
	real, err = filepath.Abs(real)
	if err != nil {
		return Location{}, err
	}
	if err := readable(real); err != nil {
		return Location{}, err
	}
	return Location{dir: filepath.Dir(real)}, nil
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return ErrNotFound
	}
	return nil
}
