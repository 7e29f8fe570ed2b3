// Package storage persists save memory, save states and engine save files
// in the storage location.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mdfront/mdfront/pkg/compression/zip"
	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/spf13/afero"
)

const (
	SRAMExt  = ".srm"
	StateExt = ".state"

	// MaxSlot is the highest numbered save state slot, slot 0 has no suffix.
	MaxSlot = 9
)

var (
	ErrNoLocation = errors.New("storage location is not set")
	ErrNoName     = errors.New("no media name")
	ErrBadSlot    = errors.New("bad save state slot")
)

type (
	Storage interface {
		GetSavePath(slot int) (string, error)
		GetSRAMPath() (string, error)
		SetMainSaveName(name string)
		Load(path string) ([]byte, error)
		Save(path string, data []byte) error
		Enabled() bool
	}
	StateStorage struct {
		Fs  afero.Fs
		Dir locator.Location
		// contains the stem of the media file,
		// e.g. Sonic.md is Sonic
		MainSave string
	}
	ZipStorage struct {
		Storage
	}
)

// NewStateStorage makes a storage in dir, it is disabled when dir is unset.
func NewStateStorage(fs afero.Fs, dir locator.Location) *StateStorage {
	return &StateStorage{Fs: fs, Dir: dir}
}

// New returns a plain or a compressing storage.
func New(fs afero.Fs, dir locator.Location, compress bool) Storage {
	s := NewStateStorage(fs, dir)
	if compress {
		return &ZipStorage{Storage: s}
	}
	return s
}

func (s *StateStorage) SetMainSaveName(name string) { s.MainSave = name }
func (s *StateStorage) Enabled() bool               { return s.Dir.IsSet() }

func (s *StateStorage) GetSRAMPath() (string, error) { return s.path(s.MainSave + SRAMExt) }

// GetSavePath is the file of a save state slot.
// Slot 0 is name.state, others are name.stateN.
func (s *StateStorage) GetSavePath(slot int) (string, error) {
	if slot < 0 || slot > MaxSlot {
		return "", fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
	name := s.MainSave + StateExt
	if slot > 0 {
		name += strconv.Itoa(slot)
	}
	return s.path(name)
}

func (s *StateStorage) path(name string) (string, error) {
	if !s.Dir.IsSet() {
		return "", ErrNoLocation
	}
	if s.MainSave == "" {
		return "", ErrNoName
	}
	return s.Dir.Join(name), nil
}

func (s *StateStorage) Load(path string) ([]byte, error) {
	if !s.Dir.IsSet() {
		return nil, ErrNoLocation
	}
	return afero.ReadFile(s.Fs, path)
}

func (s *StateStorage) Save(path string, dat []byte) error {
	if !s.Dir.IsSet() {
		return ErrNoLocation
	}
	return WriteFile(s.Fs, path, dat)
}

func (z *ZipStorage) GetSavePath(slot int) (string, error) {
	p, err := z.Storage.GetSavePath(slot)
	if err != nil {
		return "", err
	}
	return p + zip.Ext, nil
}

func (z *ZipStorage) GetSRAMPath() (string, error) {
	p, err := z.Storage.GetSRAMPath()
	if err != nil {
		return "", err
	}
	return p + zip.Ext, nil
}

// Load loads a zip file with the path specified.
func (z *ZipStorage) Load(path string) ([]byte, error) {
	data, err := z.Storage.Load(path)
	if err != nil {
		return nil, err
	}
	d, _, err := zip.Read(data)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Save saves the array of bytes into a file with the specified path.
func (z *ZipStorage) Save(path string, data []byte) error {
	_, name := filepath.Split(path)
	if name == "" || name == "." {
		return zip.ErrorInvalidName
	}
	name = strings.TrimSuffix(name, zip.Ext)
	compress, err := zip.Compress(data, name)
	if err != nil {
		return err
	}
	return z.Storage.Save(path, compress)
}

// WriteFile replaces path with data through a temporary file,
// so an interrupted write never leaves a truncated file behind.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := afero.TempFile(fs, dir, "."+name+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err1 := f.Close(); err == nil {
		err = err1
	}
	if err == nil {
		_ = fs.Chmod(tmp, 0644)
		err = fs.Rename(tmp, path)
	}
	if err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("write %v: %w", path, err)
	}
	return nil
}

// Size is the size of a regular file.
func Size(fs afero.Fs, path string) (int64, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, &os.PathError{Op: "size", Path: path, Err: os.ErrInvalid}
	}
	return fi.Size(), nil
}
