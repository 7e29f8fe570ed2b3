package storage

import (
	"errors"
	"path/filepath"

	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/spf13/afero"
)

var (
	ErrBadName = errors.New("bad save file name")
	ErrBusy    = errors.New("a save file is already open")
)

// SaveFiles backs the save file calls of the engine,
// such as the Mega CD backup RAM.
// Only one file is open at a time. Writes are buffered and
// land in the storage location on close.
type SaveFiles struct {
	fs  afero.Fs
	dir locator.Location
	log *logger.Logger

	reading bool
	data    []byte
	pos     int

	writing string
}

func NewSaveFiles(fs afero.Fs, dir locator.Location, log *logger.Logger) *SaveFiles {
	return &SaveFiles{fs: fs, dir: dir, log: log}
}

func (s *SaveFiles) resolve(name string) (string, error) {
	if !s.dir.IsSet() {
		return "", ErrNoLocation
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", ErrBadName
	}
	return s.dir.Join(name), nil
}

func (s *SaveFiles) busy() bool { return s.reading || s.writing != "" }

// OpenRead loads name whole for byte-wise reading.
func (s *SaveFiles) OpenRead(name string) error {
	if s.busy() {
		return ErrBusy
	}
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	s.reading, s.data, s.pos = true, data, 0
	return nil
}

// Read returns the next byte or -1 at the end.
func (s *SaveFiles) Read() int {
	if !s.reading || s.pos >= len(s.data) {
		return -1
	}
	b := s.data[s.pos]
	s.pos++
	return int(b)
}

// OpenWrite starts a new version of name.
func (s *SaveFiles) OpenWrite(name string) error {
	if s.busy() {
		return ErrBusy
	}
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	s.writing, s.data = path, s.data[:0]
	return nil
}

func (s *SaveFiles) Write(b byte) {
	if s.writing != "" {
		s.data = append(s.data, b)
	}
}

// Close ends the current read or commits the current write.
func (s *SaveFiles) Close() error {
	var err error
	if s.writing != "" {
		err = WriteFile(s.fs, s.writing, s.data)
		if err != nil {
			s.log.Error().Err(err).Msg("save file write")
		}
	}
	s.reading, s.writing, s.pos = false, "", 0
	s.data = s.data[:0]
	return err
}

func (s *SaveFiles) Remove(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	return s.fs.Remove(path)
}

func (s *SaveFiles) Size(name string) (int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	return Size(s.fs, path)
}
