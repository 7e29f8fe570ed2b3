package media

import (
	"errors"
	"fmt"

	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/spf13/afero"
)

var (
	ErrNotRegular = errors.New("not a file")
	ErrDiscSeek   = errors.New("cd sector seek failed")
)

// DefaultExtensions are cartridge files looked for inside archives.
var DefaultExtensions = []string{".md", ".bin", ".gen"}

// Loader classifies and loads media files.
type Loader struct {
	fs         afero.Fs
	disc       engine.Disc
	extensions []string
	log        *logger.Logger
}

// NewLoader makes a loader. disc may be nil, then every file is a cartridge.
func NewLoader(fs afero.Fs, disc engine.Disc, extensions []string, log *logger.Logger) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Loader{fs: fs, disc: disc, extensions: extensions, log: log}
}

// Load opens path as a disc first and falls back to a cartridge.
// A recognized disc stays open in the disc reader.
func (l *Loader) Load(path string) (*Image, error) {
	fi, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat failed: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %v", ErrNotRegular, path)
	}

	if img, ok, err := l.tryDisc(path); ok || err != nil {
		return img, err
	}

	data, entry, err := l.read(path)
	if err != nil {
		return nil, err
	}
	img, err := NewCartridge(path, data)
	if err != nil {
		return nil, err
	}
	img.Entry = entry
	l.log.Info().Int("size", img.FileSize()).Str("region", img.RegionFragment()).Msg("booting cartridge")
	return img, nil
}

func (l *Loader) tryDisc(path string) (*Image, bool, error) {
	if l.disc == nil {
		return nil, false, nil
	}
	if err := l.disc.Open(path); err != nil {
		l.log.Debug().Err(err).Msg("not a disc image")
		l.disc.Close()
		return nil, false, nil
	}
	if !l.disc.IsMegaCDGame() {
		l.disc.Close()
		return nil, false, nil
	}
	if !l.disc.SeekToSector(0) {
		l.disc.Close()
		return nil, true, ErrDiscSeek
	}
	l.log.Info().Msg("booting cd")
	return &Image{Kind: Disc, Path: path}, true, nil
}
