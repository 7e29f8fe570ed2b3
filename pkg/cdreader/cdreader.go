// Package cdreader reads Mega CD disc images.
//
// Supported are plain ISO images with 2048-byte sectors, raw BIN images with
// 2352-byte sectors and cue sheets over them, audio tracks included.
package cdreader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mdfront/mdfront/pkg/engine"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/spf13/afero"
)

const (
	SectorSize    = 2048
	RawSectorSize = 2352
	// raw sectors carry a sync pattern and a header before the data
	rawDataOffset = 16

	// FramesPerSector is the stereo audio frames in one raw audio sector.
	FramesPerSector = RawSectorSize / 4

	stateSize = 16
)

// Signature opens the boot sector of a Mega CD game.
const Signature = "SEGADISCSYSTEM  "

var (
	ErrNotDisc  = errors.New("not a disc image")
	ErrNoTracks = errors.New("no data track")
)

var _ engine.Disc = (*Reader)(nil)

type Reader struct {
	fs  afero.Fs
	log *logger.Logger

	tracks []track
	files  map[string]afero.File

	sector uint32

	// audio playback
	playing bool
	mode    engine.CDDAMode
	track   int
	frame   int64

	raw []byte
}

func New(fs afero.Fs, log *logger.Logger) *Reader {
	return &Reader{fs: fs, log: log, raw: make([]byte, RawSectorSize)}
}

func (r *Reader) IsOpen() bool { return len(r.tracks) > 0 }

// Open opens an image or a cue sheet.
func (r *Reader) Open(path string) error {
	r.Close()

	var tracks []track
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		f, err := r.fs.Open(path)
		if err != nil {
			return err
		}
		tracks, err = parseCue(f, filepath.Dir(path))
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotDisc, err)
		}
	} else {
		size, err := r.detect(path)
		if err != nil {
			return err
		}
		tracks = []track{{number: 1, kind: dataTrack, file: path, sectorSize: size}}
	}
	if tracks[0].kind != dataTrack {
		return ErrNoTracks
	}

	files := make(map[string]afero.File)
	for _, t := range tracks {
		if files[t.file] != nil {
			continue
		}
		f, err := r.fs.Open(t.file)
		if err != nil {
			for _, f := range files {
				_ = f.Close()
			}
			return err
		}
		files[t.file] = f
	}
	r.tracks, r.files = tracks, files
	r.sector, r.playing = 0, false
	r.log.Debug().Str("path", path).Int("tracks", len(tracks)).Int("sector", tracks[0].sectorSize).Msg("disc open")
	return nil
}

// detect finds the sector size of a single track image by its signature.
func (r *Reader) detect(path string) (int, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, rawDataOffset+len(Signature))
	if _, err := io.ReadFull(f, head); err != nil {
		return 0, ErrNotDisc
	}
	switch {
	case bytes.HasPrefix(head, []byte(Signature)):
		return SectorSize, nil
	case bytes.Equal(head[rawDataOffset:], []byte(Signature)):
		return RawSectorSize, nil
	}
	return 0, ErrNotDisc
}

func (r *Reader) Close() {
	for _, f := range r.files {
		_ = f.Close()
	}
	r.tracks, r.files = nil, nil
	r.playing = false
}

// readRaw reads sector n of a track into r.raw.
func (r *Reader) readRaw(t *track, n int64) ([]byte, error) {
	if n < 0 || (t.length > 0 && n >= t.length) {
		return nil, io.EOF
	}
	buf := r.raw[:t.sectorSize]
	off := (t.start + n) * int64(t.sectorSize)
	if _, err := r.files[t.file].ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) readData(n uint32) ([]byte, error) {
	if !r.IsOpen() {
		return nil, ErrNotDisc
	}
	t := &r.tracks[0]
	buf, err := r.readRaw(t, int64(n))
	if err != nil {
		return nil, err
	}
	if t.sectorSize == RawSectorSize {
		buf = buf[rawDataOffset : rawDataOffset+SectorSize]
	}
	return buf, nil
}

// IsMegaCDGame checks the boot sector.
func (r *Reader) IsMegaCDGame() bool {
	buf, err := r.readData(0)
	return err == nil && bytes.HasPrefix(buf, []byte(Signature))
}

func (r *Reader) SeekToSector(n uint32) bool {
	if _, err := r.readData(n); err != nil {
		r.log.Debug().Err(err).Uint32("sector", n).Msg("seek failed")
		return false
	}
	r.sector = n
	return true
}

// ReadSector reads the current sector as big-endian words and moves to the next one.
// A failed read gives zeroes.
func (r *Reader) ReadSector(buf []uint16) {
	data, err := r.readData(r.sector)
	r.sector++
	if err != nil {
		r.log.Warn().Err(err).Uint32("sector", r.sector-1).Msg("sector read failed")
		clear(buf)
		return
	}
	for i := 0; i < min(len(buf), SectorSize/2); i++ {
		buf[i] = binary.BigEndian.Uint16(data[i*2:])
	}
}

func (r *Reader) findTrack(number uint16) int {
	for i, t := range r.tracks {
		if t.number == int(number) {
			return i
		}
	}
	return -1
}

// PlayAudio starts a CD audio track.
func (r *Reader) PlayAudio(number uint16, mode engine.CDDAMode) bool {
	switch mode {
	case engine.PlayAll, engine.PlayOnce, engine.PlayRepeat:
	default:
		r.log.Warn().Int("mode", int(mode)).Msg("unknown audio play mode")
		return false
	}
	i := r.findTrack(number)
	if i < 0 || r.tracks[i].kind != audioTrack {
		r.playing = false
		return false
	}
	r.playing, r.mode, r.track, r.frame = true, mode, i, 0
	return true
}

// ReadAudio reads up to frames of 16-bit stereo audio, it returns the frames read.
func (r *Reader) ReadAudio(buf []int16, frames int) int {
	done := 0
	for done < frames && r.playing {
		t := &r.tracks[r.track]
		data, err := r.readRaw(t, r.frame/FramesPerSector)
		if err != nil {
			r.next()
			continue
		}
		off := int(r.frame % FramesPerSector)
		n := min(FramesPerSector-off, frames-done)
		for i := 0; i < n*2; i++ {
			buf[done*2+i] = int16(binary.LittleEndian.Uint16(data[off*4+i*2:]))
		}
		done += n
		r.frame += int64(n)
	}
	return done
}

// next handles the end of the current track.
func (r *Reader) next() {
	switch {
	case r.frame == 0:
		// empty track
		r.playing = false
	case r.mode == engine.PlayRepeat:
	case r.mode == engine.PlayAll && r.track+1 < len(r.tracks) && r.tracks[r.track+1].kind == audioTrack:
		r.track++
	default:
		r.playing = false
	}
	r.frame = 0
}

func (r *Reader) StateSize() int { return stateSize }

func (r *Reader) SaveState(dst []byte) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], r.sector)
	le.PutUint32(dst[4:], uint32(r.track))
	le.PutUint32(dst[8:], uint32(r.frame))
	dst[12] = byte(r.mode)
	dst[13] = 0
	if r.playing {
		dst[13] = 1
	}
	dst[14], dst[15] = 0, 0
}

func (r *Reader) LoadState(src []byte) {
	le := binary.LittleEndian
	r.sector = le.Uint32(src[0:])
	r.track = int(le.Uint32(src[4:]))
	r.frame = int64(le.Uint32(src[8:]))
	r.mode = engine.CDDAMode(src[12])
	r.playing = src[13] != 0 && r.track < len(r.tracks)
}
