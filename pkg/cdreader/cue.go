package cdreader

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

type trackKind int

const (
	dataTrack trackKind = iota
	audioTrack
)

type track struct {
	number     int
	kind       trackKind
	file       string
	sectorSize int
	// first sector of the track in its file
	start int64
	// sectors in the track, 0 up to the end of the file
	length int64
}

// parseCue reads the tracks of a cue sheet, file names are resolved against dir.
func parseCue(r io.Reader, dir string) ([]track, error) {
	var (
		tracks []track
		file   string
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := splitCue(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 2 {
				return nil, fmt.Errorf("cue line %d: no file name", line)
			}
			file = fields[1]
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}
		case "TRACK":
			if len(fields) < 3 || file == "" {
				return nil, fmt.Errorf("cue line %d: bad track", line)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("cue line %d: %w", line, err)
			}
			t := track{number: n, file: file}
			switch mode := strings.ToUpper(fields[2]); mode {
			case "AUDIO":
				t.kind, t.sectorSize = audioTrack, RawSectorSize
			case "MODE1/2048":
				t.sectorSize = SectorSize
			case "MODE1/2352":
				t.sectorSize = RawSectorSize
			default:
				return nil, fmt.Errorf("cue line %d: unsupported track mode %v", line, mode)
			}
			tracks = append(tracks, t)
		case "INDEX":
			if len(fields) < 3 || len(tracks) == 0 {
				return nil, fmt.Errorf("cue line %d: bad index", line)
			}
			if fields[1] != "01" && fields[1] != "1" {
				continue
			}
			s, err := msf(fields[2])
			if err != nil {
				return nil, fmt.Errorf("cue line %d: %w", line, err)
			}
			tracks[len(tracks)-1].start = s
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("cue has no tracks")
	}
	// a track ends where the next one in the same file starts
	for i := 0; i+1 < len(tracks); i++ {
		if tracks[i].file == tracks[i+1].file {
			tracks[i].length = tracks[i+1].start - tracks[i].start
		}
	}
	return tracks, nil
}

// msf converts mm:ss:ff into sectors, 75 per second.
func msf(s string) (int64, error) {
	p := strings.Split(s, ":")
	if len(p) != 3 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	var v [3]int64
	for i := range p {
		n, err := strconv.ParseInt(p[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad time %q", s)
		}
		v[i] = n
	}
	return (v[0]*60+v[1])*75 + v[2], nil
}

// splitCue splits a line on spaces, keeping quoted strings together.
func splitCue(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '"':
			if quote {
				out = append(out, cur.String())
				cur.Reset()
			}
			quote = !quote
		case (r == ' ' || r == '\t') && !quote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
