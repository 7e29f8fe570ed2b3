package display

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"
)

const (
	// terminals are slow, a frame is drawn at most this often
	terminalFPS = 15

	csiHome       = "\x1b[H"
	csiClear      = "\x1b[2J"
	csiHideCursor = "\x1b[?25l"
	csiShowCursor = "\x1b[?25h"
	csiReset      = "\x1b[0m"
)

// TerminalDisplay draws frames with 24-bit colour half blocks,
// two pixels per character cell.
type TerminalDisplay struct {
	w    *bufio.Writer
	size func() (cols, rows int, err error)

	every int
	n     int
	num   []byte
}

// NewTerminal draws into out, fps is the rate frames are presented at.
func NewTerminal(out *os.File, fps int) *TerminalDisplay {
	fd := int(out.Fd())
	return newTerminal(out, fps, func() (int, int, error) { return term.GetSize(fd) })
}

func newTerminal(out io.Writer, fps int, size func() (int, int, error)) *TerminalDisplay {
	t := &TerminalDisplay{w: bufio.NewWriterSize(out, 64<<10), size: size, every: max(fps/terminalFPS, 1)}
	_, _ = t.w.WriteString(csiHideCursor + csiClear)
	_ = t.w.Flush()
	return t
}

func (t *TerminalDisplay) Present(f *Frame) error {
	t.n++
	if (t.n-1)%t.every != 0 || f.Width == 0 || f.Height == 0 {
		return nil
	}
	cols, rows, err := t.size()
	if err != nil || cols <= 0 || rows <= 1 {
		cols, rows = 80, 25
	}
	// keep the last row for the cursor
	rows--
	cols, rows = min(cols, f.Width), min(rows, (f.Height+1)/2)

	_, _ = t.w.WriteString(csiHome)
	for r := 0; r < rows; r++ {
		y0 := (2 * r) * f.Height / (2 * rows)
		y1 := min((2*r+1)*f.Height/(2*rows), f.Height-1)
		for c := 0; c < cols; c++ {
			x := c * f.Width / cols
			t.colour(38, f.At(x, y0))
			t.colour(48, f.At(x, y1))
			_, _ = t.w.WriteString("▀")
		}
		_, _ = t.w.WriteString(csiReset + "\r\n")
	}
	return t.w.Flush()
}

func (t *TerminalDisplay) colour(kind int, argb uint32) {
	t.num = t.num[:0]
	t.num = append(t.num, "\x1b["...)
	t.num = strconv.AppendInt(t.num, int64(kind), 10)
	t.num = append(t.num, ";2;"...)
	t.num = strconv.AppendUint(t.num, uint64(argb>>16&0xFF), 10)
	t.num = append(t.num, ';')
	t.num = strconv.AppendUint(t.num, uint64(argb>>8&0xFF), 10)
	t.num = append(t.num, ';')
	t.num = strconv.AppendUint(t.num, uint64(argb&0xFF), 10)
	t.num = append(t.num, 'm')
	_, _ = t.w.Write(t.num)
}

func (t *TerminalDisplay) Close() error {
	_, _ = t.w.WriteString(csiReset + csiClear + csiHome + csiShowCursor)
	return t.w.Flush()
}
