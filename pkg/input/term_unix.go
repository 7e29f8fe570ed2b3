//go:build unix

package input

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TermSource reads keys from a terminal in raw mode.
type TermSource struct {
	*State

	fd       int
	oldState *term.State
	stopCh   chan struct{}
	done     chan struct{}
	stopped  sync.Once
}

var ErrNoTerminal = errors.New("stdin is not a terminal")

// NewTermSource puts stdin into raw non-blocking mode and starts reading it.
// Close restores the terminal.
func NewTermSource(state *State) (*TermSource, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = term.Restore(fd, old)
		return nil, err
	}
	t := &TermSource{State: state, fd: fd, oldState: old, stopCh: make(chan struct{}), done: make(chan struct{})}
	go t.read()
	return t, nil
}

func (t *TermSource) read() {
	defer close(t.done)
	buf := make([]byte, 64)
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}
		n, err := syscall.Read(t.fd, buf)
		if n > 0 {
			Decode(buf[:n], t.Press)
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (t *TermSource) Close() error {
	t.stopped.Do(func() { close(t.stopCh) })
	<-t.done
	_ = syscall.SetNonblock(t.fd, false)
	return term.Restore(t.fd, t.oldState)
}
