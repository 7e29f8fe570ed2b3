package audio

import (
	"io"
	"sync"
)

// Ring is a byte ring buffer between the frame loop (writer)
// and the audio device (reader).
// Writing into a full ring drops the oldest bytes.
// Reading blocks until there is data or the ring is closed.
type Ring struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	r, n   int
	closed bool
}

func NewRing(size int) *Ring {
	r := Ring{buf: make([]byte, size)}
	r.cond = sync.NewCond(&r.mu)
	return &r
}

func (r *Ring) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(p) == 0 {
		return
	}
	size := len(r.buf)
	if len(p) >= size {
		p = p[len(p)-size:]
		copy(r.buf, p)
		r.r, r.n = 0, size
		r.cond.Broadcast()
		return
	}
	if over := r.n + len(p) - size; over > 0 {
		r.r = (r.r + over) % size
		r.n -= over
	}
	w := (r.r + r.n) % size
	k := copy(r.buf[w:], p)
	copy(r.buf, p[k:])
	r.n += len(p)
	r.cond.Broadcast()
}

func (r *Ring) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.n == 0 && !r.closed {
		r.cond.Wait()
	}
	if r.n == 0 {
		return 0, io.EOF
	}
	size := len(r.buf)
	n := min(len(p), r.n)
	k := copy(p[:n], r.buf[r.r:min(r.r+n, size)])
	copy(p[k:n], r.buf)
	r.r = (r.r + n) % size
	r.n -= n
	return n, nil
}

func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.r, r.n = 0, 0
}

// Close wakes up a blocked reader, it gets io.EOF once the ring is drained.
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}
