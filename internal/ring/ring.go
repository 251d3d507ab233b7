// Package ring implements a fixed-capacity byte buffer used as a session's
// raw output log: a bounded tail of recent bytes for crash-tail recovery,
// grounded on the teacher's own trim-from-front discipline for its
// scrollback/plain-history buffers (ScrollHistory, PlainHistory in
// virtualterminal.VT), realized here as a byte buffer per spec.md §3/§9
// rather than a line slice.
package ring

import "bytes"

// Ring is a fixed-capacity byte buffer. Writes past capacity evict the
// oldest bytes.
type Ring struct {
	buf []byte
	cap int
}

// New returns a Ring that retains at most capacity bytes.
func New(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{cap: capacity}
}

// Write appends p, evicting the oldest bytes if the buffer would exceed its
// capacity. It always returns len(p), nil.
func (r *Ring) Write(p []byte) (int, error) {
	if r.cap == 0 {
		return len(p), nil
	}
	r.buf = append(r.buf, p...)
	if over := len(r.buf) - r.cap; over > 0 {
		r.buf = r.buf[over:]
	}
	return len(p), nil
}

// Bytes returns the buffer's current contents. Callers must not mutate the
// returned slice.
func (r *Ring) Bytes() []byte {
	return r.buf
}

// LastLines returns the last n newline-separated lines currently held,
// oldest first. A partial, unterminated trailing line counts as a line.
func (r *Ring) LastLines(n int) []string {
	if n <= 0 || len(r.buf) == 0 {
		return nil
	}
	trimmed := bytes.TrimRight(r.buf, "\n")
	lines := bytes.Split(trimmed, []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}
