// Package pollable implements a selectable readiness signal backed by an
// os.Pipe, matching the Pollable contract from spec.md §6: new/free, signal,
// reset, get_fd. This is inherently an OS primitive (a real file descriptor
// usable with an I/O multiplexer), so it is built on the standard library
// rather than a third-party dependency.
package pollable

import (
	"os"
	"sync"
)

// Pollable is a readiness flag exposed as a file descriptor: Signal makes
// the fd readable, Reset clears it. Multiple Signal calls before a Reset
// coalesce into a single readable byte, matching level-triggered readiness.
type Pollable struct {
	mu        sync.Mutex
	r, w      *os.File
	signalled bool
	closed    bool
}

// New creates a Pollable backed by a fresh pipe.
func New() (*Pollable, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Pollable{r: r, w: w}, nil
}

// Signal makes the pollable's fd readable. Safe to call repeatedly; excess
// signals before a Reset are idempotent.
func (p *Pollable) Signal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.signalled {
		return
	}
	p.signalled = true
	p.w.Write([]byte{0})
}

// Reset clears the readiness flag, draining the pipe so the fd is no longer
// readable.
func (p *Pollable) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.signalled {
		return
	}
	buf := make([]byte, 1)
	p.r.Read(buf)
	p.signalled = false
}

// Signalled reports whether the pollable is currently in the signalled
// state.
func (p *Pollable) Signalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signalled
}

// Fd returns the read end's file descriptor, suitable for select()/poll()
// via an I/O multiplexer.
func (p *Pollable) Fd() uintptr {
	return p.r.Fd()
}

// File returns the read end as an *os.File, for multiplexers expressed in
// terms of os.File (e.g. constructing an os.Process wait set).
func (p *Pollable) File() *os.File {
	return p.r
}

// Close releases both ends of the backing pipe. After Close, Signal and
// Reset are no-ops.
func (p *Pollable) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	werr := p.w.Close()
	rerr := p.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
