// Package registry implements the process-wide device table (device_table
// in the original design): a keyed collection of devices with bulk
// flag-based filtering and a readiness barrier that lets frontend calls
// block until discovery has settled. The registry is deliberately generic
// over a small Member interface rather than the concrete device type, so
// it can be exercised in isolation from the job state machine.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/escl-core/netscan/pkg/eloop"
)

// Flags describes a member's frontend-visible lifecycle, mirroring the
// DEVICE_* flag bits from spec.md §3.
type Flags uint32

const (
	// Listed is set iff the member currently appears in the registry.
	Listed Flags = 1 << iota
	// Ready is set once capabilities were fetched and decoded successfully.
	Ready
	// Halted is set once the member has been torn down; no new I/O may be
	// submitted for it.
	Halted
	// InitWait is set at add-time for members found during discovery's
	// initial scan, cleared once probing concludes.
	InitWait
	// Scanning is set between start and the final read of a job.
	Scanning
	// Reading is set while a frontend read call is valid.
	Reading

	// All matches every member regardless of flags, for bulk purge.
	All Flags = 0xffffffff
)

// Has reports whether f has every bit in mask set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Member is the contract a registry entry must satisfy: a stable name
// (the registry key) and a current flags snapshot.
type Member interface {
	Name() string
	Flags() Flags
}

// Registry is a keyed table of Members plus a condition variable signalled
// whenever readiness may have changed (device_table_cond).
type Registry struct {
	mu      sync.Mutex
	cond    *sync.Cond
	members map[string]Member
}

// New creates an empty Registry.
func New() *Registry {
	r := &Registry{members: make(map[string]Member)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Add inserts a new member under name, invoking construct to build it only
// if name is not already present. Returns the existing member and false on
// a duplicate add (a no-op, per spec.md invariant 8); otherwise the newly
// constructed member and true.
func (r *Registry) Add(name string, construct func() Member) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.members[name]; ok {
		return existing, false
	}
	m := construct()
	r.members[name] = m
	return m, true
}

// Del removes the member named name, if present.
func (r *Registry) Del(name string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[name]
	if ok {
		delete(r.members, name)
	}
	return m, ok
}

// Find looks up a member by name.
func (r *Registry) Find(name string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[name]
	return m, ok
}

// Collect returns every member whose flags intersect mask.
func (r *Registry) Collect(mask Flags) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		if m.Flags()&mask != 0 {
			out = append(out, m)
		}
	}
	return out
}

// Size returns the current member count.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Ready reports whether no member carries InitWait.
func (r *Registry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyLocked()
}

func (r *Registry) readyLocked() bool {
	for _, m := range r.members {
		if m.Flags().Has(InitWait) {
			return false
		}
	}
	return true
}

// Purge removes every member and returns them, for shutdown teardown.
func (r *Registry) Purge() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	r.members = make(map[string]Member)
	return out
}

// Broadcast wakes every goroutine blocked in WaitReady, e.g. after a probe
// concludes or discovery's initial scan window closes.
func (r *Registry) Broadcast() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// WaitReady blocks until the registry is ready and extra() also reports
// true (the caller's additional settling condition — typically "discovery
// is not mid initial-scan"), or until deadline passes. It returns whether
// the combined predicate was satisfied.
func (r *Registry) WaitReady(ctx context.Context, deadline time.Time, extra func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pred := func() bool { return !r.readyLocked() || !extra() }
	return eloop.CondWaitUntil(ctx, r.cond, &r.mu, deadline, pred)
}
