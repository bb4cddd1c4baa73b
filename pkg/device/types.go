// Package device implements the device subsystem's core: the per-device job
// state machine, the streaming image reader, the endpoint prober, discovery
// lifecycle glue, and the synchronous frontend API facade. It is grounded on
// airscan-device.c's device_t plus the state-machine/reader functions that
// surround it, translated into per-device locking instead of a single global
// event-loop mutex.
package device

import (
	"sync"
	"sync/atomic"

	"github.com/escl-core/netscan/pkg/decoder"
	"github.com/escl-core/netscan/pkg/eloop"
	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/pollable"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/registry"
	"github.com/escl-core/netscan/pkg/status"
)

// State is the job state machine's state, written only from the event loop
// goroutine (invariant 8 of spec.md §3); frontend goroutines read it only
// under Device.cond or via an atomic load.
type State int32

const (
	StateClosed State = iota
	StateIdle
	StateScanning
	StateCancelReq
	StateCancelWait
	StateCancelling
	StateCleanup
	StateDone
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateCancelReq:
		return "CANCEL_REQ"
	case StateCancelWait:
		return "CANCEL_WAIT"
	case StateCancelling:
		return "CANCELLING"
	case StateCleanup:
		return "CLEANUP"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Working reports whether s lies strictly between IDLE and DONE, the "job in
// progress" band from spec.md §4.6.
func (s State) Working() bool {
	return s > StateIdle && s < StateDone
}

// imageBlob is one not-yet-decoded image pulled off the protocol layer,
// queued FIFO between the event-loop thread (producer) and the reader
// (consumer).
type imageBlob struct {
	data []byte
}

// Device is the central entity of the subsystem: identity, option block,
// protocol context, job state machine, and streaming reader fields, mirroring
// device_t in the original design. Every field group notes who may mutate it;
// see spec.md §5's shared-resources rule.
type Device struct {
	name string

	manager *Manager
	logger  log.Logger

	// refcnt is atomic; lifecycle is independent of registry membership
	// (spec.md invariant 3).
	refcnt atomic.Int32

	// mu/cond guard every field below except stmState and the reader's
	// pollable, which have their own thread-safe handling; the image queue
	// is guarded by mu.
	// Frontend goroutines block on cond while waiting for state-machine
	// progress; the event loop broadcasts it on every transition.
	mu   sync.Mutex
	cond *sync.Cond

	flags registry.Flags

	opts *options.Options

	// vendor/model describe the device for the frontend listing, filled in
	// by the prober from decoded capabilities (or discovery fallbacks).
	vendor string
	model  string

	endpoints      []Endpoint
	endpointCursor int

	protoHandler protocol.Handler
	protoCtx     *protocol.Context
	protoOp      protocol.Op // proto_op_current: the op a delay timer or retry will resubmit

	httpActivity *httpactivity.Activity
	timer        *eloop.Timer

	// stmState is sequentially consistent; only the event-loop goroutine
	// writes it (spec.md invariant 8).
	stmState atomic.Int32

	// Job fields (device_job_* in the original).
	jobStatus      status.Code
	jobStatusSet   bool
	imagesReceived uint32
	skipX, skipY   int32 // per-axis residual skip, in image pixels at scan resolution

	// params is the promised image geometry of the job in progress, captured
	// from the option block when the frontend starts a scan. The reader
	// delivers exactly params.BytesPerLine × params.Lines bytes per page.
	params options.Parameters

	// Reader fields (device_read_* in the original).
	nonBlocking   bool
	decoder       decoder.Decoder
	pollable      *pollable.Pollable
	queue         []imageBlob
	curImage      bool
	lineBuf       []byte
	lineCap       int32
	lineOff       int32
	lineNum       int32
	skipLines     int32 // read_skip_lines
	lineEnd       int32 // line_end
	readSkipBytes int32 // read_skip_bytes
	bytesPerPixel int32
}

// Endpoint is a protocol identifier plus a base URI, the device's owned copy
// of a discovery.Endpoint.
type Endpoint struct {
	URI      string
	Protocol string
}

// Name implements registry.Member.
func (d *Device) Name() string { return d.name }

// Flags implements registry.Member.
func (d *Device) Flags() registry.Flags {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags
}

func (d *Device) setFlags(set, clear registry.Flags) {
	d.flags = (d.flags &^ clear) | set
}

func (d *Device) hasFlags(mask registry.Flags) bool {
	return d.flags&mask == mask
}

// state reads the state-machine state via atomic load, the frontend-safe
// path spec.md invariant 8 requires.
func (d *Device) state() State {
	return State(d.stmState.Load())
}

// setState stores the new state-machine state and broadcasts cond so every
// frontend waiter rechecks its predicate. Called from the event loop for all
// working transitions; the frontend calls it only for the DONE→IDLE (reader
// drain) transition, when the event loop is guaranteed not to be writing
// (DONE is terminal for it). Open, Start and Close store their IDLE and
// CLOSED states on stmState directly.
func (d *Device) setState(s State) {
	old := State(d.stmState.Swap(int32(s)))
	if old.Working() && !s.Working() && d.pollable != nil {
		// Leaving the working band: wake any reader blocked on the pollable.
		d.pollable.Signal()
	}
	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerJob,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: s.String(),
		},
	})
	d.broadcast()
}

// broadcast wakes every goroutine waiting on d.cond. The lock round-trip
// pairs the broadcast with the waiters' predicate checks, which all happen
// under d.mu, so a wake can never slip between a waiter's check and its
// Wait. Callers must not hold d.mu.
func (d *Device) broadcast() {
	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()
}

// ref increments the device's reference count.
func (d *Device) ref() { d.refcnt.Add(1) }

// unref decrements the reference count. Nothing is freed when it drops to
// zero: this implementation relies on the garbage collector for memory
// reclamation, so unref exists to preserve the observable refcount contract
// for tests and invariant checks rather than to trigger manual deallocation.
func (d *Device) unref() int32 { return d.refcnt.Add(-1) }
