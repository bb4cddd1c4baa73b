// Package protocol defines the type-erased contract the job state machine
// (pkg/device) drives a scanner through: a small set of named operations
// (capabilities, scan, load, status, cancel, cleanup), each producing an
// HTTP request and, once that request completes, a decoded Result telling
// the state machine what to do next. Concrete protocols (eSCL today, see
// pkg/protocol/escl) implement Handler; the state machine itself never
// knows which wire format it is driving.
package protocol

import (
	"time"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/status"
)

// Op identifies one protocol-level operation, corresponding to PROTO_OP in
// the original device management design.
type Op int

const (
	// OpNone is never submitted; it marks "no operation" in contexts where
	// one is required by the type but not meaningful yet.
	OpNone Op = iota
	// OpScan starts a scan job.
	OpScan
	// OpLoad fetches the next document/page image.
	OpLoad
	// OpCheck polls scanner status.
	OpCheck
	// OpCancel cancels an in-progress job.
	OpCancel
	// OpCleanup releases scanner-side job state after completion.
	OpCleanup
	// OpFinish is a sentinel result value: no further operation follows.
	OpFinish
)

// String returns the operation name, for logging.
func (o Op) String() string {
	switch o {
	case OpNone:
		return "NONE"
	case OpScan:
		return "SCAN"
	case OpLoad:
		return "LOAD"
	case OpCheck:
		return "CHECK"
	case OpCancel:
		return "CANCEL"
	case OpCleanup:
		return "CLEANUP"
	case OpFinish:
		return "FINISH"
	default:
		return "UNKNOWN"
	}
}

// ScanParams describes the geometry and mode of a scan job, computed by
// the job state machine from device options and geometry clamping (see
// pkg/geometry) before SCAN is submitted.
type ScanParams struct {
	XOff, YOff int32
	Wid, Hei   int32
	XRes, YRes int32
	Source     string
	ColorMode  string
}

// ResultData carries the optional side-effects of one operation's decoded
// response: SCAN may return a job Location, LOAD may return an Image.
type ResultData struct {
	Location string
	Image    []byte
}

// Result is what every *Decode function returns: the next operation to run
// (or OpFinish), an optional retry delay before running it, the job status
// this operation implies, and any side-effect data.
type Result struct {
	Next   Op
	Delay  time.Duration
	Status status.Code
	Data   ResultData
	Err    error
}

// Context carries the per-device protocol state a Handler needs across
// calls: the endpoint it is bound to, the scanner-assigned job location
// (once SCAN succeeds), the retry counter, and the parameters of the job
// currently in flight.
type Context struct {
	BaseURI       string
	Location      string
	FailedAttempt int
	Params        ScanParams
}

// Handler is the capability set a protocol implementation exposes: build a
// request for each named operation, and decode that operation's response
// into a Result (or, for Capabilities, into a Capabilities block).
type Handler interface {
	// Name is the protocol's human-readable name, used to label devices
	// ("<name> network scanner") and to select handlers per endpoint.
	Name() string

	CapabilitiesQuery(ctx *Context) httpactivity.Request
	CapabilitiesDecode(ctx *Context, resp *httpactivity.Response) (*options.Capabilities, error)

	ScanQuery(ctx *Context) httpactivity.Request
	ScanDecode(ctx *Context, resp *httpactivity.Response) Result

	LoadQuery(ctx *Context) httpactivity.Request
	LoadDecode(ctx *Context, resp *httpactivity.Response) Result

	StatusQuery(ctx *Context) httpactivity.Request
	StatusDecode(ctx *Context, resp *httpactivity.Response) Result

	CancelQuery(ctx *Context) httpactivity.Request
	CleanupQuery(ctx *Context) httpactivity.Request
}

// DummyDecode is the shared response decoder for CANCEL and CLEANUP: these
// operations have no meaningful response body, so they always conclude the
// job immediately with no data and no delay.
func DummyDecode(*httpactivity.Response) Result {
	return Result{Next: OpFinish}
}

// NewHandlerFunc constructs a fresh Handler instance, one per device.
type NewHandlerFunc func() Handler

// Registry maps a protocol identifier (e.g. "eSCL") to a constructor for
// its Handler, mirroring proto_handler_new's dispatch over ID_PROTO in the
// original implementation, generalized so additional wire protocols can be
// registered without touching the device subsystem.
type Registry struct {
	handlers map[string]NewHandlerFunc
}

// NewRegistry creates an empty protocol registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]NewHandlerFunc)}
}

// Register installs the constructor for a protocol identifier, overwriting
// any previous registration under the same name.
func (r *Registry) Register(id string, fn NewHandlerFunc) {
	r.handlers[id] = fn
}

// New instantiates the handler registered for id, or nil if id is unknown.
// Callers that already validated the endpoint's protocol should treat a nil
// result as a programming error (the original asserts non-null here).
func (r *Registry) New(id string) Handler {
	fn, ok := r.handlers[id]
	if !ok {
		return nil
	}
	return fn()
}
