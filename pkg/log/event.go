package log

import "time"

// Event represents a protocol log event captured for a single device.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// DeviceName identifies the device the event pertains to.
	DeviceName string `cbor:"2,keyasint"`

	// Layer indicates which part of the device subsystem logged the event.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (at most one of these is set).
	StateChange *StateChangeEvent `cbor:"5,keyasint,omitempty"`
	Op          *OpEvent          `cbor:"6,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"7,keyasint,omitempty"`
	Trace       *TraceEvent       `cbor:"8,keyasint,omitempty"`
}

// Layer indicates which part of the device subsystem captured the event.
type Layer uint8

const (
	// LayerDiscovery is the endpoint discovery/prober layer.
	LayerDiscovery Layer = 0
	// LayerHTTP is the HTTP activity wrapper layer.
	LayerHTTP Layer = 1
	// LayerJob is the job state machine layer.
	LayerJob Layer = 2
	// LayerReader is the streaming image reader layer.
	LayerReader Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDiscovery:
		return "DISCOVERY"
	case LayerHTTP:
		return "HTTP"
	case LayerJob:
		return "JOB"
	case LayerReader:
		return "READER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state-machine transition.
	CategoryState Category = 0
	// CategoryOp indicates a protocol operation submit/complete.
	CategoryOp Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
	// CategoryTrace indicates a verbose diagnostic dump.
	CategoryTrace Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryOp:
		return "OP"
	case CategoryError:
		return "ERROR"
	case CategoryTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a job state-machine transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason describes why the transition happened, if notable.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// OpEvent captures a protocol operation submit or completion.
type OpEvent struct {
	// Op is the operation name (e.g. "SCAN", "LOAD").
	Op string `cbor:"1,keyasint"`

	// Status is the job status after the operation, if applicable.
	Status string `cbor:"2,keyasint,omitempty"`

	// Delay is a retry delay scheduled after this operation, if any.
	Delay time.Duration `cbor:"3,keyasint,omitempty"`

	// ImagesReceived is the running count of images received this job.
	ImagesReceived uint32 `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}

// TraceEvent captures a free-form key/value diagnostic dump, used for the
// scan-parameter and image-parameter traces the original backend logs at
// the start of a job and the start of each image decode.
type TraceEvent struct {
	// Subject names what is being traced (e.g. "scan-params", "image-params").
	Subject string `cbor:"1,keyasint"`

	// Fields holds the traced key/value pairs, in display order.
	Fields []TraceField `cbor:"2,keyasint,omitempty"`
}

// TraceField is a single key/value pair in a TraceEvent.
type TraceField struct {
	Key   string `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}
