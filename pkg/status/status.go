// Package status defines the small error taxonomy the device core reports
// to its frontend callers, mirroring the status codes a SANE-style scanning
// API returns from its backends.
package status

import "fmt"

// Code is one of a small, closed set of outcome kinds a frontend call can
// return. It deliberately does not carry transport detail; wrapped errors
// carry that via Status.Unwrap.
type Code int

const (
	// Good indicates success.
	Good Code = iota
	// Inval indicates the call was made in the wrong state or with
	// malformed arguments.
	Inval
	// DeviceBusy indicates open was called on an already-open device.
	DeviceBusy
	// NoMem indicates a resource allocation failure during open.
	NoMem
	// IOError indicates a transport or decode failure surfaced to the reader.
	IOError
	// Cancelled indicates a cooperative cancel was observed by the reader.
	Cancelled
	// EOF is an internal sentinel: the reader drains remaining buffered
	// bytes before surfacing it to the caller.
	EOF
)

func (c Code) String() string {
	switch c {
	case Good:
		return "GOOD"
	case Inval:
		return "INVAL"
	case DeviceBusy:
		return "DEVICE_BUSY"
	case NoMem:
		return "NO_MEM"
	case IOError:
		return "IO_ERROR"
	case Cancelled:
		return "CANCELLED"
	case EOF:
		return "EOF"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Status is an error carrying a Code plus optional wrapped detail.
type Status struct {
	Code Code
	Err  error
}

func (s *Status) Error() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %v", s.Code, s.Err)
	}
	return s.Code.String()
}

func (s *Status) Unwrap() error { return s.Err }

// Is reports whether target is a *Status with the same Code, so callers can
// use errors.Is(err, status.New(status.Cancelled)).
func (s *Status) Is(target error) bool {
	ts, ok := target.(*Status)
	if !ok {
		return false
	}
	return ts.Code == s.Code
}

// New builds a bare Status with no wrapped detail.
func New(code Code) *Status { return &Status{Code: code} }

// Wrap builds a Status that wraps err with additional code context.
func Wrap(code Code, err error) *Status { return &Status{Code: code, Err: err} }

// IsGood reports whether err is nil or a Status with Code Good.
func IsGood(err error) bool {
	if err == nil {
		return true
	}
	s, ok := err.(*Status)
	return ok && s.Code == Good
}

// CodeOf extracts the Code carried by err, or Good if err is nil, or IOError
// if err is some other (non-Status) error — the catch-all for unexpected
// failures reaching a frontend boundary.
func CodeOf(err error) Code {
	if err == nil {
		return Good
	}
	if s, ok := err.(*Status); ok {
		return s.Code
	}
	return IOError
}
